package textdiff

import "testing"

func TestComputeNoChange(t *testing.T) {
	if got := Compute("hello\nworld\n", "hello\nworld\n"); got != nil {
		t.Errorf("expected nil for identical content, got %v", got)
	}
	if got := Compute("", ""); got != nil {
		t.Errorf("expected nil for empty content, got %v", got)
	}
}

func TestComputeInsertWithinLine(t *testing.T) {
	replaces := Compute("Hello", "Hello world")

	if len(replaces) != 1 {
		t.Fatalf("expected 1 replace, got %d: %v", len(replaces), replaces)
	}
	r := replaces[0]
	if r.Start != (Point{Line: 0, Character: 5}) || r.End != (Point{Line: 0, Character: 5}) {
		t.Errorf("unexpected range: %v..%v", r.Start, r.End)
	}
	if r.Text != " world" {
		t.Errorf("unexpected text: %q", r.Text)
	}
	if !r.IsInsert() {
		t.Error("expected insert")
	}
}

func TestComputeDeleteLine(t *testing.T) {
	replaces := Compute("a\nX\nb\n", "a\nb\n")

	if len(replaces) != 1 {
		t.Fatalf("expected 1 replace, got %d: %v", len(replaces), replaces)
	}
	r := replaces[0]
	if r.Text != "" {
		t.Errorf("expected deletion, got text %q", r.Text)
	}
	if r.Start != (Point{Line: 1, Character: 0}) || r.End != (Point{Line: 2, Character: 0}) {
		t.Errorf("unexpected range: %v..%v", r.Start, r.End)
	}
}

func TestComputeInsertLine(t *testing.T) {
	replaces := Compute("a\nb", "a\nX\nb")

	if len(replaces) != 1 {
		t.Fatalf("expected 1 replace, got %d: %v", len(replaces), replaces)
	}
	r := replaces[0]
	if r.Start != (Point{Line: 1, Character: 0}) || r.End != r.Start {
		t.Errorf("unexpected range: %v..%v", r.Start, r.End)
	}
	if r.Text != "X\n" {
		t.Errorf("unexpected text: %q", r.Text)
	}
}

func TestComputeOrderedNonOverlapping(t *testing.T) {
	oldText := "one\ntwo\nthree\nfour\nfive\n"
	newText := "ONE\ntwo\nthree\nFOUR\nfive\n"

	replaces := Compute(oldText, newText)

	if len(replaces) < 2 {
		t.Fatalf("expected at least 2 replaces, got %d: %v", len(replaces), replaces)
	}
	for i := 1; i < len(replaces); i++ {
		if replaces[i].Start.Compare(replaces[i-1].End) < 0 {
			t.Errorf("replaces overlap or out of order: %v then %v", replaces[i-1], replaces[i])
		}
	}
}

func TestApplyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"append word", "Hello", "Hello world"},
		{"delete middle line", "a\nX\nb\n", "a\nb\n"},
		{"insert line", "a\nb", "a\nX\nb"},
		{"replace everything", "alpha\nbeta\n", "gamma\n"},
		{"empty to content", "", "fresh\nstart\n"},
		{"content to empty", "old\nstuff\n", ""},
		{"multiple edits", "one\ntwo\nthree\nfour\n", "one\nTWO\nthree\nextra\nfour\n"},
		{"unicode", "héllo wörld", "héllo there wörld"},
		{"emoji", "a 🙂 b", "a 🙂🙃 b"},
		{"no trailing newline", "x\ny", "x\nz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replaces := Compute(tt.old, tt.new)
			got := Apply(tt.old, replaces)
			if got != tt.new {
				t.Errorf("Apply(Compute) = %q, want %q (replaces: %v)", got, tt.new, replaces)
			}
		})
	}
}

func TestPointForOffset(t *testing.T) {
	text := "ab\ncd\n"

	tests := []struct {
		offset int
		want   Point
	}{
		{0, Point{0, 0}},
		{1, Point{0, 1}},
		{2, Point{0, 2}},
		{3, Point{1, 0}},
		{5, Point{1, 2}},
		{6, Point{2, 0}},
		{-1, Point{0, 0}},
		{100, Point{2, 0}},
	}

	for _, tt := range tests {
		if got := PointForOffset(text, tt.offset); got != tt.want {
			t.Errorf("PointForOffset(%d) = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestOffsetForPointClamping(t *testing.T) {
	text := "ab\ncd"

	tests := []struct {
		point Point
		want  int
	}{
		{Point{0, 0}, 0},
		{Point{0, 2}, 2},
		{Point{0, 99}, 2},  // clamps to end of line
		{Point{1, 1}, 4},
		{Point{5, 0}, 5},   // clamps to end of text
		{Point{-1, 0}, 0},
	}

	for _, tt := range tests {
		if got := OffsetForPoint(text, tt.point); got != tt.want {
			t.Errorf("OffsetForPoint(%v) = %d, want %d", tt.point, got, tt.want)
		}
	}
}

func TestUTF16Columns(t *testing.T) {
	// 🙂 is a surrogate pair: 2 UTF-16 code units, 4 bytes.
	text := "a🙂b"

	p := PointForOffset(text, 5) // byte offset of 'b'
	if p != (Point{0, 3}) {
		t.Errorf("PointForOffset = %v, want {0 3}", p)
	}

	if got := OffsetForPoint(text, Point{0, 3}); got != 5 {
		t.Errorf("OffsetForPoint = %d, want 5", got)
	}
	// A column landing inside the surrogate pair resolves to the following
	// rune boundary.
	if got := OffsetForPoint(text, Point{0, 2}); got != 5 {
		t.Errorf("OffsetForPoint mid-pair = %d, want 5", got)
	}
}
