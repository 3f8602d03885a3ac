package textdoc

import (
	"testing"

	"github.com/dshills/sidekick/internal/textdiff"
)

func TestNewDocument(t *testing.T) {
	doc := New("/tmp/main.go", "go", "package main\n")
	if doc.ID() == 0 {
		t.Error("expected non-zero document ID")
	}
	if doc.Path() != "/tmp/main.go" {
		t.Errorf("Path = %q", doc.Path())
	}
	if doc.Language() != "go" {
		t.Errorf("Language = %q", doc.Language())
	}
	if doc.Version() != 0 {
		t.Errorf("Version = %d, want 0", doc.Version())
	}
	snap := doc.Snapshot()
	if snap.Text != "package main\n" || snap.Version != 0 {
		t.Errorf("Snapshot = %+v", snap)
	}
}

func TestDocumentIDsUnique(t *testing.T) {
	a := New("a", "go", "")
	b := New("b", "go", "")
	if a.ID() == b.ID() {
		t.Errorf("documents share ID %d", a.ID())
	}
}

func TestEditBumpsVersion(t *testing.T) {
	doc := New("f", "text", "Hello")
	doc.Edit(5, 5, " world")
	if got := doc.Snapshot(); got.Text != "Hello world" || got.Version != 1 {
		t.Errorf("after edit: %+v", got)
	}
	doc.Edit(0, 5, "Goodbye")
	if got := doc.Snapshot(); got.Text != "Goodbye world" || got.Version != 2 {
		t.Errorf("after second edit: %+v", got)
	}
}

func TestEditClampsOffsets(t *testing.T) {
	cases := []struct {
		name       string
		start, end int
		insert     string
		want       string
	}{
		{"both out of bounds", -4, 100, "x", "x"},
		{"reversed", 1, 0, "y", "ybc"},
		{"negative end", 3, -1, "X", "X"},
		{"both negative", -3, -1, "z", "zabc"},
		{"start past end of text", 100, 100, "!", "abc!"},
		{"end past end of text", 1, 100, "b", "ab"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := New("f", "text", "abc")
			doc.Edit(tc.start, tc.end, tc.insert)
			if got := doc.Snapshot().Text; got != tc.want {
				t.Errorf("Edit(%d, %d, %q) = %q, want %q", tc.start, tc.end, tc.insert, got, tc.want)
			}
		})
	}
}

func TestOnEditFires(t *testing.T) {
	doc := New("f", "text", "")
	var fired int
	sub := doc.OnEdit(func() { fired++ })
	doc.Edit(0, 0, "a")
	doc.SetText("b")
	if fired != 2 {
		t.Errorf("edit callback fired %d times, want 2", fired)
	}
	sub.Cancel()
	doc.Edit(0, 0, "c")
	if fired != 2 {
		t.Errorf("callback fired after cancel")
	}
}

func TestOnEditReentrant(t *testing.T) {
	doc := New("f", "text", "")
	var seen Snapshot
	doc.OnEdit(func() { seen = doc.Snapshot() })
	doc.Edit(0, 0, "hi")
	if seen.Text != "hi" || seen.Version != 1 {
		t.Errorf("callback saw %+v", seen)
	}
}

func TestRenameFiresIdentityChange(t *testing.T) {
	doc := New("old.go", "go", "")
	var fired int
	doc.OnIdentityChange(func() { fired++ })
	doc.Rename("new.go")
	if doc.Path() != "new.go" || fired != 1 {
		t.Errorf("path = %q, fired = %d", doc.Path(), fired)
	}
	// No-op rename stays silent.
	doc.Rename("new.go")
	if fired != 1 {
		t.Errorf("no-op rename fired callback")
	}
	doc.SetLanguage("typescript")
	if doc.Language() != "typescript" || fired != 2 {
		t.Errorf("language = %q, fired = %d", doc.Language(), fired)
	}
}

func TestCloseFiresOnce(t *testing.T) {
	doc := New("f", "text", "body")
	var fired int
	doc.OnClose(func() { fired++ })
	doc.Close()
	doc.Close()
	if fired != 1 {
		t.Errorf("close callback fired %d times, want 1", fired)
	}
	if !doc.Closed() {
		t.Error("document not marked closed")
	}
	version := doc.Version()
	doc.Edit(0, 0, "late")
	if doc.Version() != version {
		t.Error("edit applied after close")
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	doc := New("f", "text", "")
	doc.Close()
	sub := doc.OnEdit(func() { t.Error("callback on closed document") })
	sub.Cancel()
}

func TestChangesSince(t *testing.T) {
	doc := New("f", "text", "Hello")
	before := doc.Snapshot()
	doc.Edit(5, 5, " world")
	after := doc.Snapshot()

	changes := after.ChangesSince(before)
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	want := textdiff.Replace{
		Start: textdiff.Point{Line: 0, Character: 5},
		End:   textdiff.Point{Line: 0, Character: 5},
		Text:  " world",
	}
	if changes[0] != want {
		t.Errorf("change = %+v, want %+v", changes[0], want)
	}
}

func TestAnchors(t *testing.T) {
	snap := Snapshot{Version: 3, Text: "abcdef"}
	start := snap.AnchorBefore(2)
	end := snap.AnchorAfter(100)
	if start != (Anchor{Version: 3, Offset: 2, Bias: BiasLeft}) {
		t.Errorf("start = %+v", start)
	}
	if end != (Anchor{Version: 3, Offset: 6, Bias: BiasRight}) {
		t.Errorf("end = %+v", end)
	}
	if neg := snap.AnchorBefore(-1); neg.Offset != 0 {
		t.Errorf("negative offset anchor = %+v", neg)
	}
}

func TestSnapshotPointConversion(t *testing.T) {
	snap := Snapshot{Text: "ab\ncd\n"}
	if p := snap.PointForOffset(4); p != (textdiff.Point{Line: 1, Character: 1}) {
		t.Errorf("PointForOffset(4) = %+v", p)
	}
	if off := snap.OffsetForPoint(textdiff.Point{Line: 1, Character: 1}); off != 4 {
		t.Errorf("OffsetForPoint = %d", off)
	}
	if p := snap.ClampPoint(textdiff.Point{Line: 9, Character: 9}); p != (textdiff.Point{Line: 2, Character: 0}) {
		t.Errorf("ClampPoint = %+v", p)
	}
}
