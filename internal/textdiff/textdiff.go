// Package textdiff computes minimal ordered replace-ranges between two
// versions of a document's content. Positions are expressed in the OLD
// snapshot's coordinate space as zero-based lines and UTF-16 code unit
// columns, matching the wire protocol's position encoding.
package textdiff

import "strings"

// Point is a position in a text document: zero-based line and character
// offset, where the character offset counts UTF-16 code units.
type Point struct {
	Line      int
	Character int
}

// Compare returns -1 if p is before q, 0 if equal, 1 if after.
func (p Point) Compare(q Point) int {
	if p.Line != q.Line {
		if p.Line < q.Line {
			return -1
		}
		return 1
	}
	if p.Character != q.Character {
		if p.Character < q.Character {
			return -1
		}
		return 1
	}
	return 0
}

// Replace is a single edit: the old snapshot's [Start, End) range is
// replaced with Text. A Compute result is ordered by Start and the ranges
// never overlap.
type Replace struct {
	Start Point
	End   Point
	Text  string
}

// IsInsert reports whether the replace deletes nothing.
func (r Replace) IsInsert() bool {
	return r.Start == r.End
}

// Compute returns the minimal ordered replace-ranges that transform old
// into new. Equal inputs yield nil. Changed regions are located with a
// line-level Myers diff and tightened to character granularity by trimming
// the common prefix and suffix of each region.
func Compute(oldText, newText string) []Replace {
	if oldText == newText {
		return nil
	}

	oldLines := strings.SplitAfter(oldText, "\n")
	newLines := strings.SplitAfter(newText, "\n")

	ops := myersDiff(oldLines, newLines)

	oldStarts := lineStartOffsets(oldText)
	newStarts := lineStartOffsets(newText)

	var replaces []Replace
	i := 0
	for i < len(ops) {
		if ops[i].op == opEqual {
			i++
			continue
		}

		// Collect a contiguous run of non-equal operations. Every op
		// carries both indices, so insert-only and delete-only runs still
		// anchor correctly in the other text.
		first := i
		oldStart, oldEnd := len(oldLines), 0
		newStart, newEnd := len(newLines), 0
		for i < len(ops) && ops[i].op != opEqual {
			switch ops[i].op {
			case opDelete:
				if ops[i].oldIndex < oldStart {
					oldStart = ops[i].oldIndex
				}
				if ops[i].oldIndex+1 > oldEnd {
					oldEnd = ops[i].oldIndex + 1
				}
			case opInsert:
				if ops[i].newIndex < newStart {
					newStart = ops[i].newIndex
				}
				if ops[i].newIndex+1 > newEnd {
					newEnd = ops[i].newIndex + 1
				}
			}
			i++
		}

		if oldEnd <= oldStart {
			oldStart = ops[first].oldIndex
			oldEnd = oldStart
		}
		if newEnd <= newStart {
			newStart = ops[first].newIndex
			newEnd = newStart
		}

		oldFrom := offsetOfLine(oldStarts, oldStart, len(oldText))
		oldTo := offsetOfLine(oldStarts, oldEnd, len(oldText))
		newFrom := offsetOfLine(newStarts, newStart, len(newText))
		newTo := offsetOfLine(newStarts, newEnd, len(newText))

		oldRegion := oldText[oldFrom:oldTo]
		newRegion := newText[newFrom:newTo]

		prefix := commonPrefix(oldRegion, newRegion)
		suffix := commonSuffix(oldRegion[prefix:], newRegion[prefix:])

		start := oldFrom + prefix
		end := oldTo - suffix
		text := newRegion[prefix : len(newRegion)-suffix]

		if start == end && text == "" {
			continue
		}

		replaces = append(replaces, Replace{
			Start: PointForOffset(oldText, start),
			End:   PointForOffset(oldText, end),
			Text:  text,
		})
	}

	return replaces
}

// Apply transforms old by the given ordered replaces, returning the result.
// It is the inverse check for Compute: Apply(old, Compute(old, new)) == new.
func Apply(oldText string, replaces []Replace) string {
	var sb strings.Builder
	last := 0
	for _, r := range replaces {
		start := OffsetForPoint(oldText, r.Start)
		end := OffsetForPoint(oldText, r.End)
		if start < last {
			start = last
		}
		if end < start {
			end = start
		}
		sb.WriteString(oldText[last:start])
		sb.WriteString(r.Text)
		last = end
	}
	sb.WriteString(oldText[last:])
	return sb.String()
}

// lineStartOffsets returns the byte offset of each line start. Lines are
// the SplitAfter segments, so every line but possibly the last includes its
// trailing newline.
func lineStartOffsets(s string) []int {
	starts := []int{0}
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// offsetOfLine returns the byte offset of the given line index, clamped to
// the end of the text.
func offsetOfLine(starts []int, line, textLen int) int {
	if line < 0 {
		return 0
	}
	if line >= len(starts) {
		return textLen
	}
	return starts[line]
}

// commonPrefix returns the length in bytes of the longest common prefix of
// a and b, never splitting a UTF-8 sequence.
func commonPrefix(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	// Back up to a rune boundary.
	for i > 0 && i < len(a) && a[i]&0xC0 == 0x80 {
		i--
	}
	return i
}

// commonSuffix returns the length in bytes of the longest common suffix of
// a and b, never splitting a UTF-8 sequence.
func commonSuffix(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	// Back up to a rune boundary: the first byte of the suffix must not be
	// a UTF-8 continuation byte.
	for i > 0 && a[len(a)-i]&0xC0 == 0x80 {
		i--
	}
	return i
}

// --- Myers line diff ---

type diffOp uint8

const (
	opEqual diffOp = iota
	opInsert
	opDelete
)

// editOp is a single line-level edit operation.
type editOp struct {
	op       diffOp
	oldIndex int
	newIndex int
}

// myersDiff computes a line-level edit script between two line slices using
// the Myers shortest-edit-script algorithm.
func myersDiff(oldLines, newLines []string) []editOp {
	n := len(oldLines)
	m := len(newLines)

	if n == 0 && m == 0 {
		return nil
	}
	if n == 0 {
		ops := make([]editOp, m)
		for i := 0; i < m; i++ {
			ops[i] = editOp{op: opInsert, newIndex: i}
		}
		return ops
	}
	if m == 0 {
		ops := make([]editOp, n)
		for i := 0; i < n; i++ {
			ops[i] = editOp{op: opDelete, oldIndex: i}
		}
		return ops
	}

	maxD := n + m
	offset := maxD
	v := make([]int, 2*maxD+1)
	v[offset+1] = 0

	var trace [][]int

outer:
	for d := 0; d <= maxD; d++ {
		vCopy := make([]int, len(v))
		copy(vCopy, v)
		trace = append(trace, vCopy)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}

			y := x - k

			for x < n && y < m && oldLines[x] == newLines[y] {
				x++
				y++
			}

			v[offset+k] = x

			if x >= n && y >= m {
				vFinal := make([]int, len(v))
				copy(vFinal, v)
				trace = append(trace, vFinal)
				break outer
			}
		}
	}

	return backtrack(trace, n, m, offset)
}

// backtrack reconstructs the edit script from the Myers trace.
func backtrack(trace [][]int, n, m, offset int) []editOp {
	if len(trace) == 0 {
		return nil
	}

	x := n
	y := m
	var ops []editOp

	for d := len(trace) - 2; d >= 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}

		prevX := v[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			ops = append(ops, editOp{op: opEqual, oldIndex: x, newIndex: y})
		}

		if d > 0 {
			if x > prevX {
				x--
				ops = append(ops, editOp{op: opDelete, oldIndex: x, newIndex: y})
			} else if y > prevY {
				y--
				ops = append(ops, editOp{op: opInsert, oldIndex: x, newIndex: y})
			}
		}
	}

	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}

	return ops
}

// --- Offset / point conversion ---

// PointForOffset converts a byte offset into a Point in the given text.
// Out-of-range offsets clamp to the nearest valid position.
func PointForOffset(s string, offset int) Point {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s) {
		offset = len(s)
	}

	line := 0
	lineStart := 0
	for i := 0; i < offset; i++ {
		if s[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}

	return Point{
		Line:      line,
		Character: utf16Len(s[lineStart:offset]),
	}
}

// OffsetForPoint converts a Point into a byte offset in the given text.
// Out-of-range points clamp to the nearest valid boundary rather than
// failing: a line past the end maps to the end of the text, a character
// past the end of its line maps to the end of that line.
func OffsetForPoint(s string, p Point) int {
	if p.Line < 0 {
		return 0
	}

	lineStart := 0
	line := 0
	for line < p.Line {
		idx := strings.IndexByte(s[lineStart:], '\n')
		if idx < 0 {
			return len(s)
		}
		lineStart += idx + 1
		line++
	}

	lineEnd := len(s)
	if idx := strings.IndexByte(s[lineStart:], '\n'); idx >= 0 {
		lineEnd = lineStart + idx
	}

	return lineStart + utf16ToByteOffset(s[lineStart:lineEnd], p.Character)
}

// utf16Len returns the length of s in UTF-16 code units.
func utf16Len(s string) int {
	count := 0
	for _, r := range s {
		if r >= 0x10000 {
			count += 2
		} else {
			count++
		}
	}
	return count
}

// utf16ToByteOffset converts a UTF-16 code unit offset to a byte offset
// within s, clamping to len(s).
func utf16ToByteOffset(s string, utf16Off int) int {
	if utf16Off <= 0 {
		return 0
	}

	utf16Count := 0
	for i, r := range s {
		if utf16Count >= utf16Off {
			return i
		}
		if r >= 0x10000 {
			utf16Count += 2
		} else {
			utf16Count++
		}
	}
	return len(s)
}
