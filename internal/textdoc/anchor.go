package textdoc

// Bias controls which side of an edit an anchor sticks to when content at
// the anchor position is replaced.
type Bias int

const (
	// BiasLeft keeps the anchor before text inserted at its position.
	BiasLeft Bias = iota
	// BiasRight moves the anchor after text inserted at its position.
	BiasRight
)

// Anchor marks a byte offset in a specific document version.
type Anchor struct {
	Version int
	Offset  int
	Bias    Bias
}

// AnchorRange is a half-open [Start, End) span between two anchors in the
// same document version.
type AnchorRange struct {
	Start Anchor
	End   Anchor
}

// AnchorBefore returns a left-biased anchor at the given offset, clamped to
// the snapshot bounds.
func (s Snapshot) AnchorBefore(offset int) Anchor {
	return Anchor{Version: s.Version, Offset: clampOffset(offset, len(s.Text)), Bias: BiasLeft}
}

// AnchorAfter returns a right-biased anchor at the given offset, clamped to
// the snapshot bounds.
func (s Snapshot) AnchorAfter(offset int) Anchor {
	return Anchor{Version: s.Version, Offset: clampOffset(offset, len(s.Text)), Bias: BiasRight}
}

func clampOffset(offset, max int) int {
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}
