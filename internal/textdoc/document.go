package textdoc

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/sidekick/internal/textdiff"
)

// nextDocumentID backs ID allocation for all documents in the process.
var nextDocumentID atomic.Uint64

// Snapshot is an immutable view of a document at a single version. Two
// snapshots with the same Version from the same document carry identical
// text.
type Snapshot struct {
	Version int
	Text    string
}

// PointForOffset converts a byte offset in the snapshot text to a line and
// UTF-16 column position. Out-of-range offsets clamp to the text bounds.
func (s Snapshot) PointForOffset(offset int) textdiff.Point {
	return textdiff.PointForOffset(s.Text, offset)
}

// OffsetForPoint converts a line and UTF-16 column position to a byte
// offset, clamping to the nearest valid location.
func (s Snapshot) OffsetForPoint(p textdiff.Point) int {
	return textdiff.OffsetForPoint(s.Text, p)
}

// ClampPoint returns the nearest valid position to p within the snapshot.
func (s Snapshot) ClampPoint(p textdiff.Point) textdiff.Point {
	return s.PointForOffset(s.OffsetForPoint(p))
}

// ChangesSince computes the ordered, non-overlapping edits that transform
// old.Text into s.Text.
func (s Snapshot) ChangesSince(old Snapshot) []textdiff.Replace {
	return textdiff.Compute(old.Text, s.Text)
}

// Document is a mutable in-memory text document. All methods are safe for
// concurrent use. Subscriber callbacks run on the mutating goroutine after
// the document lock is released, so callbacks may call back into the
// document.
type Document struct {
	id uint64

	mu           sync.Mutex
	path         string
	language     string
	version      int
	text         string
	closed       bool
	nextSub      int
	editSubs     map[int]func()
	closeSubs    map[int]func()
	identitySubs map[int]func()
}

// New creates an open document with the given identity and initial content
// at version 0.
func New(path, language, text string) *Document {
	return &Document{
		id:           nextDocumentID.Add(1),
		path:         path,
		language:     language,
		text:         text,
		editSubs:     make(map[int]func()),
		closeSubs:    make(map[int]func()),
		identitySubs: make(map[int]func()),
	}
}

// ID returns the process-unique identifier for the document. It never
// changes, even across renames.
func (d *Document) ID() uint64 { return d.id }

// Path returns the current file path.
func (d *Document) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// Language returns the current language tag.
func (d *Document) Language() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.language
}

// Version returns the current edit version.
func (d *Document) Version() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Closed reports whether the document has been disposed.
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Snapshot returns an immutable view of the current content and version.
func (d *Document) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{Version: d.version, Text: d.text}
}

// Edit replaces the byte range [start, end) with text and bumps the
// version. Offsets clamp to the document bounds and swap if reversed.
// Edits on a closed document are ignored.
func (d *Document) Edit(start, end int, text string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	if start > len(d.text) {
		start = len(d.text)
	}
	if end > len(d.text) {
		end = len(d.text)
	}
	if end < start {
		start, end = end, start
	}
	d.text = d.text[:start] + text + d.text[end:]
	d.version++
	subs := collectSubs(d.editSubs)
	d.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// SetText replaces the whole content and bumps the version.
func (d *Document) SetText(text string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.text = text
	d.version++
	subs := collectSubs(d.editSubs)
	d.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Rename changes the document path and notifies identity subscribers. The
// content and version are untouched.
func (d *Document) Rename(path string) {
	d.mu.Lock()
	if d.closed || d.path == path {
		d.mu.Unlock()
		return
	}
	d.path = path
	subs := collectSubs(d.identitySubs)
	d.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// SetLanguage changes the language tag and notifies identity subscribers.
func (d *Document) SetLanguage(language string) {
	d.mu.Lock()
	if d.closed || d.language == language {
		d.mu.Unlock()
		return
	}
	d.language = language
	subs := collectSubs(d.identitySubs)
	d.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Close disposes the document and notifies close subscribers exactly once.
// All subscriptions are released afterward.
func (d *Document) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	subs := collectSubs(d.closeSubs)
	d.editSubs = nil
	d.closeSubs = nil
	d.identitySubs = nil
	d.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// OnEdit registers fn to run after every content change.
func (d *Document) OnEdit(fn func()) Subscription {
	return d.subscribe(&d.editSubs, fn)
}

// OnClose registers fn to run when the document is disposed.
func (d *Document) OnClose(fn func()) Subscription {
	return d.subscribe(&d.closeSubs, fn)
}

// OnIdentityChange registers fn to run when the path or language changes.
func (d *Document) OnIdentityChange(fn func()) Subscription {
	return d.subscribe(&d.identitySubs, fn)
}

func (d *Document) subscribe(set *map[int]func(), fn func()) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || *set == nil {
		return Subscription{}
	}
	id := d.nextSub
	d.nextSub++
	(*set)[id] = fn
	target := set
	return Subscription{cancel: func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if *target != nil {
			delete(*target, id)
		}
	}}
}

func collectSubs(set map[int]func()) []func() {
	if len(set) == 0 {
		return nil
	}
	subs := make([]func(), 0, len(set))
	for _, fn := range set {
		subs = append(subs, fn)
	}
	return subs
}

// Subscription is a handle to a registered document callback. The zero
// value is a no-op.
type Subscription struct {
	cancel func()
}

// Cancel removes the callback. Cancel is idempotent.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
