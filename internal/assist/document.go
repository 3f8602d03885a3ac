package assist

import (
	"context"
	"strings"
	"sync"

	"github.com/dshills/sidekick/internal/textdiff"
	"github.com/dshills/sidekick/internal/textdoc"
)

// uriForPath converts a host document path into a document URI. Paths that
// already carry a scheme pass through.
func uriForPath(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}

// syncOutcome is the shared result of one synchronization step: the
// agent-side version and the host snapshot it corresponds to.
type syncOutcome struct {
	version  int
	snapshot textdoc.Snapshot
	err      error
}

// syncTask is one link in a document's serialized synchronization
// pipeline. The outcome is valid once done is closed.
type syncTask struct {
	done    chan struct{}
	outcome syncOutcome
}

// wait blocks until the task completes or ctx expires.
func (t *syncTask) wait(ctx context.Context) (syncOutcome, error) {
	select {
	case <-ctx.Done():
		return syncOutcome{}, ctx.Err()
	case <-t.done:
		if t.outcome.err != nil {
			return syncOutcome{}, t.outcome.err
		}
		return t.outcome, nil
	}
}

// registeredDocument is a document announced to the agent. Its agent-side
// version counter and synchronized snapshot are only touched from inside
// the pipeline, which runs tasks strictly in order, so the agent always
// observes versions ascending.
type registeredDocument struct {
	doc *textdoc.Document

	// mu guards the pipeline tail and the identity the agent currently
	// knows the document by.
	mu         sync.Mutex
	tail       *syncTask
	uri        string
	languageID string

	// Synchronized state, pipeline-goroutine confined.
	syncedVersion int
	snapshot      textdoc.Snapshot
}

func newRegisteredDocument(doc *textdoc.Document) *registeredDocument {
	return &registeredDocument{
		doc:        doc,
		uri:        uriForPath(doc.Path()),
		languageID: doc.Language(),
	}
}

func (rd *registeredDocument) identity() (uri, languageID string) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.uri, rd.languageID
}

// enqueue appends a step to the pipeline and returns its task. Steps run
// one at a time in submission order.
func (rd *registeredDocument) enqueue(fn func() syncOutcome) *syncTask {
	rd.mu.Lock()
	prev := rd.tail
	task := &syncTask{done: make(chan struct{})}
	rd.tail = task
	rd.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev.done
		}
		task.outcome = fn()
		close(task.done)
	}()
	return task
}

// sendOpen announces the document to the agent at version 0 with its
// current content.
func (rd *registeredDocument) sendOpen(ctx context.Context, agent *Agent) *syncTask {
	return rd.enqueue(func() syncOutcome {
		uri, languageID := rd.identity()
		snap := rd.doc.Snapshot()
		rd.syncedVersion = 0
		rd.snapshot = snap

		err := agent.Notify(ctx, methodDidOpen, DidOpenParams{
			TextDocument: TextDocumentItem{
				URI:        uri,
				LanguageID: languageID,
				Version:    0,
				Text:       snap.Text,
			},
		})
		if err != nil {
			return syncOutcome{err: err}
		}
		return syncOutcome{version: 0, snapshot: snap}
	})
}

// reportChanges brings the agent's copy of the document up to date. If the
// host content is unchanged since the last synchronization the step
// resolves immediately with the current state; otherwise the agent-side
// version increments and the full new content is sent. Concurrent callers
// observing the same edit all receive the same outcome.
func (rd *registeredDocument) reportChanges(ctx context.Context, agent *Agent) *syncTask {
	return rd.enqueue(func() syncOutcome {
		snap := rd.doc.Snapshot()
		if snap.Version == rd.snapshot.Version {
			return syncOutcome{version: rd.syncedVersion, snapshot: rd.snapshot}
		}

		edits := textdiff.Compute(rd.snapshot.Text, snap.Text)
		if len(edits) > 0 {
			uri, _ := rd.identity()
			err := agent.Notify(ctx, methodDidChange, DidChangeParams{
				TextDocument: VersionedTextDocumentIdentifier{
					URI:     uri,
					Version: rd.syncedVersion + 1,
				},
				Text: snap.Text,
			})
			if err != nil {
				// Keep the previous synchronized state so the next
				// edit diffs against a version the agent has seen.
				return syncOutcome{err: err}
			}
			rd.syncedVersion++
		}

		rd.snapshot = snap
		return syncOutcome{version: rd.syncedVersion, snapshot: snap}
	})
}

// sendClose tells the agent the document is gone, after any in-flight
// synchronization steps have drained.
func (rd *registeredDocument) sendClose(ctx context.Context, agent *Agent) *syncTask {
	return rd.enqueue(func() syncOutcome {
		uri, _ := rd.identity()
		err := agent.Notify(ctx, methodDidClose, DidCloseParams{
			TextDocument: TextDocumentIdentifier{URI: uri},
		})
		return syncOutcome{err: err}
	})
}

// sendReopen retires the document's old identity with the agent and
// announces the new one. The synchronized version counter carries over,
// so the reopen's didOpen reports the version the agent last saw.
func (rd *registeredDocument) sendReopen(ctx context.Context, agent *Agent, uri, languageID string) *syncTask {
	return rd.enqueue(func() syncOutcome {
		oldURI, _ := rd.identity()
		err := agent.Notify(ctx, methodDidClose, DidCloseParams{
			TextDocument: TextDocumentIdentifier{URI: oldURI},
		})
		if err != nil {
			return syncOutcome{err: err}
		}

		rd.mu.Lock()
		rd.uri = uri
		rd.languageID = languageID
		rd.mu.Unlock()

		snap := rd.doc.Snapshot()
		rd.snapshot = snap
		err = agent.Notify(ctx, methodDidOpen, DidOpenParams{
			TextDocument: TextDocumentItem{
				URI:        uri,
				LanguageID: languageID,
				Version:    rd.syncedVersion,
				Text:       snap.Text,
			},
		})
		if err != nil {
			return syncOutcome{err: err}
		}
		return syncOutcome{version: rd.syncedVersion, snapshot: snap}
	})
}

// openDocumentLocked announces doc to the agent, creating the registered
// entry if needed. Callers hold c.mu and have verified authorization.
func (c *Client) openDocumentLocked(run *running, doc *textdoc.Document) {
	if _, ok := run.docs[doc.ID()]; ok {
		return
	}
	rd := newRegisteredDocument(doc)
	run.docs[doc.ID()] = rd
	rd.sendOpen(c.ctx, run.agent)
}

// handleDocEdit pushes a host edit into the document's pipeline. Edits on
// documents the agent does not know about are dropped.
func (c *Client) handleDocEdit(doc *textdoc.Document) {
	c.mu.Lock()
	run, err := c.asAuthorizedLocked()
	if err != nil {
		c.mu.Unlock()
		return
	}
	rd, ok := run.docs[doc.ID()]
	agent := run.agent
	c.mu.Unlock()

	if ok {
		rd.reportChanges(c.ctx, agent)
	}
}

// handleDocIdentityChange reacts to a rename or language change by closing
// the old identity with the agent and reopening under the new one. The
// registered entry and its version counter survive the reopen.
func (c *Client) handleDocIdentityChange(doc *textdoc.Document) {
	c.mu.Lock()
	run, err := c.asAuthorizedLocked()
	if err != nil {
		c.mu.Unlock()
		return
	}
	rd, ok := run.docs[doc.ID()]
	agent := run.agent
	c.mu.Unlock()
	if !ok {
		return
	}

	uri, languageID := uriForPath(doc.Path()), doc.Language()
	if oldURI, oldLanguage := rd.identity(); uri == oldURI && languageID == oldLanguage {
		return
	}
	rd.sendReopen(c.ctx, agent, uri, languageID)
}
