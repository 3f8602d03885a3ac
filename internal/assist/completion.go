package assist

import (
	"context"

	"github.com/dshills/sidekick/internal/textdiff"
	"github.com/dshills/sidekick/internal/textdoc"
)

// Completion is a suggestion from the agent mapped into host document
// coordinates. Range is anchored in Snapshot, the synchronized document
// version the suggestion was computed against.
type Completion struct {
	ID          string
	Text        string
	DisplayText string
	Range       textdoc.AnchorRange
	Snapshot    textdoc.Snapshot
}

// Editor defaults reported with completion requests.
const (
	defaultTabSize = 4
)

// Completions requests inline suggestions at the given byte offset. The
// document is registered if it was not already, its pending edits are
// synchronized first, and the request is issued against the synchronized
// version. Requires an authorized session.
func (c *Client) Completions(ctx context.Context, doc *textdoc.Document, offset int) ([]Completion, error) {
	return c.requestCompletions(ctx, doc, offset, methodCompletions)
}

// CompletionsCycling requests the alternate, multi-candidate suggestion
// list from the same position.
func (c *Client) CompletionsCycling(ctx context.Context, doc *textdoc.Document, offset int) ([]Completion, error) {
	return c.requestCompletions(ctx, doc, offset, methodCompletionsCycling)
}

func (c *Client) requestCompletions(ctx context.Context, doc *textdoc.Document, offset int, method string) ([]Completion, error) {
	if doc == nil || doc.Closed() {
		return nil, ErrDocumentClosed
	}

	c.RegisterDocument(doc)

	c.mu.Lock()
	run, err := c.asAuthorizedLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	rd, ok := run.docs[doc.ID()]
	if !ok {
		c.openDocumentLocked(run, doc)
		rd = run.docs[doc.ID()]
	}
	agent := run.agent
	c.mu.Unlock()

	synced, err := rd.reportChanges(c.ctx, agent).wait(ctx)
	if err != nil {
		return nil, err
	}

	snap := synced.snapshot
	point := snap.PointForOffset(offset)
	uri, _ := rd.identity()

	params := CompletionParams{
		Doc: CompletionDocument{
			URI:          uri,
			RelativePath: doc.Path(),
			Position:     Position{Line: point.Line, Character: point.Character},
			Version:      synced.version,
			TabSize:      defaultTabSize,
			IndentSize:   defaultTabSize,
			InsertSpaces: true,
		},
	}

	var result CompletionsResult
	if err := agent.Call(ctx, method, params, &result); err != nil {
		return nil, err
	}

	completions := make([]Completion, 0, len(result.Completions))
	for _, item := range result.Completions {
		completions = append(completions, Completion{
			ID:          item.UUID,
			Text:        item.Text,
			DisplayText: item.DisplayText,
			Range:       clampRange(snap, item.Range),
			Snapshot:    snap,
		})
	}
	return completions, nil
}

// clampRange maps a wire range onto valid anchors in the snapshot. Agent
// positions past the document edge clamp inward, and a reversed range
// collapses to its start.
func clampRange(snap textdoc.Snapshot, r Range) textdoc.AnchorRange {
	start := snap.OffsetForPoint(textdiff.Point{Line: r.Start.Line, Character: r.Start.Character})
	end := snap.OffsetForPoint(textdiff.Point{Line: r.End.Line, Character: r.End.Character})
	if end < start {
		end = start
	}
	return textdoc.AnchorRange{
		Start: snap.AnchorBefore(start),
		End:   snap.AnchorAfter(end),
	}
}

// AcceptCompletion reports that the user took the suggestion with the
// given id. Requires an authorized session.
func (c *Client) AcceptCompletion(ctx context.Context, id string) error {
	c.mu.Lock()
	run, err := c.asAuthorizedLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	agent := run.agent
	c.mu.Unlock()

	return agent.Call(ctx, methodNotifyAccepted, NotifyAcceptedParams{UUID: id}, nil)
}

// DiscardCompletions reports that the user passed on the given
// suggestions. Requires an authorized session.
func (c *Client) DiscardCompletions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	c.mu.Lock()
	run, err := c.asAuthorizedLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	agent := run.agent
	c.mu.Unlock()

	return agent.Call(ctx, methodNotifyRejected, NotifyRejectedParams{UUIDs: ids}, nil)
}
