// Package textdoc provides the host-side text document the assist core
// consumes: an identified, versioned, in-memory document with read-only
// snapshots, byte-offset edits, and subscriptions for edits, identity
// changes, and disposal.
//
// The assist session never holds document state of its own beyond
// snapshots; it observes documents through the subscription API and reads
// their content through immutable Snapshot values. A Document's identity
// (path and language) may change over its lifetime while its numeric ID
// stays stable, which is what lets the session detect renames.
package textdoc
