// Package assist manages the lifetime of a document-assistance agent: a
// helper subprocess spoken to over JSON-RPC that authenticates a user,
// mirrors the host's open documents, and serves inline completions.
//
// The package exposes a single Client owned by the host's composition
// root. The Client tracks an enablement state machine (disabled, starting,
// running, error), an authorization sub-state (signed out, signing in,
// authorized, unauthorized), and a table of registered documents kept in
// sync with the agent through full-content change notifications. Document
// synchronization is strictly serialized per document so the agent always
// observes versions in order.
package assist
