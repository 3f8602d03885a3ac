package assist

// Agent protocol method names.
const (
	methodInitialize         = "initialize"
	methodInitialized        = "initialized"
	methodCheckStatus        = "checkStatus"
	methodSignInInitiate     = "signInInitiate"
	methodSignInConfirm      = "signInConfirm"
	methodSignOut            = "signOut"
	methodDidOpen            = "textDocument/didOpen"
	methodDidChange          = "textDocument/didChange"
	methodDidClose           = "textDocument/didClose"
	methodCompletions        = "autocomplete/execute"
	methodCompletionsCycling = "getCompletionsCycling"
	methodNotifyAccepted     = "notifyAccepted"
	methodNotifyRejected     = "notifyRejected"
	methodStatusNotification = "statusNotification"
)

// Position is a zero-based line and UTF-16 character offset, matching the
// agent's wire encoding.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [Start, End) span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// InitializeParams identifies the client during the handshake.
type InitializeParams struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	InstanceID    string `json:"instanceId"`
}

// InitializeResult carries the agent's self-description.
type InitializeResult struct {
	AgentName    string `json:"agentName"`
	AgentVersion string `json:"agentVersion"`
}

// Sign-in status strings as sent by the agent.
const (
	statusOK              = "OK"
	statusMaybeOK         = "MaybeOk"
	statusAlreadySignedIn = "AlreadySignedIn"
	statusNotAuthorized   = "NotAuthorized"
	statusNotSignedIn     = "NotSignedIn"
)

// SignInStatus is the agent's answer to checkStatus, signInConfirm, and
// signOut.
type SignInStatus struct {
	Status string `json:"status"`
	User   string `json:"user,omitempty"`
}

// authorized reports whether the status grants access. The agent uses
// several strings for a granted session and they all collapse to the same
// client behavior.
func (s SignInStatus) authorized() bool {
	switch s.Status {
	case statusOK, statusMaybeOK, statusAlreadySignedIn:
		return true
	}
	return false
}

// signedOut reports whether the status means no user is signed in at all,
// as opposed to a signed-in user lacking access.
func (s SignInStatus) signedOut() bool {
	return s.Status == statusNotSignedIn
}

// SignInInitiateResult is the agent's answer to signInInitiate: either the
// session is already authorized, or the user must complete a device flow.
type SignInInitiateResult struct {
	Status          string `json:"status"`
	User            string `json:"user,omitempty"`
	UserCode        string `json:"userCode,omitempty"`
	VerificationURI string `json:"verificationUri,omitempty"`
}

// promptRequired reports whether the result carries a device-flow prompt
// the user must act on before signInConfirm can succeed.
func (r SignInInitiateResult) promptRequired() bool {
	return r.UserCode != ""
}

// SignInConfirmParams completes the device flow started by signInInitiate.
type SignInConfirmParams struct {
	UserCode string `json:"userCode"`
}

// TextDocumentItem is the full document payload sent in didOpen.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// VersionedTextDocumentIdentifier names a document at a version.
type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

// TextDocumentIdentifier names a document.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// DidOpenParams registers a document with the agent.
type DidOpenParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// DidChangeParams replaces the agent's copy of a document. The agent
// protocol has no incremental form; Text always carries the full content.
type DidChangeParams struct {
	TextDocument VersionedTextDocumentIdentifier `json:"textDocument"`
	Text         string                          `json:"text"`
}

// DidCloseParams unregisters a document.
type DidCloseParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// CompletionDocument describes the request position for a completion.
type CompletionDocument struct {
	URI          string   `json:"uri"`
	RelativePath string   `json:"relativePath,omitempty"`
	Position     Position `json:"position"`
	Version      int      `json:"version"`
	TabSize      int      `json:"tabSize"`
	IndentSize   int      `json:"indentSize"`
	InsertSpaces bool     `json:"insertSpaces"`
}

// CompletionParams is the payload for both completion request flavors.
type CompletionParams struct {
	Doc CompletionDocument `json:"doc"`
}

// CompletionItem is a single suggestion returned by the agent. Range is
// expressed in the document version named by the request.
type CompletionItem struct {
	UUID        string   `json:"uuid"`
	Text        string   `json:"text"`
	DisplayText string   `json:"displayText,omitempty"`
	Position    Position `json:"position"`
	Range       Range    `json:"range"`
}

// CompletionsResult is the agent's answer to a completion request.
type CompletionsResult struct {
	Completions []CompletionItem `json:"completions"`
}

// NotifyAcceptedParams reports that the user took a suggestion.
type NotifyAcceptedParams struct {
	UUID string `json:"uuid"`
}

// NotifyRejectedParams reports that the user passed on suggestions.
type NotifyRejectedParams struct {
	UUIDs []string `json:"uuids"`
}
