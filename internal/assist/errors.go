package assist

import (
	"errors"
	"fmt"
)

// Standard errors returned by the assist client.
var (
	// ErrDisabled indicates the client is disabled and the agent is not
	// running.
	ErrDisabled = errors.New("assist disabled")

	// ErrStillStarting indicates the agent is launching and not yet able
	// to serve requests.
	ErrStillStarting = errors.New("assist still starting")

	// ErrNotAuthorized indicates no user is signed in, or the signed-in
	// user lacks access.
	ErrNotAuthorized = errors.New("assist user not authorized")

	// ErrShutdown indicates the agent connection has been closed.
	ErrShutdown = errors.New("assist agent shut down")

	// ErrDocumentClosed indicates an operation referenced a disposed
	// document.
	ErrDocumentClosed = errors.New("document closed")

	// ErrSignInPending indicates a sign-in flow is already waiting on the
	// user.
	ErrSignInPending = errors.New("sign-in already in progress")
)

// StartupError reports that launching the agent failed. The client stays in
// the error state until the next enable or reinstall attempt.
type StartupError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StartupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent startup failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("agent startup failed: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *StartupError) Unwrap() error {
	return e.Err
}

// AuthError reports a failed sign-in or sign-out exchange.
type AuthError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// RPCError represents a JSON-RPC error returned by the agent.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)
