package assist

// serverState is the client's enablement state. Exactly one variant is
// active at a time; transitions happen under the client mutex.
type serverState interface {
	isServerState()
}

// stateDisabled is the resting state: no agent process, no connection.
type stateDisabled struct{}

// stateStarting covers binary location, process spawn, and handshake.
// gen identifies the start attempt so a stale outcome cannot disturb a
// newer one.
// Concurrent enables join the same in-flight start.
type stateStarting struct{ gen uint64 }

// stateError is a failed start. The client stays here until the next
// enable or reinstall attempt.
type stateError struct {
	err error
}

// stateRunning is a live agent connection with its authorization state and
// registered-document table.
type stateRunning struct {
	run *running
}

func (stateDisabled) isServerState() {}
func (stateStarting) isServerState() {}
func (stateError) isServerState()    {}
func (stateRunning) isServerState()  {}

// running bundles everything that only exists while the agent is up.
type running struct {
	agent *Agent
	auth  authState
	docs  map[uint64]*registeredDocument
}

// StatusKind enumerates the observable client states.
type StatusKind int

const (
	StatusDisabled StatusKind = iota
	StatusStarting
	StatusError
	StatusSignedOut
	StatusSigningIn
	StatusAuthorized
	StatusUnauthorized
)

// String returns a human-readable status name.
func (k StatusKind) String() string {
	switch k {
	case StatusDisabled:
		return "disabled"
	case StatusStarting:
		return "starting"
	case StatusError:
		return "error"
	case StatusSignedOut:
		return "signed out"
	case StatusSigningIn:
		return "signing in"
	case StatusAuthorized:
		return "authorized"
	case StatusUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// SignInPrompt is the device-flow challenge the user must complete: enter
// UserCode at VerificationURI.
type SignInPrompt struct {
	UserCode        string
	VerificationURI string
}

// Status is an observable snapshot of the client state, published to
// OnStatusChange observers whenever it changes.
type Status struct {
	Kind StatusKind

	// Error describes the startup failure when Kind is StatusError.
	Error string

	// Prompt is the pending device-flow challenge when Kind is
	// StatusSigningIn and the agent requires one.
	Prompt *SignInPrompt

	// User is the signed-in account when Kind is StatusAuthorized.
	User string
}

// statusLocked derives the observable status. Callers hold c.mu.
func (c *Client) statusLocked() Status {
	switch s := c.state.(type) {
	case stateDisabled:
		return Status{Kind: StatusDisabled}
	case stateStarting:
		return Status{Kind: StatusStarting}
	case stateError:
		return Status{Kind: StatusError, Error: s.err.Error()}
	case stateRunning:
		switch a := s.run.auth.(type) {
		case authSignedOut:
			return Status{Kind: StatusSignedOut}
		case *authSigningIn:
			return Status{Kind: StatusSigningIn, Prompt: a.prompt}
		case authAuthorized:
			return Status{Kind: StatusAuthorized, User: a.user}
		case authUnauthorized:
			return Status{Kind: StatusUnauthorized}
		}
	}
	return Status{Kind: StatusDisabled}
}

// asRunningLocked returns the live connection or the error matching the
// current state. Callers hold c.mu.
func (c *Client) asRunningLocked() (*running, error) {
	switch s := c.state.(type) {
	case stateRunning:
		return s.run, nil
	case stateStarting:
		return nil, ErrStillStarting
	case stateError:
		return nil, s.err
	default:
		return nil, ErrDisabled
	}
}

// asAuthorizedLocked returns the live connection only when a user with
// access is signed in. Callers hold c.mu.
func (c *Client) asAuthorizedLocked() (*running, error) {
	run, err := c.asRunningLocked()
	if err != nil {
		return nil, err
	}
	if _, ok := run.auth.(authAuthorized); !ok {
		return nil, ErrNotAuthorized
	}
	return run, nil
}
