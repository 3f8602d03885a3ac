package assist

import (
	"context"
	"errors"
)

// authState is the authorization sub-state. It only exists while the
// client is running; a restart always begins signed out.
type authState interface {
	isAuthState()
}

// authSignedOut means no user is signed in.
type authSignedOut struct{}

// authSigningIn is a sign-in flow in flight. Concurrent SignIn calls join
// it and share the outcome. prompt is set once the agent demands a device
// flow.
type authSigningIn struct {
	prompt *SignInPrompt
	done   chan struct{}
	err    error
}

// authAuthorized means user is signed in with access.
type authAuthorized struct {
	user string
}

// authUnauthorized means a user is signed in but has no access.
type authUnauthorized struct{}

func (authSignedOut) isAuthState()    {}
func (*authSigningIn) isAuthState()   {}
func (authAuthorized) isAuthState()   {}
func (authUnauthorized) isAuthState() {}

// refreshAuth seeds the authorization state from credentials the agent
// already holds, so a restart does not force a fresh device flow.
func (c *Client) refreshAuth(run *running) {
	var status SignInStatus
	if err := run.agent.Call(c.ctx, methodCheckStatus, struct{}{}, &status); err != nil {
		c.log.Warn("checkStatus failed: %v", err)
		return
	}
	c.applySignInStatus(run, status)
}

// applySignInStatus installs the authorization state matching an agent
// status answer and runs the document sweep it implies.
func (c *Client) applySignInStatus(run *running, status SignInStatus) {
	c.mu.Lock()
	if s, ok := c.state.(stateRunning); !ok || s.run != run {
		c.mu.Unlock()
		return
	}

	switch {
	case status.authorized():
		run.auth = authAuthorized{user: status.User}
		c.notifyObserversLocked()
		c.sweepOpenLocked(run)
	case status.signedOut():
		run.auth = authSignedOut{}
		c.notifyObserversLocked()
		c.sweepCloseLocked(run)
	default:
		run.auth = authUnauthorized{}
		c.notifyObserversLocked()
		c.sweepCloseLocked(run)
	}
	c.mu.Unlock()
}

// sweepOpenLocked announces every live known document to the agent, each
// starting over at version 0. Closed documents are pruned from the known
// set. Callers hold c.mu.
func (c *Client) sweepOpenLocked(run *running) {
	for id, kd := range c.known {
		if kd.doc.Closed() {
			for _, sub := range kd.subs {
				sub.Cancel()
			}
			delete(c.known, id)
			continue
		}
		c.openDocumentLocked(run, kd.doc)
	}
}

// sweepCloseLocked closes every registered document with the agent and
// clears the table. Known documents are kept for the next sign-in.
// Callers hold c.mu.
func (c *Client) sweepCloseLocked(run *running) {
	for id, rd := range run.docs {
		delete(run.docs, id)
		rd.sendClose(c.ctx, run.agent)
	}
}

// SignIn authenticates a user with the service. If the client is starting,
// the call waits for the start to finish first. When the agent requires a
// device flow the prompt is published to status observers and the call
// blocks until the user completes it. Concurrent calls join the in-flight
// attempt and share its outcome.
func (c *Client) SignIn(ctx context.Context) error {
	for {
		c.mu.Lock()
		run, err := c.asRunningLocked()
		if errors.Is(err, ErrStillStarting) {
			c.mu.Unlock()
			if err := c.Enable(ctx); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			c.mu.Unlock()
			return err
		}

		switch a := run.auth.(type) {
		case authAuthorized:
			c.mu.Unlock()
			return nil
		case *authSigningIn:
			c.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-a.done:
				return a.err
			}
		default:
			flight := &authSigningIn{done: make(chan struct{})}
			run.auth = flight
			c.notifyObserversLocked()
			c.mu.Unlock()
			return c.performSignIn(run, flight)
		}
	}
}

// performSignIn drives the sign-in exchange for the flight owner. Joiners
// wait on flight.done.
func (c *Client) performSignIn(run *running, flight *authSigningIn) error {
	status, err := c.signInExchange(run, flight)

	if err != nil {
		c.mu.Lock()
		if s, ok := c.state.(stateRunning); ok && s.run == run && run.auth == authState(flight) {
			run.auth = authSignedOut{}
			c.notifyObserversLocked()
		}
		c.mu.Unlock()
		flight.err = err
		close(flight.done)
		return err
	}

	c.applySignInStatus(run, status)
	if !status.authorized() {
		flight.err = &AuthError{Message: "user not authorized for the service"}
	}
	close(flight.done)
	return flight.err
}

// signInExchange talks to the agent: initiate, then confirm through the
// device flow when one is demanded.
func (c *Client) signInExchange(run *running, flight *authSigningIn) (SignInStatus, error) {
	var initiate SignInInitiateResult
	if err := run.agent.Call(c.ctx, methodSignInInitiate, struct{}{}, &initiate); err != nil {
		return SignInStatus{}, &AuthError{Message: "sign-in initiate", Err: err}
	}

	if !initiate.promptRequired() {
		return SignInStatus{Status: initiate.Status, User: initiate.User}, nil
	}

	c.mu.Lock()
	flight.prompt = &SignInPrompt{
		UserCode:        initiate.UserCode,
		VerificationURI: initiate.VerificationURI,
	}
	c.notifyObserversLocked()
	c.mu.Unlock()

	// The confirm request blocks until the user finishes the device flow,
	// so it runs without the per-request timeout.
	var status SignInStatus
	params := SignInConfirmParams{UserCode: initiate.UserCode}
	if err := run.agent.CallNoTimeout(c.ctx, methodSignInConfirm, params, &status); err != nil {
		return SignInStatus{}, &AuthError{Message: "sign-in confirm", Err: err}
	}
	return status, nil
}

// SignOut drops the session eagerly: the local state flips to signed out
// and registered documents close before the agent acknowledges. A failed
// sign-out request leaves the local state signed out regardless.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	run, err := c.asRunningLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if _, signedOut := run.auth.(authSignedOut); signedOut {
		c.mu.Unlock()
		return nil
	}
	run.auth = authSignedOut{}
	c.notifyObserversLocked()
	c.sweepCloseLocked(run)
	agent := run.agent
	c.mu.Unlock()

	var status SignInStatus
	if err := agent.Call(ctx, methodSignOut, struct{}{}, &status); err != nil {
		c.log.Warn("sign-out request failed: %v", err)
		return &AuthError{Message: "sign out", Err: err}
	}
	return nil
}
