package assist

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dshills/sidekick/internal/logging"
	"github.com/dshills/sidekick/internal/textdoc"
)

// knownDoc is a document the host has shown us at least once. Known
// documents survive sign-out and agent restarts; the table is pruned of
// closed documents during sweeps.
type knownDoc struct {
	doc  *textdoc.Document
	subs []textdoc.Subscription
}

// Client coordinates the agent session: enablement, authorization,
// document synchronization, and completion requests. A Client is owned by
// the host's composition root and shared by reference.
type Client struct {
	log     *logging.Logger
	install InstallConfig
	agent   AgentConfig
	starter AgentStarter

	mu           sync.Mutex
	state        serverState
	startGen     uint64
	known        map[uint64]*knownDoc
	observers    map[int]func(Status)
	nextObserver int
	shutdown     bool

	startGroup singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithInstallConfig sets where the agent binary is located.
func WithInstallConfig(cfg InstallConfig) Option {
	return func(c *Client) { c.install = cfg }
}

// WithAgentConfig sets subprocess launch parameters. The Command field is
// overridden by the binary locator unless WithAgentStarter is also given.
func WithAgentConfig(cfg AgentConfig) Option {
	return func(c *Client) { c.agent = cfg }
}

// WithAgentStarter replaces the subprocess launcher, letting tests connect
// the client to an in-memory agent.
func WithAgentStarter(starter AgentStarter) Option {
	return func(c *Client) { c.starter = starter }
}

// NewClient creates a disabled client. Call Enable to start the agent.
func NewClient(opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		log:       logging.Null,
		state:     stateDisabled{},
		known:     make(map[uint64]*knownDoc),
		observers: make(map[int]func(Status)),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("assist")
	if c.starter == nil {
		c.starter = c.spawnAgent
	}
	return c
}

// spawnAgent is the default starter: locate the binary and launch it.
func (c *Client) spawnAgent(ctx context.Context) (*Agent, error) {
	cfg := c.agent
	if cfg.Command == "" {
		path, err := locateAgentBinary(c.install)
		if err != nil {
			return nil, err
		}
		cfg.Command = path
	}
	return StartAgentProcess(ctx, cfg, c.log)
}

// Enable starts the agent if it is not already running. Concurrent and
// repeated calls share a single in-flight start; every caller gets the
// shared outcome. A failed start leaves the client in the error state
// until the next Enable or Reinstall.
func (c *Client) Enable(ctx context.Context) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrShutdown
	}
	if _, ok := c.state.(stateRunning); ok {
		c.mu.Unlock()
		return nil
	}
	var gen uint64
	if st, ok := c.state.(stateStarting); ok {
		gen = st.gen
	} else {
		c.startGen++
		gen = c.startGen
		c.setStateLocked(stateStarting{gen: gen})
	}
	c.mu.Unlock()

	type startResult struct{}
	resCh := c.startGroup.DoChan("start", func() (any, error) {
		return startResult{}, c.runStart()
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resCh:
		if res.Err != nil {
			// A failure delivered to a joiner after a Disable raced
			// the flight must not leave this attempt stuck in the
			// starting state.
			c.mu.Lock()
			if st, ok := c.state.(stateStarting); ok && st.gen == gen {
				c.setStateLocked(stateError{err: res.Err})
			}
			c.mu.Unlock()
		}
		return res.Err
	}
}

// runStart performs one agent start attempt and installs the resulting
// state. It runs outside the client mutex; only one runs at a time.
func (c *Client) runStart() error {
	agent, err := c.starter(c.ctx)
	if err == nil {
		err = agent.Initialize(c.ctx)
		if err != nil {
			agent.Close()
		}
	}

	if err != nil {
		startErr, ok := err.(*StartupError)
		if !ok {
			startErr = &StartupError{Message: "start agent", Err: err}
		}
		c.log.Error("agent start failed: %v", startErr)
		c.mu.Lock()
		if _, starting := c.state.(stateStarting); starting {
			c.setStateLocked(stateError{err: startErr})
		}
		c.mu.Unlock()
		return startErr
	}

	// Status chatter from the agent only matters to richer UIs; consume
	// and drop it.
	agent.OnNotification(methodStatusNotification, func(string, json.RawMessage) {})

	run := &running{
		agent: agent,
		auth:  authSignedOut{},
		docs:  make(map[uint64]*registeredDocument),
	}

	c.mu.Lock()
	if _, starting := c.state.(stateStarting); !starting {
		// Disabled or shut down while starting. Discard the connection.
		c.mu.Unlock()
		agent.Close()
		return ErrShutdown
	}
	c.setStateLocked(stateRunning{run: run})
	c.mu.Unlock()

	go c.watchAgentExit(agent)

	// Seed the authorization state from the agent's stored credentials.
	c.refreshAuth(run)
	return nil
}

// watchAgentExit turns an unexpected agent death into the error state.
func (c *Client) watchAgentExit(agent *Agent) {
	select {
	case <-c.ctx.Done():
		return
	case err := <-agent.Exited():
		c.mu.Lock()
		s, ok := c.state.(stateRunning)
		if !ok || s.run.agent != agent {
			c.mu.Unlock()
			return
		}
		c.setStateLocked(stateError{err: &StartupError{Message: "agent terminated", Err: err}})
		c.mu.Unlock()
		agent.Close()
	}
}

// Disable stops the agent and drops all session state. Known documents are
// kept and re-registered on the next sign-in.
func (c *Client) Disable() {
	c.mu.Lock()
	var agent *Agent
	if s, ok := c.state.(stateRunning); ok {
		agent = s.run.agent
	}
	c.setStateLocked(stateDisabled{})
	c.mu.Unlock()

	if agent != nil {
		agent.Close()
	}
}

// Reinstall clears the cached agent install and starts fresh. The running
// agent, if any, is stopped first.
func (c *Client) Reinstall(ctx context.Context) error {
	c.Disable()
	if err := clearAgentCache(c.install); err != nil {
		return &StartupError{Message: "clear agent cache", Err: err}
	}
	return c.Enable(ctx)
}

// Status returns the current observable state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// OnStatusChange registers an observer called after every state change.
// The returned function removes it.
func (c *Client) OnStatusChange(fn func(Status)) func() {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// setStateLocked installs a new state and schedules observer notification.
// Callers hold c.mu.
func (c *Client) setStateLocked(s serverState) {
	c.state = s
	c.notifyObserversLocked()
}

// notifyObserversLocked snapshots the status and observers, then invokes
// the callbacks outside the lock. Callers hold c.mu.
func (c *Client) notifyObserversLocked() {
	if len(c.observers) == 0 {
		return
	}
	status := c.statusLocked()
	observers := make([]func(Status), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	go func() {
		for _, fn := range observers {
			fn(status)
		}
	}()
}

// RegisterDocument makes the client track a host document. The document is
// remembered regardless of state and announced to the agent only while a
// user is authorized. Registration is idempotent.
func (c *Client) RegisterDocument(doc *textdoc.Document) {
	if doc == nil || doc.Closed() {
		return
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	if _, seen := c.known[doc.ID()]; seen {
		run, err := c.asAuthorizedLocked()
		if err == nil {
			c.openDocumentLocked(run, doc)
		}
		c.mu.Unlock()
		return
	}

	kd := &knownDoc{doc: doc}
	kd.subs = append(kd.subs,
		doc.OnEdit(func() { c.handleDocEdit(doc) }),
		doc.OnIdentityChange(func() { c.handleDocIdentityChange(doc) }),
		doc.OnClose(func() { c.UnregisterDocument(doc) }),
	)
	c.known[doc.ID()] = kd

	if run, err := c.asAuthorizedLocked(); err == nil {
		c.openDocumentLocked(run, doc)
	}
	c.mu.Unlock()
}

// UnregisterDocument stops tracking a document and closes it with the
// agent if it was announced. Unknown documents are ignored.
func (c *Client) UnregisterDocument(doc *textdoc.Document) {
	if doc == nil {
		return
	}

	c.mu.Lock()
	kd, seen := c.known[doc.ID()]
	if !seen {
		c.mu.Unlock()
		return
	}
	delete(c.known, doc.ID())

	var closeFn func()
	if s, ok := c.state.(stateRunning); ok {
		if rd, registered := s.run.docs[doc.ID()]; registered {
			delete(s.run.docs, doc.ID())
			agent := s.run.agent
			closeFn = func() { rd.sendClose(c.ctx, agent) }
		}
	}
	c.mu.Unlock()

	for _, sub := range kd.subs {
		sub.Cancel()
	}
	if closeFn != nil {
		closeFn()
	}
}

// Shutdown stops the agent and invalidates the client. All subsequent
// operations fail with ErrShutdown.
func (c *Client) Shutdown() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.shutdown = true
	var agent *Agent
	if s, ok := c.state.(stateRunning); ok {
		agent = s.run.agent
	}
	c.state = stateDisabled{}
	known := c.known
	c.known = make(map[uint64]*knownDoc)
	c.mu.Unlock()

	c.cancel()
	for _, kd := range known {
		for _, sub := range kd.subs {
			sub.Cancel()
		}
	}
	if agent != nil {
		agent.Close()
	}
}
