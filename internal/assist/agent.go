package assist

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/sidekick/internal/logging"
)

// clientName identifies this client in the initialize handshake.
const clientName = "sidekick"

// ClientVersion is reported to the agent during the handshake.
const ClientVersion = "0.9.0"

// AgentConfig describes how to launch the agent subprocess.
type AgentConfig struct {
	// Command is the agent executable.
	Command string

	// Args are command-line arguments.
	Args []string

	// Env are additional environment variables merged over the host's.
	Env map[string]string

	// WorkDir is the working directory for the subprocess.
	WorkDir string

	// RequestTimeout bounds individual requests (default 30s).
	RequestTimeout time.Duration
}

// Agent is a live connection to a running agent. It wraps the transport
// with the handshake, request timeouts, and process teardown.
type Agent struct {
	transport *Transport
	log       *logging.Logger
	timeout   time.Duration
	info      InitializeResult

	stop      func()
	exitCh    chan error
	closeOnce sync.Once
}

// AgentStarter launches an agent and returns the live connection. The
// default starter spawns a subprocess; tests substitute an in-memory pipe.
type AgentStarter func(ctx context.Context) (*Agent, error)

// NewAgent wraps an existing transport as an agent connection. stop, if
// non-nil, runs once when the agent is closed, after the transport.
func NewAgent(t *Transport, timeout time.Duration, stop func(), log *logging.Logger) *Agent {
	if log == nil {
		log = logging.Null
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Agent{
		transport: t,
		log:       log.WithComponent("agent"),
		timeout:   timeout,
		stop:      stop,
		exitCh:    make(chan error, 1),
	}
}

// StartAgentProcess spawns the agent subprocess described by cfg, wires a
// transport over its stdio, and returns the connection. The handshake has
// not run yet; callers follow with Initialize.
func StartAgentProcess(ctx context.Context, cfg AgentConfig, log *logging.Logger) (*Agent, error) {
	if cfg.Command == "" {
		return nil, &StartupError{Message: "no agent binary configured"}
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &StartupError{Message: "stdin pipe", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, &StartupError{Message: "stdout pipe", Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, &StartupError{Message: "stderr pipe", Err: err}
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, &StartupError{Message: fmt.Sprintf("start %s", cfg.Command), Err: err}
	}

	transport := NewTransport(stdout, stdin, nil, log)

	stop := func() {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}

	agent := NewAgent(transport, cfg.RequestTimeout, stop, log)
	agent.transport.Start(ctx)
	go agent.drainStderr(stderr)
	go agent.monitor(cmd)

	return agent, nil
}

// Initialize runs the handshake: an initialize request identifying this
// client instance followed by the initialized notification.
func (a *Agent) Initialize(ctx context.Context) error {
	params := InitializeParams{
		ClientName:    clientName,
		ClientVersion: ClientVersion,
		InstanceID:    uuid.NewString(),
	}

	var result InitializeResult
	if err := a.Call(ctx, methodInitialize, params, &result); err != nil {
		return &StartupError{Message: "initialize handshake", Err: err}
	}
	a.info = result

	if err := a.transport.Notify(ctx, methodInitialized, struct{}{}); err != nil {
		return &StartupError{Message: "initialized notification", Err: err}
	}

	a.log.Info("agent ready: %s %s", result.AgentName, result.AgentVersion)
	return nil
}

// Info returns the agent's self-description from the handshake.
func (a *Agent) Info() InitializeResult { return a.info }

// Call sends a request bounded by the configured timeout.
func (a *Agent) Call(ctx context.Context, method string, params any, result any) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.transport.Call(ctx, method, params, result)
}

// CallNoTimeout sends a request bounded only by ctx. Used for exchanges
// that legitimately wait on the user.
func (a *Agent) CallNoTimeout(ctx context.Context, method string, params any, result any) error {
	return a.transport.Call(ctx, method, params, result)
}

// Notify sends a notification.
func (a *Agent) Notify(ctx context.Context, method string, params any) error {
	return a.transport.Notify(ctx, method, params)
}

// OnNotification registers a handler for agent notifications.
func (a *Agent) OnNotification(method string, handler NotificationHandler) {
	a.transport.OnNotification(method, handler)
}

// Close tears down the connection and the subprocess, if any. In-flight
// requests fail with ErrShutdown.
func (a *Agent) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.transport.Close()
		if a.stop != nil {
			a.stop()
		}
	})
	return err
}

// Exited delivers the process exit error, if the agent runs as a
// subprocess. The channel never delivers for in-memory connections.
func (a *Agent) Exited() <-chan error { return a.exitCh }

func (a *Agent) monitor(cmd *exec.Cmd) {
	err := cmd.Wait()
	if err != nil {
		a.log.Warn("agent process exited: %v", err)
	}
	select {
	case a.exitCh <- err:
	default:
	}
}

// drainStderr forwards agent diagnostics to the logger so the pipe never
// fills up.
func (a *Agent) drainStderr(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			a.log.Debug("agent stderr: %s", buf[:n])
		}
		if err != nil {
			return
		}
	}
}
