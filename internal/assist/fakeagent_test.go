package assist

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// docEvent records a textDocument notification seen by the fake agent.
type docEvent struct {
	method     string
	uri        string
	languageID string
	version    int
	text       string
}

// fakeAgent speaks the agent protocol over in-memory pipes. Behavior is
// driven by the exported fields, read under mu.
type fakeAgent struct {
	in  *bufio.Reader
	out io.Writer

	mu           sync.Mutex
	status       SignInStatus
	initiate     SignInInitiateResult
	confirm      SignInStatus
	confirmDelay time.Duration
	completions  []CompletionItem
	failMethods  map[string]*RPCError

	initiateCount atomic.Int32

	events    chan docEvent
	confirms  chan SignInConfirmParams
	accepted  chan string
	rejected  chan []string
	completed chan CompletionParams
}

func newFakeAgent(in io.Reader, out io.Writer) *fakeAgent {
	return &fakeAgent{
		in:          bufio.NewReader(in),
		out:         out,
		status:      SignInStatus{Status: statusNotSignedIn},
		initiate:    SignInInitiateResult{Status: statusNotSignedIn, UserCode: "ABCD-1234", VerificationURI: "https://example.com/device"},
		confirm:     SignInStatus{Status: statusOK, User: "alice"},
		failMethods: make(map[string]*RPCError),
		events:      make(chan docEvent, 64),
		confirms:    make(chan SignInConfirmParams, 4),
		accepted:    make(chan string, 4),
		rejected:    make(chan []string, 4),
		completed:   make(chan CompletionParams, 4),
	}
}

func (f *fakeAgent) setStatus(s SignInStatus) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

func (f *fakeAgent) setInitiate(r SignInInitiateResult) {
	f.mu.Lock()
	f.initiate = r
	f.mu.Unlock()
}

func (f *fakeAgent) setConfirm(s SignInStatus) {
	f.mu.Lock()
	f.confirm = s
	f.mu.Unlock()
}

func (f *fakeAgent) setConfirmDelay(d time.Duration) {
	f.mu.Lock()
	f.confirmDelay = d
	f.mu.Unlock()
}

func (f *fakeAgent) setCompletions(items ...CompletionItem) {
	f.mu.Lock()
	f.completions = items
	f.mu.Unlock()
}

func (f *fakeAgent) failWith(method string, rpcErr *RPCError) {
	f.mu.Lock()
	f.failMethods[method] = rpcErr
	f.mu.Unlock()
}

// serve handles requests until the pipe closes.
func (f *fakeAgent) serve() {
	for {
		body, err := f.readMessage()
		if err != nil {
			return
		}

		var msg struct {
			ID     *int64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(body, &msg); err != nil {
			continue
		}

		f.mu.Lock()
		rpcErr := f.failMethods[msg.Method]
		f.mu.Unlock()
		if rpcErr != nil && msg.ID != nil {
			f.respondError(*msg.ID, rpcErr)
			continue
		}

		switch msg.Method {
		case methodInitialize:
			f.respond(*msg.ID, InitializeResult{AgentName: "fake-agent", AgentVersion: "1.0.0"})
		case methodInitialized:
			// notification, nothing to answer
		case methodCheckStatus, methodSignOut:
			f.mu.Lock()
			status := f.status
			f.mu.Unlock()
			if msg.Method == methodSignOut {
				status = SignInStatus{Status: statusNotSignedIn}
			}
			f.respond(*msg.ID, status)
		case methodSignInInitiate:
			f.initiateCount.Add(1)
			f.mu.Lock()
			initiate := f.initiate
			f.mu.Unlock()
			f.respond(*msg.ID, initiate)
		case methodSignInConfirm:
			var params SignInConfirmParams
			json.Unmarshal(msg.Params, &params)
			f.confirms <- params
			f.mu.Lock()
			confirm := f.confirm
			delay := f.confirmDelay
			f.mu.Unlock()
			if delay > 0 {
				time.Sleep(delay)
			}
			f.respond(*msg.ID, confirm)
		case methodDidOpen:
			var params DidOpenParams
			json.Unmarshal(msg.Params, &params)
			f.events <- docEvent{
				method:     msg.Method,
				uri:        params.TextDocument.URI,
				languageID: params.TextDocument.LanguageID,
				version:    params.TextDocument.Version,
				text:       params.TextDocument.Text,
			}
		case methodDidChange:
			var params DidChangeParams
			json.Unmarshal(msg.Params, &params)
			f.events <- docEvent{
				method:  msg.Method,
				uri:     params.TextDocument.URI,
				version: params.TextDocument.Version,
				text:    params.Text,
			}
		case methodDidClose:
			var params DidCloseParams
			json.Unmarshal(msg.Params, &params)
			f.events <- docEvent{method: msg.Method, uri: params.TextDocument.URI}
		case methodCompletions, methodCompletionsCycling:
			var params CompletionParams
			json.Unmarshal(msg.Params, &params)
			f.completed <- params
			f.mu.Lock()
			items := make([]CompletionItem, len(f.completions))
			copy(items, f.completions)
			f.mu.Unlock()
			for i := range items {
				if items[i].UUID == "" {
					items[i].UUID = uuid.NewString()
				}
			}
			f.respond(*msg.ID, CompletionsResult{Completions: items})
		case methodNotifyAccepted:
			var params NotifyAcceptedParams
			json.Unmarshal(msg.Params, &params)
			f.accepted <- params.UUID
			f.respond(*msg.ID, struct{}{})
		case methodNotifyRejected:
			var params NotifyRejectedParams
			json.Unmarshal(msg.Params, &params)
			f.rejected <- params.UUIDs
			f.respond(*msg.ID, struct{}{})
		}
	}
}

func (f *fakeAgent) readMessage() ([]byte, error) {
	var contentLength int
	for {
		line, err := f.in.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				contentLength, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
			}
		}
	}
	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length")
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(f.in, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *fakeAgent) respond(id int64, result any) {
	data, _ := json.Marshal(result)
	f.write(Response{JSONRPC: "2.0", ID: id, Result: data})
}

func (f *fakeAgent) respondError(id int64, rpcErr *RPCError) {
	f.write(Response{JSONRPC: "2.0", ID: id, Error: rpcErr})
}

func (f *fakeAgent) write(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	fmt.Fprintf(f.out, "Content-Length: %d\r\n\r\n", len(data))
	f.out.Write(data)
}

// newTestClient wires a client to a fake agent over in-memory pipes.
func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeAgent) {
	t.Helper()

	clientIn, agentOut := io.Pipe()
	agentIn, clientOut := io.Pipe()

	fake := newFakeAgent(agentIn, agentOut)
	go fake.serve()

	starter := func(ctx context.Context) (*Agent, error) {
		transport := NewTransport(clientIn, clientOut, nil, nil)
		agent := NewAgent(transport, 5*time.Second, func() {
			clientIn.Close()
			clientOut.Close()
			agentIn.Close()
			agentOut.Close()
		}, nil)
		transport.Start(ctx)
		return agent, nil
	}

	client := NewClient(append([]Option{WithAgentStarter(starter)}, opts...)...)
	t.Cleanup(client.Shutdown)
	return client, fake
}

// waitEvent receives the next document event or fails the test.
func waitEvent(t *testing.T, ch chan docEvent) docEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for document event")
		return docEvent{}
	}
}
