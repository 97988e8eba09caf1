package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/modelcontext/mcp-go/mcp"
	"github.com/modelcontext/mcp-go/mcp/lifecycle"
	"github.com/modelcontext/mcp-go/mcp/transport/transportcore"
)

// fakeTransport mirrors mcp/server's test double: queued inbound
// messages feed whatever Sink Start was given, and every Send call is
// recorded for assertions.
type fakeTransport struct {
	inbound chan *mcp.Message

	mu   sync.Mutex
	sent []any
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbound: make(chan *mcp.Message, 16)}
}

func (f *fakeTransport) Start(ctx context.Context, sink transportcore.Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-f.inbound:
			if !ok {
				return nil
			}
			sink(msg)
		}
	}
}

func (f *fakeTransport) Send(ctx context.Context, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeTransport) Close() error {
	close(f.inbound)
	return nil
}

func (f *fakeTransport) Clone() (transportcore.Transport, error) { return f, nil }

func (f *fakeTransport) push(msg *mcp.Message) { f.inbound <- msg }

func (f *fakeTransport) lastRequest(t *testing.T) *mcp.Request {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		for i := len(f.sent) - 1; i >= 0; i-- {
			if req, ok := f.sent[i].(*mcp.Request); ok {
				f.mu.Unlock()
				return req
			}
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for a request to be sent")
	return nil
}

func (f *fakeTransport) notifications() []*mcp.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*mcp.Notification
	for _, v := range f.sent {
		if n, ok := v.(*mcp.Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

func respond(req *mcp.Request, result any) *mcp.Message {
	raw, _ := json.Marshal(result)
	return &mcp.Message{Kind: mcp.KindResponse, Response: &mcp.Response{
		JSONRPC: mcp.JSONRPCVersion, ID: req.ID, Result: raw,
	}}
}

func TestClient_InitializeSendsHandshakeAndReachesReady(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	c, err := New(tr, Options{Info: mcp.Implementation{Name: "test-client", Version: "0.0.1"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	initDone := make(chan *mcp.InitializeResult, 1)
	initErr := make(chan error, 1)
	go func() {
		result, err := c.Initialize(ctx, mcp.ProtocolVersionLatest)
		if err != nil {
			initErr <- err
			return
		}
		initDone <- result
	}()

	req := tr.lastRequest(t)
	if req.Method != mcp.MethodInitialize {
		t.Fatalf("Method = %q, want %q", req.Method, mcp.MethodInitialize)
	}
	tr.push(respond(req, mcp.InitializeResult{
		ProtocolVersion: mcp.ProtocolVersionLatest,
		ServerInfo:      mcp.Implementation{Name: "test-server", Version: "0.0.1"},
	}))

	select {
	case err := <-initErr:
		t.Fatalf("Initialize() error = %v", err)
	case result := <-initDone:
		if result.ProtocolVersion != mcp.ProtocolVersionLatest {
			t.Errorf("ProtocolVersion = %q, want %q", result.ProtocolVersion, mcp.ProtocolVersionLatest)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Initialize to return")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		found := false
		for _, n := range tr.notifications() {
			if n.Method == mcp.NotificationInitialized {
				found = true
			}
		}
		if found {
			break
		}
		time.Sleep(time.Millisecond)
	}
	var sawInitialized bool
	for _, n := range tr.notifications() {
		if n.Method == mcp.NotificationInitialized {
			sawInitialized = true
		}
	}
	if !sawInitialized {
		t.Fatal("client never sent notifications/initialized")
	}
	if c.machine.Current().String() != "ready" {
		t.Fatalf("state = %s, want ready", c.machine.Current())
	}
}

func TestClient_CallRoundTripsResult(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	c, err := New(tr, Options{Info: mcp.Implementation{Name: "test-client", Version: "0.0.1"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.machine.TransitionTo(lifecycle.Created, lifecycle.Ready)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	callDone := make(chan error, 1)
	var got mcp.ToolsListResult
	go func() {
		callDone <- c.Call(ctx, mcp.MethodToolsList, mcp.ToolsListParams{}, &got)
	}()

	req := tr.lastRequest(t)
	tr.push(respond(req, mcp.ToolsListResult{
		Tools:      []mcp.Tool{{Name: "echo"}},
		NextCursor: "",
	}))

	select {
	case err := <-callDone:
		if err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Call to return")
	}

	if len(got.Tools) != 1 || got.Tools[0].Name != "echo" {
		t.Errorf("Tools = %+v, want [echo]", got.Tools)
	}
}

func TestClient_SamplingCreateMessageWithoutCallbackRepliesNoSamplingCallback(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	c, err := New(tr, Options{
		Info:         mcp.Implementation{Name: "test-client", Version: "0.0.1"},
		Capabilities: mcp.ClientCapabilities{Sampling: &struct{}{}},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.machine.TransitionTo(lifecycle.Created, lifecycle.Ready)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	tr.push(&mcp.Message{Kind: mcp.KindRequest, Request: &mcp.Request{
		JSONRPC: mcp.JSONRPCVersion, ID: float64(99), Method: mcp.MethodSamplingCreateMessage,
	}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tr.mu.Lock()
		for _, v := range tr.sent {
			if resp, ok := v.(*mcp.Response); ok {
				tr.mu.Unlock()
				if resp.Error == nil || resp.Error.Code != mcp.CodeNoSamplingCallback {
					t.Fatalf("Error = %+v, want code %d", resp.Error, mcp.CodeNoSamplingCallback)
				}
				return
			}
		}
		tr.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for a response to sampling/createMessage")
}
