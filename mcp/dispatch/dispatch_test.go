package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/modelcontext/mcp-go/mcp"
	"github.com/modelcontext/mcp-go/mcp/lifecycle"
	"github.com/modelcontext/mcp-go/mcp/pending"
	"github.com/modelcontext/mcp-go/mcp/transport/transportcore"
)

// recordingTransport captures every Send call for assertions; it never
// actually delivers anything to a Sink.
type recordingTransport struct {
	mu   sync.Mutex
	sent []*mcp.Response
}

func (r *recordingTransport) Start(ctx context.Context, sink transportcore.Sink) error { return nil }

func (r *recordingTransport) Send(ctx context.Context, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if resp, ok := v.(*mcp.Response); ok {
		r.sent = append(r.sent, resp)
	}
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func (r *recordingTransport) Clone() (transportcore.Transport, error) { return r, nil }

func (r *recordingTransport) last() *mcp.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return nil
	}
	return r.sent[len(r.sent)-1]
}

func (r *recordingTransport) waitForOne(t *testing.T) *mcp.Response {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if resp := r.last(); resp != nil {
			return resp
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for a response to be sent")
	return nil
}

func newReadyDispatcher(t *testing.T) (*Dispatcher, *recordingTransport, *Table) {
	t.Helper()
	machine := lifecycle.New()
	if !machine.TransitionTo(lifecycle.Created, lifecycle.Initializing) {
		t.Fatal("TransitionTo(Created, Initializing) = false")
	}
	if !machine.TransitionTo(lifecycle.Initializing, lifecycle.Ready) {
		t.Fatal("TransitionTo(Initializing, Ready) = false")
	}

	tr := &recordingTransport{}
	routes := NewTable()
	d := New(machine, lifecycle.DirectionServerInbound, pending.New(), tr, routes, nil)
	return d, tr, routes
}

func TestDispatch_RequestSuccessRepliesWithResult(t *testing.T) {
	t.Parallel()

	d, tr, routes := newReadyDispatcher(t)
	routes.HandleRequest("ping", func(ctx context.Context, params json.RawMessage) (any, error) {
		return map[string]string{"pong": "ok"}, nil
	})

	d.Dispatch(&mcp.Message{Kind: mcp.KindRequest, Request: &mcp.Request{
		JSONRPC: mcp.JSONRPCVersion, ID: float64(1), Method: "ping",
	}})

	resp := tr.waitForOne(t)
	if resp.Error != nil {
		t.Fatalf("Error = %+v, want nil", resp.Error)
	}
	var result map[string]string
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result["pong"] != "ok" {
		t.Errorf("result = %v, want pong=ok", result)
	}
}

func TestDispatch_UnknownMethodRepliesMethodNotFound(t *testing.T) {
	t.Parallel()

	d, tr, _ := newReadyDispatcher(t)
	d.Dispatch(&mcp.Message{Kind: mcp.KindRequest, Request: &mcp.Request{
		JSONRPC: mcp.JSONRPCVersion, ID: float64(2), Method: "does/not/exist",
	}})

	resp := tr.waitForOne(t)
	if resp.Error == nil || resp.Error.Code != mcp.CodeMethodNotFound {
		t.Errorf("Error = %+v, want code %d", resp.Error, mcp.CodeMethodNotFound)
	}
}

func TestDispatch_RequestDisallowedInCurrentStateRepliesNotInitialized(t *testing.T) {
	t.Parallel()

	machine := lifecycle.New() // stays in Created
	tr := &recordingTransport{}
	routes := NewTable()
	routes.HandleRequest("tools/list", func(ctx context.Context, params json.RawMessage) (any, error) {
		return nil, nil
	})
	d := New(machine, lifecycle.DirectionServerInbound, pending.New(), tr, routes, nil)

	d.Dispatch(&mcp.Message{Kind: mcp.KindRequest, Request: &mcp.Request{
		JSONRPC: mcp.JSONRPCVersion, ID: float64(3), Method: "tools/list",
	}})

	resp := tr.waitForOne(t)
	if resp.Error == nil || resp.Error.Code != mcp.CodeServerNotInitialized {
		t.Errorf("Error = %+v, want code %d", resp.Error, mcp.CodeServerNotInitialized)
	}
}

func TestDispatch_HandlerErrorMapsToWireCode(t *testing.T) {
	t.Parallel()

	d, tr, routes := newReadyDispatcher(t)
	routes.HandleRequest("resources/read", func(ctx context.Context, params json.RawMessage) (any, error) {
		return nil, mcp.ErrResourceNotFound
	})

	d.Dispatch(&mcp.Message{Kind: mcp.KindRequest, Request: &mcp.Request{
		JSONRPC: mcp.JSONRPCVersion, ID: float64(4), Method: "resources/read",
	}})

	resp := tr.waitForOne(t)
	if resp.Error == nil || resp.Error.Code != mcp.CodeResourceNotFound {
		t.Errorf("Error = %+v, want code %d", resp.Error, mcp.CodeResourceNotFound)
	}
}

func TestDispatch_HandlerPanicBecomesInternalError(t *testing.T) {
	t.Parallel()

	d, tr, routes := newReadyDispatcher(t)
	routes.HandleRequest("boom", func(ctx context.Context, params json.RawMessage) (any, error) {
		panic("handler exploded")
	})

	d.Dispatch(&mcp.Message{Kind: mcp.KindRequest, Request: &mcp.Request{
		JSONRPC: mcp.JSONRPCVersion, ID: float64(5), Method: "boom",
	}})

	resp := tr.waitForOne(t)
	if resp.Error == nil || resp.Error.Code != mcp.CodeInternalError {
		t.Errorf("Error = %+v, want code %d", resp.Error, mcp.CodeInternalError)
	}
}

func TestDispatch_ResponseResolvesPendingAwaiter(t *testing.T) {
	t.Parallel()

	d, _, _ := newReadyDispatcher(t)
	tbl := pending.New()
	d.pendingTb = tbl

	awaiter := tbl.Register(mcp.StringifyID(float64(7)))
	d.Dispatch(&mcp.Message{Kind: mcp.KindResponse, Response: &mcp.Response{
		JSONRPC: mcp.JSONRPCVersion, ID: float64(7), Result: json.RawMessage(`{"ok":true}`),
	}})

	resp, err := awaiter.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if string(resp.Result) != `{"ok":true}` {
		t.Errorf("Result = %s, want {\"ok\":true}", resp.Result)
	}
}

func TestDispatch_NotificationInvokesRegisteredHandler(t *testing.T) {
	t.Parallel()

	d, _, routes := newReadyDispatcher(t)
	invoked := make(chan struct{}, 1)
	routes.HandleNotification("notifications/initialized", func(ctx context.Context, params json.RawMessage) {
		invoked <- struct{}{}
	})

	d.Dispatch(&mcp.Message{Kind: mcp.KindNotification, Notification: &mcp.Notification{
		JSONRPC: mcp.JSONRPCVersion, Method: "notifications/initialized",
	}})

	select {
	case <-invoked:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification handler to run")
	}
}

func TestDecodeParams_WrapsUnmarshalErrorAsInvalidParams(t *testing.T) {
	t.Parallel()

	var v struct{ Name string }
	err := DecodeParams("tools/call", json.RawMessage(`not json`), &v)
	if err == nil {
		t.Fatal("DecodeParams() error = nil, want error")
	}
}
