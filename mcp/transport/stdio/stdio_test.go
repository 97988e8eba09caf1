package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontext/mcp-go/mcp"
)

// syncBuffer is a concurrency-safe io.Writer, since Send and a test's
// assertions run from different goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTransport_MalformedFrameWithRecoverableIDRepliesParseError(t *testing.T) {
	t.Parallel()

	// "result" and "error" both set: recoverable per-frame id (1), but
	// rejected by DecodeMessage as malformed.
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":-32603,"message":"x"}}` + "\n")
	out := &syncBuffer{}
	tr := New(in, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- tr.Start(ctx, func(*mcp.Message) {}) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Start to drain the reader")
	}

	var resp mcp.Response
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected a -32700 response to be written, got nothing")
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("unmarshal written response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != mcp.CodeParseError {
		t.Fatalf("Error = %+v, want code %d", resp.Error, mcp.CodeParseError)
	}
	if mcp.StringifyID(resp.ID) != "1" {
		t.Errorf("ID = %v, want 1", resp.ID)
	}
}

func TestTransport_TotallyMalformedFrameIsDroppedSilently(t *testing.T) {
	t.Parallel()

	in := strings.NewReader("not json at all\n")
	out := &syncBuffer{}
	tr := New(in, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- tr.Start(ctx, func(*mcp.Message) {}) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Start to drain the reader")
	}

	if out.String() != "" {
		t.Errorf("expected no reply for a frame with no recoverable id, got %q", out.String())
	}
}
