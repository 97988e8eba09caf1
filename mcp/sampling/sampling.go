// Package sampling implements the client side of the sampling bridge
// (spec.md §4.7): storage for the single registered callback and its
// invocation off the dispatcher goroutine. The server side of the bridge
// is just an ordinary outbound request through the pending table, issued
// by mcp/server.
package sampling

import (
	"context"
	"sync"

	"github.com/modelcontext/mcp-go/mcp"
)

// Callback answers a server-initiated sampling/createMessage request.
// Invoke runs the callback on the caller's goroutine; the dispatcher
// already handles each inbound request on a spawned goroutine, so the
// callback does not block the dispatcher task, but a callback that never
// returns will leak that goroutine until the peer shuts down.
type Callback func(ctx context.Context, params *mcp.CreateMessageParams) (*mcp.CreateMessageResult, error)

// Bridge holds at most one registered callback. A client that never
// calls SetCallback replies -32005 (no sampling callback) to every
// inbound sampling/createMessage request.
type Bridge struct {
	mu       sync.RWMutex
	callback Callback
}

// New creates a bridge with no callback registered.
func New() *Bridge {
	return &Bridge{}
}

// SetCallback registers (or replaces) the callback invoked for inbound
// sampling requests.
func (b *Bridge) SetCallback(cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callback = cb
}

// HasCallback reports whether a callback is currently registered.
func (b *Bridge) HasCallback() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.callback != nil
}

// Invoke calls the registered callback. Callers must check HasCallback
// (or handle ErrNoSamplingCallback) first; Invoke returns that sentinel
// itself if no callback is registered, so it is also safe to call
// unconditionally.
func (b *Bridge) Invoke(ctx context.Context, params *mcp.CreateMessageParams) (*mcp.CreateMessageResult, error) {
	b.mu.RLock()
	cb := b.callback
	b.mu.RUnlock()

	if cb == nil {
		return nil, mcp.ErrNoSamplingCallback
	}
	return cb(ctx, params)
}
