// Package transportcore defines the Transport contract (spec.md §4.2).
// It exists, the same way the teacher's internal/transport/transportcore
// does for its HTTP types, to let mcp/transport re-export these types
// without creating an import cycle between the contract and the
// concrete stdio/subprocess implementations.
package transportcore

import (
	"context"

	"github.com/modelcontext/mcp-go/mcp"
)

// Sink receives one decoded inbound message at a time, in the order the
// remote peer sent it.
type Sink func(msg *mcp.Message)

// Transport is a bidirectional frame pipe. The engine assumes frames
// delivered to the Sink arrive in send order, frames accepted by Send
// arrive at the remote in submission order, Send either succeeds or
// returns a terminal error with no partial writes observable, and Send
// is safe to call from multiple goroutines concurrently — the transport
// itself serializes writes (spec.md §4.2).
type Transport interface {
	// Start begins delivering decoded messages to sink. It returns once
	// reading has stopped (EOF, ctx cancellation, or Close), carrying any
	// terminal error.
	Start(ctx context.Context, sink Sink) error

	// Send encodes and writes one Request, Response, or Notification.
	Send(ctx context.Context, v any) error

	// Close abandons any in-flight read and releases underlying
	// resources. Close must make a blocked Start return.
	Close() error

	// Clone returns an independent handle to the same underlying pipe,
	// suitable for a fan-out task that only needs to Send (for example,
	// a background notification sender) without competing with Start's
	// reader loop. Implementations that have no separable read/write
	// sides may return themselves.
	Clone() (Transport, error)
}
