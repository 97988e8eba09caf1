// Package transport re-exports the Transport contract from
// transportcore, the way the teacher's internal/transport package
// re-exports transportcore's HTTP types — so callers import one
// package while the contract and its concrete implementations
// (mcp/transport/stdio, mcp/transport/subprocess) live underneath it
// without an import cycle.
package transport

import "github.com/modelcontext/mcp-go/mcp/transport/transportcore"

// Sink receives one decoded inbound message at a time.
type Sink = transportcore.Sink

// Transport is a bidirectional frame pipe satisfying spec.md §4.2.
type Transport = transportcore.Transport
