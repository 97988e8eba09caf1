// Package stdio is the reference stdio transport (spec.md §4.2, §6):
// newline-delimited JSON read from an input stream and written to an
// output stream, with stdio Read/Write bound to the process's standard
// streams in the common case. Grounded on original_source's
// mcp-server/src/transport/stdio.rs and mcp-client/src/transport/stdio.rs.
package stdio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/modelcontext/mcp-go/mcp"
	"github.com/modelcontext/mcp-go/mcp/transport/transportcore"
)

// Transport implements transportcore.Transport over newline-delimited
// JSON. The zero value is not usable; construct with New or NewStdio.
type Transport struct {
	r io.Reader
	w io.Writer

	closer io.Closer // non-nil when r/w are also Closers, to unblock a pending read

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// New wraps an arbitrary reader/writer pair as a stdio-framed transport.
// If r implements io.Closer, Close() closes it to abandon an in-flight
// read, per the contract's "Transports must abandon in-flight reads when
// close() is called" (spec.md §5).
func New(r io.Reader, w io.Writer) *Transport {
	t := &Transport{r: r, w: w}
	if c, ok := r.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// NewStdio binds a transport to the process's standard input and
// standard output.
func NewStdio() *Transport {
	return New(os.Stdin, os.Stdout)
}

// Start reads newline-delimited JSON frames from the transport's reader
// until EOF or Close/ctx cancellation, delivering each decoded message to
// sink in arrival order. A malformed frame replies with a -32700 response
// tied to the frame's id when one was recoverable (spec.md §7); one with
// no recoverable id is logged and dropped without a reply, not fatal
// (spec.md §4.1).
func (t *Transport) Start(ctx context.Context, sink transportcore.Sink) error {
	scanner := bufio.NewScanner(t.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		msg, err := mcp.DecodeMessage(line)
		if err != nil {
			var parseErr *mcp.ParseError
			if errors.As(err, &parseErr) && parseErr.ID != nil {
				_ = t.Send(ctx, &mcp.Response{
					JSONRPC: mcp.JSONRPCVersion,
					ID:      parseErr.ID,
					Error:   mcp.NewError(mcp.CodeParseError, "parse error", nil),
				})
				continue
			}
			// A malformed frame with no recoverable id is logged and
			// dropped (spec.md §4.1); this package takes no logger, so
			// the record goes to slog's default logger.
			slog.Warn("stdio: dropping malformed frame", "error", err)
			continue
		}
		sink(msg)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stdio: read: %w", err)
	}
	return nil
}

// Send writes v as one compact-JSON line terminated by '\n'. Safe for
// concurrent use; writes are serialized by an internal mutex.
func (t *Transport) Send(ctx context.Context, v any) error {
	data, err := mcp.EncodeMessage(v)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.w.Write(data); err != nil {
		return fmt.Errorf("stdio: write: %w", err)
	}
	if _, err := t.w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("stdio: write: %w", err)
	}
	return nil
}

// Close abandons any in-flight read by closing the underlying reader, if
// it is an io.Closer.
func (t *Transport) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Clone returns the same Transport: reads and writes already go through
// one mutex-serialized pipe, so a fan-out task can share the handle
// directly rather than needing a distinct read/write split.
func (t *Transport) Clone() (transportcore.Transport, error) {
	return t, nil
}
