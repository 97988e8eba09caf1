// Package pending implements the outbound request correlation table
// (spec.md §4.3): one entry per in-flight request this peer sent, keyed
// by the stringified request id, resolved exactly once by either an
// inbound Response or a cancellation.
package pending

import (
	"context"
	"sync"

	"github.com/modelcontext/mcp-go/mcp"
)

// Table correlates outbound request IDs with the awaiter blocked on the
// matching response. Safe for concurrent use; the lock is held only for
// O(1) map operations (spec.md §5).
type Table struct {
	mu      sync.Mutex
	entries map[string]chan result
}

type result struct {
	response *mcp.Response
	err      error
}

// New creates an empty pending-request table.
func New() *Table {
	return &Table{entries: make(map[string]chan result)}
}

// Register reserves an entry for id and returns an Awaiter that resolves
// when Resolve(id, ...) or Cancel(id) is called, the ctx passed to
// Awaiter.Wait is done, or the whole table is drained via CancelAll.
func (t *Table) Register(id string) *Awaiter {
	ch := make(chan result, 1)

	t.mu.Lock()
	t.entries[id] = ch
	t.mu.Unlock()

	return &Awaiter{table: t, id: id, ch: ch}
}

// Resolve delivers resp to the awaiter registered under its id, if any.
// An id with no matching entry is an orphan response; the caller (the
// dispatcher) is responsible for logging it, since this package has no
// logger dependency.
func (t *Table) Resolve(id string, resp *mcp.Response) bool {
	t.mu.Lock()
	ch, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	ch <- result{response: resp}
	return true
}

// Cancel wakes the awaiter registered under id with err and removes the
// entry. No-op if id has no entry (already resolved or never existed).
func (t *Table) Cancel(id string, err error) {
	t.mu.Lock()
	ch, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if ok {
		ch <- result{err: err}
	}
}

// CancelAll wakes every outstanding awaiter with err and clears the
// table. Used on peer shutdown (spec.md §5 "Peer shutdown cancels every
// outstanding awaiter").
func (t *Table) CancelAll(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]chan result)
	t.mu.Unlock()

	for _, ch := range entries {
		ch <- result{err: err}
	}
}

// Len reports the number of outstanding entries, for diagnostics and
// tests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Awaiter is a single-use handle on one pending request.
type Awaiter struct {
	table *Table
	id    string
	ch    chan result
}

// Wait blocks until the response arrives, the awaiter is cancelled, or
// ctx is done — whichever comes first. On ctx cancellation the table
// entry is removed so a late response is discarded as an orphan rather
// than leaking the channel.
func (a *Awaiter) Wait(ctx context.Context) (*mcp.Response, error) {
	select {
	case r := <-a.ch:
		if r.err != nil {
			return nil, r.err
		}
		return r.response, nil
	case <-ctx.Done():
		a.table.mu.Lock()
		delete(a.table.entries, a.id)
		a.table.mu.Unlock()
		return nil, ctx.Err()
	}
}
