// Package dispatch implements the single inbound-message router shared
// by both peer roles (spec.md §4.6): it classifies each decoded message
// as a response, notification, or request, enforces lifecycle gating on
// requests (capability checks are left to the route handlers), and
// shapes every reply as a JSON-RPC
// Response flowing back through one transport. Grounded on the
// switch-based routing in the teacher's internal/mcp handler, widened
// from a fixed method list to a registrable Table so mcp/server and
// mcp/client can each wire their own routes over the same engine.
package dispatch

import (
	"context"
	"encoding/json"
	"sync"
)

// RequestHandler answers one inbound request. The returned value is
// marshaled into the Response's result field; an error is mapped to a
// wire Error by the dispatcher (see mapError).
type RequestHandler func(ctx context.Context, params json.RawMessage) (result any, err error)

// NotificationHandler reacts to one inbound notification. Notifications
// never produce a reply; a handler that needs to signal failure can only
// log.
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// Table is a method-name-keyed route table. Registration is safe to call
// concurrently with lookup, the same guarantee the registries give their
// callers (spec.md §5).
type Table struct {
	mu            sync.RWMutex
	requests      map[string]RequestHandler
	notifications map[string]NotificationHandler
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{
		requests:      make(map[string]RequestHandler),
		notifications: make(map[string]NotificationHandler),
	}
}

// HandleRequest registers the handler invoked for inbound requests with
// the given method name, replacing any existing registration.
func (t *Table) HandleRequest(method string, h RequestHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests[method] = h
}

// HandleNotification registers the handler invoked for inbound
// notifications with the given method name, replacing any existing
// registration.
func (t *Table) HandleNotification(method string, h NotificationHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notifications[method] = h
}

func (t *Table) request(method string) (RequestHandler, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.requests[method]
	return h, ok
}

func (t *Table) notification(method string) (NotificationHandler, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.notifications[method]
	return h, ok
}
