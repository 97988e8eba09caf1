package registry

import (
	"sort"
	"sync"

	"github.com/modelcontext/mcp-go/mcp"
	"github.com/modelcontext/mcp-go/mcp/internal/domainerr"
)

// ToolRegistry stores tool declarations and handlers, thread-safe for
// concurrent registration and dispatch (spec.md §4.5, §9).
type ToolRegistry struct {
	mu      sync.RWMutex
	entries map[string]toolEntry
	changed *changedSignal
}

type toolEntry struct {
	def     mcp.Tool
	handler mcp.ToolHandler
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		entries: make(map[string]toolEntry),
		changed: newChangedSignal(),
	}
}

// Changed exposes the list-changed signal for the notification-sender
// task to consume.
func (r *ToolRegistry) Changed() <-chan struct{} { return r.changed.C() }

// Register adds or replaces the tool named def.Name. Re-registration
// fires the list-changed signal the same as a first registration
// (spec.md §3 invariant).
func (r *ToolRegistry) Register(def mcp.Tool, handler mcp.ToolHandler) error {
	if def.Name == "" {
		return domainerr.New("registry", "Register", domainerr.ErrBadRequest, nil).WithContext("field", "name")
	}
	if handler == nil {
		return domainerr.New("registry", "Register", domainerr.ErrBadRequest, nil).WithContext("field", "handler")
	}

	r.mu.Lock()
	r.entries[def.Name] = toolEntry{def: def, handler: handler}
	r.mu.Unlock()

	r.changed.fire()
	return nil
}

// Get retrieves the handler and definition for name.
func (r *ToolRegistry) Get(name string) (mcp.Tool, mcp.ToolHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return mcp.Tool{}, nil, domainerr.New("registry", "Get", domainerr.ErrNotFound, mcp.ErrToolNotFound).
			WithContext("tool_name", name)
	}
	return entry.def, entry.handler, nil
}

// List returns a lexicographically-ordered page of tool definitions
// starting just after cursor.
func (r *ToolRegistry) List(cursor string) (tools []mcp.Tool, nextCursor string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]mcp.Tool, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e.def)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	return paginate(all, func(t mcp.Tool) string { return t.Name }, cursor, DefaultPageSize)
}
