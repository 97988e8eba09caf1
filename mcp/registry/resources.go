package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/modelcontext/mcp-go/mcp"
	"github.com/modelcontext/mcp-go/mcp/internal/domainerr"
)

// ResourceRegistry stores resource declarations, content providers, and
// per-URI subscriber sets (spec.md §4.5).
type ResourceRegistry struct {
	mu            sync.RWMutex
	entries       map[string]resourceEntry
	subscriptions map[string]map[string]struct{} // uri -> subscriber id set
	changed       *changedSignal
	updated       *resourceUpdatedSignal
}

type resourceEntry struct {
	def      mcp.Resource
	provider mcp.ResourceContentProvider
}

// NewResourceRegistry creates an empty resource registry.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{
		entries:       make(map[string]resourceEntry),
		subscriptions: make(map[string]map[string]struct{}),
		changed:       newChangedSignal(),
		updated:       newResourceUpdatedSignal(),
	}
}

// Changed exposes the list-changed signal.
func (r *ResourceRegistry) Changed() <-chan struct{} { return r.changed.C() }

// Updated exposes the per-URI resources/updated signal, fired by
// UpdateResource.
func (r *ResourceRegistry) Updated() <-chan string { return r.updated.C() }

// Register adds or replaces the resource at def.URI.
func (r *ResourceRegistry) Register(def mcp.Resource, provider mcp.ResourceContentProvider) error {
	if def.URI == "" {
		return domainerr.New("registry", "Register", domainerr.ErrBadRequest, nil).WithContext("field", "uri")
	}
	if provider == nil {
		return domainerr.New("registry", "Register", domainerr.ErrBadRequest, nil).WithContext("field", "provider")
	}

	r.mu.Lock()
	r.entries[def.URI] = resourceEntry{def: def, provider: provider}
	r.mu.Unlock()

	r.changed.fire()
	return nil
}

// UpdateResource replaces the content provider for an already-registered
// URI and fires resources/updated to every current subscriber. Returns
// ErrResourceNotFound if uri was never registered.
func (r *ResourceRegistry) UpdateResource(uri string, provider mcp.ResourceContentProvider) error {
	r.mu.Lock()
	entry, ok := r.entries[uri]
	if !ok {
		r.mu.Unlock()
		return domainerr.New("registry", "UpdateResource", domainerr.ErrNotFound, mcp.ErrResourceNotFound).
			WithContext("resource_uri", uri)
	}
	entry.provider = provider
	r.entries[uri] = entry
	_, hasSubscribers := r.subscriptions[uri]
	r.mu.Unlock()

	if hasSubscribers {
		r.updated.fire(uri)
	}
	return nil
}

// Get retrieves a resource's definition and reads its current content.
func (r *ResourceRegistry) Get(ctx context.Context, uri string) (mcp.Resource, []mcp.ResourceContent, error) {
	r.mu.RLock()
	entry, ok := r.entries[uri]
	r.mu.RUnlock()

	if !ok {
		return mcp.Resource{}, nil, domainerr.New("registry", "Get", domainerr.ErrNotFound, mcp.ErrResourceNotFound).
			WithContext("resource_uri", uri)
	}

	content, err := entry.provider(ctx)
	if err != nil {
		return mcp.Resource{}, nil, domainerr.New("registry", "Get", domainerr.ErrInternal, err).
			WithContext("resource_uri", uri)
	}
	return entry.def, content, nil
}

// List returns a lexicographically-ordered (by URI) page of resource
// definitions starting just after cursor. Entries are grouped by URI
// scheme first so mixed-scheme registries (file://, db://, custom://)
// sort stably within a scheme before falling back to a pure string
// compare, matching the grouping original_source's
// resource_extensions.rs applies ahead of listing.
func (r *ResourceRegistry) List(cursor string) (resources []mcp.Resource, nextCursor string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]mcp.Resource, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e.def)
	}
	sort.Slice(all, func(i, j int) bool { return lessByScheme(all[i].URI, all[j].URI) })

	return paginate(all, func(res mcp.Resource) string { return res.URI }, cursor, DefaultPageSize)
}

// lessByScheme orders a < b by scheme first, then lexicographically
// within the scheme.
func lessByScheme(a, b string) bool {
	schemeA, restA := splitScheme(a)
	schemeB, restB := splitScheme(b)
	if schemeA != schemeB {
		return schemeA < schemeB
	}
	return restA < restB
}

func splitScheme(uri string) (scheme, rest string) {
	i := strings.Index(uri, "://")
	if i < 0 {
		return "", uri
	}
	return uri[:i], uri[i+3:]
}

// Subscribe registers subscriberID under uri. Returns ErrResourceNotFound
// if uri was never registered (spec.md §4.5).
func (r *ResourceRegistry) Subscribe(uri, subscriberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[uri]; !ok {
		return domainerr.New("registry", "Subscribe", domainerr.ErrNotFound, mcp.ErrResourceNotFound).
			WithContext("resource_uri", uri)
	}

	subs, ok := r.subscriptions[uri]
	if !ok {
		subs = make(map[string]struct{})
		r.subscriptions[uri] = subs
	}
	subs[subscriberID] = struct{}{}
	return nil
}

// Unsubscribe removes subscriberID from uri. Unsubscribing from a URI the
// subscriber was never subscribed to succeeds silently (spec.md §8
// boundary behavior). Removing the last subscriber for a URI removes the
// key entirely (spec.md §3 invariant).
func (r *ResourceRegistry) Unsubscribe(uri, subscriberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.subscriptions[uri]
	if !ok {
		return nil
	}
	delete(subs, subscriberID)
	if len(subs) == 0 {
		delete(r.subscriptions, uri)
	}
	return nil
}

// Subscribers returns a snapshot of the subscriber set for uri, for
// tests and diagnostics.
func (r *ResourceRegistry) Subscribers(uri string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.subscriptions[uri]
	out := make([]string, 0, len(subs))
	for id := range subs {
		out = append(out, id)
	}
	return out
}
