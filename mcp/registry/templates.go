package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/modelcontext/mcp-go/mcp"
	"github.com/modelcontext/mcp-go/mcp/internal/domainerr"
)

// TemplateRegistry stores resource-template declarations, expanders, and
// per-template completion providers (spec.md §3, §4.6, §9).
type TemplateRegistry struct {
	mu          sync.RWMutex
	entries     map[string]templateEntry
	completions map[string]mcp.ResourceTemplateCompletionProvider
	changed     *changedSignal
}

type templateEntry struct {
	def      mcp.ResourceTemplate
	expander mcp.ResourceTemplateExpander
}

// NewTemplateRegistry creates an empty resource-template registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		entries:     make(map[string]templateEntry),
		completions: make(map[string]mcp.ResourceTemplateCompletionProvider),
		changed:     newChangedSignal(),
	}
}

// Changed exposes the list-changed signal. Resource templates share
// `notifications/resources/list_changed` with plain resources per
// spec.md §4.5.
func (r *TemplateRegistry) Changed() <-chan struct{} { return r.changed.C() }

// Register adds or replaces the template at def.URITemplate.
func (r *TemplateRegistry) Register(def mcp.ResourceTemplate, expander mcp.ResourceTemplateExpander) error {
	if def.URITemplate == "" {
		return domainerr.New("registry", "Register", domainerr.ErrBadRequest, nil).WithContext("field", "uriTemplate")
	}
	if expander == nil {
		return domainerr.New("registry", "Register", domainerr.ErrBadRequest, nil).WithContext("field", "expander")
	}

	r.mu.Lock()
	r.entries[def.URITemplate] = templateEntry{def: def, expander: expander}
	r.mu.Unlock()

	r.changed.fire()
	return nil
}

// RegisterCompletionProvider attaches a completion provider to an
// already- or not-yet-registered template URI.
func (r *TemplateRegistry) RegisterCompletionProvider(templateURI string, provider mcp.ResourceTemplateCompletionProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions[templateURI] = provider
}

// Expand resolves template params against the registered expander for
// templateURI.
func (r *TemplateRegistry) Expand(templateURI string, params map[string]string) (string, error) {
	r.mu.RLock()
	entry, ok := r.entries[templateURI]
	r.mu.RUnlock()

	if !ok {
		return "", domainerr.New("registry", "Expand", domainerr.ErrNotFound, mcp.ErrTemplateNotFound).
			WithContext("template_uri", templateURI)
	}
	return entry.expander(entry.def.URITemplate, params)
}

// List returns a lexicographically-ordered (by URI template) page.
func (r *TemplateRegistry) List(cursor string) (templates []mcp.ResourceTemplate, nextCursor string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]mcp.ResourceTemplate, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e.def)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].URITemplate < all[j].URITemplate })

	return paginate(all, func(t mcp.ResourceTemplate) string { return t.URITemplate }, cursor, DefaultPageSize)
}

// Complete invokes the completion provider registered for templateURI. If
// none is registered, it returns an empty, non-error completion per
// spec.md §8 ("Completion for a template with no registered provider
// returns values: [], hasMore: false").
func (r *TemplateRegistry) Complete(templateURI, paramName, partialValue string) (mcp.Completion, error) {
	r.mu.RLock()
	provider, ok := r.completions[templateURI]
	r.mu.RUnlock()

	if !ok {
		return mcp.Completion{Values: []string{}, HasMore: false}, nil
	}

	items, err := provider(templateURI, paramName, partialValue)
	if err != nil {
		return mcp.Completion{}, domainerr.New("registry", "Complete", domainerr.ErrInternal, err).
			WithContext("template_uri", templateURI).WithContext("param_name", paramName)
	}

	values := make([]string, len(items))
	for i, item := range items {
		if item.Label != "" {
			values[i] = item.Label
		} else {
			values[i] = item.Value
		}
	}
	total := len(values)
	return mcp.Completion{Values: values, Total: &total, HasMore: false}, nil
}

// MatchURI reports whether uri could have been produced by templateURI,
// using the intentionally simple prefix-check from original_source's
// completion_handler.rs (spec.md §9 Open Question: "a resource URI
// matches a template only if the static prefix matches"). This is not
// RFC 6570 matching; parameters are interpolated verbatim, no
// percent-decoding.
func MatchURI(templateURI, uri string) bool {
	prefix, _, ok := splitAtFirstBrace(templateURI)
	if !ok {
		return templateURI == uri
	}
	return strings.HasPrefix(uri, prefix)
}

// splitAtFirstBrace splits s at its first '{', returning the static
// prefix and the remainder (still containing the brace). ok is false if
// s has no '{' at all.
func splitAtFirstBrace(s string) (prefix, rest string, ok bool) {
	i := strings.IndexByte(s, '{')
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i:], true
}
