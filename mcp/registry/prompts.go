package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/modelcontext/mcp-go/mcp"
	"github.com/modelcontext/mcp-go/mcp/internal/domainerr"
)

// PromptRegistry stores prompt declarations, handlers, and per-argument
// completion providers (spec.md §3, §4.6).
type PromptRegistry struct {
	mu          sync.RWMutex
	entries     map[string]promptEntry
	completions map[promptArgKey]mcp.PromptArgumentCompletionProvider
	changed     *changedSignal
}

type promptArgKey struct {
	prompt string
	arg    string
}

type promptEntry struct {
	def      mcp.Prompt
	handler  mcp.PromptHandler
	required map[string]struct{} // computed once at registration
	declared map[string]struct{} // every argument name the prompt declares
}

// NewPromptRegistry creates an empty prompt registry.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{
		entries:     make(map[string]promptEntry),
		completions: make(map[promptArgKey]mcp.PromptArgumentCompletionProvider),
		changed:     newChangedSignal(),
	}
}

// Changed exposes the list-changed signal.
func (r *PromptRegistry) Changed() <-chan struct{} { return r.changed.C() }

// Register adds or replaces the prompt named def.Name. Required argument
// names are computed once here rather than on every prompts/get call
// (original_source's prompts.rs / server_prompts.rs).
func (r *PromptRegistry) Register(def mcp.Prompt, handler mcp.PromptHandler) error {
	if def.Name == "" {
		return domainerr.New("registry", "Register", domainerr.ErrBadRequest, nil).WithContext("field", "name")
	}
	if handler == nil {
		return domainerr.New("registry", "Register", domainerr.ErrBadRequest, nil).WithContext("field", "handler")
	}

	required := make(map[string]struct{})
	declared := make(map[string]struct{}, len(def.Arguments))
	for _, arg := range def.Arguments {
		declared[arg.Name] = struct{}{}
		if arg.Required {
			required[arg.Name] = struct{}{}
		}
	}

	r.mu.Lock()
	r.entries[def.Name] = promptEntry{def: def, handler: handler, required: required, declared: declared}
	r.mu.Unlock()

	r.changed.fire()
	return nil
}

// RegisterCompletionProvider attaches a completion provider for one
// (promptName, argName) pair.
func (r *PromptRegistry) RegisterCompletionProvider(promptName, argName string, provider mcp.PromptArgumentCompletionProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions[promptArgKey{prompt: promptName, arg: argName}] = provider
}

// Get renders name's messages with arguments, validating that every
// required argument is present and non-empty (spec.md §8: "empty-string
// values for required arguments are also rejected") and that every
// supplied argument was declared by the prompt (spec.md §7 Validation;
// original_source's prompts.rs validate_arguments rejects these the same
// way, as "Unexpected argument: {name}").
func (r *PromptRegistry) Get(ctx context.Context, name string, arguments map[string]string) (mcp.Prompt, []mcp.PromptMessage, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return mcp.Prompt{}, nil, domainerr.New("registry", "Get", domainerr.ErrNotFound, mcp.ErrPromptNotFound).
			WithContext("prompt_name", name)
	}

	for argName := range entry.required {
		value, present := arguments[argName]
		if !present || value == "" {
			return mcp.Prompt{}, nil, domainerr.New("registry", "Get", domainerr.ErrBadRequest, mcp.ErrPromptArgumentMissing).
				WithContext("prompt_name", name).WithContext("argument_name", argName)
		}
	}

	for argName := range arguments {
		if _, declared := entry.declared[argName]; !declared {
			return mcp.Prompt{}, nil, domainerr.New("registry", "Get", domainerr.ErrBadRequest, mcp.ErrPromptArgumentUnknown).
				WithContext("prompt_name", name).WithContext("argument_name", argName)
		}
	}

	messages, err := entry.handler(ctx, arguments)
	if err != nil {
		return mcp.Prompt{}, nil, domainerr.New("registry", "Get", domainerr.ErrInternal, err).
			WithContext("prompt_name", name)
	}
	return entry.def, messages, nil
}

// List returns a lexicographically-ordered (by name) page.
func (r *PromptRegistry) List(cursor string) (prompts []mcp.Prompt, nextCursor string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]mcp.Prompt, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e.def)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	return paginate(all, func(p mcp.Prompt) string { return p.Name }, cursor, DefaultPageSize)
}

// Complete invokes the completion provider registered for
// (promptName, argName). If none is registered, it returns an empty,
// non-error completion per spec.md §8.
func (r *PromptRegistry) Complete(promptName, argName, partialValue string) (mcp.Completion, error) {
	r.mu.RLock()
	provider, ok := r.completions[promptArgKey{prompt: promptName, arg: argName}]
	r.mu.RUnlock()

	if !ok {
		return mcp.Completion{Values: []string{}, HasMore: false}, nil
	}

	values, err := provider(partialValue)
	if err != nil {
		return mcp.Completion{}, domainerr.New("registry", "Complete", domainerr.ErrInternal, err).
			WithContext("prompt_name", promptName).WithContext("argument_name", argName)
	}
	total := len(values)
	return mcp.Completion{Values: values, Total: &total, HasMore: false}, nil
}
