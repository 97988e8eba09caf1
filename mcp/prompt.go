package mcp

import "context"

// Prompt describes a named, parameterized prompt template a server
// exposes.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
	Annotations map[string]any   `json:"annotations,omitempty"`
}

// PromptArgument describes one named input a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptHandler renders a prompt's messages given its arguments.
type PromptHandler func(ctx context.Context, arguments map[string]string) ([]PromptMessage, error)

// PromptMessage is one turn of a rendered prompt.
type PromptMessage struct {
	Role    string           `json:"role"`
	Content PromptContent    `json:"content"`
}

// PromptContent is the payload of a PromptMessage: text, image, or an
// embedded resource. Exactly one of Text/Data/Resource is populated,
// selected by Type.
type PromptContent struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Data     string            `json:"data,omitempty"`
	MimeType string            `json:"mimeType,omitempty"`
	Resource *EmbeddedResource `json:"resource,omitempty"`
}

// PromptsListParams is the body of a `prompts/list` request.
type PromptsListParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// PromptsListResult is the body of a `prompts/list` response.
type PromptsListResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor"`
}

// PromptsGetParams is the body of a `prompts/get` request.
type PromptsGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptsGetResult is the body of a `prompts/get` response.
type PromptsGetResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}
