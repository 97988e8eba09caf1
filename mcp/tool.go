package mcp

import "context"

// Tool describes a callable capability a server exposes to a client.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// ToolHandler executes a tool call. Handlers must be pure functions of
// their arguments: they receive no reference to the engine, so they
// cannot create dispatch cycles (spec.md §9 "Callback shape").
type ToolHandler func(ctx context.Context, arguments map[string]any) (*ToolCallResult, error)

// ToolCallResult is the result of a `tools/call` request. A tool that
// fails in a way meaningful to the model (not a protocol failure) sets
// IsError rather than returning a Go error, so the failure is still a
// successful JSON-RPC response (spec.md §7).
type ToolCallResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ToolContent is one piece of a tool result: text, image, audio, or an
// embedded resource reference. Exactly one payload field is populated per
// Type.
type ToolContent struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	Data     string           `json:"data,omitempty"`
	MimeType string           `json:"mimeType,omitempty"`
	Resource *EmbeddedResource `json:"resource,omitempty"`
}

// EmbeddedResource is a resource reference carried inside a ToolContent
// or PromptMessage of type "resource".
type EmbeddedResource struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// TextContent is a convenience constructor for the common plain-text
// tool/prompt content case.
func TextContent(text string) ToolContent {
	return ToolContent{Type: "text", Text: text}
}

// ToolsListParams is the body of a `tools/list` request.
type ToolsListParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ToolsListResult is the body of a `tools/list` response.
type ToolsListResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor"`
}

// ToolsCallParams is the body of a `tools/call` request.
type ToolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}
