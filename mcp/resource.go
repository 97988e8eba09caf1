package mcp

import "context"

// Resource describes a read-only data source a server exposes by URI.
type Resource struct {
	URI         string         `json:"uri"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	MimeType    string         `json:"mimeType,omitempty"`
	Size        int64          `json:"size,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// ResourceContentProvider produces the current content of a registered
// resource. Providers are pure functions of no arguments (the URI is
// implied by registration) so they never need a reference back to the
// engine.
type ResourceContentProvider func(ctx context.Context) ([]ResourceContent, error)

// ResourceContent is one chunk of resource content: exactly one of Text
// or Blob is set.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ResourceTemplate describes a parameterized family of resource URIs.
// Parameters are enclosed in braces, e.g. "db:///{database}/{table}/{id}".
type ResourceTemplate struct {
	URITemplate string         `json:"uriTemplate"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	MimeType    string         `json:"mimeType,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// ResourceTemplateExpander expands a URI template with concrete parameter
// values into the fully-qualified resource URI it denotes.
type ResourceTemplateExpander func(template string, params map[string]string) (string, error)

// ResourcesListParams is the body of a `resources/list` request.
type ResourcesListParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ResourcesListResult is the body of a `resources/list` response.
type ResourcesListResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor"`
}

// ResourcesReadParams is the body of a `resources/read` request.
type ResourcesReadParams struct {
	URI string `json:"uri"`
}

// ResourcesReadResult is the body of a `resources/read` response.
type ResourcesReadResult struct {
	Contents []ResourceContent `json:"contents"`
}

// ResourcesTemplatesListParams is the body of a `resources/templates/list`
// request.
type ResourcesTemplatesListParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ResourcesTemplatesListResult is the body of a
// `resources/templates/list` response.
type ResourcesTemplatesListResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        string             `json:"nextCursor"`
}

// ResourcesSubscribeParams is the body of a `resources/subscribe` or
// `resources/unsubscribe` request.
type ResourcesSubscribeParams struct {
	URI string `json:"uri"`
}

// SubscribeResult is the body of a successful subscribe/unsubscribe
// response.
type SubscribeResult struct {
	Success bool `json:"success"`
}

// ResourcesUpdatedParams is the body of a
// `notifications/resources/updated` notification.
type ResourcesUpdatedParams struct {
	URI string `json:"uri"`
}
