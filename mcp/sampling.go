package mcp

// SamplingMessage is one turn offered to the client's sampling callback.
type SamplingMessage struct {
	Role    string        `json:"role"`
	Content PromptContent `json:"content"`
}

// ModelPreferences hints at which model the client should pick when
// servicing a sampling/createMessage request. Every field is optional and
// advisory; a client is free to ignore all of them.
type ModelPreferences struct {
	Hints                []ModelHint `json:"hints,omitempty"`
	CostPriority         *float64    `json:"costPriority,omitempty"`
	SpeedPriority        *float64    `json:"speedPriority,omitempty"`
	IntelligencePriority *float64    `json:"intelligencePriority,omitempty"`
}

// ModelHint is a suggested (possibly partial) model name.
type ModelHint struct {
	Name string `json:"name,omitempty"`
}

// CreateMessageParams is the body of a `sampling/createMessage` request,
// sent server-to-client.
type CreateMessageParams struct {
	Messages         []SamplingMessage `json:"messages"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	MaxTokens        int               `json:"maxTokens,omitempty"`
	Temperature      *float64          `json:"temperature,omitempty"`
	TopP             *float64          `json:"topP,omitempty"`
	Context          map[string]any    `json:"context,omitempty"`
}

// CreateMessageResult is the body of a `sampling/createMessage` response,
// produced by the client's registered SamplingCallback.
type CreateMessageResult struct {
	Role       string         `json:"role"`
	Content    PromptContent  `json:"content"`
	Model      string         `json:"model,omitempty"`
	StopReason string         `json:"stopReason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
