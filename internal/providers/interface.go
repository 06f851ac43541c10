package providers

import (
	"context"
)

// ChatProvider defines the interface for tool-calling chat model providers
type ChatProvider interface {
	// Name returns the provider name
	Name() string

	// Complete performs a non-streaming completion
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// StreamComplete performs a streaming completion
	StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// GetModels returns available models
	GetModels(ctx context.Context) ([]Model, error)

	// ValidateConfig validates the provider configuration
	ValidateConfig() error
}

// ImageProvider defines the interface for image generation endpoints.
// Generate returns an opaque Handle that must be passed back to Modify to
// request a follow-up change to the same image.
type ImageProvider interface {
	// Name returns the provider name
	Name() string

	// Generate renders a new image from a prompt
	Generate(ctx context.Context, req ImageRequest) (*ImageResult, error)

	// Modify applies an instruction to a previously generated image,
	// identified by the handle returned from Generate or a prior Modify
	Modify(ctx context.Context, handle string, instruction string) (*ImageResult, error)
}

// CompletionRequest represents a chat completion request
type CompletionRequest struct {
	Messages       []Message       `json:"messages"`
	Model          string          `json:"model"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream"`
	Tools          []Tool          `json:"tools,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Message represents a chat message
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Function represents a callable function exposed to the model
type Function struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Tool represents a tool the model may invoke
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// FunctionCall represents a function call in a message
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall represents a tool call in a message
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// CompletionResponse represents a non-streaming response
type CompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk represents a chunk in a streaming response
type StreamChunk struct {
	ID           string     `json:"id,omitempty"`
	Model        string     `json:"model,omitempty"`
	Delta        string     `json:"delta,omitempty"`
	Role         string     `json:"role,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// ResponseFormat represents the desired response format
type ResponseFormat struct {
	Type string `json:"type"` // "text", "json_object"
}

// Model represents an available model
type Model struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
}

// ImageRequest represents an image generation request
type ImageRequest struct {
	Prompt string `json:"prompt"`
}

// ImageResult represents a rendered image plus the provider handle needed
// for follow-up modifications
type ImageResult struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
	Handle   string `json:"handle"`
}
