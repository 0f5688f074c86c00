package agent

import (
	"context"
	"errors"
)

// ErrInvalidArguments is recorded on a ToolCall whose arguments could not be
// decoded or failed validation.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// Backend is a chat model that supports tool calling.
type Backend interface {
	Call(ctx context.Context, messages []Message, opts CallOptions) (*APIResponse, error)
	IsConfigured() bool
	Name() string
}

// APIResponse wraps the parsed response from a backend
type APIResponse struct {
	Content    []ContentBlock
	StopReason string
	Usage      UsageStats
}

// CallOptions configures an API call
type CallOptions struct {
	System     string
	Tools      []Tool
	ToolChoice string // "auto", "any", or specific tool name
	MaxTokens  int
}
