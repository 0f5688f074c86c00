package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/omriShneor/calbot/internal/agent"
	"github.com/omriShneor/calbot/internal/notify"
)

// MockBackend simulates a tool-calling language model. Replies are matched
// by substring of the latest user message; unmatched messages get a plain
// text reply.
type MockBackend struct {
	mu         sync.Mutex
	configured bool
	replies    []scriptedReply
	calls      []string
	err        error
}

type scriptedReply struct {
	contains string
	response *agent.APIResponse
}

// NewMockBackend creates a configured mock backend
func NewMockBackend() *MockBackend {
	return &MockBackend{configured: true}
}

// SetConfigured toggles IsConfigured, e.g. to exercise keyword routing
func (m *MockBackend) SetConfigured(configured bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configured = configured
}

// SetError makes every call fail with err
func (m *MockBackend) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// OnToolCall answers messages containing text with a tool call
func (m *MockBackend) OnToolCall(text, tool string, input map[string]any) *MockBackend {
	return m.on(text, &agent.APIResponse{
		Content: []agent.ContentBlock{agent.ToolUseBlock{
			Type:  "tool_use",
			ID:    "call_mock",
			Name:  tool,
			Input: input,
		}},
		StopReason: agent.StopToolUse,
	})
}

// OnMalformedToolCall answers messages containing text with a tool call
// whose arguments are not valid JSON
func (m *MockBackend) OnMalformedToolCall(text, tool, rawArguments string) *MockBackend {
	return m.on(text, &agent.APIResponse{
		Content: []agent.ContentBlock{agent.ToolUseBlock{
			Type:       "tool_use",
			ID:         "call_mock",
			Name:       tool,
			RawInput:   rawArguments,
			InputError: errors.New("unexpected end of JSON input"),
		}},
		StopReason: agent.StopToolUse,
	})
}

// OnText answers messages containing text with a plain reply
func (m *MockBackend) OnText(text, reply string) *MockBackend {
	return m.on(text, &agent.APIResponse{
		Content:    []agent.ContentBlock{agent.TextBlock{Type: "text", Text: reply}},
		StopReason: agent.StopEndTurn,
	})
}

func (m *MockBackend) on(text string, response *agent.APIResponse) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, scriptedReply{contains: strings.ToLower(text), response: response})
	return m
}

// Call implements agent.Backend
func (m *MockBackend) Call(ctx context.Context, messages []agent.Message, opts agent.CallOptions) (*agent.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	text := lastUserText(messages)
	m.calls = append(m.calls, text)
	if m.err != nil {
		return nil, m.err
	}

	lower := strings.ToLower(text)
	for _, reply := range m.replies {
		if strings.Contains(lower, reply.contains) {
			return reply.response, nil
		}
	}
	return &agent.APIResponse{
		Content:    []agent.ContentBlock{agent.TextBlock{Type: "text", Text: ""}},
		StopReason: agent.StopEndTurn,
	}, nil
}

// IsConfigured implements agent.Backend
func (m *MockBackend) IsConfigured() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configured
}

// Name implements agent.Backend
func (m *MockBackend) Name() string {
	return "mock"
}

// Calls returns the user messages the backend was asked about
func (m *MockBackend) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func lastUserText(messages []agent.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		for _, block := range messages[i].Content {
			if text, ok := block.(agent.TextBlock); ok {
				return text.Text
			}
		}
	}
	return ""
}

// SentConfirmation is one confirmation recorded by MockNotifier
type SentConfirmation struct {
	Confirmation notify.Confirmation
	Recipient    string
}

// MockNotifier records confirmations instead of sending email
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentConfirmation
	err  error
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// SetError makes Send fail with err after recording
func (m *MockNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Send implements notify.Notifier
func (m *MockNotifier) Send(ctx context.Context, confirmation *notify.Confirmation, recipient string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentConfirmation{Confirmation: *confirmation, Recipient: recipient})
	return m.err
}

// Name implements notify.Notifier
func (m *MockNotifier) Name() string {
	return "mock"
}

// IsConfigured implements notify.Notifier
func (m *MockNotifier) IsConfigured() bool {
	return true
}

// Sent returns the recorded confirmations
func (m *MockNotifier) Sent() []SentConfirmation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentConfirmation(nil), m.sent...)
}
