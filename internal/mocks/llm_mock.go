package mocks

import (
	"context"

	"github.com/omriShneor/calbot/internal/agent"
	"github.com/stretchr/testify/mock"
)

// MockLLMBackend is a mock implementation of agent.Backend
type MockLLMBackend struct {
	mock.Mock
	// Unconfigured makes IsConfigured report false
	Unconfigured bool
}

func (m *MockLLMBackend) Call(ctx context.Context, messages []agent.Message, opts agent.CallOptions) (*agent.APIResponse, error) {
	args := m.Called(ctx, messages, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.APIResponse), args.Error(1)
}

func (m *MockLLMBackend) IsConfigured() bool {
	return !m.Unconfigured
}

func (m *MockLLMBackend) Name() string {
	return "mock"
}
