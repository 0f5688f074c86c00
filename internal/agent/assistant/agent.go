// Package assistant turns a chat message into a booking intent using a
// tool-calling language model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/omriShneor/calbot/internal/agent"
	"github.com/omriShneor/calbot/internal/agent/intents"
	"github.com/omriShneor/calbot/internal/agent/tools"
	"github.com/omriShneor/calbot/internal/timeutil"
)

// IntentKind is what the user asked for.
type IntentKind string

const (
	IntentCreateBooking IntentKind = "create_booking"
	IntentFindBookings  IntentKind = "find_bookings"
	IntentNone          IntentKind = "none"
)

// ErrInvalidArguments is returned when the model called a tool with
// arguments that could not be decoded or were incomplete.
var ErrInvalidArguments = agent.ErrInvalidArguments

// Intent is the interpretation of one chat message.
type Intent struct {
	Kind    IntentKind
	Booking *tools.BookingArgs // set for IntentCreateBooking
	Reply   string             // model text, if any
	Source  string             // backend name, or "keyword"
}

// Config configures the assistant
type Config struct {
	Backend agent.Backend
	Logger  *zap.Logger
	Now     func() time.Time
}

// Agent interprets chat messages into booking intents
type Agent struct {
	*agent.Agent
	loc    *time.Location
	router *intents.KeywordRouter
	logger *zap.Logger
	now    func() time.Time
}

// NewAgent creates a booking assistant with the create_booking and
// find_bookings tools registered.
func NewAgent(cfg Config) (*Agent, error) {
	if cfg.Backend == nil {
		return nil, errors.New("assistant backend is required")
	}
	loc, err := time.LoadLocation(timeutil.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", timeutil.DefaultTimezone, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	baseAgent := agent.NewAgent(agent.AgentConfig{
		Name:         "booking-assistant",
		Backend:      cfg.Backend,
		SystemPrompt: SystemPrompt,
		ToolChoice:   "auto",
	})
	baseAgent.MustRegisterTool(tools.CreateBookingTool, tools.HandleCreateBooking)
	baseAgent.MustRegisterTool(tools.FindBookingsTool, tools.HandleFindBookings)

	return &Agent{
		Agent:  baseAgent,
		loc:    loc,
		router: intents.NewKeywordRouter(),
		logger: logger.Named("assistant"),
		now:    now,
	}, nil
}

// Interpret asks the model what the message wants. When the backend is not
// configured only lookups can be recognized, by keyword.
func (a *Agent) Interpret(ctx context.Context, message string) (*Intent, error) {
	if !a.IsConfigured() {
		return a.interpretByKeyword(message), nil
	}

	output, err := a.ExecuteWithPrompt(ctx, agent.AgentInput{
		Messages: []agent.Message{agent.UserText(message)},
		MaxTurns: 1,
	}, buildSystemPrompt(a.now(), a.loc))
	if err != nil {
		return nil, fmt.Errorf("assistant execution failed: %w", err)
	}

	source := a.Backend().Name()
	a.logger.Debug("assistant responded",
		zap.String("backend", source),
		zap.Int("tool_calls", len(output.ToolCalls)),
		zap.Int("input_tokens", output.Usage.InputTokens),
		zap.Int("output_tokens", output.Usage.OutputTokens),
	)

	if len(output.ToolCalls) == 0 {
		return &Intent{Kind: IntentNone, Reply: output.FinalText, Source: source}, nil
	}

	call := output.ToolCalls[0]
	if call.Error != nil {
		if errors.Is(call.Error, agent.ErrInvalidArguments) {
			return nil, fmt.Errorf("%s: %w", call.Name, call.Error)
		}
		return nil, fmt.Errorf("tool %s failed: %w", call.Name, call.Error)
	}

	switch call.Name {
	case tools.CreateBookingToolName:
		args, err := tools.ParseBookingArgs(call.Input)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", call.Name, err)
		}
		return &Intent{Kind: IntentCreateBooking, Booking: args, Reply: output.FinalText, Source: source}, nil
	case tools.FindBookingsToolName:
		return &Intent{Kind: IntentFindBookings, Reply: output.FinalText, Source: source}, nil
	default:
		return nil, fmt.Errorf("unexpected tool call: %s", call.Name)
	}
}

func (a *Agent) interpretByKeyword(message string) *Intent {
	routed := a.router.Route(message)
	a.logger.Debug("keyword routing",
		zap.String("intent", routed.Intent),
		zap.String("reasoning", routed.Reasoning),
	)

	if routed.Intent == intents.IntentFindBookings {
		return &Intent{Kind: IntentFindBookings, Source: "keyword"}
	}
	return &Intent{Kind: IntentNone, Source: "keyword"}
}
