package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aigentic/fleetassist/llm"
	"github.com/aigentic/fleetassist/types"
)

// ToolRunner dispatches tool calls issued by the model. The registry in the
// tools package implements it.
type ToolRunner interface {
	// Schemas returns the schemas for the named tools, preserving order.
	Schemas(names []string) []types.ToolSchema
	// Run executes one tool call and shapes the result for the model.
	Run(ctx context.Context, call types.ToolCall) types.ToolResult
}

// Config describes an agent declaratively. Behavior lives in the instruction
// and the tool whitelist; the Go code around it is generic.
type Config struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Model       string  `yaml:"model" json:"model,omitempty"`
	Instruction string  `yaml:"instruction" json:"instruction"`
	// OutputKey, when set, stores the agent's final text in the shared
	// state under this key.
	OutputKey string `yaml:"output_key" json:"output_key,omitempty"`
	// Tools whitelists the tools this agent may call, by name.
	Tools []string `yaml:"tools" json:"tools,omitempty"`
	// MaxToolRounds bounds the model/tool round trips per execution.
	MaxToolRounds int     `yaml:"max_tool_rounds" json:"max_tool_rounds,omitempty"`
	Temperature   float32 `yaml:"temperature" json:"temperature,omitempty"`
	MaxTokens     int     `yaml:"max_tokens" json:"max_tokens,omitempty"`
}

const defaultMaxToolRounds = 8

// Agent executes one conversational turn: instruction plus input go to the
// model, tool calls are dispatched until the model produces plain text, and
// the text is returned (and stored under the output key, if configured).
// Agent implements the workflow Step and Task contracts.
type Agent struct {
	config   Config
	provider llm.Provider
	runner   ToolRunner
	state    *State
	logger   *zap.Logger
}

// New creates an agent. The runner may be nil for agents without tools.
func New(config Config, provider llm.Provider, runner ToolRunner, logger *zap.Logger) (*Agent, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("agent %q: provider is required", config.Name)
	}
	if len(config.Tools) > 0 && runner == nil {
		return nil, fmt.Errorf("agent %q: tools configured but no runner", config.Name)
	}
	if config.MaxToolRounds <= 0 {
		config.MaxToolRounds = defaultMaxToolRounds
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Agent{
		config:   config,
		provider: provider,
		runner:   runner,
		logger:   logger.With(zap.String("component", "agent"), zap.String("agent", config.Name)),
	}, nil
}

// WithState binds the agent to a shared pipeline state. Returns the agent
// for chaining.
func (a *Agent) WithState(state *State) *Agent {
	a.state = state
	return a
}

// Run executes one turn over a text input.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	start := time.Now()

	instruction := a.config.Instruction
	if a.state != nil {
		instruction = a.state.Render(instruction)
	}

	messages := []types.Message{
		types.NewSystemMessage(instruction),
	}
	if input != "" {
		messages = append(messages, types.NewUserMessage(input))
	}

	var schemas []types.ToolSchema
	if a.runner != nil && len(a.config.Tools) > 0 {
		schemas = a.runner.Schemas(a.config.Tools)
	}

	for round := 0; round < a.config.MaxToolRounds; round++ {
		resp, err := a.provider.Completion(ctx, &llm.ChatRequest{
			Model:       a.config.Model,
			Messages:    messages,
			Tools:       schemas,
			Temperature: a.config.Temperature,
			MaxTokens:   a.config.MaxTokens,
		})
		if err != nil {
			return "", fmt.Errorf("agent %s: completion failed: %w", a.config.Name, err)
		}
		// Safety-blocked requests come back with no candidates at all.
		if len(resp.Choices) == 0 {
			return "", types.NewError(types.ErrUpstreamError,
				fmt.Sprintf("agent %s: model returned no candidates", a.config.Name))
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			text := msg.Content
			if a.state != nil && a.config.OutputKey != "" {
				a.state.Set(a.config.OutputKey, text)
			}
			a.logger.Debug("agent turn completed",
				zap.Int("tool_rounds", round),
				zap.Duration("duration", time.Since(start)))
			return text, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			result := a.runner.Run(ctx, call)
			if result.IsError() {
				a.logger.Warn("tool call failed",
					zap.String("tool", call.Name),
					zap.String("error", result.Error))
			}
			messages = append(messages, result.ToMessage())
		}
	}

	return "", types.NewError(types.ErrToolBudgetExceeded,
		fmt.Sprintf("agent %s exceeded %d tool rounds", a.config.Name, a.config.MaxToolRounds))
}

// Execute implements the workflow Step/Task contract.
func (a *Agent) Execute(ctx context.Context, input any) (any, error) {
	text := ""
	switch v := input.(type) {
	case string:
		text = v
	case nil:
	case json.RawMessage:
		text = string(v)
	default:
		text = fmt.Sprint(v)
	}
	return a.Run(ctx, text)
}

func (a *Agent) Name() string {
	return a.config.Name
}

func (a *Agent) Description() string {
	return a.config.Description
}

// Config returns the agent configuration.
func (a *Agent) Config() Config {
	return a.config
}
