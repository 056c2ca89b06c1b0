package assistant

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aigentic/fleetassist/agent"
	"github.com/aigentic/fleetassist/llm"
	"github.com/aigentic/fleetassist/store"
	"github.com/aigentic/fleetassist/tools"
)

// Config holds assistant-level settings.
type Config struct {
	// Model is the model identifier used by every agent.
	Model string
	// MaxRounds bounds the scheduling critique/refine loop.
	MaxRounds int
	// ApprovalSentinel is the exact string the schedule critic emits when a
	// draft has no remaining issues. It is configured once, here, and never
	// duplicated.
	ApprovalSentinel string
	// MaxToolRounds bounds each agent's tool dispatch loop.
	MaxToolRounds int
}

// Assistant builds and runs the fleet assistant's pipelines.
type Assistant struct {
	config    Config
	provider  llm.Provider
	registry  *tools.Registry
	warehouse *store.Warehouse
	logger    *zap.Logger
}

// New creates an assistant over a model provider, a tool registry, and the
// fleet warehouse.
func New(config Config, provider llm.Provider, registry *tools.Registry, warehouse *store.Warehouse, logger *zap.Logger) (*Assistant, error) {
	if provider == nil {
		return nil, fmt.Errorf("assistant: provider is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("assistant: tool registry is required")
	}
	if warehouse == nil {
		return nil, fmt.Errorf("assistant: warehouse is required")
	}
	if config.MaxRounds < 1 {
		return nil, fmt.Errorf("assistant: max rounds must be >= 1, got %d", config.MaxRounds)
	}
	if config.ApprovalSentinel == "" {
		return nil, fmt.Errorf("assistant: approval sentinel is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assistant{
		config:    config,
		provider:  provider,
		registry:  registry,
		warehouse: warehouse,
		logger:    logger.With(zap.String("component", "assistant")),
	}, nil
}

// newAgent builds one sub-agent bound to the shared provider and registry.
func (a *Assistant) newAgent(name, description, instruction, outputKey string, toolNames ...string) (*agent.Agent, error) {
	var runner agent.ToolRunner
	if len(toolNames) > 0 {
		runner = a.registry
	}
	return agent.New(agent.Config{
		Name:          name,
		Description:   description,
		Model:         a.config.Model,
		Instruction:   instruction,
		OutputKey:     outputKey,
		Tools:         toolNames,
		MaxToolRounds: a.config.MaxToolRounds,
	}, a.provider, runner, a.logger)
}
