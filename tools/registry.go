// Package tools exposes the assistant's callable tools: warehouse queries,
// recall lookups, part ordering, appointment booking, and notifications.
// Tools are registered by name; agents whitelist the names they may call.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aigentic/fleetassist/types"
)

// Handler executes one tool call. args is the raw JSON argument object from
// the model.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool pairs a schema with its handler.
type Tool struct {
	Schema  types.ToolSchema
	Handler Handler
}

// MetricsRecorder receives tool invocation timings. The metrics collector
// implements it.
type MetricsRecorder interface {
	RecordToolInvocation(tool, status string, duration time.Duration)
}

// Registry holds the registered tools.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	metrics MetricsRecorder
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger.With(zap.String("component", "tool_registry")),
	}
}

// WithMetrics attaches an invocation-timing recorder. Returns the registry
// for chaining.
func (r *Registry) WithMetrics(m MetricsRecorder) *Registry {
	r.metrics = m
	return r
}

// Register adds a tool. Registering a duplicate name fails.
func (r *Registry) Register(tool Tool) error {
	if tool.Schema.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", tool.Schema.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Schema.Name]; exists {
		return fmt.Errorf("tool %s already registered", tool.Schema.Name)
	}
	r.tools[tool.Schema.Name] = tool
	r.order = append(r.order, tool.Schema.Name)
	return nil
}

// MustRegister registers a set of tools and panics on conflict. Used at
// wiring time, where a duplicate name is a programming error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			panic(err)
		}
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Schemas returns the schemas for the named tools, skipping unknown names.
func (r *Registry) Schemas(names []string) []types.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]types.ToolSchema, 0, len(names))
	for _, name := range names {
		if tool, ok := r.tools[name]; ok {
			schemas = append(schemas, tool.Schema)
		}
	}
	return schemas
}

// Run executes one tool call and shapes the outcome for the model. Failures
// are not raised: the model receives an error payload it can reason about,
// mirroring how query errors surface from the warehouse tools.
func (r *Registry) Run(ctx context.Context, call types.ToolCall) types.ToolResult {
	start := time.Now()

	tool, ok := r.Get(call.Name)
	if !ok {
		return r.record(errorResult(call, start, fmt.Sprintf("unknown tool: %s", call.Name)))
	}

	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	result, err := tool.Handler(ctx, args)
	if err != nil {
		r.logger.Warn("tool execution failed",
			zap.String("tool", call.Name),
			zap.Error(err))
		return r.record(errorResult(call, start, err.Error()))
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return r.record(errorResult(call, start, fmt.Sprintf("unencodable tool result: %v", err)))
	}

	r.logger.Debug("tool executed",
		zap.String("tool", call.Name),
		zap.Duration("duration", time.Since(start)))
	return r.record(types.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Result:     payload,
		Duration:   time.Since(start),
	})
}

// record reports the invocation outcome to the metrics recorder.
func (r *Registry) record(result types.ToolResult) types.ToolResult {
	if r.metrics != nil {
		status := "success"
		if result.IsError() {
			status = "error"
		}
		r.metrics.RecordToolInvocation(result.Name, status, result.Duration)
	}
	return result
}

func errorResult(call types.ToolCall, start time.Time, message string) types.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return types.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Result:     payload,
		Error:      message,
		Duration:   time.Since(start),
	}
}
