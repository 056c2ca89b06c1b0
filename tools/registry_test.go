package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigentic/fleetassist/types"
)

func TestRegistry_RegisterAndRun(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Tool{
		Schema: schema("echo", "echoes input", `{"type":"object","properties":{"text":{"type":"string"}}}`),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			return map[string]string{"echo": in.Text}, nil
		},
	}))

	result := r.Run(context.Background(), types.ToolCall{
		ID:        "c1",
		Name:      "echo",
		Arguments: json.RawMessage(`{"text":"hi"}`),
	})
	assert.False(t, result.IsError())
	assert.JSONEq(t, `{"echo":"hi"}`, string(result.Result))
	assert.Equal(t, "c1", result.ToolCallID)
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry(nil)
	tool := Tool{
		Schema:  schema("dup", "", noParams),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) { return nil, nil },
	}
	require.NoError(t, r.Register(tool))
	assert.Error(t, r.Register(tool))
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	result := r.Run(context.Background(), types.ToolCall{ID: "c1", Name: "missing"})
	assert.True(t, result.IsError())
	assert.JSONEq(t, `{"error":"unknown tool: missing"}`, string(result.Result))
}

func TestRegistry_HandlerErrorShapedForModel(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Tool{
		Schema: schema("boom", "", noParams),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("warehouse unreachable")
		},
	}))

	result := r.Run(context.Background(), types.ToolCall{ID: "c1", Name: "boom"})
	assert.True(t, result.IsError())

	// The model still receives a JSON payload describing the failure.
	var payload map[string]string
	require.NoError(t, json.Unmarshal(result.Result, &payload))
	assert.Equal(t, "warehouse unreachable", payload["error"])
}

func TestRegistry_Schemas(t *testing.T) {
	r := NewRegistry(nil)
	noop := func(ctx context.Context, args json.RawMessage) (any, error) { return nil, nil }
	r.MustRegister(
		Tool{Schema: schema("a", "", noParams), Handler: noop},
		Tool{Schema: schema("b", "", noParams), Handler: noop},
	)

	schemas := r.Schemas([]string{"b", "a", "missing"})
	require.Len(t, schemas, 2)
	assert.Equal(t, "b", schemas[0].Name)
	assert.Equal(t, "a", schemas[1].Name)

	assert.Equal(t, []string{"a", "b"}, r.Names())
}

// invocationRecorder collects tool invocation outcomes.
type invocationRecorder struct {
	tools    []string
	statuses []string
}

func (r *invocationRecorder) RecordToolInvocation(tool, status string, duration time.Duration) {
	r.tools = append(r.tools, tool)
	r.statuses = append(r.statuses, status)
}

func TestRegistry_RecordsInvocations(t *testing.T) {
	rec := &invocationRecorder{}
	r := NewRegistry(nil).WithMetrics(rec)
	r.MustRegister(
		Tool{Schema: schema("ok", "", noParams), Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return "fine", nil
		}},
		Tool{Schema: schema("boom", "", noParams), Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("nope")
		}},
	)

	r.Run(context.Background(), types.ToolCall{ID: "c1", Name: "ok"})
	r.Run(context.Background(), types.ToolCall{ID: "c2", Name: "boom"})
	r.Run(context.Background(), types.ToolCall{ID: "c3", Name: "missing"})

	assert.Equal(t, []string{"ok", "boom", "missing"}, rec.tools)
	assert.Equal(t, []string{"success", "error", "error"}, rec.statuses)
}

func TestRegistry_EmptyArguments(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Tool{
		Schema: schema("noargs", "", noParams),
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			// Missing arguments arrive as an empty object.
			assert.JSONEq(t, `{}`, string(args))
			return "ok", nil
		},
	}))

	result := r.Run(context.Background(), types.ToolCall{ID: "c1", Name: "noargs"})
	assert.False(t, result.IsError())
}
