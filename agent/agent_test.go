package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigentic/fleetassist/llm"
	"github.com/aigentic/fleetassist/types"
)

// scriptedProvider returns canned responses in order.
type scriptedProvider struct {
	responses []*llm.ChatResponse
	requests  []*llm.ChatRequest
}

func (p *scriptedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.requests = append(p.requests, req)
	if len(p.responses) == 0 {
		return textResponse("out of script"), nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func textResponse(text string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Choices: []llm.ChatChoice{{Message: types.NewAssistantMessage(text)}},
	}
}

func toolCallResponse(calls ...types.ToolCall) *llm.ChatResponse {
	return &llm.ChatResponse{
		Choices: []llm.ChatChoice{{
			Message: types.Message{Role: types.RoleAssistant, ToolCalls: calls},
		}},
	}
}

// stubRunner records tool calls and answers with a fixed payload.
type stubRunner struct {
	schemas []types.ToolSchema
	calls   []types.ToolCall
	payload string
}

func (r *stubRunner) Schemas(names []string) []types.ToolSchema {
	return r.schemas
}

func (r *stubRunner) Run(ctx context.Context, call types.ToolCall) types.ToolResult {
	r.calls = append(r.calls, call)
	return types.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Result:     json.RawMessage(r.payload),
	}
}

func TestAgent_PlainTurn(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.ChatResponse{
		textResponse("hello there"),
	}}

	a, err := New(Config{
		Name:        "greeter",
		Instruction: "You greet people.",
	}, provider, nil, nil)
	require.NoError(t, err)

	out, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	require.Len(t, provider.requests, 1)
	msgs := provider.requests[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.Equal(t, "You greet people.", msgs[0].Content)
	assert.Equal(t, types.RoleUser, msgs[1].Role)
}

func TestAgent_ToolDispatch(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.ChatResponse{
		toolCallResponse(types.ToolCall{
			ID:        "call-1",
			Name:      "vehicle_list",
			Arguments: json.RawMessage(`{}`),
		}),
		textResponse("you have two vehicles"),
	}}
	runner := &stubRunner{
		schemas: []types.ToolSchema{{Name: "vehicle_list"}},
		payload: `[{"Vehicle_ID":"V1"},{"Vehicle_ID":"V2"}]`,
	}

	a, err := New(Config{
		Name:        "fleet",
		Instruction: "Answer fleet questions.",
		Tools:       []string{"vehicle_list"},
	}, provider, runner, nil)
	require.NoError(t, err)

	out, err := a.Run(context.Background(), "what vehicles do I have?")
	require.NoError(t, err)
	assert.Equal(t, "you have two vehicles", out)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "vehicle_list", runner.calls[0].Name)

	// Second request carries the assistant tool-call turn and the tool result.
	require.Len(t, provider.requests, 2)
	msgs := provider.requests[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, types.RoleAssistant, msgs[2].Role)
	assert.Equal(t, types.RoleTool, msgs[3].Role)
	assert.Equal(t, runner.payload, msgs[3].Content)
}

func TestAgent_ToolBudgetExceeded(t *testing.T) {
	// The provider asks for a tool on every round.
	responses := make([]*llm.ChatResponse, 0, 4)
	for i := 0; i < 4; i++ {
		responses = append(responses, toolCallResponse(types.ToolCall{
			ID:        "call",
			Name:      "vehicle_list",
			Arguments: json.RawMessage(`{}`),
		}))
	}
	provider := &scriptedProvider{responses: responses}
	runner := &stubRunner{payload: `[]`, schemas: []types.ToolSchema{{Name: "vehicle_list"}}}

	a, err := New(Config{
		Name:          "fleet",
		Instruction:   "x",
		Tools:         []string{"vehicle_list"},
		MaxToolRounds: 3,
	}, provider, runner, nil)
	require.NoError(t, err)

	_, err = a.Run(context.Background(), "loop forever")
	require.Error(t, err)
	assert.Equal(t, types.ErrToolBudgetExceeded, types.GetErrorCode(err))
	assert.Len(t, runner.calls, 3)
}

func TestAgent_NoCandidates(t *testing.T) {
	// A safety-blocked request yields a response with zero choices; the
	// agent must surface a typed error, not index into the empty slice.
	provider := &scriptedProvider{responses: []*llm.ChatResponse{{}}}

	a, err := New(Config{
		Name:        "fleet",
		Instruction: "Answer fleet questions.",
	}, provider, nil, nil)
	require.NoError(t, err)

	_, err = a.Run(context.Background(), "what vehicles do I have?")
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
}

func TestAgent_StatePlaceholdersAndOutputKey(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.ChatResponse{
		textResponse("summary text"),
	}}

	state := NewState()
	state.Set("recall_report", "2 open recalls")

	a, err := New(Config{
		Name:        "merger",
		Instruction: "Combine reports. Recalls: {recall_report}. Missing: {not_set}.",
		OutputKey:   "final_report",
	}, provider, nil, nil)
	require.NoError(t, err)
	a.WithState(state)

	out, err := a.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "summary text", out)

	// Known keys render, unknown placeholders stay visible.
	sys := provider.requests[0].Messages[0].Content
	assert.Contains(t, sys, "Recalls: 2 open recalls.")
	assert.Contains(t, sys, "Missing: {not_set}.")

	stored, ok := state.Get("final_report")
	require.True(t, ok)
	assert.Equal(t, "summary text", stored)

	// Empty input means the system instruction is the only message.
	assert.Len(t, provider.requests[0].Messages, 1)
}

func TestAgent_Validation(t *testing.T) {
	provider := &scriptedProvider{}

	_, err := New(Config{Instruction: "x"}, provider, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{Name: "a"}, nil, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{Name: "a", Tools: []string{"t"}}, provider, nil, nil)
	assert.Error(t, err)
}

func TestState_Render(t *testing.T) {
	s := NewState()
	s.Set("a", "1")
	s.Set("b", "2")

	assert.Equal(t, "1 and 2 and {c}", s.Render("{a} and {b} and {c}"))

	snap := s.Snapshot()
	snap["a"] = "mutated"
	v, _ := s.Get("a")
	assert.Equal(t, "1", v)
}
