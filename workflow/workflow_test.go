package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialWorkflow(t *testing.T) {
	wf := NewSequentialWorkflow("chain", "test chain",
		NewFuncStep("double", func(ctx context.Context, input any) (any, error) {
			return input.(int) * 2, nil
		}),
		NewFuncStep("add-one", func(ctx context.Context, input any) (any, error) {
			return input.(int) + 1, nil
		}),
	)

	result, err := wf.Execute(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 11, result)
	assert.Equal(t, "chain", wf.Name())
	assert.Len(t, wf.Steps(), 2)
}

func TestSequentialWorkflow_StepError(t *testing.T) {
	boom := errors.New("boom")
	wf := NewSequentialWorkflow("chain", "",
		NewFuncStep("ok", func(ctx context.Context, input any) (any, error) {
			return input, nil
		}),
		NewFuncStep("fail", func(ctx context.Context, input any) (any, error) {
			return nil, boom
		}),
		NewFuncStep("never", func(ctx context.Context, input any) (any, error) {
			t.Fatal("step after failure must not run")
			return nil, nil
		}),
	)

	_, err := wf.Execute(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step 2 (fail)")
}

func TestSequentialWorkflow_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wf := NewSequentialWorkflow("chain", "",
		NewFuncStep("step", func(ctx context.Context, input any) (any, error) {
			return input, nil
		}),
	)

	_, err := wf.Execute(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSequentialWorkflow_AddStep(t *testing.T) {
	wf := NewSequentialWorkflow("chain", "")
	wf.AddStep(NewFuncStep("s1", func(ctx context.Context, input any) (any, error) {
		return "done", nil
	}))

	result, err := wf.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

func TestParallelWorkflow(t *testing.T) {
	agg := NewFuncAggregator(func(ctx context.Context, results []TaskResult) (any, error) {
		parts := make([]string, 0, len(results))
		for _, r := range results {
			parts = append(parts, fmt.Sprintf("%s=%v", r.TaskName, r.Result))
		}
		return strings.Join(parts, ","), nil
	})

	wf := NewParallelWorkflow("fanout", "test fanout", agg,
		NewFuncTask("a", func(ctx context.Context, input any) (any, error) {
			return input.(int) + 1, nil
		}),
		NewFuncTask("b", func(ctx context.Context, input any) (any, error) {
			return input.(int) + 2, nil
		}),
	)

	result, err := wf.Execute(context.Background(), 10)
	require.NoError(t, err)
	// Results are delivered in task registration order.
	assert.Equal(t, "a=11,b=12", result)
}

func TestParallelWorkflow_TaskError(t *testing.T) {
	boom := errors.New("boom")
	wf := NewParallelWorkflow("fanout", "", nil,
		NewFuncTask("ok", func(ctx context.Context, input any) (any, error) {
			return "fine", nil
		}),
		NewFuncTask("fail", func(ctx context.Context, input any) (any, error) {
			return nil, boom
		}),
	)

	_, err := wf.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestParallelWorkflow_NoTasks(t *testing.T) {
	wf := NewParallelWorkflow("empty", "", nil)
	_, err := wf.Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestParallelWorkflow_NoAggregator(t *testing.T) {
	wf := NewParallelWorkflow("raw", "", nil,
		NewFuncTask("only", func(ctx context.Context, input any) (any, error) {
			return 42, nil
		}),
	)

	result, err := wf.Execute(context.Background(), nil)
	require.NoError(t, err)

	results, ok := result.([]TaskResult)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "only", results[0].TaskName)
	assert.Equal(t, 42, results[0].Result)
}

type echoHandler struct {
	name string
}

func (h *echoHandler) Execute(ctx context.Context, input any) (any, error) {
	return h.name + ":" + fmt.Sprint(input), nil
}

func (h *echoHandler) Name() string {
	return h.name
}

func TestRoutingWorkflow(t *testing.T) {
	router := NewFuncRouter(func(ctx context.Context, input any) (string, error) {
		if strings.Contains(input.(string), "recall") {
			return "recall", nil
		}
		return "maintenance", nil
	})

	wf := NewRoutingWorkflow("frontdesk", "", router)
	wf.RegisterHandler("recall", &echoHandler{name: "recall"})
	wf.RegisterHandler("maintenance", &echoHandler{name: "maintenance"})

	result, err := wf.Execute(context.Background(), "any open recall notices?")
	require.NoError(t, err)
	assert.Equal(t, "recall:any open recall notices?", result)

	result, err = wf.Execute(context.Background(), "schedule brake service")
	require.NoError(t, err)
	assert.Equal(t, "maintenance:schedule brake service", result)

	assert.ElementsMatch(t, []string{"recall", "maintenance"}, wf.Routes())
}

func TestRoutingWorkflow_DefaultRoute(t *testing.T) {
	router := NewFuncRouter(func(ctx context.Context, input any) (string, error) {
		return "unknown", nil
	})

	wf := NewRoutingWorkflow("frontdesk", "", router)
	wf.RegisterHandler("fallback", &echoHandler{name: "fallback"})

	_, err := wf.Execute(context.Background(), "hi")
	assert.Error(t, err)

	wf.SetDefaultRoute("fallback")
	result, err := wf.Execute(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "fallback:hi", result)
}

func TestRoutingWorkflow_RouterError(t *testing.T) {
	router := NewFuncRouter(func(ctx context.Context, input any) (string, error) {
		return "", errors.New("cannot classify")
	})

	wf := NewRoutingWorkflow("frontdesk", "", router)
	_, err := wf.Execute(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routing failed")
}

func TestNestedWorkflows(t *testing.T) {
	inner := NewSequentialWorkflow("inner", "",
		NewFuncStep("upper", func(ctx context.Context, input any) (any, error) {
			return strings.ToUpper(input.(string)), nil
		}),
	)

	outer := NewSequentialWorkflow("outer", "",
		NewFuncStep("trim", func(ctx context.Context, input any) (any, error) {
			return strings.TrimSpace(input.(string)), nil
		}),
		NewFuncStep("inner", inner.Execute),
	)

	result, err := outer.Execute(context.Background(), "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", result)
}
