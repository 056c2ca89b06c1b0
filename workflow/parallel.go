package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work that can run concurrently with other tasks.
type Task interface {
	// Execute runs the task.
	Execute(ctx context.Context, input any) (any, error)
	// Name returns the task name.
	Name() string
}

// TaskFunc adapts a function to the Task execution signature.
type TaskFunc func(ctx context.Context, input any) (any, error)

// FuncTask wraps a function as a Task.
type FuncTask struct {
	name string
	fn   TaskFunc
}

// NewFuncTask creates a function task.
func NewFuncTask(name string, fn TaskFunc) *FuncTask {
	return &FuncTask{
		name: name,
		fn:   fn,
	}
}

func (t *FuncTask) Execute(ctx context.Context, input any) (any, error) {
	return t.fn(ctx, input)
}

func (t *FuncTask) Name() string {
	return t.name
}

// TaskResult holds one task's output.
type TaskResult struct {
	TaskName string
	Result   any
}

// Aggregator combines the results of all tasks into the workflow output.
type Aggregator interface {
	// Aggregate combines results. Results arrive in task registration order.
	Aggregate(ctx context.Context, results []TaskResult) (any, error)
}

// AggregatorFunc adapts a function to the Aggregator interface.
type AggregatorFunc func(ctx context.Context, results []TaskResult) (any, error)

// FuncAggregator wraps a function as an Aggregator.
type FuncAggregator struct {
	fn AggregatorFunc
}

// NewFuncAggregator creates a function aggregator.
func NewFuncAggregator(fn AggregatorFunc) *FuncAggregator {
	return &FuncAggregator{fn: fn}
}

func (a *FuncAggregator) Aggregate(ctx context.Context, results []TaskResult) (any, error) {
	return a.fn(ctx, results)
}

// ParallelWorkflow fans the same input out to all tasks concurrently, waits
// for every task, then aggregates the results. Any task failure cancels the
// remaining tasks and fails the workflow.
type ParallelWorkflow struct {
	name        string
	description string
	tasks       []Task
	aggregator  Aggregator
}

// NewParallelWorkflow creates a parallel workflow.
func NewParallelWorkflow(name, description string, aggregator Aggregator, tasks ...Task) *ParallelWorkflow {
	return &ParallelWorkflow{
		name:        name,
		description: description,
		tasks:       tasks,
		aggregator:  aggregator,
	}
}

// Execute runs all tasks concurrently and aggregates their results.
func (w *ParallelWorkflow) Execute(ctx context.Context, input any) (any, error) {
	if len(w.tasks) == 0 {
		return nil, fmt.Errorf("no tasks to execute")
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([]TaskResult, len(w.tasks))

	for i, task := range w.tasks {
		g.Go(func() error {
			result, err := task.Execute(gctx, input)
			if err != nil {
				return fmt.Errorf("task %s failed: %w", task.Name(), err)
			}
			results[i] = TaskResult{TaskName: task.Name(), Result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parallel execution failed: %w", err)
	}

	if w.aggregator == nil {
		// Without an aggregator, hand back the raw results.
		return results, nil
	}

	aggregated, err := w.aggregator.Aggregate(ctx, results)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}

	return aggregated, nil
}

func (w *ParallelWorkflow) Name() string {
	return w.name
}

func (w *ParallelWorkflow) Description() string {
	return w.description
}

// AddTask appends a task.
func (w *ParallelWorkflow) AddTask(task Task) {
	w.tasks = append(w.tasks, task)
}

// Tasks returns all tasks.
func (w *ParallelWorkflow) Tasks() []Task {
	return w.tasks
}
