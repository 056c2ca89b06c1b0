package workflow

import (
	"context"
	"fmt"
)

// Runnable is the common execution interface shared by workflows, steps,
// tasks, and handlers. It represents any unit of work that can be executed
// with input and produce output.
type Runnable interface {
	Execute(ctx context.Context, input any) (any, error)
}

// Workflow is a predefined composition of steps with predictable execution.
type Workflow interface {
	Runnable
	// Name returns the workflow name.
	Name() string
	// Description returns the workflow description.
	Description() string
}

// Step is a named unit of work inside a workflow.
type Step interface {
	Runnable
	// Name returns the step name.
	Name() string
}

// StepFunc adapts a function to the Step execution signature.
type StepFunc func(ctx context.Context, input any) (any, error)

// FuncStep wraps a function as a Step.
type FuncStep struct {
	name string
	fn   StepFunc
}

// NewFuncStep creates a function step.
func NewFuncStep(name string, fn StepFunc) *FuncStep {
	return &FuncStep{
		name: name,
		fn:   fn,
	}
}

func (s *FuncStep) Execute(ctx context.Context, input any) (any, error) {
	return s.fn(ctx, input)
}

func (s *FuncStep) Name() string {
	return s.name
}

// SequentialWorkflow runs a fixed sequence of steps, feeding each step's
// output into the next.
type SequentialWorkflow struct {
	name        string
	description string
	steps       []Step
}

// NewSequentialWorkflow creates a sequential workflow.
func NewSequentialWorkflow(name, description string, steps ...Step) *SequentialWorkflow {
	return &SequentialWorkflow{
		name:        name,
		description: description,
		steps:       steps,
	}
}

// Execute runs the steps in order. The first step receives the workflow
// input; every later step receives the previous step's output.
func (w *SequentialWorkflow) Execute(ctx context.Context, input any) (any, error) {
	current := input

	for i, step := range w.steps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := step.Execute(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s) failed: %w", i+1, step.Name(), err)
		}

		current = result
	}

	return current, nil
}

func (w *SequentialWorkflow) Name() string {
	return w.name
}

func (w *SequentialWorkflow) Description() string {
	return w.description
}

// AddStep appends a step.
func (w *SequentialWorkflow) AddStep(step Step) {
	w.steps = append(w.steps, step)
}

// Steps returns all steps.
func (w *SequentialWorkflow) Steps() []Step {
	return w.steps
}
