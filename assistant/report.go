package assistant

import (
	"context"
	"fmt"

	"github.com/aigentic/fleetassist/agent"
	"github.com/aigentic/fleetassist/workflow"
)

// MaintenanceReport runs the report pipeline: the predictive-maintenance and
// recall agents fan out in parallel, each writing its summary into shared
// state, then the merger agent synthesizes the structured report.
func (a *Assistant) MaintenanceReport(ctx context.Context, query string) (string, error) {
	pipeline, err := a.ReportPipeline()
	if err != nil {
		return "", err
	}

	result, err := pipeline.Execute(ctx, query)
	if err != nil {
		return "", err
	}
	report, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("report pipeline produced %T, want string", result)
	}
	return report, nil
}

// ReportPipeline assembles the maintenance-report workflow. Each call builds
// a fresh pipeline with its own shared state, so concurrent reports do not
// bleed into each other.
func (a *Assistant) ReportPipeline() (*workflow.SequentialWorkflow, error) {
	state := agent.NewState()

	predictive, err := a.PredictiveMaintenanceAgent()
	if err != nil {
		return nil, err
	}
	recallAgent, err := a.RecallAgent()
	if err != nil {
		return nil, err
	}
	merger, err := a.MergerAgent()
	if err != nil {
		return nil, err
	}
	predictive.WithState(state)
	recallAgent.WithState(state)
	merger.WithState(state)

	fanOut := workflow.NewParallelWorkflow("parallel_maintenance_check",
		"Runs the maintenance agents concurrently to gather fleet maintenance needs.",
		nil, predictive, recallAgent)

	return workflow.NewSequentialWorkflow("maintenance_report_pipeline",
		"Coordinates the parallel maintenance check and synthesizes the results.",
		workflow.NewFuncStep("fan_out", func(ctx context.Context, input any) (any, error) {
			if _, err := fanOut.Execute(ctx, input); err != nil {
				return nil, err
			}
			// The summaries live in state; the merger reads them from its
			// rendered instruction. The request text flows through as the
			// merger's user message, which must not be empty.
			if query, ok := input.(string); ok && query != "" {
				return query, nil
			}
			return "Synthesize the maintenance report.", nil
		}),
		merger,
	), nil
}
