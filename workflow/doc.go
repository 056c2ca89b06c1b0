// Package workflow provides the pipeline compositions used by the fleet
// assistant: sequential chains, parallel fan-out with aggregation, routing
// to specialized handlers, and a bounded critique/refine loop.
//
// Every composition implements the same Runnable contract as its steps, so
// pipelines nest freely: a RefineLoop can be a step of a SequentialWorkflow,
// which can itself be a task of a ParallelWorkflow.
package workflow
