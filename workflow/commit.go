package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Committer applies an approved candidate to external systems. It runs
// exactly once per pipeline execution, after the refine loop has exited,
// regardless of whether the loop converged.
type Committer interface {
	Commit(ctx context.Context, result *LoopResult) (*CommitResult, error)
}

// CommitterFunc adapts a function to the Committer interface.
type CommitterFunc func(ctx context.Context, result *LoopResult) (*CommitResult, error)

func (f CommitterFunc) Commit(ctx context.Context, result *LoopResult) (*CommitResult, error) {
	return f(ctx, result)
}

// CommitFailure records one item the committer could not apply.
type CommitFailure struct {
	Item   string `json:"item"`
	Reason string `json:"reason"`
}

// CommitResult reports what the committer applied and what it could not.
// Partial success is a valid outcome: failures are reported back, never
// retried through the loop.
type CommitResult struct {
	Outcome LoopOutcome     `json:"outcome"`
	Rounds  int             `json:"rounds"`
	Booked  []string        `json:"booked"`
	Failed  []CommitFailure `json:"failed"`
}

// AllBooked reports whether every item was applied.
func (r *CommitResult) AllBooked() bool {
	return len(r.Failed) == 0 && len(r.Booked) > 0
}

// NothingBooked reports whether no item was applied.
func (r *CommitResult) NothingBooked() bool {
	return len(r.Booked) == 0
}

// CommitStep adapts a Committer into a pipeline Step placed after a
// RefineLoop. It accepts the loop's result, runs the committer once, and
// stamps the loop outcome onto the commit result so callers can tell a
// converged plan from a best-effort one.
type CommitStep struct {
	name      string
	committer Committer
	logger    *zap.Logger
}

// NewCommitStep creates a commit step.
func NewCommitStep(name string, committer Committer, logger *zap.Logger) *CommitStep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommitStep{
		name:      name,
		committer: committer,
		logger:    logger.With(zap.String("component", "commit_step"), zap.String("step", name)),
	}
}

func (s *CommitStep) Execute(ctx context.Context, input any) (any, error) {
	loopResult, ok := input.(*LoopResult)
	if !ok {
		return nil, fmt.Errorf("commit step %s: expected *LoopResult input, got %T", s.name, input)
	}

	if !loopResult.Converged() {
		s.logger.Warn("committing best-effort candidate",
			zap.Int("rounds", loopResult.Rounds))
	}

	result, err := s.committer.Commit(ctx, loopResult)
	if err != nil {
		return nil, fmt.Errorf("commit step %s failed: %w", s.name, err)
	}
	result.Outcome = loopResult.Outcome
	result.Rounds = loopResult.Rounds

	s.logger.Info("commit completed",
		zap.Int("booked", len(result.Booked)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *CommitStep) Name() string {
	return s.name
}
