package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Critic inspects a candidate against its reference data and reports back.
// The returned feedback is either the configured approval sentinel (emitted
// verbatim) or concise actionable feedback. Critics must be side-effect-free:
// they read reference data but never mutate it or the candidate.
type Critic interface {
	Critique(ctx context.Context, candidate string) (string, error)
}

// CriticFunc adapts a function to the Critic interface.
type CriticFunc func(ctx context.Context, candidate string) (string, error)

func (f CriticFunc) Critique(ctx context.Context, candidate string) (string, error) {
	return f(ctx, candidate)
}

// Refinement is the refiner's structured verdict for one round: either
// terminate (candidate left untouched by the loop) or a rewritten candidate.
type Refinement struct {
	Candidate string
	Terminate bool
}

// Refiner rewrites a candidate according to the critic's feedback, or
// signals that no further refinement is needed.
type Refiner interface {
	Refine(ctx context.Context, candidate, feedback string) (Refinement, error)
}

// RefinerFunc adapts a function to the Refiner interface.
type RefinerFunc func(ctx context.Context, candidate, feedback string) (Refinement, error)

func (f RefinerFunc) Refine(ctx context.Context, candidate, feedback string) (Refinement, error) {
	return f(ctx, candidate, feedback)
}

// SentinelGate terminates the loop when the critic's feedback equals the
// configured sentinel, and delegates to the inner refiner otherwise.
//
// The comparison is byte-for-byte: no trimming, no case folding. A sentinel
// with altered casing or surrounding whitespace is treated as ordinary
// feedback. The gate is the single place the sentinel is evaluated; the
// inner refiner never sees it.
type SentinelGate struct {
	Sentinel string
	Inner    Refiner
}

func (g SentinelGate) Refine(ctx context.Context, candidate, feedback string) (Refinement, error) {
	if feedback == g.Sentinel {
		// Terminate without touching the candidate, even when it is empty.
		return Refinement{Terminate: true}, nil
	}
	if g.Inner == nil {
		return Refinement{}, fmt.Errorf("sentinel gate: no inner refiner configured")
	}
	return g.Inner.Refine(ctx, candidate, feedback)
}

// RoundPhase tracks where a loop round stands.
type RoundPhase string

const (
	PhaseAwaitingCritique RoundPhase = "awaiting_critique" // round started, critic not yet run
	PhaseCritiqued        RoundPhase = "critiqued"         // feedback captured
	PhaseRefined          RoundPhase = "refined"           // candidate rewritten, loop continues
	PhaseTerminated       RoundPhase = "terminated"        // refiner signaled convergence
)

// validPhaseTransitions defines the legal per-round transitions.
var validPhaseTransitions = map[RoundPhase][]RoundPhase{
	PhaseAwaitingCritique: {PhaseCritiqued},
	PhaseCritiqued:        {PhaseRefined, PhaseTerminated},
	PhaseRefined:          {PhaseAwaitingCritique},
}

// CanTransition reports whether a phase transition is legal.
func CanTransition(from, to RoundPhase) bool {
	for _, s := range validPhaseTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// LoopState is the shared record for one refine-loop execution. It is created
// by the driver, mutated only by the active step of the active round, and
// discarded when the loop exits; callers receive a LoopResult instead.
type LoopState struct {
	// Candidate is overwritten in place by each refinement; earlier
	// versions are not retained.
	Candidate string
	// Feedback holds the critic's output for the current round only.
	Feedback string
	// Terminated is set at most once, when the refiner signals convergence.
	Terminated bool
	// Rounds counts completed critique+refine rounds.
	Rounds int
	// Phase tracks the per-round state machine.
	Phase RoundPhase
}

// advance moves the round state machine, guarding against driver bugs.
func (s *LoopState) advance(to RoundPhase) error {
	if !CanTransition(s.Phase, to) {
		return fmt.Errorf("invalid round phase transition: %s -> %s", s.Phase, to)
	}
	s.Phase = to
	return nil
}

// LoopOutcome distinguishes the two terminal states of a refine loop.
type LoopOutcome string

const (
	// OutcomeConverged means the refiner signaled termination.
	OutcomeConverged LoopOutcome = "converged"
	// OutcomeRoundsExhausted means the round budget ran out first. This is
	// not an error: the candidate is best-effort and callers decide policy.
	OutcomeRoundsExhausted LoopOutcome = "rounds_exhausted"
)

// LoopResult reports how a refine loop ended.
type LoopResult struct {
	Candidate string      `json:"candidate"`
	Outcome   LoopOutcome `json:"outcome"`
	Rounds    int         `json:"rounds"`
}

// Converged reports whether the loop ended by refiner signal rather than by
// exhausting its round budget.
func (r *LoopResult) Converged() bool {
	return r.Outcome == OutcomeConverged
}

// RefineLoop runs critic-then-refiner rounds over a candidate until the
// refiner signals termination or the round budget is exhausted. Execution is
// strictly sequential: critic and refiner never run concurrently with each
// other or with themselves across rounds.
//
// Step failures (critic or refiner returning an error) propagate to the
// caller without retry. Exhausting the budget does not: it is a normal
// terminal outcome, reported on the LoopResult.
type RefineLoop struct {
	name        string
	description string
	critic      Critic
	refiner     Refiner
	maxRounds   int
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewRefineLoop creates a bounded refine loop. maxRounds must be >= 1.
func NewRefineLoop(name, description string, critic Critic, refiner Refiner, maxRounds int, logger *zap.Logger) (*RefineLoop, error) {
	if critic == nil || refiner == nil {
		return nil, fmt.Errorf("refine loop %q: critic and refiner are required", name)
	}
	if maxRounds < 1 {
		return nil, fmt.Errorf("refine loop %q: maxRounds must be >= 1, got %d", name, maxRounds)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RefineLoop{
		name:        name,
		description: description,
		critic:      critic,
		refiner:     refiner,
		maxRounds:   maxRounds,
		logger:      logger.With(zap.String("component", "refine_loop"), zap.String("loop", name)),
		tracer:      otel.Tracer("fleetassist/workflow"),
	}, nil
}

// Run drives the loop over an initial candidate.
func (l *RefineLoop) Run(ctx context.Context, candidate string) (*LoopResult, error) {
	st := &LoopState{
		Candidate: candidate,
		Phase:     PhaseAwaitingCritique,
	}

	for round := 1; round <= l.maxRounds; round++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		roundCtx, span := l.tracer.Start(ctx, "refine_loop.round",
			trace.WithAttributes(
				attribute.String("loop.name", l.name),
				attribute.Int("loop.round", round),
			))

		feedback, err := l.critic.Critique(roundCtx, st.Candidate)
		if err != nil {
			span.End()
			return nil, fmt.Errorf("round %d: critique failed: %w", round, err)
		}
		st.Feedback = feedback
		if err := st.advance(PhaseCritiqued); err != nil {
			span.End()
			return nil, err
		}
		st.Rounds = round

		if strings.TrimSpace(feedback) == "" {
			// Data-quality fault, not a loop failure: no usable feedback
			// means nothing to refine this round. Leave the candidate
			// unchanged and move on.
			l.logger.Warn("empty critique feedback, skipping refinement",
				zap.Int("round", round))
			st.Feedback = ""
			if err := st.advance(PhaseRefined); err != nil {
				span.End()
				return nil, err
			}
			st.Phase = PhaseAwaitingCritique
			span.End()
			continue
		}

		refinement, err := l.refiner.Refine(roundCtx, st.Candidate, feedback)
		if err != nil {
			span.End()
			return nil, fmt.Errorf("round %d: refine failed: %w", round, err)
		}

		if refinement.Terminate {
			st.Terminated = true
			if err := st.advance(PhaseTerminated); err != nil {
				span.End()
				return nil, err
			}
			span.End()

			l.logger.Info("refine loop converged",
				zap.Int("rounds", round),
				zap.Int("max_rounds", l.maxRounds))
			return &LoopResult{
				Candidate: st.Candidate,
				Outcome:   OutcomeConverged,
				Rounds:    round,
			}, nil
		}

		st.Candidate = refinement.Candidate
		st.Feedback = "" // feedback is not retained across rounds
		if err := st.advance(PhaseRefined); err != nil {
			span.End()
			return nil, err
		}
		st.Phase = PhaseAwaitingCritique
		span.End()

		l.logger.Debug("refine loop round completed",
			zap.Int("round", round))
	}

	l.logger.Warn("refine loop exhausted round budget without converging",
		zap.Int("max_rounds", l.maxRounds))
	return &LoopResult{
		Candidate: st.Candidate,
		Outcome:   OutcomeRoundsExhausted,
		Rounds:    l.maxRounds,
	}, nil
}

// Execute implements Step, so a RefineLoop nests inside larger pipelines.
// The input may be a string candidate or a *LoopResult from an upstream
// stage; the output is always a *LoopResult.
func (l *RefineLoop) Execute(ctx context.Context, input any) (any, error) {
	var candidate string
	switch v := input.(type) {
	case string:
		candidate = v
	case *LoopResult:
		candidate = v.Candidate
	case nil:
		candidate = ""
	default:
		candidate = fmt.Sprint(v)
	}
	return l.Run(ctx, candidate)
}

func (l *RefineLoop) Name() string {
	return l.name
}

func (l *RefineLoop) Description() string {
	return l.description
}

// MaxRounds returns the configured round budget.
func (l *RefineLoop) MaxRounds() int {
	return l.maxRounds
}
