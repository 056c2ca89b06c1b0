package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aigentic/fleetassist/store"
	"github.com/aigentic/fleetassist/types"
	"github.com/aigentic/fleetassist/workflow"
)

// ScheduleRequest asks for a service appointment for a part order.
type ScheduleRequest struct {
	OrderID   string `json:"order_id"`
	VehicleID string `json:"vehicle_id"`
	Place     string `json:"place"`
}

// scheduleReference is the read-only fact set the proposer drafts from and
// the critic validates against.
type scheduleReference struct {
	Today        string              `json:"today"`
	Orders       []store.PartOrder   `json:"part_orders"`
	Rentals      []store.Rental      `json:"rentals"`
	Appointments []store.Appointment `json:"existing_appointments"`
}

// scheduledAppointment is one entry of the candidate schedule. The candidate
// artifact is a JSON array of these.
type scheduledAppointment struct {
	VehicleID string `json:"vehicle_id"`
	Time      string `json:"time"`
	Place     string `json:"place"`
	OrderID   string `json:"order_id"`
}

const proposerInstructionFmt = `You are a specialized appointment scheduling assistance agent.
Draft a service appointment schedule for the request below.
Rules:
- The appointment must not start before the part order's arrival date.
- The appointment must not overlap any rental window of the vehicle.
- Prefer the earliest date that satisfies both rules, at 09:00.
Reference data (JSON):
%s
Output ONLY a JSON array of appointments, each with the keys "vehicle_id", "time" (RFC 3339), "place" and "order_id". No commentary, no markdown fences.`

const criticInstructionFmt = `You are a scheduling critic. Inspect the proposed appointment schedule against the reference data below.
Check for: appointments before the part order arrival date, overlaps with rental windows, conflicts with existing appointments, and missing fields.
Reference data (JSON):
%s
If you find issues, reply with at most 2 concise, actionable suggestions and nothing else.
If there are no remaining issues, reply with EXACTLY the following text and nothing else:
%s`

const refinerInstruction = `You are a scheduling refiner. You receive a proposed appointment schedule and reviewer feedback.
Rewrite the schedule to address the feedback.
Output ONLY the corrected JSON array of appointments, each with the keys "vehicle_id", "time" (RFC 3339), "place" and "order_id". Do not echo the feedback or add commentary.`

// Schedule runs the appointment pipeline: a proposer drafts a schedule from
// part-order and rental facts, the critique/refine loop validates it, and
// the commit stage books the result. The commit runs for both loop outcomes;
// the outcome is surfaced on the result so callers can branch.
func (a *Assistant) Schedule(ctx context.Context, req ScheduleRequest) (*workflow.CommitResult, error) {
	if req.OrderID == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "order id is required")
	}

	pipeline, err := a.SchedulePipeline(ctx, req)
	if err != nil {
		return nil, err
	}

	out, err := pipeline.Execute(ctx, requestPrompt(req))
	if err != nil {
		return nil, err
	}
	result, ok := out.(*workflow.CommitResult)
	if !ok {
		return nil, fmt.Errorf("schedule pipeline produced %T, want *workflow.CommitResult", out)
	}

	a.logger.Info("schedule pipeline finished",
		zap.String("order_id", req.OrderID),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("rounds", result.Rounds),
		zap.Int("booked", len(result.Booked)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

// SchedulePipeline assembles propose, critique/refine, and commit stages for
// one request. Reference data is loaded once and shared by the proposer and
// the critic.
func (a *Assistant) SchedulePipeline(ctx context.Context, req ScheduleRequest) (*workflow.SequentialWorkflow, error) {
	ref, err := a.loadScheduleReference(ctx, req)
	if err != nil {
		return nil, err
	}
	refJSON, err := json.Marshal(ref)
	if err != nil {
		return nil, err
	}

	proposer, err := a.newAgent("schedule_proposer",
		"Drafts an appointment schedule from part orders and rental windows.",
		fmt.Sprintf(proposerInstructionFmt, refJSON), "")
	if err != nil {
		return nil, err
	}

	criticAgent, err := a.newAgent("schedule_critic",
		"Reviews a draft schedule against the reference data.",
		fmt.Sprintf(criticInstructionFmt, refJSON, a.config.ApprovalSentinel), "")
	if err != nil {
		return nil, err
	}
	critic := workflow.CriticFunc(func(ctx context.Context, candidate string) (string, error) {
		return criticAgent.Run(ctx, "Proposed schedule:\n"+candidate)
	})

	refinerAgent, err := a.newAgent("schedule_refiner",
		"Rewrites a draft schedule according to reviewer feedback.",
		refinerInstruction, "")
	if err != nil {
		return nil, err
	}
	refiner := workflow.SentinelGate{
		Sentinel: a.config.ApprovalSentinel,
		Inner: workflow.RefinerFunc(func(ctx context.Context, candidate, feedback string) (workflow.Refinement, error) {
			revised, err := refinerAgent.Run(ctx,
				"Proposed schedule:\n"+candidate+"\n\nReviewer feedback:\n"+feedback)
			if err != nil {
				return workflow.Refinement{}, err
			}
			return workflow.Refinement{Candidate: revised}, nil
		}),
	}

	loop, err := workflow.NewRefineLoop("schedule_refine",
		"Validates and adjusts the draft schedule until the critic approves it.",
		critic, refiner, a.config.MaxRounds, a.logger)
	if err != nil {
		return nil, err
	}

	commit := workflow.NewCommitStep("book_appointments", a.appointmentCommitter(), a.logger)

	return workflow.NewSequentialWorkflow("appointment_scheduling_pipeline",
		"Proposes, validates, and books a service appointment schedule.",
		proposer, loop, commit), nil
}

func (a *Assistant) loadScheduleReference(ctx context.Context, req ScheduleRequest) (*scheduleReference, error) {
	orders, err := a.warehouse.PartOrders(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, types.NewError(types.ErrNotFound, "part order "+req.OrderID+" not found")
	}

	ref := &scheduleReference{
		Today:  store.Today().String(),
		Orders: orders,
	}
	if req.VehicleID != "" {
		if ref.Rentals, err = a.warehouse.VehicleRentals(ctx, req.VehicleID); err != nil {
			return nil, err
		}
		if ref.Appointments, err = a.warehouse.VehicleAppointments(ctx, req.VehicleID); err != nil {
			return nil, err
		}
	}
	return ref, nil
}

// appointmentCommitter books every entry of the final candidate. Individual
// booking failures are collected, never retried; an unparseable candidate
// fails the commit outright.
func (a *Assistant) appointmentCommitter() workflow.Committer {
	return workflow.CommitterFunc(func(ctx context.Context, loopResult *workflow.LoopResult) (*workflow.CommitResult, error) {
		entries, err := parseCandidate(loopResult.Candidate)
		if err != nil {
			return nil, types.NewError(types.ErrCommitFailed, "candidate schedule is not valid JSON").WithCause(err)
		}

		result := &workflow.CommitResult{}
		for _, entry := range entries {
			at, err := store.ParseAppointmentTime(entry.Time)
			if err != nil {
				result.Failed = append(result.Failed, workflow.CommitFailure{
					Item:   entry.OrderID,
					Reason: err.Error(),
				})
				continue
			}
			booked, err := a.warehouse.CreateAppointment(ctx, entry.VehicleID, at, entry.Place, entry.OrderID)
			if err != nil {
				result.Failed = append(result.Failed, workflow.CommitFailure{
					Item:   entry.OrderID,
					Reason: err.Error(),
				})
				continue
			}
			result.Booked = append(result.Booked, booked.AppointmentID)
		}
		return result, nil
	})
}

func requestPrompt(req ScheduleRequest) string {
	b, _ := json.Marshal(req)
	return "Schedule a service appointment for this request:\n" + string(b)
}

// parseCandidate decodes the candidate schedule, tolerating markdown fences
// models sometimes wrap JSON in.
func parseCandidate(candidate string) ([]scheduledAppointment, error) {
	text := strings.TrimSpace(candidate)
	if after, found := strings.CutPrefix(text, "```json"); found {
		text = after
	} else if after, found := strings.CutPrefix(text, "```"); found {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	var entries []scheduledAppointment
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
