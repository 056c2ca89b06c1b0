package assistant

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aigentic/fleetassist/llm"
	"github.com/aigentic/fleetassist/store"
	"github.com/aigentic/fleetassist/tools"
	"github.com/aigentic/fleetassist/types"
	"github.com/aigentic/fleetassist/workflow"
)

const testSentinel = "No major issues found."

// roleProvider dispatches canned behavior by the agent's system instruction,
// standing in for the model across all sub-agents.
type roleProvider struct {
	criticFeedback []string
	criticCalls    int
	refinerOutput  string
	proposerOutput string
	classifierOut  string
	replies         map[string]string // instruction fragment -> reply
	lastMerger      string
	lastMergerInput string
}

func (p *roleProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	sys := req.Messages[0].Content
	reply := func(text string) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{
			Choices: []llm.ChatChoice{{Message: types.NewAssistantMessage(text)}},
		}, nil
	}

	switch {
	case strings.Contains(sys, "scheduling critic"):
		i := p.criticCalls
		if i >= len(p.criticFeedback) {
			i = len(p.criticFeedback) - 1
		}
		p.criticCalls++
		return reply(p.criticFeedback[i])
	case strings.Contains(sys, "scheduling refiner"):
		return reply(p.refinerOutput)
	case strings.Contains(sys, "Draft a service appointment schedule"):
		return reply(p.proposerOutput)
	case strings.Contains(sys, "classify a customer request"):
		return reply(p.classifierOut)
	case strings.Contains(sys, "combining maintenance needs"):
		p.lastMerger = sys
		p.lastMergerInput = ""
		for _, m := range req.Messages {
			if m.Role == types.RoleUser {
				p.lastMergerInput = m.Content
			}
		}
		return reply("## Summary of Recent Maintenance Needs")
	default:
		for fragment, text := range p.replies {
			if strings.Contains(sys, fragment) {
				return reply(text)
			}
		}
		return nil, fmt.Errorf("no scripted reply for instruction: %.60s", sys)
	}
}

func (p *roleProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *roleProvider) Name() string { return "scripted" }

func newTestAssistant(t *testing.T, provider llm.Provider, maxRounds int) (*Assistant, *store.Warehouse) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	w := store.NewWarehouse(db, nil)
	require.NoError(t, w.Migrate())

	registry := tools.NewRegistry(nil)
	registry.MustRegister(tools.WarehouseTools(w)...)
	registry.MustRegister(tools.NotifyTool(tools.NewNotifier(tools.NotifierConfig{}, nil)))

	a, err := New(Config{
		Model:            "gemini-2.0-flash",
		MaxRounds:        maxRounds,
		ApprovalSentinel: testSentinel,
		MaxToolRounds:    8,
	}, provider, registry, w, nil)
	require.NoError(t, err)
	return a, w
}

func seedOrder(t *testing.T, w *store.Warehouse) string {
	t.Helper()
	require.NoError(t, w.DB().Create(&store.PartDelivery{
		PartID: "P1", ValidFrom: store.Today().AddDays(-10), DeliveryTime: 3,
	}).Error)
	order, err := w.CreatePartOrder(context.Background(), "P1", 1)
	require.NoError(t, err)
	return order.OrderID
}

func TestSchedule_ConvergesAndBooks(t *testing.T) {
	draft := `[{"vehicle_id":"V1","time":"2026-09-01T09:00:00Z","place":"Berlin","order_id":"%s"}]`
	revised := `[{"vehicle_id":"V1","time":"2026-09-03T09:00:00Z","place":"Berlin","order_id":"%s"}]`

	provider := &roleProvider{
		criticFeedback: []string{
			"The appointment starts before the part arrival date. Move it after 2026-09-02.",
			testSentinel,
		},
	}
	a, w := newTestAssistant(t, provider, 5)
	orderID := seedOrder(t, w)
	provider.proposerOutput = fmt.Sprintf(draft, orderID)
	provider.refinerOutput = fmt.Sprintf(revised, orderID)

	result, err := a.Schedule(context.Background(), ScheduleRequest{
		OrderID:   orderID,
		VehicleID: "V1",
		Place:     "Berlin",
	})
	require.NoError(t, err)

	assert.Equal(t, workflow.OutcomeConverged, result.Outcome)
	assert.Equal(t, 2, result.Rounds)
	require.Len(t, result.Booked, 1)
	assert.Empty(t, result.Failed)

	// The revised candidate, not the draft, is what got booked.
	appts, err := w.VehicleAppointments(context.Background(), "V1")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, 3, appts[0].Time.UTC().Day())
	assert.Equal(t, orderID, appts[0].OrderID)
}

func TestSchedule_RoundsExhaustedStillCommits(t *testing.T) {
	provider := &roleProvider{
		criticFeedback: []string{"Still conflicts with a rental window."},
	}
	a, w := newTestAssistant(t, provider, 2)
	orderID := seedOrder(t, w)
	candidate := fmt.Sprintf(`[{"vehicle_id":"V1","time":"2026-09-05T09:00:00Z","place":"Berlin","order_id":"%s"}]`, orderID)
	provider.proposerOutput = candidate
	provider.refinerOutput = candidate

	result, err := a.Schedule(context.Background(), ScheduleRequest{OrderID: orderID, VehicleID: "V1"})
	require.NoError(t, err)

	// Non-convergence is not an error: the best-effort candidate is booked
	// and the outcome tells the caller what happened.
	assert.Equal(t, workflow.OutcomeRoundsExhausted, result.Outcome)
	assert.Equal(t, 2, result.Rounds)
	assert.Len(t, result.Booked, 1)
}

func TestSchedule_UnknownOrder(t *testing.T) {
	a, _ := newTestAssistant(t, &roleProvider{}, 5)

	_, err := a.Schedule(context.Background(), ScheduleRequest{OrderID: "nope"})
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))

	_, err = a.Schedule(context.Background(), ScheduleRequest{})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestSchedule_UnparseableCandidateFailsCommit(t *testing.T) {
	provider := &roleProvider{
		criticFeedback: []string{testSentinel},
	}
	a, w := newTestAssistant(t, provider, 5)
	orderID := seedOrder(t, w)
	provider.proposerOutput = "I think Tuesday would be nice."

	_, err := a.Schedule(context.Background(), ScheduleRequest{OrderID: orderID})
	require.Error(t, err)
	assert.Equal(t, types.ErrCommitFailed, types.GetErrorCode(err))
}

func TestSchedule_PartialBooking(t *testing.T) {
	provider := &roleProvider{
		criticFeedback: []string{testSentinel},
	}
	a, w := newTestAssistant(t, provider, 5)
	orderID := seedOrder(t, w)
	provider.proposerOutput = fmt.Sprintf(`[
		{"vehicle_id":"V1","time":"2026-09-05T09:00:00Z","place":"Berlin","order_id":"%s"},
		{"vehicle_id":"","time":"2026-09-06T09:00:00Z","place":"Berlin","order_id":"%s"}
	]`, orderID, orderID)

	result, err := a.Schedule(context.Background(), ScheduleRequest{OrderID: orderID, VehicleID: "V1"})
	require.NoError(t, err)

	assert.Len(t, result.Booked, 1)
	require.Len(t, result.Failed, 1)
	assert.False(t, result.AllBooked())
	assert.False(t, result.NothingBooked())
}

func TestMaintenanceReport(t *testing.T) {
	provider := &roleProvider{
		replies: map[string]string{
			"predictive maintenance assistance": "Two vehicles need brake pads.",
			"recall assistance":                 "One open recall affects 3 vehicles.",
		},
	}
	a, _ := newTestAssistant(t, provider, 5)

	report, err := a.MaintenanceReport(context.Background(), "check the fleet")
	require.NoError(t, err)
	assert.Contains(t, report, "Summary of Recent Maintenance Needs")

	// The merger saw both fan-out summaries through its state placeholders.
	assert.Contains(t, provider.lastMerger, "Two vehicles need brake pads.")
	assert.Contains(t, provider.lastMerger, "One open recall affects 3 vehicles.")

	// The request text passes through the fan-out step as the merger's user
	// message; generateContent rejects requests with empty contents.
	assert.Equal(t, "check the fleet", provider.lastMergerInput)
}

func TestHandle_RoutesToSpecialist(t *testing.T) {
	provider := &roleProvider{
		classifierOut: "recall",
		replies: map[string]string{
			"recall assistance": "No recalls affect your fleet today.",
		},
	}
	a, _ := newTestAssistant(t, provider, 5)

	reply, err := a.Handle(context.Background(), "are there open recalls?")
	require.NoError(t, err)
	assert.Equal(t, "No recalls affect your fleet today.", reply)
}

func TestHandle_UnknownRouteFallsBack(t *testing.T) {
	provider := &roleProvider{
		classifierOut: "weather",
		replies: map[string]string{
			"main customer service assistant": "Welcome to AIgentic Fleet Management!",
		},
	}
	a, _ := newTestAssistant(t, provider, 5)

	reply, err := a.Handle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Contains(t, reply, "AIgentic Fleet Management")
}

func TestParseCandidate_MarkdownFences(t *testing.T) {
	fenced := "```json\n[{\"vehicle_id\":\"V1\",\"time\":\"2026-09-05T09:00:00Z\",\"place\":\"Berlin\",\"order_id\":\"O1\"}]\n```"
	entries, err := parseCandidate(fenced)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "V1", entries[0].VehicleID)

	_, err = parseCandidate("not json")
	assert.Error(t, err)
}
