package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/aigentic/fleetassist/workflow"
)

// Routing keys the front desk delegates to.
const (
	routeRecall      = "recall"
	routeMaintenance = "maintenance"
	routeParts       = "parts"
	routeNotify      = "notify"
	routeFrontDesk   = "frontdesk"
)

const routerInstruction = `You classify a customer request for a fleet management assistant.
Reply with exactly one of these words and nothing else:
- recall: questions about vehicle recalls or safety campaigns
- maintenance: vehicle health, telemetry, or maintenance-need questions
- parts: ordering parts or part order status
- notify: sending a notification to someone
- frontdesk: greetings, thanks, or anything else`

// Router builds the front-desk routing workflow: a classifier agent picks the
// route and the matching specialist handles the request. Unrecognized routes
// fall back to the front desk.
func (a *Assistant) Router() (*workflow.RoutingWorkflow, error) {
	classifier, err := a.newAgent("request_classifier",
		"Classifies customer requests by specialty.", routerInstruction, "")
	if err != nil {
		return nil, err
	}

	router := workflow.NewFuncRouter(func(ctx context.Context, input any) (string, error) {
		request, ok := input.(string)
		if !ok {
			return "", fmt.Errorf("router input must be a string, got %T", input)
		}
		verdict, err := classifier.Run(ctx, request)
		if err != nil {
			return "", err
		}
		return strings.ToLower(strings.TrimSpace(verdict)), nil
	})

	wf := workflow.NewRoutingWorkflow("front_desk_router",
		"Delegates customer requests to the matching specialist agent.", router)

	recallAgent, err := a.RecallAgent()
	if err != nil {
		return nil, err
	}
	maintenance, err := a.PredictiveMaintenanceAgent()
	if err != nil {
		return nil, err
	}
	parts, err := a.PartOrderingAgent()
	if err != nil {
		return nil, err
	}
	notify, err := a.NotificationAgent()
	if err != nil {
		return nil, err
	}
	frontDesk, err := a.FrontDeskAgent()
	if err != nil {
		return nil, err
	}

	wf.RegisterHandler(routeRecall, recallAgent)
	wf.RegisterHandler(routeMaintenance, maintenance)
	wf.RegisterHandler(routeParts, parts)
	wf.RegisterHandler(routeNotify, notify)
	wf.RegisterHandler(routeFrontDesk, frontDesk)
	wf.SetDefaultRoute(routeFrontDesk)
	return wf, nil
}

// Handle routes one customer request to the right agent and returns its reply.
func (a *Assistant) Handle(ctx context.Context, request string) (string, error) {
	router, err := a.Router()
	if err != nil {
		return "", err
	}
	out, err := router.Execute(ctx, request)
	if err != nil {
		return "", err
	}
	reply, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("handler produced %T, want string", out)
	}
	return reply, nil
}
