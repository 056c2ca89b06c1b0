package workflow

import (
	"context"
	"fmt"
	"sync"
)

// Router decides which handler should process an input.
type Router interface {
	// Route returns the routing key for the input.
	Route(ctx context.Context, input any) (string, error)
}

// RouterFunc adapts a function to the Router interface.
type RouterFunc func(ctx context.Context, input any) (string, error)

// FuncRouter wraps a function as a Router.
type FuncRouter struct {
	fn RouterFunc
}

// NewFuncRouter creates a function router.
func NewFuncRouter(fn RouterFunc) *FuncRouter {
	return &FuncRouter{fn: fn}
}

func (r *FuncRouter) Route(ctx context.Context, input any) (string, error) {
	return r.fn(ctx, input)
}

// Handler is a named processor an input can be routed to.
type Handler interface {
	Runnable
	// Name returns the handler name.
	Name() string
}

// RoutingWorkflow classifies an input and dispatches it to a specialized
// handler. The fleet assistant uses it for the front-desk agent delegating
// requests to its sub-agents.
type RoutingWorkflow struct {
	name         string
	description  string
	router       Router
	handlers     map[string]Handler
	defaultRoute string
	// mu protects handlers against concurrent RegisterHandler and Execute.
	mu sync.RWMutex
}

// NewRoutingWorkflow creates a routing workflow.
func NewRoutingWorkflow(name, description string, router Router) *RoutingWorkflow {
	return &RoutingWorkflow{
		name:        name,
		description: description,
		router:      router,
		handlers:    make(map[string]Handler),
	}
}

// RegisterHandler registers a handler under a routing key.
func (w *RoutingWorkflow) RegisterHandler(route string, handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[route] = handler
}

// SetDefaultRoute sets the fallback route used when the router returns an
// unknown key.
func (w *RoutingWorkflow) SetDefaultRoute(route string) {
	w.defaultRoute = route
}

// Execute routes the input and runs the selected handler.
func (w *RoutingWorkflow) Execute(ctx context.Context, input any) (any, error) {
	route, err := w.router.Route(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("routing failed: %w", err)
	}

	w.mu.RLock()
	handler, ok := w.handlers[route]
	if !ok && w.defaultRoute != "" {
		handler, ok = w.handlers[w.defaultRoute]
	}
	w.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no handler for route: %s", route)
	}

	result, err := handler.Execute(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("handler %s failed: %w", handler.Name(), err)
	}

	return result, nil
}

func (w *RoutingWorkflow) Name() string {
	return w.name
}

func (w *RoutingWorkflow) Description() string {
	return w.description
}

// Routes returns all registered routing keys.
func (w *RoutingWorkflow) Routes() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	routes := make([]string, 0, len(w.handlers))
	for route := range w.handlers {
		routes = append(routes, route)
	}
	return routes
}
