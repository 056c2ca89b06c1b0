package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aigentic/fleetassist/assistant"
	"github.com/aigentic/fleetassist/internal/database"
	"github.com/aigentic/fleetassist/types"
	"github.com/aigentic/fleetassist/workflow"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type reportRequest struct {
	Query string `json:"query"`
}

type reportResponse struct {
	Report string `json:"report"`
}

type scheduleRequest struct {
	OrderID   string `json:"order_id"`
	VehicleID string `json:"vehicle_id,omitempty"`
	Place     string `json:"place,omitempty"`
}

type scheduleResponse struct {
	Outcome string                   `json:"outcome"`
	Rounds  int                      `json:"rounds"`
	Booked  []string                 `json:"booked"`
	Failed  []workflow.CommitFailure `json:"failed,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// serve runs the HTTP API until SIGINT or SIGTERM.
func (a *app) serve() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/v1/chat", a.handleChat)
	mux.HandleFunc("/v1/report", a.handleReport)
	mux.HandleFunc("/v1/schedule", a.handleSchedule)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		a.logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownTimeout := a.cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := database.Ping(ctx, a.warehouse.DB()); err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

func (a *app) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Message == "" {
		a.writeError(w, http.StatusBadRequest,
			types.NewError(types.ErrInvalidRequest, "message must not be empty"))
		return
	}

	start := time.Now()
	reply, err := a.assistant.Handle(r.Context(), req.Message)
	a.metrics.RecordPipelineExecution("chat", statusOf(err), time.Since(start))
	if err != nil {
		a.logger.Error("chat request failed", zap.Error(err))
		a.writeError(w, statusFor(err), err)
		return
	}
	a.writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (a *app) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Query == "" {
		req.Query = "Check the maintenance needs of the fleet."
	}

	start := time.Now()
	report, err := a.assistant.MaintenanceReport(r.Context(), req.Query)
	a.metrics.RecordPipelineExecution("maintenance_report", statusOf(err), time.Since(start))
	if err != nil {
		a.logger.Error("report request failed", zap.Error(err))
		a.writeError(w, statusFor(err), err)
		return
	}
	a.writeJSON(w, http.StatusOK, reportResponse{Report: report})
}

func (a *app) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !a.decode(w, r, &req) {
		return
	}

	start := time.Now()
	result, err := a.assistant.Schedule(r.Context(), assistant.ScheduleRequest{
		OrderID:   req.OrderID,
		VehicleID: req.VehicleID,
		Place:     req.Place,
	})
	a.metrics.RecordPipelineExecution("appointment_scheduling", statusOf(err), time.Since(start))
	if err != nil {
		a.logger.Error("schedule request failed", zap.Error(err))
		a.writeError(w, statusFor(err), err)
		return
	}
	a.metrics.RecordLoopOutcome("schedule_refine", string(result.Outcome), result.Rounds)
	a.metrics.RecordCommit(len(result.Booked), len(result.Failed))

	a.writeJSON(w, http.StatusOK, scheduleResponse{
		Outcome: string(result.Outcome),
		Rounds:  result.Rounds,
		Booked:  result.Booked,
		Failed:  result.Failed,
	})
}

// decode reads a JSON POST body into dest, writing the error response
// itself when the request is unusable.
func (a *app) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if r.Method != http.MethodPost {
		a.writeError(w, http.StatusMethodNotAllowed,
			types.NewError(types.ErrInvalidRequest, "method not allowed"))
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		a.writeError(w, http.StatusBadRequest,
			types.NewError(types.ErrInvalidRequest, "invalid JSON body").WithCause(err))
		return false
	}
	return true
}

func (a *app) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (a *app) writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	if code := types.GetErrorCode(err); code != "" {
		resp.Code = string(code)
	}
	a.writeJSON(w, status, resp)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// statusFor maps assistant error codes to HTTP statuses.
func statusFor(err error) int {
	switch types.GetErrorCode(err) {
	case types.ErrInvalidRequest, types.ErrToolValidation:
		return http.StatusBadRequest
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrRateLimited, types.ErrQuotaExceeded:
		return http.StatusTooManyRequests
	case types.ErrUpstreamTimeout:
		return http.StatusGatewayTimeout
	case types.ErrUpstreamError, types.ErrRecallUpstream, types.ErrProviderUnavailable:
		return http.StatusBadGateway
	case types.ErrServiceUnavail:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
