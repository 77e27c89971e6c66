package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	otelx "github.com/arcwell-foundry/aria/internal/adapter/otel"
	"github.com/arcwell-foundry/aria/internal/domain/action"
	"github.com/arcwell-foundry/aria/internal/domain/agent"
	"github.com/arcwell-foundry/aria/internal/domain/decision"
	"github.com/arcwell-foundry/aria/internal/domain/evaluation"
	"github.com/arcwell-foundry/aria/internal/port/database"
	"github.com/arcwell-foundry/aria/internal/service"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Handlers carries the services the HTTP layer fronts.
type Handlers struct {
	Engine   *service.DecisionEngine
	Executor *service.TrustGatedExecutor
	Store    database.Store
	Metrics  *otelx.Metrics
}

type evaluationRequest struct {
	AgentRole               string                   `json:"agent_role"`
	UnitID                  string                   `json:"unit_id"`
	OwnerID                 string                   `json:"owner_id"`
	Category                string                   `json:"category,omitempty"`
	Output                  map[string]any           `json:"output"`
	Confidence              float64                  `json:"confidence"`
	DurationSeconds         float64                  `json:"duration_seconds"`
	ExpectedDurationSeconds float64                  `json:"expected_duration_seconds"`
	Verification            *evaluation.Verification `json:"verification,omitempty"`
	TraceID                 string                   `json:"trace_id,omitempty"`
	Risk                    *decision.RiskProfile    `json:"risk,omitempty"`
	AlreadyTried            []string                 `json:"already_tried,omitempty"`
}

type evaluationResponse struct {
	Decision  *decision.Decision `json:"decision"`
	Escalated bool               `json:"escalated"`
}

// Evaluate runs one evaluation through the decision engine. Escalation is
// reported inside a successful envelope, never as an HTTP error, so the
// caller can route to human review without a failure branch.
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[evaluationRequest](w, r)
	if !ok {
		return
	}
	if req.UnitID == "" || req.AgentRole == "" {
		writeError(w, http.StatusBadRequest, "unit_id and agent_role are required")
		return
	}

	ev := &evaluation.Evaluation{
		AgentRole:        agent.Role(req.AgentRole),
		UnitID:           req.UnitID,
		OwnerID:          req.OwnerID,
		Category:         action.Category(req.Category),
		Output:           req.Output,
		Confidence:       req.Confidence,
		Duration:         time.Duration(req.DurationSeconds * float64(time.Second)),
		ExpectedDuration: time.Duration(req.ExpectedDurationSeconds * float64(time.Second)),
		Verification:     req.Verification,
		TraceID:          req.TraceID,
	}

	tried := make(map[agent.Role]bool, len(req.AlreadyTried))
	for _, role := range req.AlreadyTried {
		tried[agent.Role(role)] = true
	}

	d := h.Engine.Evaluate(r.Context(), ev, req.Risk, tried)

	if h.Metrics != nil {
		h.Metrics.Decisions.Add(r.Context(), 1,
			metric.WithAttributes(attribute.String("kind", string(d.Kind))))
		if d.Kind == decision.KindEscalate {
			h.Metrics.Escalations.Add(r.Context(), 1)
		}
	}

	writeJSON(w, http.StatusOK, evaluationResponse{
		Decision:  d,
		Escalated: d.Kind == decision.KindEscalate,
	})
}

type actionRequest struct {
	OwnerID       string         `json:"owner_id"`
	Category      string         `json:"category"`
	Payload       map[string]any `json:"payload,omitempty"`
	PreviousState map[string]any `json:"previous_state,omitempty"`
	Risk          float64        `json:"risk"`
}

type actionResponse struct {
	ActionID string               `json:"action_id"`
	Mode     action.ExecutionMode `json:"mode"`
	Status   action.Status        `json:"status"`
	Result   map[string]any       `json:"result,omitempty"`
}

// SubmitAction records a new action and routes it by the owner's trust
// level. High trust executes immediately, medium trust executes with an
// undo window, and anything below that parks the action queued for
// approval.
func (h *Handlers) SubmitAction(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[actionRequest](w, r)
	if !ok {
		return
	}
	if req.OwnerID == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "owner_id and category are required")
		return
	}

	now := time.Now().UTC()
	a := &action.Action{
		ID:            uuid.NewString(),
		OwnerID:       req.OwnerID,
		Category:      action.Category(req.Category),
		Status:        action.StatusQueued,
		Payload:       req.Payload,
		PreviousState: req.PreviousState,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.Store.CreateAction(r.Context(), a); err != nil {
		writeError(w, http.StatusInternalServerError, "create action failed")
		return
	}

	mode, err := h.Executor.DetermineMode(r.Context(), a.OwnerID, a.Category, req.Risk)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "trust lookup failed")
		return
	}

	switch mode {
	case action.ModeAutoExecute:
		result, err := h.Executor.Execute(r.Context(), a)
		if err != nil {
			writeError(w, http.StatusBadGateway, "action dispatch failed")
			return
		}
		writeJSON(w, http.StatusOK, actionResponse{
			ActionID: a.ID, Mode: mode, Status: action.StatusCompleted, Result: result,
		})
	case action.ModeExecuteAndNotify:
		result, err := h.Executor.ExecuteWithUndo(r.Context(), a)
		if err != nil {
			writeError(w, http.StatusBadGateway, "action dispatch failed")
			return
		}
		writeJSON(w, http.StatusOK, actionResponse{
			ActionID: a.ID, Mode: mode, Status: action.StatusUndoPending, Result: result,
		})
	default:
		writeJSON(w, http.StatusAccepted, actionResponse{
			ActionID: a.ID, Mode: mode, Status: action.StatusQueued,
		})
	}
}

type undoRequest struct {
	OwnerID string `json:"owner_id"`
}

// RequestUndo rolls back a reversible action inside its undo window.
func (h *Handlers) RequestUndo(w http.ResponseWriter, r *http.Request) {
	actionID := chi.URLParam(r, "id")
	req, ok := readJSON[undoRequest](w, r)
	if !ok {
		return
	}

	outcome, err := h.Executor.RequestUndo(r.Context(), actionID, req.OwnerID)
	switch {
	case errors.Is(err, service.ErrNoUndoEntry):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, service.ErrUndoAlreadyRequested):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, service.ErrUndoWindowExpired):
		writeError(w, http.StatusGone, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "undo failed")
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// ListEscalations returns the human review inbox, newest first.
func (h *Handlers) ListEscalations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	escalations, err := h.Store.ListEscalations(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list escalations failed")
		return
	}
	if escalations == nil {
		escalations = []decision.Escalation{}
	}
	writeJSON(w, http.StatusOK, escalations)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
