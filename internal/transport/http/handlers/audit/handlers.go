package audithandler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"payrollcore/internal/domain/audit"
	"payrollcore/internal/requestctx"
	"payrollcore/internal/transport/http/api"
	"payrollcore/internal/transport/http/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Handler struct {
	Log *audit.Logger
}

func NewHandler(log *audit.Logger) *Handler {
	return &Handler{Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/entries", h.handleList)
		r.Post("/approvals", h.handleApproval)
	})
}

type listResponse struct {
	Entries []audit.Entry `json:"entries"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	Size    int           `json:"size"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	filter := audit.Filter{
		RunID:      r.URL.Query().Get("runId"),
		EmployeeID: r.URL.Query().Get("employeeId"),
	}
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	size := queryInt(r, "size", defaultPageSize)
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}

	total, err := h.Log.Count(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_lookup_failed", "failed to count audit entries", reqID)
		return
	}
	entries, err := h.Log.List(r.Context(), filter, size, (page-1)*size)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_lookup_failed", "failed to list audit entries", reqID)
		return
	}
	api.Success(w, listResponse{Entries: entries, Total: total, Page: page, Size: size}, reqID)
}

type approvalPayload struct {
	RunID   string          `json:"runId"`
	Reason  string          `json:"reason"`
	Summary json.RawMessage `json:"summary"`
}

func (h *Handler) handleApproval(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload approvalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body", reqID)
		return
	}
	if payload.RunID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "runId is required", reqID)
		return
	}

	actor := requestctx.GetActorID(r.Context())
	var summary any
	if len(payload.Summary) > 0 {
		summary = payload.Summary
	}
	entry, err := audit.RunApproved(payload.RunID, actor, payload.Reason, summary)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_write_failed", "failed to build audit entry", reqID)
		return
	}
	if err := h.Log.Record(r.Context(), entry); err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_write_failed", "failed to record approval", reqID)
		return
	}
	api.Created(w, entry, reqID)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
