package payrollhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"payrollcore/internal/domain/directory"
	"payrollcore/internal/domain/payroll"
	"payrollcore/internal/domain/policy"
	"payrollcore/internal/platform/jobs"
	"payrollcore/internal/requestctx"
	"payrollcore/internal/transport/http/api"
	"payrollcore/internal/transport/http/middleware"
)

type Handler struct {
	Engine   *payroll.Engine
	Store    *payroll.Store
	Payslips *payroll.PayslipService
	Jobs     *jobs.Service
}

func NewHandler(engine *payroll.Engine, store *payroll.Store, payslips *payroll.PayslipService, jobService *jobs.Service) *Handler {
	return &Handler{Engine: engine, Store: store, Payslips: payslips, Jobs: jobService}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.Post("/computations", h.handleCompute)
		r.Get("/computations", h.handleGetCurrent)
		r.Post("/computations/{computationID}/payslip", h.handleGeneratePayslip)
		r.Post("/runs", h.handleRun)
		r.Post("/runs/async", h.handleRunAsync)
		r.Get("/runs/{runID}/computations", h.handleRunComputations)
		r.Get("/jobs/{jobID}", h.handleJobStatus)
		r.Post("/gross", h.handleGross)
		r.Post("/deductions", h.handleDeductions)
	})
}

type computePayload struct {
	EmployeeID  string `json:"employeeId"`
	RunID       string `json:"runId"`
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload computePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body", reqID)
		return
	}
	start, end, ok := parsePeriod(w, payload.PeriodStart, payload.PeriodEnd, reqID)
	if !ok {
		return
	}
	if payload.EmployeeID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "employeeId is required", reqID)
		return
	}

	actor := requestctx.GetActorID(r.Context())
	comp, err := h.Engine.ComputeForEmployee(r.Context(), payload.RunID, payload.EmployeeID, start, end, actor)
	if err != nil {
		failComputation(w, err, reqID)
		return
	}
	api.Created(w, comp, reqID)
}

func (h *Handler) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_query", "employeeId is required", reqID)
		return
	}
	start, end, ok := parsePeriod(w, r.URL.Query().Get("periodStart"), r.URL.Query().Get("periodEnd"), reqID)
	if !ok {
		return
	}

	comp, err := h.Store.CurrentComputation(r.Context(), employeeID, start, end)
	if err != nil {
		if errors.Is(err, payroll.ErrComputationNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "no computation for employee and period", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "computation_lookup_failed", "failed to load computation", reqID)
		return
	}
	api.Success(w, comp, reqID)
}

type runPayload struct {
	RunID       string   `json:"runId"`
	EmployeeIDs []string `json:"employeeIds"`
	PeriodStart string   `json:"periodStart"`
	PeriodEnd   string   `json:"periodEnd"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload runPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body", reqID)
		return
	}
	if len(payload.EmployeeIDs) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "employeeIds is required", reqID)
		return
	}
	start, end, ok := parsePeriod(w, payload.PeriodStart, payload.PeriodEnd, reqID)
	if !ok {
		return
	}

	actor := requestctx.GetActorID(r.Context())
	report, err := h.Engine.RunPeriod(r.Context(), payload.RunID, payload.EmployeeIDs, start, end, actor)
	if err != nil {
		failComputation(w, err, reqID)
		return
	}
	api.Success(w, report, reqID)
}

func (h *Handler) handleRunAsync(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload runPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body", reqID)
		return
	}
	if len(payload.EmployeeIDs) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "employeeIds is required", reqID)
		return
	}
	start, end, ok := parsePeriod(w, payload.PeriodStart, payload.PeriodEnd, reqID)
	if !ok {
		return
	}

	job, err := h.Jobs.EnqueueRun(r.Context(), jobs.RunRequest{
		RunID:       payload.RunID,
		EmployeeIDs: payload.EmployeeIDs,
		PeriodStart: start,
		PeriodEnd:   end,
		Actor:       requestctx.GetActorID(r.Context()),
	})
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			api.Fail(w, http.StatusServiceUnavailable, "queue_full", "run queue is full, retry later", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "enqueue_failed", "failed to enqueue run", reqID)
		return
	}
	api.Created(w, job, reqID)
}

func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	jobID := chi.URLParam(r, "jobID")

	job, err := h.Jobs.JobByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "job not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "job_lookup_failed", "failed to load job", reqID)
		return
	}
	api.Success(w, job, reqID)
}

func (h *Handler) handleRunComputations(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	runID := chi.URLParam(r, "runID")

	comps, err := h.Store.ComputationsForRun(r.Context(), runID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "computation_lookup_failed", "failed to list run computations", reqID)
		return
	}
	api.Success(w, comps, reqID)
}

func (h *Handler) handleGeneratePayslip(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	computationID := chi.URLParam(r, "computationID")

	actor := requestctx.GetActorID(r.Context())
	filePath, err := h.Payslips.Generate(r.Context(), computationID, actor)
	if err != nil {
		if errors.Is(err, payroll.ErrComputationNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "computation not found", reqID)
			return
		}
		failComputation(w, err, reqID)
		return
	}
	api.Created(w, map[string]string{"fileUrl": filePath}, reqID)
}

type grossPayload struct {
	EmployeeID  string `json:"employeeId"`
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

func (h *Handler) handleGross(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload grossPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body", reqID)
		return
	}
	if payload.EmployeeID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "employeeId is required", reqID)
		return
	}
	start, end, ok := parsePeriod(w, payload.PeriodStart, payload.PeriodEnd, reqID)
	if !ok {
		return
	}

	gross, err := h.Engine.ComputeGrossSalary(r.Context(), payload.EmployeeID, start, end)
	if err != nil {
		failComputation(w, err, reqID)
		return
	}
	api.Success(w, gross, reqID)
}

type deductionsPayload struct {
	GrossSalary string `json:"grossSalary"`
	AsOf        string `json:"asOf"`
}

func (h *Handler) handleDeductions(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload deductionsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid JSON body", reqID)
		return
	}
	gross, err := decimal.NewFromString(payload.GrossSalary)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "grossSalary must be a decimal string", reqID)
		return
	}
	asOf := time.Now()
	if payload.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "asOf must be YYYY-MM-DD", reqID)
			return
		}
		asOf = parsed
	}

	deductions, err := h.Engine.CalculateStatutoryDeductions(r.Context(), gross, asOf)
	if err != nil {
		failComputation(w, err, reqID)
		return
	}
	api.Success(w, deductions, reqID)
}

func parsePeriod(w http.ResponseWriter, startRaw, endRaw, reqID string) (time.Time, time.Time, bool) {
	start, err := time.Parse("2006-01-02", startRaw)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "periodStart must be YYYY-MM-DD", reqID)
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse("2006-01-02", endRaw)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "periodEnd must be YYYY-MM-DD", reqID)
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "periodEnd must not precede periodStart", reqID)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func failComputation(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found in directory", reqID)
	case errors.Is(err, directory.ErrUnavailable):
		api.Fail(w, http.StatusServiceUnavailable, "directory_unavailable", "employee directory unavailable", reqID)
	case errors.Is(err, policy.ErrNoBracketsForYear),
		errors.Is(err, policy.ErrBracketCoverage),
		errors.Is(err, policy.ErrMalformedPolicy):
		api.Fail(w, http.StatusInternalServerError, "policy_configuration", err.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "computation_failed", "payroll computation failed", reqID)
	}
}
