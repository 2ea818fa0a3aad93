package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payrollcore/internal/domain/attendance"
	"payrollcore/internal/domain/audit"
	"payrollcore/internal/domain/directory"
	"payrollcore/internal/domain/policy"
	"payrollcore/internal/platform/metrics"
)

type PolicySource interface {
	LoadContext(ctx context.Context, asOf time.Time) (*policy.Context, error)
}

type AttendanceSource interface {
	Summarize(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (attendance.Summary, error)
}

type ResultStore interface {
	ApprovedAllowances(ctx context.Context, employeeID string) ([]AllowanceGrant, error)
	SaveComputation(ctx context.Context, comp Computation, entry audit.Entry) error
	CurrentComputation(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (Computation, error)
}

// Engine runs one payroll computation per (employee, period): resolve
// the employee through the resilient directory client, aggregate
// attendance, compute gross and statutory deductions, persist the result
// together with its audit entry.
type Engine struct {
	policies   PolicySource
	attendance AttendanceSource
	directory  directory.Client
	store      ResultStore
	metrics    *metrics.Collector
	log        *slog.Logger
}

func NewEngine(policies PolicySource, att AttendanceSource, dir directory.Client, store ResultStore, collector *metrics.Collector, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		policies:   policies,
		attendance: att,
		directory:  dir,
		store:      store,
		metrics:    collector,
		log:        log,
	}
}

// ComputeGrossSalary derives the earnings breakdown without persisting
// anything.
func (e *Engine) ComputeGrossSalary(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (GrossPay, error) {
	pctx, err := e.policies.LoadContext(ctx, periodEnd)
	if err != nil {
		return GrossPay{}, err
	}

	employee, err := e.resolveEmployee(ctx, employeeID)
	if err != nil {
		return GrossPay{}, err
	}

	summary, err := e.attendance.Summarize(ctx, employeeID, periodStart, periodEnd)
	if err != nil {
		return GrossPay{}, fmt.Errorf("aggregate attendance for %s: %w", employeeID, err)
	}

	grants, err := e.store.ApprovedAllowances(ctx, employeeID)
	if err != nil {
		return GrossPay{}, fmt.Errorf("load allowances for %s: %w", employeeID, err)
	}

	return ComputeGross(*employee, summary, grants, pctx), nil
}

// CalculateStatutoryDeductions computes contributions and withholding
// tax for an already-known gross salary.
func (e *Engine) CalculateStatutoryDeductions(ctx context.Context, gross decimal.Decimal, asOf time.Time) (Deductions, error) {
	pctx, err := e.policies.LoadContext(ctx, asOf)
	if err != nil {
		return Deductions{}, err
	}
	return ComputeDeductions(gross, pctx), nil
}

// ComputeForEmployee runs the full pipeline for one employee and
// persists the result with its audit entry. A prior current result for
// the same period is superseded, and its snapshot lands in the audit
// entry's old values.
func (e *Engine) ComputeForEmployee(ctx context.Context, runID, employeeID string, periodStart, periodEnd time.Time, actor string) (Computation, error) {
	started := time.Now()
	comp, err := e.computeAndPersist(ctx, runID, employeeID, periodStart, periodEnd, actor)
	e.metrics.RecordComputation(err != nil, time.Since(started))
	return comp, err
}

func (e *Engine) computeAndPersist(ctx context.Context, runID, employeeID string, periodStart, periodEnd time.Time, actor string) (Computation, error) {
	pctx, err := e.policies.LoadContext(ctx, periodEnd)
	if err != nil {
		return Computation{}, err
	}

	employee, err := e.resolveEmployee(ctx, employeeID)
	if err != nil {
		return Computation{}, err
	}

	summary, err := e.attendance.Summarize(ctx, employeeID, periodStart, periodEnd)
	if err != nil {
		return Computation{}, fmt.Errorf("aggregate attendance for %s: %w", employeeID, err)
	}

	grants, err := e.store.ApprovedAllowances(ctx, employeeID)
	if err != nil {
		return Computation{}, fmt.Errorf("load allowances for %s: %w", employeeID, err)
	}

	gross := ComputeGross(*employee, summary, grants, pctx)
	deductions := ComputeDeductions(gross.GrossPay, pctx)

	comp := Computation{
		ID:          uuid.NewString(),
		RunID:       runID,
		EmployeeID:  employeeID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Gross:       gross,
		Deductions:  deductions,
		NetPay:      gross.GrossPay.Sub(deductions.Total).Round(2),
		CreatedAt:   time.Now().UTC(),
	}

	var oldValues any
	if prior, err := e.store.CurrentComputation(ctx, employeeID, periodStart, periodEnd); err == nil {
		oldValues = prior
	} else if !errors.Is(err, ErrComputationNotFound) {
		return Computation{}, err
	}

	entry, err := audit.SalaryComputed(runID, employeeID, actor, oldValues, comp)
	if err != nil {
		return Computation{}, err
	}

	if err := e.store.SaveComputation(ctx, comp, entry); err != nil {
		return Computation{}, fmt.Errorf("persist computation for %s: %w", employeeID, err)
	}

	e.log.Info("salary computed",
		"employeeId", employeeID,
		"periodStart", periodStart.Format("2006-01-02"),
		"periodEnd", periodEnd.Format("2006-01-02"),
		"gross", gross.GrossPay.StringFixed(2),
		"net", comp.NetPay.StringFixed(2),
	)
	return comp, nil
}

// RunPeriod computes every listed employee with partial-failure
// semantics: one employee's failure is recorded and the loop continues,
// except for configuration errors, which abort the whole run.
func (e *Engine) RunPeriod(ctx context.Context, runID string, employeeIDs []string, periodStart, periodEnd time.Time, actor string) (RunReport, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	report := RunReport{RunID: runID}

	for _, employeeID := range employeeIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		active, err := e.directory.IsActive(ctx, employeeID)
		if err == nil && !active {
			report.Failures = append(report.Failures, RunFailure{
				EmployeeID: employeeID,
				Kind:       FailureInactive,
				Message:    ErrEmployeeInactive.Error(),
			})
			continue
		}
		// IsActive errors fall through: ComputeForEmployee resolves the
		// employee itself and classifies the failure.

		if _, err := e.ComputeForEmployee(ctx, runID, employeeID, periodStart, periodEnd, actor); err != nil {
			if isConfigError(err) {
				return report, err
			}
			report.Failures = append(report.Failures, classify(employeeID, err))
			continue
		}
		report.Succeeded++
	}
	return report, nil
}

// resolveEmployee looks up the employee and normalizes the directory's two
// absence signals, an ErrNotFound error and a nil record with no error, into
// ErrNotFound.
func (e *Engine) resolveEmployee(ctx context.Context, employeeID string) (*directory.Employee, error) {
	employee, err := e.directory.EmployeeByID(ctx, employeeID)
	if err == nil && employee == nil {
		err = directory.ErrNotFound
	}
	if err != nil {
		return nil, e.directoryOutcome(employeeID, err)
	}
	return employee, nil
}

func (e *Engine) directoryOutcome(employeeID string, err error) error {
	if errors.Is(err, directory.ErrUnavailable) {
		e.metrics.RecordDirectoryUnavailable()
		e.log.Warn("employee directory unavailable", "employeeId", employeeID)
		return err
	}
	if errors.Is(err, directory.ErrNotFound) {
		e.log.Warn("employee not found", "employeeId", employeeID)
		return err
	}
	return fmt.Errorf("resolve employee %s: %w", employeeID, err)
}

func isConfigError(err error) bool {
	return errors.Is(err, policy.ErrNoBracketsForYear) ||
		errors.Is(err, policy.ErrBracketCoverage) ||
		errors.Is(err, policy.ErrMalformedPolicy)
}

func classify(employeeID string, err error) RunFailure {
	kind := FailureInternal
	switch {
	case errors.Is(err, directory.ErrNotFound):
		kind = FailureNotFound
	case errors.Is(err, directory.ErrUnavailable):
		kind = FailureUnavailable
	}
	return RunFailure{EmployeeID: employeeID, Kind: kind, Message: err.Error()}
}
