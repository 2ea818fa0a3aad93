package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"payrollcore/internal/domain/payroll"
	"payrollcore/internal/platform/email"
)

const JobPayrollRun = "payroll_run"

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrQueueFull   = errors.New("job queue full")
)

// Runner executes a payroll run. Satisfied by the payroll engine.
type Runner interface {
	RunPeriod(ctx context.Context, runID string, employeeIDs []string, periodStart, periodEnd time.Time, actor string) (payroll.RunReport, error)
}

// DB is the slice of pgxpool.Pool the service needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type RunRequest struct {
	RunID       string    `json:"runId"`
	EmployeeIDs []string  `json:"employeeIds"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Actor       string    `json:"actor"`
}

// Job is one persisted run of a background payroll computation.
type Job struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	RunID       string          `json:"runId"`
	Details     json.RawMessage `json:"details,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Service runs payroll batches off the request path. One worker drains
// the queue so concurrent runs never compute the same period twice at
// once.
type Service struct {
	DB     DB
	runner Runner
	mailer email.Mailer

	notifyTo string
	queue    chan queuedRun
	log      *slog.Logger
}

type queuedRun struct {
	jobID   string
	request RunRequest
}

func New(db DB, runner Runner, mailer email.Mailer, notifyTo string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		DB:       db,
		runner:   runner,
		mailer:   mailer,
		notifyTo: notifyTo,
		queue:    make(chan queuedRun, 32),
		log:      log,
	}
}

// Start recovers rows orphaned by an earlier process before accepting
// new work. The queue is in memory, so a queued or running row that
// survived a restart can never execute again.
func (s *Service) Start(ctx context.Context) {
	s.recoverInterrupted(ctx)
	go s.worker(ctx)
}

func (s *Service) recoverInterrupted(ctx context.Context) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE job_runs
		SET status = $1, error_message = $2, completed_at = now()
		WHERE status IN ($3, $4)
	`, StatusFailed, "interrupted by restart", StatusQueued, StatusRunning)
	if err != nil {
		s.log.Warn("interrupted job recovery failed", "err", err)
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		s.log.Info("marked interrupted jobs failed", "count", n)
	}
}

// EnqueueRun persists a queued job row and hands the run to the worker.
// A full queue is reported to the caller instead of silently dropping
// the run.
func (s *Service) EnqueueRun(ctx context.Context, request RunRequest) (Job, error) {
	if request.RunID == "" {
		request.RunID = uuid.NewString()
	}
	job := Job{
		ID:        uuid.NewString(),
		JobType:   JobPayrollRun,
		Status:    StatusQueued,
		RunID:     request.RunID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.DB.Exec(ctx, `
		INSERT INTO job_runs (id, job_type, status, run_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, job.ID, job.JobType, job.Status, job.RunID, job.CreatedAt); err != nil {
		return Job{}, fmt.Errorf("insert job run: %w", err)
	}

	select {
	case s.queue <- queuedRun{jobID: job.ID, request: request}:
		return job, nil
	default:
		s.markFailed(ctx, job.ID, ErrQueueFull.Error())
		return Job{}, ErrQueueFull
	}
}

func (s *Service) JobByID(ctx context.Context, id string) (Job, error) {
	var job Job
	var completedAt *time.Time
	err := s.DB.QueryRow(ctx, `
		SELECT id, job_type, status, run_id, COALESCE(details_json, 'null'::jsonb),
		       COALESCE(error_message, ''), created_at, completed_at
		FROM job_runs
		WHERE id = $1
	`, id).Scan(&job.ID, &job.JobType, &job.Status, &job.RunID, &job.Details, &job.Error, &job.CreatedAt, &completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, err
	}
	job.CompletedAt = completedAt
	return job, nil
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case queued := <-s.queue:
			s.execute(ctx, queued)
		}
	}
}

// drain fails whatever is still queued when the worker stops, so the
// rows do not sit in the queued state until the next restart sweeps
// them. Uses a fresh context since the worker's is already cancelled.
func (s *Service) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case queued := <-s.queue:
			s.markFailed(ctx, queued.jobID, "interrupted by shutdown")
		default:
			return
		}
	}
}

func (s *Service) execute(ctx context.Context, queued queuedRun) {
	if _, err := s.DB.Exec(ctx, `
		UPDATE job_runs SET status = $1 WHERE id = $2
	`, StatusRunning, queued.jobID); err != nil {
		s.log.Warn("job status update failed", "jobId", queued.jobID, "err", err)
	}

	request := queued.request
	report, err := s.runner.RunPeriod(ctx, request.RunID, request.EmployeeIDs, request.PeriodStart, request.PeriodEnd, request.Actor)
	if err != nil {
		s.log.Warn("payroll run job failed", "jobId", queued.jobID, "runId", request.RunID, "err", err)
		s.markFailed(ctx, queued.jobID, err.Error())
		s.notify(ctx, request, report, err)
		return
	}

	details, marshalErr := json.Marshal(report)
	if marshalErr != nil {
		s.log.Warn("run report marshal failed", "jobId", queued.jobID, "err", marshalErr)
		details = []byte("{}")
	}
	if _, err := s.DB.Exec(ctx, `
		UPDATE job_runs
		SET status = $1, details_json = $2, completed_at = now()
		WHERE id = $3
	`, StatusCompleted, details, queued.jobID); err != nil {
		s.log.Warn("job completion update failed", "jobId", queued.jobID, "err", err)
	}

	s.log.Info("payroll run job completed",
		"jobId", queued.jobID,
		"runId", report.RunID,
		"succeeded", report.Succeeded,
		"failed", len(report.Failures),
	)
	s.notify(ctx, request, report, nil)
}

func (s *Service) markFailed(ctx context.Context, jobID, message string) {
	if _, err := s.DB.Exec(ctx, `
		UPDATE job_runs
		SET status = $1, error_message = $2, completed_at = now()
		WHERE id = $3
	`, StatusFailed, message, jobID); err != nil {
		s.log.Warn("job failure update failed", "jobId", jobID, "err", err)
	}
}

func (s *Service) notify(ctx context.Context, request RunRequest, report payroll.RunReport, runErr error) {
	if s.mailer == nil || s.notifyTo == "" {
		return
	}
	subject := fmt.Sprintf("Payroll run %s completed", request.RunID)
	body := fmt.Sprintf("Period %s to %s: %d succeeded, %d failed.",
		request.PeriodStart.Format("2006-01-02"),
		request.PeriodEnd.Format("2006-01-02"),
		report.Succeeded,
		len(report.Failures),
	)
	if runErr != nil {
		subject = fmt.Sprintf("Payroll run %s aborted", request.RunID)
		body = fmt.Sprintf("Period %s to %s: %v",
			request.PeriodStart.Format("2006-01-02"),
			request.PeriodEnd.Format("2006-01-02"),
			runErr,
		)
	}
	if err := s.mailer.Send(ctx, s.notifyTo, subject, body); err != nil {
		s.log.Warn("run notification failed", "runId", request.RunID, "err", err)
	}
}
