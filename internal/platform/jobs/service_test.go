package jobs

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"payrollcore/internal/domain/payroll"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	mu    sync.Mutex
	execs []execCall
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return noRow{}
}

func (f *fakeDB) calls() []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]execCall, len(f.execs))
	copy(out, f.execs)
	return out
}

type noRow struct{}

func (noRow) Scan(_ ...any) error { return pgx.ErrNoRows }

type fakeRunner struct {
	ran chan RunRequest
}

func (f *fakeRunner) RunPeriod(_ context.Context, runID string, employeeIDs []string, periodStart, periodEnd time.Time, actor string) (payroll.RunReport, error) {
	f.ran <- RunRequest{RunID: runID, EmployeeIDs: employeeIDs, PeriodStart: periodStart, PeriodEnd: periodEnd, Actor: actor}
	return payroll.RunReport{RunID: runID, Succeeded: len(employeeIDs)}, nil
}

func hasArg(call execCall, want any) bool {
	for _, arg := range call.args {
		if arg == want {
			return true
		}
	}
	return false
}

func testRequest() RunRequest {
	return RunRequest{
		RunID:       "run-1",
		EmployeeIDs: []string{"emp-1"},
		PeriodStart: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Actor:       "tester",
	}
}

func TestStartFailsInterruptedJobs(t *testing.T) {
	db := &fakeDB{}
	svc := New(db, &fakeRunner{ran: make(chan RunRequest, 1)}, nil, "", slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	calls := db.calls()
	if len(calls) == 0 {
		t.Fatal("expected a recovery update on start")
	}
	sweep := calls[0]
	if !strings.Contains(sweep.sql, "UPDATE job_runs") {
		t.Fatalf("first statement = %q, want job_runs update", sweep.sql)
	}
	if !hasArg(sweep, StatusFailed) || !hasArg(sweep, StatusQueued) || !hasArg(sweep, StatusRunning) {
		t.Fatalf("sweep args = %v, want queued and running rows failed", sweep.args)
	}
}

func TestEnqueueRunReportsFullQueue(t *testing.T) {
	db := &fakeDB{}
	svc := New(db, &fakeRunner{ran: make(chan RunRequest, 1)}, nil, "", slog.Default())
	svc.queue = make(chan queuedRun, 1)

	// no worker running, so the second enqueue finds the queue full
	if _, err := svc.EnqueueRun(context.Background(), testRequest()); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	_, err := svc.EnqueueRun(context.Background(), testRequest())
	if err != ErrQueueFull {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}

	calls := db.calls()
	last := calls[len(calls)-1]
	if !hasArg(last, StatusFailed) {
		t.Fatalf("rejected job must be marked failed, got args %v", last.args)
	}
}

func TestWorkerExecutesQueuedRun(t *testing.T) {
	db := &fakeDB{}
	runner := &fakeRunner{ran: make(chan RunRequest, 1)}
	svc := New(db, runner, nil, "", slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	job, err := svc.EnqueueRun(ctx, testRequest())
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case got := <-runner.ran:
		if got.RunID != "run-1" {
			t.Fatalf("runner got run %q", got.RunID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker never executed the queued run")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		completed := false
		for _, call := range db.calls() {
			if hasArg(call, StatusCompleted) && hasArg(call, job.ID) {
				completed = true
			}
		}
		if completed {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("job row never marked completed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDrainFailsUndrainedJobs(t *testing.T) {
	db := &fakeDB{}
	svc := New(db, &fakeRunner{ran: make(chan RunRequest, 1)}, nil, "", slog.Default())

	// queue without a worker, then stop: both rows must end up failed
	job1, err := svc.EnqueueRun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job2, err := svc.EnqueueRun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	svc.drain()

	failed := map[string]bool{}
	for _, call := range db.calls() {
		if hasArg(call, StatusFailed) {
			for _, id := range []string{job1.ID, job2.ID} {
				if hasArg(call, id) {
					failed[id] = true
				}
			}
		}
	}
	if !failed[job1.ID] || !failed[job2.ID] {
		t.Fatalf("failed rows = %v, want both queued jobs", failed)
	}
}

func TestJobByIDNotFound(t *testing.T) {
	svc := New(&fakeDB{}, &fakeRunner{ran: make(chan RunRequest, 1)}, nil, "", slog.Default())

	_, err := svc.JobByID(context.Background(), "missing")
	if err != ErrJobNotFound {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}
