package payroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrollcore/internal/domain/attendance"
	"payrollcore/internal/domain/audit"
	"payrollcore/internal/domain/directory"
	"payrollcore/internal/domain/policy"
)

type fakePolicies struct {
	pctx *policy.Context
	err  error
}

func (f *fakePolicies) LoadContext(ctx context.Context, asOf time.Time) (*policy.Context, error) {
	return f.pctx, f.err
}

type fakeAttendance struct {
	summaries map[string]attendance.Summary
	err       error
}

func (f *fakeAttendance) Summarize(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (attendance.Summary, error) {
	if f.err != nil {
		return attendance.Summary{}, f.err
	}
	return f.summaries[employeeID], nil
}

type fakeStore struct {
	grants  map[string][]AllowanceGrant
	current map[string]Computation

	saved   []Computation
	entries []audit.Entry
	saveErr error
}

func (f *fakeStore) ApprovedAllowances(ctx context.Context, employeeID string) ([]AllowanceGrant, error) {
	return f.grants[employeeID], nil
}

func (f *fakeStore) SaveComputation(ctx context.Context, comp Computation, entry audit.Entry) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, comp)
	f.entries = append(f.entries, entry)
	if f.current == nil {
		f.current = map[string]Computation{}
	}
	f.current[comp.EmployeeID] = comp
	return nil
}

func (f *fakeStore) CurrentComputation(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (Computation, error) {
	comp, ok := f.current[employeeID]
	if !ok {
		return Computation{}, ErrComputationNotFound
	}
	return comp, nil
}

type fakeDirectory struct {
	employees map[string]directory.Employee
	inactive  map[string]bool
	// ids whose lookup yields a nil record with no error, the way the
	// retrying client reports exhausted empty attempts.
	nilRecords map[string]bool
	err        error
}

func (f *fakeDirectory) EmployeeByID(ctx context.Context, id string) (*directory.Employee, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.nilRecords[id] {
		return nil, nil
	}
	employee, ok := f.employees[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &employee, nil
}

func (f *fakeDirectory) EmployeesByIDs(ctx context.Context, ids []string) (map[string]directory.Employee, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]directory.Employee{}
	for _, id := range ids {
		if employee, ok := f.employees[id]; ok {
			out[id] = employee
		}
	}
	return out, nil
}

func (f *fakeDirectory) IsActive(ctx context.Context, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.nilRecords[id] {
		return true, nil
	}
	if _, ok := f.employees[id]; !ok {
		return false, directory.ErrNotFound
	}
	return !f.inactive[id], nil
}

func (f *fakeDirectory) DepartmentID(ctx context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	employee, ok := f.employees[id]
	if !ok {
		return "", directory.ErrNotFound
	}
	return employee.DepartmentID, nil
}

func testEngine(t *testing.T, dir *fakeDirectory, store *fakeStore) *Engine {
	t.Helper()
	policies := &fakePolicies{pctx: testContext(t, nil, []policy.ContributionRate{
		{ContributionType: policy.ContributionPension, EmployeeRate: d(4.5), SalaryCeiling: d(20000)},
	})}
	att := &fakeAttendance{summaries: map[string]attendance.Summary{
		"emp-1": {PresentDays: 22, WorkingHours: d(176), OvertimeRegularHours: d(2)},
		"emp-2": {PresentDays: 20},
	}}
	return NewEngine(policies, att, dir, store, nil, nil)
}

func period() (time.Time, time.Time) {
	return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
}

func TestComputeForEmployeePersistsResultAndAudit(t *testing.T) {
	dir := &fakeDirectory{employees: map[string]directory.Employee{
		"emp-1": {ID: "emp-1", BaseSalary: d(44000), Position: "Accountant", Status: "active"},
	}}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	start, end := period()
	comp, err := engine.ComputeForEmployee(context.Background(), "run-1", "emp-1", start, end, "tester")
	require.NoError(t, err)

	eq(t, "44625.00", comp.Gross.GrossPay)
	assert.True(t, comp.NetPay.Equal(comp.Gross.GrossPay.Sub(comp.Deductions.Total)))
	assert.NotEmpty(t, comp.ID)

	require.Len(t, store.saved, 1)
	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, audit.ActionSalaryComputed, entry.ActionType)
	assert.Equal(t, "run-1", entry.RunID)
	assert.Equal(t, "emp-1", entry.EmployeeID)
	assert.Equal(t, "tester", entry.PerformedBy)
	assert.NotEmpty(t, entry.NewValues)
	assert.Empty(t, entry.OldValues, "first computation has no prior state")
}

func TestComputeForEmployeeRecordsPriorResultInAudit(t *testing.T) {
	dir := &fakeDirectory{employees: map[string]directory.Employee{
		"emp-1": {ID: "emp-1", BaseSalary: d(44000), Position: "Accountant"},
	}}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	start, end := period()
	ctx := context.Background()
	_, err := engine.ComputeForEmployee(ctx, "run-1", "emp-1", start, end, "tester")
	require.NoError(t, err)
	_, err = engine.ComputeForEmployee(ctx, "run-2", "emp-1", start, end, "tester")
	require.NoError(t, err)

	require.Len(t, store.entries, 2)
	assert.NotEmpty(t, store.entries[1].OldValues, "re-run must snapshot the superseded result")
}

func TestComputeForEmployeeNotFound(t *testing.T) {
	dir := &fakeDirectory{employees: map[string]directory.Employee{}}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	start, end := period()
	_, err := engine.ComputeForEmployee(context.Background(), "", "ghost", start, end, "tester")

	require.ErrorIs(t, err, directory.ErrNotFound)
	assert.Empty(t, store.saved, "nothing may be persisted for an unresolved employee")
}

func TestComputeForEmployeeNilRecordIsNotFound(t *testing.T) {
	dir := &fakeDirectory{nilRecords: map[string]bool{"emp-1": true}}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	start, end := period()
	_, err := engine.ComputeForEmployee(context.Background(), "", "emp-1", start, end, "tester")

	require.ErrorIs(t, err, directory.ErrNotFound)
	assert.Empty(t, store.saved)
}

func TestComputeGrossSalaryNilRecordIsNotFound(t *testing.T) {
	dir := &fakeDirectory{nilRecords: map[string]bool{"emp-1": true}}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	start, end := period()
	_, err := engine.ComputeGrossSalary(context.Background(), "emp-1", start, end)

	require.ErrorIs(t, err, directory.ErrNotFound)
}

func TestRunPeriodClassifiesNilRecordAsNotFound(t *testing.T) {
	dir := &fakeDirectory{
		employees:  map[string]directory.Employee{"emp-1": {ID: "emp-1", BaseSalary: d(44000)}},
		nilRecords: map[string]bool{"emp-2": true},
	}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	start, end := period()
	report, err := engine.RunPeriod(context.Background(), "", []string{"emp-1", "emp-2"}, start, end, "tester")

	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "emp-2", report.Failures[0].EmployeeID)
	assert.Equal(t, FailureNotFound, report.Failures[0].Kind)
}

func TestComputeForEmployeeDirectoryUnavailable(t *testing.T) {
	dir := &fakeDirectory{err: directory.ErrUnavailable}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	start, end := period()
	_, err := engine.ComputeForEmployee(context.Background(), "", "emp-1", start, end, "tester")

	require.ErrorIs(t, err, directory.ErrUnavailable)
	assert.Empty(t, store.saved)
}

func TestComputeGrossSalaryDoesNotPersist(t *testing.T) {
	dir := &fakeDirectory{employees: map[string]directory.Employee{
		"emp-1": {ID: "emp-1", BaseSalary: d(44000), Position: "Accountant"},
	}}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	start, end := period()
	gross, err := engine.ComputeGrossSalary(context.Background(), "emp-1", start, end)

	require.NoError(t, err)
	eq(t, "44625.00", gross.GrossPay)
	assert.Empty(t, store.saved)
	assert.Empty(t, store.entries)
}

func TestRunPeriodPartialFailure(t *testing.T) {
	dir := &fakeDirectory{
		employees: map[string]directory.Employee{
			"emp-1": {ID: "emp-1", BaseSalary: d(44000), Position: "Accountant"},
			"emp-2": {ID: "emp-2", BaseSalary: d(30000), Position: "Billing Clerk"},
		},
		inactive: map[string]bool{"emp-2": true},
	}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	start, end := period()
	report, err := engine.RunPeriod(context.Background(), "", []string{"emp-1", "emp-2", "ghost"}, start, end, "tester")

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Failures, 2)

	kinds := map[string]string{}
	for _, failure := range report.Failures {
		kinds[failure.EmployeeID] = failure.Kind
	}
	assert.Equal(t, FailureInactive, kinds["emp-2"])
	assert.Equal(t, FailureNotFound, kinds["ghost"])

	require.Len(t, store.saved, 1)
	assert.Equal(t, "emp-1", store.saved[0].EmployeeID)
}

func TestRunPeriodAbortsOnConfigError(t *testing.T) {
	dir := &fakeDirectory{employees: map[string]directory.Employee{
		"emp-1": {ID: "emp-1", BaseSalary: d(44000)},
	}}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)
	engine.policies = &fakePolicies{err: policy.ErrNoBracketsForYear}

	start, end := period()
	_, err := engine.RunPeriod(context.Background(), "run-1", []string{"emp-1", "emp-2"}, start, end, "tester")

	require.ErrorIs(t, err, policy.ErrNoBracketsForYear)
	assert.Empty(t, store.saved)
}

func TestRunPeriodStopsOnCancelledContext(t *testing.T) {
	dir := &fakeDirectory{employees: map[string]directory.Employee{}}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start, end := period()
	_, err := engine.RunPeriod(ctx, "run-1", []string{"emp-1"}, start, end, "tester")

	require.ErrorIs(t, err, context.Canceled)
}

func TestRunPeriodGeneratesRunID(t *testing.T) {
	dir := &fakeDirectory{employees: map[string]directory.Employee{
		"emp-1": {ID: "emp-1", BaseSalary: d(44000)},
	}}
	store := &fakeStore{}
	engine := testEngine(t, dir, store)

	start, end := period()
	report, err := engine.RunPeriod(context.Background(), "", []string{"emp-1"}, start, end, "tester")

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, store.saved, 1)
	assert.Equal(t, report.RunID, store.saved[0].RunID)
}

func TestComputeForEmployeeSaveFailure(t *testing.T) {
	dir := &fakeDirectory{employees: map[string]directory.Employee{
		"emp-1": {ID: "emp-1", BaseSalary: d(44000)},
	}}
	store := &fakeStore{saveErr: errors.New("db down")}
	engine := testEngine(t, dir, store)

	start, end := period()
	_, err := engine.ComputeForEmployee(context.Background(), "", "emp-1", start, end, "tester")

	require.Error(t, err)
	assert.Empty(t, store.saved)
}
