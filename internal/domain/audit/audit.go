package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionSalaryComputed   = "salary_computed"
	ActionRunApproved      = "run_approved"
	ActionPayslipGenerated = "payslip_generated"
	ActionAdjustment       = "adjustment"
)

// Entry is one immutable audit record. Entries are only ever appended;
// corrections are new entries carrying the prior state in OldValues.
type Entry struct {
	ID          string          `json:"id"`
	ActionType  string          `json:"actionType"`
	RunID       string          `json:"runId,omitempty"`
	PayslipID   string          `json:"payslipId,omitempty"`
	EmployeeID  string          `json:"employeeId,omitempty"`
	PerformedBy string          `json:"performedBy"`
	OldValues   json.RawMessage `json:"oldValues,omitempty"`
	NewValues   json.RawMessage `json:"newValues,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	ActionDate  time.Time       `json:"actionDate"`
}

type Filter struct {
	RunID      string
	EmployeeID string
}

type Logger struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Logger {
	return &Logger{DB: db}
}

// NewEntry builds an entry, serializing the old/new snapshots. Every
// specialized helper funnels through here.
func NewEntry(actionType, runID, payslipID, employeeID, actor string, oldValues, newValues any, reason string) (Entry, error) {
	entry := Entry{
		ID:          uuid.NewString(),
		ActionType:  actionType,
		RunID:       runID,
		PayslipID:   payslipID,
		EmployeeID:  employeeID,
		PerformedBy: actor,
		Reason:      reason,
		ActionDate:  time.Now().UTC(),
	}
	if oldValues != nil {
		payload, err := json.Marshal(oldValues)
		if err != nil {
			return Entry{}, err
		}
		entry.OldValues = payload
	}
	if newValues != nil {
		payload, err := json.Marshal(newValues)
		if err != nil {
			return Entry{}, err
		}
		entry.NewValues = payload
	}
	return entry, nil
}

func SalaryComputed(runID, employeeID, actor string, oldResult, newResult any) (Entry, error) {
	return NewEntry(ActionSalaryComputed, runID, "", employeeID, actor, oldResult, newResult, "")
}

func RunApproved(runID, actor, reason string, summary any) (Entry, error) {
	return NewEntry(ActionRunApproved, runID, "", "", actor, nil, summary, reason)
}

func PayslipGenerated(payslipID, employeeID, actor string, details any) (Entry, error) {
	return NewEntry(ActionPayslipGenerated, "", payslipID, employeeID, actor, nil, details, "")
}

func Adjustment(runID, employeeID, actor, reason string, oldValues, newValues any) (Entry, error) {
	return NewEntry(ActionAdjustment, runID, "", employeeID, actor, oldValues, newValues, reason)
}

func (l *Logger) Record(ctx context.Context, entry Entry) error {
	_, err := l.DB.Exec(ctx, insertSQL, insertArgs(entry)...)
	return err
}

// RecordTx appends inside the caller's transaction, so a computation row
// and its audit entry commit or roll back together.
func RecordTx(ctx context.Context, tx pgx.Tx, entry Entry) error {
	_, err := tx.Exec(ctx, insertSQL, insertArgs(entry)...)
	return err
}

const insertSQL = `
  INSERT INTO audit_log (id, action_type, run_id, payslip_id, employee_id, performed_by, old_values, new_values, reason, action_date)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func insertArgs(entry Entry) []any {
	return []any{
		entry.ID, entry.ActionType,
		nullIfEmpty(entry.RunID), nullIfEmpty(entry.PayslipID), nullIfEmpty(entry.EmployeeID),
		entry.PerformedBy,
		[]byte(entry.OldValues), []byte(entry.NewValues),
		nullIfEmpty(entry.Reason), entry.ActionDate,
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (l *Logger) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := l.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// List returns matching entries newest first.
func (l *Logger) List(ctx context.Context, filter Filter, limit, offset int) ([]Entry, error) {
	query, args := buildBaseQuery(`
    SELECT id, action_type, COALESCE(run_id::text, ''), COALESCE(payslip_id::text, ''),
           COALESCE(employee_id::text, ''), performed_by, old_values, new_values,
           COALESCE(reason, ''), action_date`, filter)
	query += fmt.Sprintf(" ORDER BY action_date DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := l.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.ActionType, &entry.RunID, &entry.PayslipID,
			&entry.EmployeeID, &entry.PerformedBy, &entry.OldValues, &entry.NewValues,
			&entry.Reason, &entry.ActionDate); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_log WHERE 1=1"
	var args []any
	if filter.RunID != "" {
		args = append(args, filter.RunID)
		query += fmt.Sprintf(" AND run_id = $%d", len(args))
	}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	return query, args
}
