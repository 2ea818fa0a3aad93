package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLeave   = "leave"
)

// Record is a single attendance row as written by the attendance module.
// This core only reads them.
type Record struct {
	EmployeeID       string
	Date             time.Time
	Status           string
	TotalHours       decimal.Decimal
	OvertimeHours    decimal.Decimal
	IsOvertime       bool
	IsNightShift     bool
	IsHoliday        bool
	IsSpecialHoliday bool
}

// Summary is the reduction of a period's attendance rows into the counts
// and hour buckets the pay calculators consume.
type Summary struct {
	PresentDays int
	AbsentDays  int
	LeaveDays   int

	WorkingHours decimal.Decimal

	OvertimeRegularHours decimal.Decimal
	OvertimeHolidayHours decimal.Decimal
	OvertimeSpecialHours decimal.Decimal

	NightShiftHours decimal.Decimal

	RegularHolidaysWorked int
	SpecialHolidaysWorked int
}

func (s Summary) OvertimeHoursTotal() decimal.Decimal {
	return s.OvertimeRegularHours.Add(s.OvertimeHolidayHours).Add(s.OvertimeSpecialHours)
}
