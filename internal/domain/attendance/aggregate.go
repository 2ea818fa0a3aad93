package attendance

// Aggregate reduces attendance rows to period totals. An empty input
// yields a zero summary, not an error.
//
// Flags on a row are additive, not mutually exclusive: a night-shift
// overtime hour on a holiday contributes to the overtime holiday bucket
// AND the night-shift hours AND the holiday-worked count. Removing the
// overlap changes pay, so keep it.
func Aggregate(records []Record) Summary {
	var s Summary
	for _, r := range records {
		switch r.Status {
		case StatusPresent:
			s.PresentDays++
		case StatusAbsent:
			s.AbsentDays++
		case StatusLeave:
			s.LeaveDays++
		}

		if r.Status == StatusPresent {
			s.WorkingHours = s.WorkingHours.Add(r.TotalHours)
		}

		if r.IsOvertime && r.OvertimeHours.IsPositive() {
			switch {
			case r.IsSpecialHoliday:
				s.OvertimeSpecialHours = s.OvertimeSpecialHours.Add(r.OvertimeHours)
			case r.IsHoliday:
				s.OvertimeHolidayHours = s.OvertimeHolidayHours.Add(r.OvertimeHours)
			default:
				s.OvertimeRegularHours = s.OvertimeRegularHours.Add(r.OvertimeHours)
			}
		}

		if r.IsNightShift {
			s.NightShiftHours = s.NightShiftHours.Add(r.TotalHours)
		}

		if r.Status == StatusPresent && (r.IsHoliday || r.IsSpecialHoliday) {
			if r.IsSpecialHoliday {
				s.SpecialHolidaysWorked++
			} else {
				s.RegularHolidaysWorked++
			}
		}
	}
	return s
}
