package reminders

import (
	"fmt"
	"time"

	"tuition_tracker_echo/internal/models"
)

// IsCurrentMonthReminderDay is true on the 5th, 10th and 20th, then every
// second day from the 22nd on.
func IsCurrentMonthReminderDay(now time.Time) bool {
	d := now.Day()
	switch d {
	case 5, 10, 20:
		return true
	}
	return d > 20 && (d-20)%2 == 0
}

// IsPrevMonthReminderDay is true on the first two days of a month, when the
// previous month's unpaid records get a final catch-up reminder.
func IsPrevMonthReminderDay(now time.Time) bool {
	d := now.Day()
	return d == 1 || d == 2
}

// Period identifies a billing month.
type Period struct {
	Month models.Month `json:"month"`
	Year  int          `json:"year"`
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// CurrentPeriod is the billing month containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Month: models.MonthOf(now.Month()), Year: now.Year()}
}

// PreviousPeriod is the billing month before now's. January rolls back to
// December of the previous year.
func PreviousPeriod(now time.Time) Period {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := first.AddDate(0, -1, 0)
	return Period{Month: models.MonthOf(prev.Month()), Year: prev.Year()}
}

// Schedule describes which sweeps the daily pass runs at a given time.
type Schedule struct {
	Current         Period `json:"current"`
	Previous        Period `json:"previous"`
	CurrentMonthDue bool   `json:"current_month_due"`
	PrevMonthDue    bool   `json:"prev_month_due"`
}

func ScheduleFor(now time.Time) Schedule {
	return Schedule{
		Current:         CurrentPeriod(now),
		Previous:        PreviousPeriod(now),
		CurrentMonthDue: IsCurrentMonthReminderDay(now),
		PrevMonthDue:    IsPrevMonthReminderDay(now),
	}
}
