package reminders

import (
	"time"

	"tuition_tracker_echo/internal/models"
)

const day = 24 * time.Hour

// DaysDue reports how long a payment for the given month has been outstanding.
// Both months are taken in now's year. Past months count whole days since the
// first of that month, the current month counts the day of month, and future
// months are not due yet. The result depends on now and must not be stored.
func DaysDue(month models.Month, now time.Time) int {
	target := month.Index()
	current := int(now.Month()) - 1

	switch {
	case target < 0:
		return 0
	case target < current:
		first := time.Date(now.Year(), month.Time(), 1, 0, 0, 0, 0, now.Location())
		return int(now.Sub(first) / day)
	case target == current:
		return now.Day()
	default:
		return 0
	}
}
