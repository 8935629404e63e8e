package validity

import (
	"fmt"
	"time"

	"github.com/fairyhunter13/bogo-voucher/internal/model"
)

// maxLookahead bounds the search for the next valid day; a week plus the overnight spill.
const maxLookahead = 8

// ExpiresAt computes the expiration of a voucher issued at now.
//
// Without an untilHour the voucher expires at the end of the current day. With one, it
// expires at the end of the first window that closes after now on a day the offer is
// valid. If no such day exists within the lookahead, the end of the current day is used.
func ExpiresAt(rule model.ValidityRule, now time.Time) time.Time {
	if rule.UntilHour == nil {
		return EndOfDay(now)
	}
	until := *rule.UntilHour
	_, governing, _ := hourWindow(rule, now)

	for i := 0; i < maxLookahead; i++ {
		day := addDays(governing, i)
		if rule.UntilDate != nil && dateKey(day) > dateKey(*rule.UntilDate) {
			break
		}

		closeDay := day
		if rule.Overnight() {
			closeDay = addDays(day, 1)
		}
		end := time.Date(closeDay.Year(), closeDay.Month(), closeDay.Day(), until, 0, 0, 0, now.Location())
		if !end.After(now) || !dayAllowed(rule, day) {
			continue
		}
		return end
	}
	return EndOfDay(now)
}

// EndOfDay returns 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DurationLabel renders the time left until expiresAt: minutes under an hour,
// hours under a day, days otherwise.
func DurationLabel(now, expiresAt time.Time) string {
	remaining := expiresAt.Sub(now)
	switch {
	case remaining <= 0:
		return "expired"
	case remaining < time.Hour:
		return plural(max(int(remaining/time.Minute), 1), "minute")
	case remaining < 24*time.Hour:
		return plural(int(remaining/time.Hour), "hour")
	default:
		return plural(int(remaining/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
