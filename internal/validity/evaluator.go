// Package validity decides whether an offer is redeemable at a given instant
// and computes how long an issued voucher stays valid.
package validity

import (
	"time"

	"github.com/fairyhunter13/bogo-voucher/internal/model"
)

// Status is the outcome of evaluating a validity rule.
type Status string

const (
	Open           Status = "OPEN"
	NotYetOpen     Status = "NOT_YET_OPEN"
	ClosedForToday Status = "CLOSED_FOR_TODAY"
	Expired        Status = "EXPIRED"
)

// Evaluate checks rule against now. now must already be in the offer's timezone.
//
// Checks run in order: date bounds, weekday, hour window. For an overnight window
// (fromHour > untilHour) the hours after midnight belong to the previous calendar day,
// so that day governs the date and weekday checks.
func Evaluate(rule model.ValidityRule, now time.Time) Status {
	inWindow, governing, hourFailure := hourWindow(rule, now)
	day := dateKey(governing)

	if rule.FromDate != nil && day < dateKey(*rule.FromDate) {
		return NotYetOpen
	}
	if rule.UntilDate != nil && day > dateKey(*rule.UntilDate) {
		return Expired
	}
	if !rule.AllowsWeekday(governing.Weekday()) {
		return ClosedForToday
	}
	if !inWindow {
		return hourFailure
	}
	return Open
}

// IsRedeemable reports whether rule evaluates to Open at now.
func IsRedeemable(rule model.ValidityRule, now time.Time) bool {
	return Evaluate(rule, now) == Open
}

// hourWindow reports whether now falls inside the hour window, the day that governs
// the window, and the status to return when now is outside it.
func hourWindow(rule model.ValidityRule, now time.Time) (bool, time.Time, Status) {
	h := now.Hour()
	from, until := rule.FromHour, rule.UntilHour

	switch {
	case from == nil && until == nil:
		return true, now, Open
	case until == nil:
		return h >= *from, now, NotYetOpen
	case from == nil:
		return h < *until, now, ClosedForToday
	case *from <= *until:
		if h < *from {
			return false, now, NotYetOpen
		}
		if h >= *until {
			return false, now, ClosedForToday
		}
		return true, now, Open
	default:
		if h >= *from {
			return true, now, Open
		}
		if h < *until {
			return true, addDays(now, -1), Open
		}
		// between the overnight close and tonight's opening
		return false, now, NotYetOpen
	}
}

// dayAllowed reports whether the calendar day of t passes the weekday and date-bound checks.
func dayAllowed(rule model.ValidityRule, t time.Time) bool {
	day := dateKey(t)
	if rule.FromDate != nil && day < dateKey(*rule.FromDate) {
		return false
	}
	if rule.UntilDate != nil && day > dateKey(*rule.UntilDate) {
		return false
	}
	return rule.AllowsWeekday(t.Weekday())
}

func dateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// addDays moves by whole calendar days, pinned to noon so DST shifts cannot change the date.
func addDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, 12, 0, 0, 0, t.Location())
}
