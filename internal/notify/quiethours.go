package notify

import (
	"time"

	accountrepo "opsdesk_backend/internal/accounts/repository"
)

// QuietWindow is an account's do-not-disturb window expressed as
// minutes past midnight in the account's timezone. Start may be after
// End for windows that span midnight (22:00 to 07:00).
type QuietWindow struct {
	StartMinute int
	EndMinute   int
	Location    *time.Location
}

func (w QuietWindow) enabled() bool {
	return w.StartMinute != w.EndMinute
}

// Contains reports whether t falls inside the quiet window.
func (w QuietWindow) Contains(t time.Time) bool {
	if !w.enabled() {
		return false
	}
	local := t.In(w.loc())
	minute := local.Hour()*60 + local.Minute()

	if w.StartMinute < w.EndMinute {
		return minute >= w.StartMinute && minute < w.EndMinute
	}
	// spans midnight
	return minute >= w.StartMinute || minute < w.EndMinute
}

// NextOpen returns the first instant at or after t outside the window.
func (w QuietWindow) NextOpen(t time.Time) time.Time {
	if !w.Contains(t) {
		return t
	}
	local := t.In(w.loc())
	opens := time.Date(local.Year(), local.Month(), local.Day(),
		w.EndMinute/60, w.EndMinute%60, 0, 0, w.loc())
	if !opens.After(local) {
		opens = opens.AddDate(0, 0, 1)
	}
	return opens
}

func (w QuietWindow) loc() *time.Location {
	if w.Location != nil {
		return w.Location
	}
	return time.UTC
}

func quietWindowFor(a accountrepo.Account) (QuietWindow, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return QuietWindow{}, err
	}
	return QuietWindow{
		StartMinute: a.QuietStartMinute,
		EndMinute:   a.QuietEndMinute,
		Location:    loc,
	}, nil
}
