// Package due decides which reminders should fire at a given moment.
//
// A reminder may fire while the current minute of day lies inside its
// inclusive [start, end] window, and only when it has never fired or at
// least its cadence has elapsed since the last firing. Missed ticks are
// not backfilled.
package due

import (
	"fmt"
	"time"

	"github.com/pathakanu/forgetMeNot/internal/model"
)

// Window is a daily time window in minutes since midnight.
type Window struct {
	Start Clock
	End   Clock
}

// WindowOf parses the window of a reminder.
func WindowOf(r model.Reminder) (Window, error) {
	start, err := ParseClock(r.TimeWindowStart)
	if err != nil {
		return Window{}, fmt.Errorf("window start: %w", err)
	}
	end, err := ParseClock(r.TimeWindowEnd)
	if err != nil {
		return Window{}, fmt.Errorf("window end: %w", err)
	}
	return Window{Start: start, End: end}, nil
}

// Contains reports whether minute falls inside the window, both ends inclusive.
func (w Window) Contains(minute int) bool {
	return minute >= w.Start.Minutes() && minute <= w.End.Minutes()
}

// Cadence returns the repeat interval of r. Anything below one minute counts as one minute.
func Cadence(r model.Reminder) time.Duration {
	if r.Cadence < 1 {
		return time.Minute
	}
	return time.Duration(r.Cadence) * time.Minute
}

// IsDue reports whether r should fire at now.
func IsDue(now time.Time, r model.Reminder, last model.LastNotified) bool {
	window, err := WindowOf(r)
	if err != nil {
		return false
	}
	if !window.Contains(MinuteOfDay(now)) {
		return false
	}
	fired, ok := last[r.ID]
	if !ok {
		return true
	}
	elapsed := now.Truncate(time.Minute).Sub(time.UnixMilli(fired))
	return elapsed >= Cadence(r)
}

// Evaluate returns the reminders that should fire at now, in input order.
func Evaluate(now time.Time, reminders []model.Reminder, last model.LastNotified) []model.Reminder {
	var due []model.Reminder
	for _, r := range reminders {
		if IsDue(now, r, last) {
			due = append(due, r)
		}
	}
	return due
}

// Fire records now, truncated to the minute, as the last firing of every reminder in fired.
// It returns last, allocating it when nil.
func Fire(now time.Time, fired []model.Reminder, last model.LastNotified) model.LastNotified {
	if last == nil {
		last = make(model.LastNotified, len(fired))
	}
	stamp := now.Truncate(time.Minute).UnixMilli()
	for _, r := range fired {
		last[r.ID] = stamp
	}
	return last
}
