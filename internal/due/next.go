package due

import (
	"fmt"
	"time"

	"github.com/pathakanu/forgetMeNot/internal/model"
)

// Next returns the moment r will next fire, as seen from now.
//
// Before the window it is today's start, past the window it is tomorrow's
// start. Inside the window it is now when the reminder is due, otherwise
// one cadence after the last firing.
func Next(now time.Time, r model.Reminder, last model.LastNotified) (time.Time, error) {
	window, err := WindowOf(r)
	if err != nil {
		return time.Time{}, err
	}

	current := now.Truncate(time.Minute)
	start := window.Start.On(now)
	end := window.End.On(now)
	tomorrow := window.Start.On(now.AddDate(0, 0, 1))

	if current.Before(start) {
		return start, nil
	}
	if current.After(end) {
		return tomorrow, nil
	}

	candidate := current
	if fired, ok := last[r.ID]; ok {
		if after := time.UnixMilli(fired).In(now.Location()).Add(Cadence(r)); after.After(candidate) {
			candidate = after
		}
	}
	if candidate.After(end) {
		return tomorrow, nil
	}
	return candidate, nil
}

// FormatCountdown renders the time left until a firing, e.g. "1h 5m 30s".
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "Due now!"
	}
	secs := int((d + time.Second - 1) / time.Second)
	hours := secs / 3600
	minutes := secs % 3600 / 60
	seconds := secs % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
