package due

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an "HH:MM" string. Both fields must be exactly two digits.
func ParseClock(value string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || !twoDigits(hh) || !twoDigits(mm) {
		return Clock{}, fmt.Errorf("time %q: expected HH:MM", value)
	}
	hour, _ := strconv.Atoi(hh)
	if hour > 23 {
		return Clock{}, fmt.Errorf("time %q: invalid hour", value)
	}
	minute, _ := strconv.Atoi(mm)
	if minute > 59 {
		return Clock{}, fmt.Errorf("time %q: invalid minute", value)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func twoDigits(field string) bool {
	return len(field) == 2 &&
		field[0] >= '0' && field[0] <= '9' &&
		field[1] >= '0' && field[1] <= '9'
}

// Minutes returns the clock as minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant the clock reads c on the day of t, in t's location.
func (c Clock) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, t.Location())
}

// MinuteOfDay returns the minutes elapsed since local midnight for t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
