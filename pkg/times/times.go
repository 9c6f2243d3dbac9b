// Package times provides HH:MM clock arithmetic for itinerary timelines.
// All times are 24-hour strings; arithmetic wraps at midnight and callers
// doing conflict checks must carry the wrap fact alongside the string.
package times

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const minutesPerDay = 1440

var hhmmRe = regexp.MustCompile(`^([0-2][0-9]):([0-5][0-9])$`)

// Valid reports whether s is a well-formed 24-hour HH:MM string (00:00-23:59).
func Valid(s string) bool {
	m := hhmmRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	h, _ := strconv.Atoi(m[1])
	return h < 24
}

// ToMinutes converts an HH:MM string to minutes since midnight.
func ToMinutes(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid HH:MM time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid HH:MM time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid HH:MM time %q", s)
	}
	if h < 0 || h >= 24 || m < 0 || m >= 60 {
		return 0, fmt.Errorf("time %q out of range 00:00-23:59", s)
	}
	return h*60 + m, nil
}

// FromMinutes formats minutes since midnight as HH:MM, wrapping at midnight
// so that 1620 renders as "03:00".
func FromMinutes(m int) string {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// EndTime computes start + duration. The boolean is true when the activity
// crosses midnight; the returned string is then a next-day clock time.
func EndTime(start string, durationMinutes int) (string, bool, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return "", false, err
	}
	end := s + durationMinutes
	return FromMinutes(end), end >= minutesPerDay, nil
}

// Interval is a half-open [Start, End) span in minutes since midnight.
// End may exceed 1440 for a segment that crosses midnight.
type Interval struct {
	Start int
	End   int
}

// NewInterval builds an interval from HH:MM strings, unrolling a crossing
// segment (end clock-time earlier than start) past midnight.
func NewInterval(start, end string, crossesMidnight bool) (Interval, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ToMinutes(end)
	if err != nil {
		return Interval{}, err
	}
	if crossesMidnight || e < s {
		e += minutesPerDay
	}
	return Interval{Start: s, End: e}, nil
}

// Split breaks a crossing interval into its same-day and next-day halves.
// A non-crossing interval is returned unchanged as a single element. Overlap
// checks must test the split halves, never the raw crossing interval.
func (iv Interval) Split() []Interval {
	if iv.End <= minutesPerDay {
		return []Interval{iv}
	}
	return []Interval{
		{Start: iv.Start, End: minutesPerDay},
		{Start: 0, End: iv.End - minutesPerDay},
	}
}

// Overlaps reports whether the two intervals share any minute, testing the
// midnight-split halves of each side.
func (iv Interval) Overlaps(other Interval) bool {
	for _, a := range iv.Split() {
		for _, b := range other.Split() {
			if a.Start < b.End && b.Start < a.End {
				return true
			}
		}
	}
	return false
}
