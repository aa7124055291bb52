// Package timeslot converts between "HH:MM" wall-clock strings and
// minutes-since-midnight, and implements the half-open interval arithmetic
// used by weekly schedules and the calendar grid.
package timeslot

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// MinutesPerDay is the number of minutes in a day.
	MinutesPerDay = 24 * 60
	// LastMinute is the largest valid minute-of-day (23:59).
	LastMinute = MinutesPerDay - 1
)

// ErrInvalidTimeFormat is returned by ParseStrict for anything that is not a
// zero-padded 24h "HH:MM" value.
var ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")

var hhmm = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Slot is a half-open interval [Start, End) within a single day.
type Slot struct {
	Start string `json:"start" validate:"required,hhmm"`
	End   string `json:"end" validate:"required,hhmm"`
}

// StartMinutes returns the slot start as minutes since midnight.
func (s Slot) StartMinutes() int { return Parse(s.Start) }

// EndMinutes returns the slot end as minutes since midnight.
func (s Slot) EndMinutes() int { return Parse(s.End) }

// Duration returns End-Start in minutes. It is negative for inverted slots.
func (s Slot) Duration() int { return s.EndMinutes() - s.StartMinutes() }

// Valid reports whether End is strictly after Start.
func (s Slot) Valid() bool { return s.EndMinutes() > s.StartMinutes() }

// Overlaps reports whether the two slots intersect. Touching slots do not.
func (s Slot) Overlaps(o Slot) bool {
	return s.StartMinutes() < o.EndMinutes() && s.EndMinutes() > o.StartMinutes()
}

func (s Slot) String() string { return s.Start + "–" + s.End }

// IsValidTime reports whether s is a canonical "HH:MM" value.
func IsValidTime(s string) bool { return hhmm.MatchString(s) }

// Parse converts "HH:MM" to minutes since midnight. Malformed input yields 0
// (midnight); use ParseStrict where bad data must be rejected.
func Parse(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return h*60 + m
}

// ParseStrict converts a canonical "HH:MM" value to minutes since midnight.
func ParseStrict(s string) (int, error) {
	if !IsValidTime(s) {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidTimeFormat)
	}
	return Parse(s), nil
}

// Format renders minutes since midnight as zero-padded "HH:MM".
func Format(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Sort returns a new slice ordered by start time. The input is not modified
// and equal starts keep their relative order.
func Sort(slots []Slot) []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartMinutes() < out[j].StartMinutes()
	})
	return out
}

// HasOverlap reports whether any two slots intersect.
func HasOverlap(slots []Slot) bool {
	sorted := Sort(slots)
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].EndMinutes() > sorted[i].StartMinutes() {
			return true
		}
	}
	return false
}

// Snap rounds minutes to the nearest multiple of step. A non-positive step
// leaves the value unchanged.
func Snap(minutes, step int) int {
	if step <= 0 {
		return minutes
	}
	return int(math.Round(float64(minutes)/float64(step))) * step
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// List is a slot list stored as a JSON column.
type List []Slot

func (l List) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *List) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = List{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("timeslot: cannot scan %T into List", src)
	}
	return json.Unmarshal(data, l)
}
