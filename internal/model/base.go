package model

import (
	"time"
)

// Base contains timestamp fields shared by persisted rows
type Base struct {
	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Weekday is a day of the week with Monday = 0.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DaysPerWeek is the number of weekday records in a weekly schedule.
const DaysPerWeek = 7

var weekdayLabels = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Valid reports whether w is in 0..6.
func (w Weekday) Valid() bool { return w >= Monday && w <= Sunday }

func (w Weekday) String() string {
	if !w.Valid() {
		return "Weekday(?)"
	}
	return weekdayLabels[w]
}

// Key returns the three-letter lowercase key ("mon".."sun").
func (w Weekday) Key() DayKey {
	if !w.Valid() {
		return ""
	}
	return dayKeys[w]
}

// WeekdayOf converts a time.Weekday (Sunday = 0) to Monday = 0.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}
