package calendar

import (
	"math"
	"time"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

// Geometry maps minutes of the displayed hour range to pixels.
type Geometry struct {
	StartHour    int
	EndHour      int
	SlotMinutes  int
	SlotHeightPx float64
}

// DefaultGeometry is an 08:00-18:00 grid with 20px per 15 minutes.
var DefaultGeometry = Geometry{StartHour: 8, EndHour: 18, SlotMinutes: 15, SlotHeightPx: 20}

func (g Geometry) PxPerMinute() float64 {
	if g.SlotMinutes <= 0 {
		return 0
	}
	return g.SlotHeightPx / float64(g.SlotMinutes)
}

// TotalMinutes is the length of the displayed range.
func (g Geometry) TotalMinutes() int { return (g.EndHour - g.StartHour) * 60 }

// FirstMinute is the minute of day at y=0.
func (g Geometry) FirstMinute() int { return g.StartHour * 60 }

// Height of the whole column in pixels.
func (g Geometry) Height() float64 { return float64(g.TotalMinutes()) * g.PxPerMinute() }

// MinuteToY places an absolute minute of day.
func (g Geometry) MinuteToY(minute int) float64 {
	return float64(minute-g.FirstMinute()) * g.PxPerMinute()
}

// TimeToY places an "HH:MM" value.
func (g Geometry) TimeToY(t string) float64 { return g.MinuteToY(timeslot.Parse(t)) }

// YToMinute is the inverse of MinuteToY, relative to the top of the grid.
func (g Geometry) YToMinute(y float64) int {
	ppm := g.PxPerMinute()
	if ppm == 0 {
		return 0
	}
	return int(math.Round(y / ppm))
}

// Resolve turns a pointer offset into the absolute start minute of an entry
// of the given duration: clamped so the entry fits the grid, then snapped.
func (g Geometry) Resolve(y float64, duration int) int {
	hi := g.TotalMinutes() - duration
	if hi < 0 {
		hi = 0
	}
	rel := timeslot.Clamp(g.YToMinute(y), 0, hi)
	return g.FirstMinute() + timeslot.Snap(rel, g.SlotMinutes)
}

// MondayOf returns the Monday of the week containing t, at midnight.
func MondayOf(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d.AddDate(0, 0, -int(model.WeekdayOf(d)))
}

// WeekDates returns weekStart + 0..6 days as YYYY-MM-DD.
func WeekDates(weekStart time.Time) [model.DaysPerWeek]string {
	var out [model.DaysPerWeek]string
	for i := range out {
		out[i] = weekStart.AddDate(0, 0, i).Format(model.DateLayout)
	}
	return out
}
