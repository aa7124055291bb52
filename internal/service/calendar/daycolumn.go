package calendar

import (
	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

// Band is an availability slot drawn behind the appointments.
type Band struct {
	Start  string  `json:"start"`
	End    string  `json:"end"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Block is a positioned appointment.
type Block struct {
	model.Appointment
	End       string  `json:"end"`
	Top       float64 `json:"top"`
	Height    float64 `json:"height"`
	Border    string  `json:"border"`
	Cancelled bool    `json:"cancelled"`
}

// DayColumn is everything drawn in one weekday of the grid.
type DayColumn struct {
	DayIndex int     `json:"day_index"`
	Date     string  `json:"date"`
	Label    string  `json:"label"`
	Bands    []Band  `json:"bands"`
	Blocks   []Block `json:"blocks"`
	Ghost    *Block  `json:"ghost,omitempty"`
}

// Columns lays out the week. Bands and blocks are clipped to the displayed hours; the
// ghost only shows in the column the drag currently targets.
func (e *Engine) Columns(availability []model.AvailabilityWindow) []DayColumn {
	e.mu.Lock()
	geom := e.opts.Geometry
	dates := WeekDates(e.opts.WeekStart)
	appts := e.appointmentsLocked()
	var ghost *model.Appointment
	if e.drag != nil {
		g := e.drag.ghost
		ghost = &g
	}
	e.mu.Unlock()

	return BuildColumns(geom, dates, availability, appts, ghost)
}

// BuildColumns is the layout behind Engine.Columns.
func BuildColumns(geom Geometry, dates [model.DaysPerWeek]string, availability []model.AvailabilityWindow, appts []model.Appointment, ghost *model.Appointment) []DayColumn {
	cols := make([]DayColumn, model.DaysPerWeek)
	for i := range cols {
		cols[i] = DayColumn{
			DayIndex: i,
			Date:     dates[i],
			Label:    model.Weekday(i).String(),
			Bands:    []Band{},
			Blocks:   []Block{},
		}
	}

	for _, w := range availability {
		if !w.Weekday.Valid() {
			continue
		}
		for _, s := range timeslot.Sort(w.Slots) {
			if b, ok := band(geom, s); ok {
				cols[w.Weekday].Bands = append(cols[w.Weekday].Bands, b)
			}
		}
	}

	for _, a := range appts {
		if !validDay(a.DayIndex) {
			continue
		}
		cols[a.DayIndex].Blocks = append(cols[a.DayIndex].Blocks, block(geom, a))
	}

	if ghost != nil && validDay(ghost.DayIndex) {
		b := block(geom, *ghost)
		cols[ghost.DayIndex].Ghost = &b
	}
	return cols
}

func band(geom Geometry, s timeslot.Slot) (Band, bool) {
	lo, hi := geom.FirstMinute(), geom.FirstMinute()+geom.TotalMinutes()
	start := timeslot.Clamp(s.StartMinutes(), lo, hi)
	end := timeslot.Clamp(s.EndMinutes(), lo, hi)
	if end <= start {
		return Band{}, false
	}
	return Band{
		Start:  s.Start,
		End:    s.End,
		Top:    geom.MinuteToY(start),
		Height: float64(end-start) * geom.PxPerMinute(),
	}, true
}

// block clips the drawn box to the displayed hours; End keeps the real time.
func block(geom Geometry, a model.Appointment) Block {
	g := ghostOf(a)
	lo, hi := geom.FirstMinute(), geom.FirstMinute()+geom.TotalMinutes()
	from := timeslot.Parse(a.Start)
	start := timeslot.Clamp(from, lo, hi)
	end := timeslot.Clamp(from+a.Duration, lo, hi)
	return Block{
		Appointment: a,
		End:         g.End,
		Top:         geom.MinuteToY(start),
		Height:      float64(end-start) * geom.PxPerMinute(),
		Border:      g.Border,
		Cancelled:   a.Status == model.ConsultationCancelled,
	}
}
