package calendar

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/pkg/metrics"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

var (
	ErrNoActiveDrag        = errors.New("no drag in progress")
	ErrDragInProgress      = errors.New("another drag is in progress")
	ErrUnknownAppointment  = errors.New("appointment is not displayed this week")
	ErrOutsideGrid         = errors.New("drop target is outside the week")
	ErrInvalidWeekStart    = errors.New("week start must be a YYYY-MM-DD date")
	errMissingConsultation = errors.New("dragged consultation is no longer in the list")
)

const (
	VariantConsultation = "consultation"
	VariantProvisional  = "provisional"
	VariantCancelled    = "cancelled"
)

// Options are the caller-owned inputs of an Engine.
type Options struct {
	WeekStart     time.Time
	Geometry      Geometry
	Consultations []model.Consultation
	Draft         *model.Draft
	DraftDuration int
	// OnChange receives the full list after a consultation is dropped.
	OnChange func([]model.Consultation)
	// OnDraftChange receives the draft after the provisional entry is dropped.
	OnDraftChange func(model.Draft)
	Metrics       *metrics.Metrics
}

// Ghost is the live copy of the dragged entry.
type Ghost struct {
	Appointment model.Appointment `json:"appointment"`
	End         string            `json:"end"`
	Border      string            `json:"border"`
}

// Drop is the outcome of a completed drag.
type Drop struct {
	ID           string              `json:"id"`
	Provisional  bool                `json:"provisional"`
	DayIndex     int                 `json:"day_index"`
	Date         string              `json:"date"`
	Start        string              `json:"start"`
	Consultation *model.Consultation `json:"consultation,omitempty"`
	Draft        *model.Draft        `json:"draft,omitempty"`
}

type dragState struct {
	ghost   model.Appointment
	day     int
	minutes int
}

// Engine projects a week of appointments onto a time grid and runs the
// drag protocol: StartDrag, any number of MoveDrag, then EndDrag or
// CancelDrag. One drag can be active at a time.
type Engine struct {
	mu   sync.Mutex
	opts Options
	drag *dragState
}

func NewEngine(opts Options) *Engine {
	if opts.Geometry == (Geometry{}) {
		opts.Geometry = DefaultGeometry
	}
	if opts.DraftDuration <= 0 {
		opts.DraftDuration = DefaultDraftDuration
	}
	opts.WeekStart = MondayOf(opts.WeekStart)
	return &Engine{opts: opts}
}

func (e *Engine) Geometry() Geometry { return e.opts.Geometry }

func (e *Engine) WeekStart() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.WeekStart
}

// Dates are the seven displayed days.
func (e *Engine) Dates() [model.DaysPerWeek]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return WeekDates(e.opts.WeekStart)
}

// NextWeek and PrevWeek move the displayed week and drop any active drag.
func (e *Engine) NextWeek() { e.shiftWeek(7) }

func (e *Engine) PrevWeek() { e.shiftWeek(-7) }

func (e *Engine) shiftWeek(days int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.WeekStart = e.opts.WeekStart.AddDate(0, 0, days)
	e.drag = nil
}

// SetConsultations replaces the caller-owned list, e.g. after OnChange.
func (e *Engine) SetConsultations(cs []model.Consultation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Consultations = cs
}

// SetDraft replaces the caller-owned draft. nil removes it.
func (e *Engine) SetDraft(d *model.Draft) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Draft = d
}

// Appointments is the normalized view, recomputed from the inputs.
func (e *Engine) Appointments() []model.Appointment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.appointmentsLocked()
}

func (e *Engine) appointmentsLocked() []model.Appointment {
	return Normalize(WeekDates(e.opts.WeekStart), e.opts.Consultations, e.opts.Draft, e.opts.DraftDuration)
}

func (e *Engine) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag != nil
}

// Ghost returns the dragged entry at its current position.
func (e *Engine) Ghost() (Ghost, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag == nil {
		return Ghost{}, false
	}
	return ghostOf(e.drag.ghost), true
}

func ghostOf(a model.Appointment) Ghost {
	border := "solid"
	if a.IsProvisional {
		border = "dashed"
	}
	end := timeslot.Clamp(timeslot.Parse(a.Start)+a.Duration, 0, timeslot.LastMinute)
	return Ghost{Appointment: a, End: timeslot.Format(end), Border: border}
}

// StartDrag picks up the displayed entry with the given id.
func (e *Engine) StartDrag(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag != nil {
		return ErrDragInProgress
	}
	for _, a := range e.appointmentsLocked() {
		if a.ID == id {
			e.drag = &dragState{ghost: a, day: a.DayIndex, minutes: timeslot.Parse(a.Start)}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
}

// MoveDrag follows the pointer at offset y in the column of day. It reports
// whether the snapped position changed; a pointer outside the week changes
// nothing.
func (e *Engine) MoveDrag(day int, y float64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag == nil {
		return false, ErrNoActiveDrag
	}
	if !validDay(day) {
		return false, nil
	}
	minutes := e.opts.Geometry.Resolve(y, e.drag.ghost.Duration)
	if day == e.drag.day && minutes == e.drag.minutes {
		return false, nil
	}
	e.drag.day, e.drag.minutes = day, minutes
	e.drag.ghost.DayIndex = day
	e.drag.ghost.Start = timeslot.Format(minutes)
	return true, nil
}

// EndDrag drops the entry at (day, y). The provisional entry only updates
// the draft through OnDraftChange; a consultation produces a new list for
// OnChange with just that record moved. A drop outside the week cancels.
func (e *Engine) EndDrag(day int, y float64) (Drop, error) {
	e.mu.Lock()
	if e.drag == nil {
		e.mu.Unlock()
		return Drop{}, ErrNoActiveDrag
	}
	d := e.drag
	e.drag = nil
	if !validDay(day) {
		e.mu.Unlock()
		e.count(VariantCancelled)
		return Drop{}, ErrOutsideGrid
	}

	minutes := e.opts.Geometry.Resolve(y, d.ghost.Duration)
	drop := Drop{
		ID:          d.ghost.ID,
		Provisional: d.ghost.IsProvisional,
		DayIndex:    day,
		Date:        e.opts.WeekStart.AddDate(0, 0, day).Format(model.DateLayout),
		Start:       timeslot.Format(minutes),
	}

	if drop.Provisional {
		draft := model.Draft{}
		if e.opts.Draft != nil {
			draft = *e.opts.Draft
		}
		draft.Date, draft.Start = drop.Date, drop.Start
		drop.Draft = &draft
		cb := e.opts.OnDraftChange
		e.mu.Unlock()

		e.count(VariantProvisional)
		if cb != nil {
			cb(draft)
		}
		return drop, nil
	}

	updated := make([]model.Consultation, len(e.opts.Consultations))
	copy(updated, e.opts.Consultations)
	found := false
	for i, c := range updated {
		if c.ID != drop.ID {
			continue
		}
		end := ""
		if c.EndTime() != "" {
			end = timeslot.Format(timeslot.Clamp(minutes+d.ghost.Duration, 0, timeslot.LastMinute))
		}
		moved := c.WithSchedule(drop.Date, drop.Start, end)
		updated[i] = moved
		drop.Consultation = &moved
		found = true
		break
	}
	cb := e.opts.OnChange
	e.mu.Unlock()

	if !found {
		e.count(VariantCancelled)
		return Drop{}, fmt.Errorf("%w: %s", errMissingConsultation, drop.ID)
	}
	e.count(VariantConsultation)
	if cb != nil {
		cb(updated)
	}
	return drop, nil
}

// CancelDrag discards the drag without touching any input.
func (e *Engine) CancelDrag() {
	e.mu.Lock()
	active := e.drag != nil
	e.drag = nil
	e.mu.Unlock()
	if active {
		e.count(VariantCancelled)
	}
}

func (e *Engine) count(variant string) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.DragCommits.WithLabelValues(variant).Inc()
	}
}

func validDay(day int) bool { return day >= 0 && day < model.DaysPerWeek }
