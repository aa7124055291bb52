package sloteditor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

var (
	ErrInvalidSlot      = errors.New("invalid slot")
	ErrDeleteNotAllowed = errors.New("delete is only available when editing an existing slot")
)

const (
	msgEndBeforeStart = "end must be after start"
	msgOverlapPrefix  = "overlaps with "
)

// ValidationError is shown next to the field it belongs to.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Save when the buffer does not validate.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Field + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s", ErrInvalidSlot, strings.Join(msgs, "; "))
}

func (v ValidationErrors) Unwrap() error { return ErrInvalidSlot }

// Params opens an editor. ExistingSlots are the siblings of the edited slot
// on the same day. OnDelete is only consulted when Editing is true.
type Params struct {
	DayLabel      string
	Initial       timeslot.Slot
	ExistingSlots []timeslot.Slot
	Editing       bool
	OnSave        func(timeslot.Slot) error
	OnDelete      func() error
}

// Opener shows an editor for p. Schedule and emergency grids receive one
// from their caller instead of owning the dialog.
type Opener func(Params) error

// Editor is the edit buffer of one dialog.
type Editor struct {
	params Params
	start  string
	end    string
	errs   ValidationErrors
}

func New(p Params) *Editor {
	e := &Editor{params: p, start: p.Initial.Start, end: p.Initial.End}
	e.revalidate()
	return e
}

func (e *Editor) DayLabel() string { return e.params.DayLabel }

func (e *Editor) Slot() timeslot.Slot { return timeslot.Slot{Start: e.start, End: e.end} }

func (e *Editor) SetStart(s string) ValidationErrors {
	e.start = strings.TrimSpace(s)
	return e.revalidate()
}

func (e *Editor) SetEnd(s string) ValidationErrors {
	e.end = strings.TrimSpace(s)
	return e.revalidate()
}

// Set replaces both fields at once.
func (e *Editor) Set(start, end string) ValidationErrors {
	e.start, e.end = strings.TrimSpace(start), strings.TrimSpace(end)
	return e.revalidate()
}

func (e *Editor) Errors() ValidationErrors {
	return append(ValidationErrors(nil), e.errs...)
}

func (e *Editor) CanSave() bool { return len(e.errs) == 0 }

func (e *Editor) CanDelete() bool { return e.params.Editing }

// Save hands the buffer to OnSave. The caller merges and re-sorts.
func (e *Editor) Save() error {
	if !e.CanSave() {
		return e.Errors()
	}
	if e.params.OnSave == nil {
		return nil
	}
	return e.params.OnSave(e.Slot())
}

// Delete emits the delete intent; the caller removes the slot by index.
func (e *Editor) Delete() error {
	if !e.CanDelete() {
		return ErrDeleteNotAllowed
	}
	if e.params.OnDelete == nil {
		return nil
	}
	return e.params.OnDelete()
}

func (e *Editor) revalidate() ValidationErrors {
	var original *timeslot.Slot
	if e.params.Editing {
		o := e.params.Initial
		original = &o
	}
	e.errs = Validate(e.Slot(), original, e.params.ExistingSlots)
	return e.Errors()
}

// Validate checks candidate against its siblings. A sibling equal by value to
// original is the slot being edited and is skipped.
func Validate(candidate timeslot.Slot, original *timeslot.Slot, siblings []timeslot.Slot) ValidationErrors {
	var errs ValidationErrors

	start, startErr := timeslot.ParseStrict(candidate.Start)
	if startErr != nil {
		errs = append(errs, ValidationError{Field: "start", Message: startErr.Error()})
	}
	end, endErr := timeslot.ParseStrict(candidate.End)
	if endErr != nil {
		errs = append(errs, ValidationError{Field: "end", Message: endErr.Error()})
	}
	if len(errs) > 0 {
		return errs
	}

	if end <= start {
		return ValidationErrors{{Field: "end", Message: msgEndBeforeStart}}
	}

	for _, s := range siblings {
		if original != nil && s == *original {
			continue
		}
		if start < s.EndMinutes() && end > s.StartMinutes() {
			errs = append(errs, ValidationError{Field: "end", Message: msgOverlapPrefix + s.String()})
		}
	}
	return errs
}

// DefaultStart is where a new slot starts on an empty day.
const DefaultStart = "09:00"

// DefaultLength is the length of a new slot, in minutes.
const DefaultLength = 120

// Prefill proposes the next slot for a day: it starts where the last slot
// ends (or at DefaultStart) and lasts DefaultLength, cut at 23:59.
func Prefill(existing []timeslot.Slot) timeslot.Slot {
	start := DefaultStart
	if sorted := timeslot.Sort(existing); len(sorted) > 0 {
		start = sorted[len(sorted)-1].End
	}
	end := timeslot.Clamp(timeslot.Parse(start)+DefaultLength, 0, timeslot.LastMinute)
	return timeslot.Slot{Start: start, End: timeslot.Format(end)}
}

// Submission is a dialog answered in one go, as an API request does.
type Submission struct {
	Start  string
	End    string
	Delete bool
}

// Opener returns an Opener that fills the editor with the submission and
// then saves or deletes. Empty fields keep the prefilled value.
func (sub Submission) Opener() Opener {
	return func(p Params) error {
		e := New(p)
		if sub.Delete {
			return e.Delete()
		}
		start, end := sub.Start, sub.End
		if start == "" {
			start = p.Initial.Start
		}
		if end == "" {
			end = p.Initial.End
		}
		e.Set(start, end)
		return e.Save()
	}
}
