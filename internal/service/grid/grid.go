package grid

import (
	"errors"
	"fmt"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/service/schedule"
	"github.com/jwalitptl/clinic-schedule/internal/service/sloteditor"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

var (
	ErrDayNotOpen    = errors.New("slots can only be added to an open day")
	ErrSlotNotFound  = errors.New("slot index out of range")
	ErrNoEditorGiven = errors.New("no slot editor opener")
)

// DayStore is the part of schedule.Store the grid drives.
type DayStore interface {
	Week() model.WeeklySchedule
	GetDay(model.Weekday) (model.DaySchedule, error)
	SetDay(model.Weekday, model.DaySchedule) error
	DayState(model.Weekday) schedule.SyncState
}

// Column is one weekday as the grid shows it.
type Column struct {
	Weekday    model.Weekday      `json:"weekday"`
	Label      string             `json:"label"`
	Status     model.DayStatus    `json:"status"`
	Open       bool               `json:"open"`
	Slots      []timeslot.Slot    `json:"slots"`
	HasOverlap bool               `json:"has_overlap"`
	Sync       schedule.SyncState `json:"sync"`
	Saving     bool               `json:"saving"`
}

// Columns renders all seven weekdays in order.
func Columns(store DayStore) []Column {
	week := store.Week()
	cols := make([]Column, 0, model.DaysPerWeek)
	for _, day := range week {
		state := store.DayState(day.Weekday)
		cols = append(cols, Column{
			Weekday:    day.Weekday,
			Label:      day.Weekday.String(),
			Status:     day.Status,
			Open:       day.IsOpen(),
			Slots:      timeslot.Sort(day.Slots),
			HasOverlap: timeslot.HasOverlap(day.Slots),
			Sync:       state,
			Saving:     state == schedule.SyncPending || state == schedule.SyncSaving,
		})
	}
	return cols
}

// AddSlot opens the editor in create mode, prefilled after the day's last
// slot. A saved slot is merged into the day and written back.
func AddSlot(store DayStore, w model.Weekday, open sloteditor.Opener) error {
	if open == nil {
		return ErrNoEditorGiven
	}
	day, err := store.GetDay(w)
	if err != nil {
		return err
	}
	if !day.IsOpen() {
		return fmt.Errorf("%w: %s is %s", ErrDayNotOpen, w, day.Status)
	}
	slots := timeslot.Sort(day.Slots)

	return open(sloteditor.Params{
		DayLabel:      w.String(),
		Initial:       sloteditor.Prefill(slots),
		ExistingSlots: slots,
		OnSave: func(s timeslot.Slot) error {
			day.Slots = timeslot.Sort(append(slots, s))
			return store.SetDay(w, day)
		},
	})
}

// EditSlot opens the editor on the slot at index of the sorted day. Saving
// replaces it; deleting removes it.
func EditSlot(store DayStore, w model.Weekday, index int, open sloteditor.Opener) error {
	if open == nil {
		return ErrNoEditorGiven
	}
	day, err := store.GetDay(w)
	if err != nil {
		return err
	}
	slots := timeslot.Sort(day.Slots)
	if index < 0 || index >= len(slots) {
		return fmt.Errorf("%w: %s has %d slots, got %d", ErrSlotNotFound, w, len(slots), index)
	}
	siblings := without(slots, index)

	return open(sloteditor.Params{
		DayLabel:      w.String(),
		Initial:       slots[index],
		ExistingSlots: siblings,
		Editing:       true,
		OnSave: func(s timeslot.Slot) error {
			day.Slots = timeslot.Sort(append(siblings, s))
			return store.SetDay(w, day)
		},
		OnDelete: func() error {
			day.Slots = siblings
			return store.SetDay(w, day)
		},
	})
}

func without(slots []timeslot.Slot, index int) []timeslot.Slot {
	out := make([]timeslot.Slot, 0, len(slots)-1)
	out = append(out, slots[:index]...)
	return append(out, slots[index+1:]...)
}
