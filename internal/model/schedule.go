package model

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

// OwnerKind says whose opening hours a schedule describes.
type OwnerKind string

const (
	OwnerClinic OwnerKind = "clinic"
	OwnerDoctor OwnerKind = "doctor"
)

func (k OwnerKind) Valid() bool { return k == OwnerClinic || k == OwnerDoctor }

// ParseOwnerKind validates a path parameter.
func ParseOwnerKind(s string) (OwnerKind, error) {
	k := OwnerKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown owner kind %q", s)
	}
	return k, nil
}

// DayStatus is the state of one weekday.
//
// Clinics always have a record per weekday and toggle between open and
// closed. Doctors either carry their own record (open) or have none, in which
// case the day is inherited, meaning no override and no hours of their own.
type DayStatus string

const (
	DayOpen      DayStatus = "open"
	DayClosed    DayStatus = "closed"
	DayInherited DayStatus = "inherited"
)

// DaySchedule holds the slots of one weekday for one owner.
type DaySchedule struct {
	Base
	ID        *uuid.UUID      `json:"id,omitempty" db:"id"`
	OwnerKind OwnerKind       `json:"owner_kind" db:"owner_kind"`
	OwnerID   uuid.UUID       `json:"owner_id" db:"owner_id"`
	Weekday   Weekday         `json:"weekday" db:"weekday"`
	Status    DayStatus       `json:"status" db:"-"`
	Slots     []timeslot.Slot `json:"slots" db:"-"`
}

// IsOpen reports whether the day has opening hours.
func (d DaySchedule) IsOpen() bool { return d.Status == DayOpen }

// Persisted reports whether the record exists in storage.
func (d DaySchedule) Persisted() bool { return d.ID != nil }

// Clone deep-copies the record so callers never alias slot slices.
func (d DaySchedule) Clone() DaySchedule {
	out := d
	if d.ID != nil {
		id := *d.ID
		out.ID = &id
	}
	out.Slots = append([]timeslot.Slot{}, d.Slots...)
	return out
}

// PlaceholderDay is what an owner without a stored record for w gets: closed
// for clinics and inherited for doctors.
func PlaceholderDay(kind OwnerKind, ownerID uuid.UUID, w Weekday) DaySchedule {
	status := DayClosed
	if kind == OwnerDoctor {
		status = DayInherited
	}
	return DaySchedule{
		OwnerKind: kind,
		OwnerID:   ownerID,
		Weekday:   w,
		Status:    status,
		Slots:     []timeslot.Slot{},
	}
}

// WeeklySchedule holds one record per weekday, indexed by weekday.
type WeeklySchedule [DaysPerWeek]DaySchedule

// NormalizeWeek places records by their weekday and fills the gaps with
// placeholders. Records with an out-of-range weekday are ignored, and a
// later duplicate for the same weekday replaces an earlier one.
func NormalizeWeek(kind OwnerKind, ownerID uuid.UUID, records []*DaySchedule) WeeklySchedule {
	var week WeeklySchedule
	var seen [DaysPerWeek]bool
	for _, r := range records {
		if r == nil || !r.Weekday.Valid() {
			continue
		}
		day := r.Clone()
		day.OwnerKind = kind
		day.OwnerID = ownerID
		if day.Status == "" {
			day.Status = DayOpen
		}
		week[day.Weekday] = day
		seen[day.Weekday] = true
	}
	for w := Monday; w <= Sunday; w++ {
		if !seen[w] {
			week[w] = PlaceholderDay(kind, ownerID, w)
		}
	}
	return week
}

// AvailabilityWindow is the read-only background a calendar column renders.
type AvailabilityWindow struct {
	ID      string          `json:"id"`
	Weekday Weekday         `json:"weekday"`
	Slots   []timeslot.Slot `json:"slots"`
}

// Availability turns the open days of a week into calendar windows.
func (w WeeklySchedule) Availability() []AvailabilityWindow {
	out := make([]AvailabilityWindow, 0, DaysPerWeek)
	for _, d := range w {
		if !d.IsOpen() {
			continue
		}
		id := ""
		if d.ID != nil {
			id = d.ID.String()
		}
		out = append(out, AvailabilityWindow{
			ID:      id,
			Weekday: d.Weekday,
			Slots:   timeslot.Sort(d.Slots),
		})
	}
	return out
}
