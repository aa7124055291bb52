package calendar

import (
	"strings"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

// DefaultDraftDuration is used when the draft does not say how long it is.
const DefaultDraftDuration = 15

const draftTitle = "New appointment"

// Normalize projects raw consultations onto the displayed week. Records
// dated outside the week are dropped. A draft dated inside the week is
// appended as the provisional entry.
func Normalize(dates [model.DaysPerWeek]string, consultations []model.Consultation, draft *model.Draft, draftDuration int) []model.Appointment {
	out := make([]model.Appointment, 0, len(consultations)+1)
	for _, c := range consultations {
		day := dayIndex(dates, c.Date)
		if day < 0 {
			continue
		}
		out = append(out, model.Appointment{
			ID:       c.ID,
			DayIndex: day,
			Start:    c.StartTime(),
			Duration: Duration(c),
			Title:    Title(c),
			Status:   c.Status,
		})
	}

	if draft != nil {
		if day := dayIndex(dates, draft.Date); day >= 0 {
			d := draft.Duration
			if d <= 0 {
				d = draftDuration
			}
			if d <= 0 {
				d = DefaultDraftDuration
			}
			title := draft.Title
			if title == "" {
				title = draftTitle
			}
			out = append(out, model.Appointment{
				ID:            model.ProvisionalID,
				DayIndex:      day,
				Start:         draft.Start,
				Duration:      d,
				Title:         title,
				IsProvisional: true,
			})
		}
	}
	return out
}

// Duration resolves the length of a consultation in minutes, in order: an
// explicit end time, the doctor's default duration, an explicit duration
// field, else 0.
func Duration(c model.Consultation) int {
	if end := c.EndTime(); end != "" {
		if d := timeslot.Parse(end) - timeslot.Parse(c.StartTime()); d > 0 {
			return d
		}
	}
	if c.Doctor != nil && c.Doctor.DefaultDuration != nil && *c.Doctor.DefaultDuration > 0 {
		return *c.Doctor.DefaultDuration
	}
	if c.Duree != nil && *c.Duree > 0 {
		return *c.Duree
	}
	if c.Duration != nil && *c.Duration > 0 {
		return *c.Duration
	}
	return 0
}

// Title is the patient's full name, the nested user's full name or the
// email, whichever comes first.
func Title(c model.Consultation) string {
	p := c.Patient
	if p == nil {
		return ""
	}
	if name := fullName(p.PersonRef); name != "" {
		return name
	}
	if p.User != nil {
		if name := fullName(*p.User); name != "" {
			return name
		}
	}
	if p.Email != "" {
		return p.Email
	}
	if p.User != nil {
		return p.User.Email
	}
	return ""
}

func fullName(p model.PersonRef) string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// dayIndex matches a date, or the date part of a timestamp, against the
// displayed days.
func dayIndex(dates [model.DaysPerWeek]string, date string) int {
	if len(date) > len(model.DateLayout) {
		date = date[:len(model.DateLayout)]
	}
	if date == "" {
		return -1
	}
	for i, d := range dates {
		if d == date {
			return i
		}
	}
	return -1
}
