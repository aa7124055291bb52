package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationPending    ConsultationStatus = "pending"
	ConsultationConfirmed  ConsultationStatus = "confirmed"
	ConsultationInProgress ConsultationStatus = "in_progress"
	ConsultationCancelled  ConsultationStatus = "cancelled"
	ConsultationCompleted  ConsultationStatus = "completed"
)

// DateLayout is the wire format of consultation and draft dates.
const DateLayout = "2006-01-02"

// ProvisionalID identifies the caller-owned draft on the calendar.
const ProvisionalID = "provisional"

// PersonRef is the display part of a patient or user record.
type PersonRef struct {
	FirstName string `json:"first_name,omitempty" db:"first_name"`
	LastName  string `json:"last_name,omitempty" db:"last_name"`
	Email     string `json:"email,omitempty" db:"email"`
}

// PatientRef is a patient as embedded in a consultation. Older records carry
// the names on a nested user instead.
type PatientRef struct {
	PersonRef
	User *PersonRef `json:"user,omitempty"`
}

// DoctorRef carries the doctor's default consultation length.
type DoctorRef struct {
	ID              uuid.UUID `json:"id,omitempty"`
	DefaultDuration *int      `json:"default_duration,omitempty"`
}

// Consultation is a raw appointment record as returned by the consultations
// backend. Start, end and duration exist under several legacy names;
// calendar.Normalize resolves them in one place.
type Consultation struct {
	ID          string             `json:"id"`
	ClinicianID uuid.UUID          `json:"clinician_id,omitempty"`
	Date        string             `json:"date"`
	HeureDebut  string             `json:"heure_debut,omitempty"`
	Start       string             `json:"start,omitempty"`
	HeureFin    string             `json:"heure_fin,omitempty"`
	End         string             `json:"end,omitempty"`
	Duree       *int               `json:"duree,omitempty"`
	Duration    *int               `json:"duration,omitempty"`
	Status      ConsultationStatus `json:"status"`
	Patient     *PatientRef        `json:"patient,omitempty"`
	Doctor      *DoctorRef         `json:"doctor,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at,omitempty"`
}

// StartTime returns the start under whichever name is set.
func (c Consultation) StartTime() string {
	if c.HeureDebut != "" {
		return c.HeureDebut
	}
	return c.Start
}

// EndTime returns the end under whichever name is set.
func (c Consultation) EndTime() string {
	if c.HeureFin != "" {
		return c.HeureFin
	}
	return c.End
}

// WithSchedule returns a copy moved to date/start, keeping the field names
// the record arrived with. An explicit end moves with the start so the
// length is preserved.
func (c Consultation) WithSchedule(date, start, end string) Consultation {
	out := c
	out.Date = date
	if c.HeureDebut != "" {
		out.HeureDebut = start
	} else {
		out.Start = start
	}
	if end == "" {
		return out
	}
	if c.HeureFin != "" {
		out.HeureFin = end
	} else if c.End != "" {
		out.End = end
	}
	return out
}

// Draft is the unsaved appointment being composed in a creation form.
type Draft struct {
	Date     string `json:"date,omitempty"`
	Start    string `json:"start,omitempty" binding:"omitempty,hhmm"`
	Duration int    `json:"duration,omitempty" binding:"min=0"`
	Title    string `json:"title,omitempty"`
}

// Appointment is the normalized calendar entry.
type Appointment struct {
	ID            string             `json:"id"`
	DayIndex      int                `json:"day_index"`
	Start         string             `json:"start"`
	Duration      int                `json:"duration"`
	Title         string             `json:"title"`
	Status        ConsultationStatus `json:"status,omitempty"`
	IsProvisional bool               `json:"is_provisional"`
}

// Notice is a user-facing message sent through the notification sink.
type Notice struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Scope     string    `json:"scope,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
