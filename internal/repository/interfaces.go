package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-schedule/internal/model"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// All repository interfaces in one file
type (
	// ScheduleRepository persists weekday records for clinics and doctors.
	// Create must be idempotent on (owner kind, owner id, weekday).
	ScheduleRepository interface {
		List(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID) ([]*model.DaySchedule, error)
		Create(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID, day *model.DaySchedule) (*model.DaySchedule, error)
		Update(ctx context.Context, id uuid.UUID, day *model.DaySchedule) (*model.DaySchedule, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// EmergencyRepository stores one emergency config per clinic.
	EmergencyRepository interface {
		Get(ctx context.Context, clinicID uuid.UUID) (*model.EmergencyConfig, error)
		Save(ctx context.Context, cfg *model.EmergencyConfig) error
	}

	// ConsultationRepository reads appointments for the calendar and applies
	// committed drops. ListRange covers from inclusive to to exclusive.
	ConsultationRepository interface {
		ListRange(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]model.Consultation, error)
		Reschedule(ctx context.Context, c model.Consultation) error
	}
)
