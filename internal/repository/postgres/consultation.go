package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/repository"
)

type consultationRow struct {
	ID               uuid.UUID      `db:"id"`
	ClinicianID      uuid.UUID      `db:"clinician_id"`
	Date             string         `db:"date"`
	StartTime        string         `db:"start_time"`
	EndTime          sql.NullString `db:"end_time"`
	Duration         sql.NullInt64  `db:"duration"`
	Status           string         `db:"status"`
	PatientFirstName string         `db:"patient_first_name"`
	PatientLastName  string         `db:"patient_last_name"`
	PatientEmail     string         `db:"patient_email"`
	DefaultDuration  sql.NullInt64  `db:"default_duration"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r consultationRow) toModel() model.Consultation {
	c := model.Consultation{
		ID:          r.ID.String(),
		ClinicianID: r.ClinicianID,
		Date:        r.Date,
		Start:       r.StartTime,
		Status:      model.ConsultationStatus(r.Status),
		Patient: &model.PatientRef{PersonRef: model.PersonRef{
			FirstName: r.PatientFirstName,
			LastName:  r.PatientLastName,
			Email:     r.PatientEmail,
		}},
		Doctor:    &model.DoctorRef{ID: r.ClinicianID},
		UpdatedAt: r.UpdatedAt,
	}
	if r.EndTime.Valid {
		c.End = r.EndTime.String
	}
	if r.Duration.Valid {
		d := int(r.Duration.Int64)
		c.Duration = &d
	}
	if r.DefaultDuration.Valid {
		d := int(r.DefaultDuration.Int64)
		c.Doctor.DefaultDuration = &d
	}
	return c
}

type consultationRepository struct {
	BaseRepository
}

func NewConsultationRepository(base BaseRepository) repository.ConsultationRepository {
	return &consultationRepository{base}
}

func (r *consultationRepository) ListRange(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]model.Consultation, error) {
	query := `
		SELECT
			c.id, c.clinician_id, to_char(c.date, 'YYYY-MM-DD') AS date,
			c.start_time, c.end_time, c.duration, c.status,
			p.first_name AS patient_first_name, p.last_name AS patient_last_name,
			p.email AS patient_email, d.default_duration, c.updated_at
		FROM consultations c
		JOIN patients p ON p.id = c.patient_id
		LEFT JOIN doctors d ON d.id = c.clinician_id
		WHERE c.clinician_id = $1 AND c.date >= $2 AND c.date < $3
		ORDER BY c.date, c.start_time
	`
	var rows []consultationRow
	err := r.db.SelectContext(ctx, &rows, query, clinicianID, from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}

	out := make([]model.Consultation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (r *consultationRepository) Reschedule(ctx context.Context, c model.Consultation) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("invalid consultation id %q: %w", c.ID, err)
	}

	query := `
		UPDATE consultations
		SET date = $1, start_time = $2, end_time = COALESCE(NULLIF($3, ''), end_time), updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query, c.Date, c.StartTime(), c.EndTime(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to reschedule consultation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("consultation %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
