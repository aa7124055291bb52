package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/repository"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

// Table layout:
//
//	schedules(id uuid pk, owner_kind text, owner_id uuid, weekday smallint,
//	          open bool, slots jsonb, created_at, updated_at,
//	          unique (owner_kind, owner_id, weekday))
type scheduleRow struct {
	ID        uuid.UUID     `db:"id"`
	OwnerKind string        `db:"owner_kind"`
	OwnerID   uuid.UUID     `db:"owner_id"`
	Weekday   int           `db:"weekday"`
	Open      bool          `db:"open"`
	Slots     timeslot.List `db:"slots"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

func (r scheduleRow) toModel() *model.DaySchedule {
	id := r.ID
	kind := model.OwnerKind(r.OwnerKind)
	status := model.DayOpen
	if !r.Open && kind == model.OwnerClinic {
		status = model.DayClosed
	}
	slots := []timeslot.Slot(r.Slots)
	if slots == nil {
		slots = []timeslot.Slot{}
	}
	return &model.DaySchedule{
		Base:      model.Base{CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		ID:        &id,
		OwnerKind: kind,
		OwnerID:   r.OwnerID,
		Weekday:   model.Weekday(r.Weekday),
		Status:    status,
		Slots:     slots,
	}
}

const scheduleColumns = `id, owner_kind, owner_id, weekday, open, slots, created_at, updated_at`

type scheduleRepository struct {
	BaseRepository
}

func NewScheduleRepository(base BaseRepository) repository.ScheduleRepository {
	return &scheduleRepository{base}
}

func (r *scheduleRepository) List(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID) ([]*model.DaySchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE owner_kind = $1 AND owner_id = $2
		ORDER BY weekday
	`
	var rows []scheduleRow
	if err := r.db.SelectContext(ctx, &rows, query, string(kind), ownerID); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	days := make([]*model.DaySchedule, 0, len(rows))
	for _, row := range rows {
		days = append(days, row.toModel())
	}
	return days, nil
}

func (r *scheduleRepository) Create(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID, day *model.DaySchedule) (*model.DaySchedule, error) {
	query := `
		INSERT INTO schedules (
			id, owner_kind, owner_id, weekday, open, slots, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (owner_kind, owner_id, weekday) DO UPDATE
		SET open = EXCLUDED.open, slots = EXCLUDED.slots, updated_at = EXCLUDED.updated_at
		RETURNING ` + scheduleColumns

	now := time.Now().UTC()
	var row scheduleRow
	err := r.db.GetContext(ctx, &row, query,
		uuid.New(),
		string(kind),
		ownerID,
		int(day.Weekday),
		day.IsOpen(),
		timeslot.List(day.Slots),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	return row.toModel(), nil
}

func (r *scheduleRepository) Update(ctx context.Context, id uuid.UUID, day *model.DaySchedule) (*model.DaySchedule, error) {
	query := `
		UPDATE schedules
		SET open = $1, slots = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + scheduleColumns

	var row scheduleRow
	err := r.db.GetContext(ctx, &row, query,
		day.IsOpen(),
		timeslot.List(day.Slots),
		time.Now().UTC(),
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}
	return row.toModel(), nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("schedule %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
