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
)

type emergencyRepository struct {
	BaseRepository
}

func NewEmergencyRepository(base BaseRepository) repository.EmergencyRepository {
	return &emergencyRepository{base}
}

func (r *emergencyRepository) Get(ctx context.Context, clinicID uuid.UUID) (*model.EmergencyConfig, error) {
	query := `
		SELECT clinic_id, mode, phone, slots, updated_at
		FROM emergency_configs
		WHERE clinic_id = $1
	`
	var cfg model.EmergencyConfig
	err := r.db.GetContext(ctx, &cfg, query, clinicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("emergency config for clinic %s: %w", clinicID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get emergency config: %w", err)
	}
	return &cfg, nil
}

func (r *emergencyRepository) Save(ctx context.Context, cfg *model.EmergencyConfig) error {
	query := `
		INSERT INTO emergency_configs (clinic_id, mode, phone, slots, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (clinic_id) DO UPDATE
		SET mode = EXCLUDED.mode, phone = EXCLUDED.phone,
		    slots = EXCLUDED.slots, updated_at = EXCLUDED.updated_at
	`
	cfg.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		cfg.ClinicID,
		string(cfg.Mode),
		cfg.Phone,
		cfg.Slots,
		cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save emergency config: %w", err)
	}
	return nil
}
