package emergency

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/repository"
	"github.com/jwalitptl/clinic-schedule/internal/service/notification"
)

const noticeScope = "emergency"

// Service is the page that owns emergency configs: it loads one, lets a
// Block edit it and stores the result once per request.
type Service struct {
	repo   repository.EmergencyRepository
	sink   notification.Sink
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(repo repository.EmergencyRepository, sink notification.Sink, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		sink:   sink,
		logger: logger.With().Str("component", "emergency").Logger(),
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// Get returns the stored config, or the default for a clinic without one.
func (s *Service) Get(ctx context.Context, clinicID uuid.UUID) (model.EmergencyConfig, error) {
	cfg, err := s.repo.Get(ctx, clinicID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.DefaultEmergencyConfig(clinicID), nil
	}
	if err != nil {
		return model.EmergencyConfig{}, fmt.Errorf("failed to get emergency config: %w", err)
	}
	if cfg.Slots == nil {
		cfg.Slots = model.EmergencySlots{}
	}
	return *cfg, nil
}

// Edit runs fn against the clinic's config and saves it if fn changed
// anything. Edits of the same clinic run one at a time.
func (s *Service) Edit(ctx context.Context, clinicID uuid.UUID, fn func(*Block) error) (model.EmergencyConfig, error) {
	lock := s.lockFor(clinicID)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Get(ctx, clinicID)
	if err != nil {
		return model.EmergencyConfig{}, err
	}

	var next *model.EmergencyConfig
	block := NewBlock(current, func(c model.EmergencyConfig) { next = &c })
	if err := fn(block); err != nil {
		return current, err
	}
	if next == nil {
		return current, nil
	}

	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error().Err(err).Str("clinic_id", clinicID.String()).Msg("failed to save emergency config")
		notification.Error(ctx, s.sink, noticeScope, "Failed to save emergency settings", err)
		return current, fmt.Errorf("failed to save emergency config: %w", err)
	}
	notification.Success(ctx, s.sink, noticeScope, "Emergency settings saved")
	return *next, nil
}

func (s *Service) lockFor(clinicID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[clinicID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[clinicID] = l
	}
	return l
}
