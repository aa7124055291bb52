package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/repository"
	"github.com/jwalitptl/clinic-schedule/pkg/metrics"
)

// WeekQuery selects the week a clinician's calendar shows. ClinicID is used
// for availability when the clinician has no hours of their own.
type WeekQuery struct {
	ClinicianID uuid.UUID
	ClinicID    uuid.UUID
	WeekStart   time.Time
	Draft       *model.Draft
}

// View is a rendered week.
type View struct {
	WeekStart    string                     `json:"week_start"`
	PrevWeek     string                     `json:"prev_week"`
	NextWeek     string                     `json:"next_week"`
	Geometry     GeometryView               `json:"geometry"`
	Columns      []DayColumn                `json:"columns"`
	Availability []model.AvailabilityWindow `json:"availability"`
}

// GeometryView tells the client how to draw the grid.
type GeometryView struct {
	StartHour    int     `json:"start_hour"`
	EndHour      int     `json:"end_hour"`
	SlotMinutes  int     `json:"slot_minutes"`
	SlotHeightPx float64 `json:"slot_height_px"`
	Height       float64 `json:"height"`
}

// DropRequest replays one drag: pick up ID, release it at (DayIndex, OffsetY).
type DropRequest struct {
	WeekQuery
	ID       string
	DayIndex int
	OffsetY  float64
}

// Service composes consultations and availability into calendar weeks and
// applies drops.
type Service struct {
	consultations repository.ConsultationRepository
	schedules     repository.ScheduleRepository
	geometry      Geometry
	draftDuration int
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

func NewService(consultations repository.ConsultationRepository, schedules repository.ScheduleRepository, geom Geometry, draftDuration int, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		consultations: consultations,
		schedules:     schedules,
		geometry:      geom,
		draftDuration: draftDuration,
		metrics:       m,
		logger:        logger.With().Str("component", "calendar").Logger(),
	}
}

// Week renders the week of q.
func (s *Service) Week(ctx context.Context, q WeekQuery) (*View, error) {
	engine, err := s.engine(ctx, q, nil, nil)
	if err != nil {
		return nil, err
	}
	avail, err := s.availability(ctx, q)
	if err != nil {
		return nil, err
	}
	start := engine.WeekStart()
	g := engine.Geometry()
	return &View{
		WeekStart: start.Format(model.DateLayout),
		PrevWeek:  start.AddDate(0, 0, -7).Format(model.DateLayout),
		NextWeek:  start.AddDate(0, 0, 7).Format(model.DateLayout),
		Geometry: GeometryView{
			StartHour:    g.StartHour,
			EndHour:      g.EndHour,
			SlotMinutes:  g.SlotMinutes,
			SlotHeightPx: g.SlotHeightPx,
			Height:       g.Height(),
		},
		Columns:      engine.Columns(avail),
		Availability: avail,
	}, nil
}

// Drop runs one drag to completion. A moved consultation is rescheduled in
// storage; a moved draft is only returned.
func (s *Service) Drop(ctx context.Context, req DropRequest) (*Drop, error) {
	var changed []model.Consultation
	engine, err := s.engine(ctx, req.WeekQuery, func(cs []model.Consultation) { changed = cs }, nil)
	if err != nil {
		return nil, err
	}

	if err := engine.StartDrag(req.ID); err != nil {
		return nil, err
	}
	if _, err := engine.MoveDrag(req.DayIndex, req.OffsetY); err != nil {
		engine.CancelDrag()
		return nil, err
	}
	drop, err := engine.EndDrag(req.DayIndex, req.OffsetY)
	if err != nil {
		return nil, err
	}
	if drop.Provisional || changed == nil || drop.Consultation == nil {
		return &drop, nil
	}

	if err := s.consultations.Reschedule(ctx, *drop.Consultation); err != nil {
		s.logger.Error().Err(err).Str("consultation_id", drop.ID).Msg("failed to reschedule consultation")
		return nil, fmt.Errorf("failed to reschedule consultation: %w", err)
	}
	s.logger.Info().
		Str("consultation_id", drop.ID).
		Str("date", drop.Date).
		Str("start", drop.Start).
		Msg("consultation rescheduled")
	return &drop, nil
}

func (s *Service) engine(ctx context.Context, q WeekQuery, onChange func([]model.Consultation), onDraft func(model.Draft)) (*Engine, error) {
	start := MondayOf(q.WeekStart)
	var list []model.Consultation
	if q.ClinicianID != uuid.Nil {
		var err error
		list, err = s.consultations.ListRange(ctx, q.ClinicianID, start, start.AddDate(0, 0, model.DaysPerWeek))
		if err != nil {
			return nil, fmt.Errorf("failed to list consultations: %w", err)
		}
	}
	return NewEngine(Options{
		WeekStart:     start,
		Geometry:      s.geometry,
		Consultations: list,
		Draft:         q.Draft,
		DraftDuration: s.draftDuration,
		OnChange:      onChange,
		OnDraftChange: onDraft,
		Metrics:       s.metrics,
	}), nil
}

// availability uses the clinician's own week, or the clinic's when the
// clinician has none.
func (s *Service) availability(ctx context.Context, q WeekQuery) ([]model.AvailabilityWindow, error) {
	if q.ClinicianID != uuid.Nil {
		records, err := s.schedules.List(ctx, model.OwnerDoctor, q.ClinicianID)
		if err != nil {
			return nil, fmt.Errorf("failed to list doctor schedule: %w", err)
		}
		if len(records) > 0 {
			return model.NormalizeWeek(model.OwnerDoctor, q.ClinicianID, records).Availability(), nil
		}
	}
	if q.ClinicID == uuid.Nil {
		return []model.AvailabilityWindow{}, nil
	}
	records, err := s.schedules.List(ctx, model.OwnerClinic, q.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinic schedule: %w", err)
	}
	return model.NormalizeWeek(model.OwnerClinic, q.ClinicID, records).Availability(), nil
}
