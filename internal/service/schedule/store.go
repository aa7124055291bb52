package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/repository"
	"github.com/jwalitptl/clinic-schedule/internal/service/notification"
	"github.com/jwalitptl/clinic-schedule/pkg/metrics"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

var (
	ErrInvalidWeekday = errors.New("weekday must be between 0 (Monday) and 6 (Sunday)")
	ErrInvalidStatus  = errors.New("status is not allowed for this schedule kind")
	ErrEmptyClipboard = errors.New("nothing has been copied yet")
	ErrStoreClosed    = errors.New("schedule store is closed")
	ErrNotDoctor      = errors.New("operation only applies to doctor schedules")
	ErrNoClinic       = errors.New("no clinic to take default hours from")
)

// DefaultSlot is seeded when a day is opened without hours.
var DefaultSlot = timeslot.Slot{Start: "09:00", End: "17:00"}

// SyncState tells whether a weekday's in-memory record matches storage.
type SyncState string

const (
	SyncClean   SyncState = "clean"
	SyncPending SyncState = "pending"
	SyncSaving  SyncState = "saving"
	SyncError   SyncState = "error"
)

// DaySync is the sync state of one weekday.
type DaySync struct {
	Weekday model.Weekday `json:"weekday"`
	State   SyncState     `json:"state"`
	Error   string        `json:"error,omitempty"`
}

type Config struct {
	Kind    model.OwnerKind
	OwnerID uuid.UUID
	// ClinicID is where a doctor's default hours come from. Unused for clinics.
	ClinicID     uuid.UUID
	Debounce     time.Duration
	WriteTimeout time.Duration
}

// Store is the in-memory weekly schedule of one owner. Each weekday is
// written back independently after a quiet period; see persist.go.
type Store struct {
	cfg     Config
	repo    repository.ScheduleRepository
	sink    notification.Sink
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu        sync.Mutex
	week      model.WeeklySchedule
	state     [model.DaysPerWeek]SyncState
	lastErr   [model.DaysPerWeek]error
	gen       [model.DaysPerWeek]uint64
	timers    [model.DaysPerWeek]*time.Timer
	timerSeq  [model.DaysPerWeek]uint64
	clipboard *model.DaySchedule
	loaded    bool
	closed    bool

	// writeMu serializes storage calls per weekday so a create always
	// finishes (and hands back its id) before the next write starts.
	writeMu  [model.DaysPerWeek]sync.Mutex
	inflight sync.WaitGroup
}

func NewStore(cfg Config, repo repository.ScheduleRepository, sink notification.Sink, m *metrics.Metrics, logger zerolog.Logger) *Store {
	s := &Store{
		cfg:     cfg,
		repo:    repo,
		sink:    sink,
		metrics: m,
		logger: logger.With().
			Str("kind", string(cfg.Kind)).
			Str("owner_id", cfg.OwnerID.String()).
			Logger(),
		week: model.NormalizeWeek(cfg.Kind, cfg.OwnerID, nil),
	}
	for i := range s.state {
		s.state[i] = SyncClean
	}
	return s
}

func (s *Store) Kind() model.OwnerKind { return s.cfg.Kind }

func (s *Store) OwnerID() uuid.UUID { return s.cfg.OwnerID }

// SetClinic switches a doctor's fallback clinic when clinicID is set and
// differs. It reports true when the store should be fetched again: no
// clinic was known before and the doctor has neither stored days nor
// unsaved edits.
func (s *Store) SetClinic(clinicID uuid.UUID) bool {
	if s.cfg.Kind != model.OwnerDoctor || clinicID == uuid.Nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cfg.ClinicID == clinicID {
		return false
	}
	refetch := s.cfg.ClinicID == uuid.Nil
	for w := range s.week {
		if s.week[w].ID != nil || s.state[w] != SyncClean {
			refetch = false
		}
	}
	s.logger.Debug().Str("clinic_id", clinicID.String()).Msg("fallback clinic changed")
	s.cfg.ClinicID = clinicID
	return refetch
}

func (s *Store) clinicID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ClinicID
}

func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Fetch loads the owner's records. A doctor without any record adopts the
// clinic's open days, and each adopted day is created under the doctor in
// the background.
func (s *Store) Fetch(ctx context.Context) error {
	clinicID := s.clinicID()
	records, err := s.repo.List(ctx, s.cfg.Kind, s.cfg.OwnerID)
	if err != nil {
		notification.Error(ctx, s.sink, string(s.cfg.Kind), "Failed to load schedule", err)
		return fmt.Errorf("failed to list schedules: %w", err)
	}

	if len(records) > 0 || s.cfg.Kind != model.OwnerDoctor || clinicID == uuid.Nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return ErrStoreClosed
		}
		s.stopAllTimersLocked()
		s.week = model.NormalizeWeek(s.cfg.Kind, s.cfg.OwnerID, records)
		for i := range s.state {
			s.state[i] = SyncClean
			s.lastErr[i] = nil
		}
		s.loaded = true
		return nil
	}

	clinicRecords, err := s.repo.List(ctx, model.OwnerClinic, clinicID)
	if err != nil {
		notification.Error(ctx, s.sink, string(s.cfg.Kind), "Failed to load clinic hours", err)
		return fmt.Errorf("failed to list clinic schedules: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	s.stopAllTimersLocked()
	s.week = s.adoptClinicWeek(clinicRecords, nil)
	var adopted []model.Weekday
	for w := model.Monday; w <= model.Sunday; w++ {
		s.lastErr[w] = nil
		s.state[w] = SyncClean
		if s.week[w].IsOpen() {
			s.gen[w]++
			s.state[w] = SyncSaving
			adopted = append(adopted, w)
		}
	}
	s.loaded = true
	s.inflight.Add(len(adopted))
	s.mu.Unlock()

	s.logger.Info().Int("days", len(adopted)).Msg("doctor has no schedule, adopting clinic hours")

	bg := context.WithoutCancel(ctx)
	for _, w := range adopted {
		go func(w model.Weekday) {
			defer s.inflight.Done()
			_, _ = s.persistDay(bg, w, notifyFailures)
		}(w)
	}
	return nil
}

// adoptClinicWeek turns clinic records into a doctor week: open clinic days
// become open doctor days with the same slots, the rest are inherited.
// Ids are taken from keep when given so existing doctor rows are reused.
func (s *Store) adoptClinicWeek(clinicRecords []*model.DaySchedule, keep *model.WeeklySchedule) model.WeeklySchedule {
	clinicWeek := model.NormalizeWeek(model.OwnerClinic, s.cfg.ClinicID, clinicRecords)
	var week model.WeeklySchedule
	for w := model.Monday; w <= model.Sunday; w++ {
		day := model.PlaceholderDay(s.cfg.Kind, s.cfg.OwnerID, w)
		if clinicWeek[w].IsOpen() {
			day.Status = model.DayOpen
			day.Slots = timeslot.Sort(clinicWeek[w].Slots)
		}
		if keep != nil && keep[w].ID != nil {
			id := *keep[w].ID
			day.ID = &id
		}
		week[w] = day
	}
	return week
}

// Week returns a deep copy of all seven days.
func (s *Store) Week() model.WeeklySchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out model.WeeklySchedule
	for i, d := range s.week {
		out[i] = d.Clone()
	}
	return out
}

// GetDay never returns an empty record: days without storage are
// placeholders.
func (s *Store) GetDay(w model.Weekday) (model.DaySchedule, error) {
	if !w.Valid() {
		return model.DaySchedule{}, ErrInvalidWeekday
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.week[w].Clone(), nil
}

// SetDay replaces the record for w and schedules its write. The record
// keeps the stored id of the day it replaces unless it carries its own.
func (s *Store) SetDay(w model.Weekday, rec model.DaySchedule) error {
	if !w.Valid() {
		return ErrInvalidWeekday
	}
	if rec.Status == "" {
		rec.Status = model.DayOpen
	}
	if err := s.checkStatus(rec.Status); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	day := rec.Clone()
	day.Weekday = w
	day.OwnerKind = s.cfg.Kind
	day.OwnerID = s.cfg.OwnerID
	if day.ID == nil && s.week[w].ID != nil {
		id := *s.week[w].ID
		day.ID = &id
	}
	if day.Status == model.DayOpen {
		day.Slots = timeslot.Sort(day.Slots)
	} else {
		day.Slots = []timeslot.Slot{}
	}
	s.week[w] = day
	s.scheduleWriteLocked(w)
	return nil
}

func (s *Store) checkStatus(st model.DayStatus) error {
	switch {
	case st == model.DayOpen:
		return nil
	case st == model.DayClosed && s.cfg.Kind == model.OwnerClinic:
		return nil
	case st == model.DayInherited && s.cfg.Kind == model.OwnerDoctor:
		return nil
	}
	return fmt.Errorf("%w: %s for %s", ErrInvalidStatus, st, s.cfg.Kind)
}

// ToggleDay opens or closes w.
//
// Clinics flip between open and closed; opening seeds DefaultSlot when the
// day has no slots and closing clears them. Doctors open a day by creating
// an override seeded with DefaultSlot, and close it by deleting the stored
// row right away. A failed delete leaves the day untouched.
func (s *Store) ToggleDay(ctx context.Context, w model.Weekday) error {
	if !w.Valid() {
		return ErrInvalidWeekday
	}
	if s.cfg.Kind == model.OwnerDoctor {
		return s.toggleDoctorDay(ctx, w)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	day := s.week[w]
	if day.IsOpen() {
		day.Status = model.DayClosed
		day.Slots = []timeslot.Slot{}
	} else {
		day.Status = model.DayOpen
		if len(day.Slots) == 0 {
			day.Slots = []timeslot.Slot{DefaultSlot}
		}
	}
	s.week[w] = day
	s.scheduleWriteLocked(w)
	return nil
}

func (s *Store) toggleDoctorDay(ctx context.Context, w model.Weekday) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	day := s.week[w]
	switch {
	case !day.IsOpen():
		day.Status = model.DayOpen
		day.Slots = []timeslot.Slot{DefaultSlot}
		s.week[w] = day
		s.scheduleWriteLocked(w)
		s.mu.Unlock()
		return nil
	case !day.Persisted():
		// Never stored. A create may still be in flight; the scheduled
		// write deletes whatever it produces.
		day.Status = model.DayInherited
		day.Slots = []timeslot.Slot{}
		s.week[w] = day
		s.scheduleWriteLocked(w)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.writeMu[w].Lock()
	defer s.writeMu[w].Unlock()

	s.mu.Lock()
	id := s.week[w].ID
	s.mu.Unlock()

	if id != nil {
		start := time.Now()
		err := s.repo.Delete(ctx, *id)
		if errors.Is(err, repository.ErrNotFound) {
			err = nil
		}
		s.observe(opDelete, start, err)
		if err != nil {
			s.logger.Error().Err(err).Str("weekday", w.String()).Msg("failed to delete doctor day")
			notification.Error(ctx, s.sink, w.String(), fmt.Sprintf("Failed to close %s", w), err)
			return fmt.Errorf("failed to delete %s schedule: %w", w, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked(w)
	s.week[w] = model.PlaceholderDay(s.cfg.Kind, s.cfg.OwnerID, w)
	s.gen[w]++
	s.state[w] = SyncClean
	s.lastErr[w] = nil
	notification.Success(ctx, s.sink, w.String(), fmt.Sprintf("%s closed", w))
	return nil
}

// CopyDay puts a sorted deep copy of w on the clipboard, replacing
// whatever was there.
func (s *Store) CopyDay(w model.Weekday) (model.DaySchedule, error) {
	if !w.Valid() {
		return model.DaySchedule{}, ErrInvalidWeekday
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clip := s.week[w].Clone()
	clip.Slots = timeslot.Sort(clip.Slots)
	s.clipboard = &clip
	return clip.Clone(), nil
}

// PasteDay applies the clipboard to w. The target keeps its own id.
func (s *Store) PasteDay(w model.Weekday) error {
	if !w.Valid() {
		return ErrInvalidWeekday
	}
	s.mu.Lock()
	if s.clipboard == nil {
		s.mu.Unlock()
		return ErrEmptyClipboard
	}
	rec := s.clipboard.Clone()
	s.mu.Unlock()

	rec.ID = nil
	rec.Weekday = w
	return s.SetDay(w, rec)
}

// Sync reports the sync state of every weekday.
func (s *Store) Sync() []DaySync {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DaySync, model.DaysPerWeek)
	for w := model.Monday; w <= model.Sunday; w++ {
		out[w] = DaySync{Weekday: w, State: s.state[w]}
		if s.state[w] == SyncError && s.lastErr[w] != nil {
			out[w].Error = s.lastErr[w].Error()
		}
	}
	return out
}

// DayState is the sync state of one weekday.
func (s *Store) DayState(w model.Weekday) SyncState {
	if !w.Valid() {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[w]
}

// HasErrors reports whether any weekday failed its last write.
func (s *Store) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.state {
		if st == SyncError {
			return true
		}
	}
	return false
}

// ApplyClinicDefaults replaces a doctor's week with the clinic's hours.
//
// With persist false nothing is written: every day is marked pending and
// stays so until SaveAll. With persist true every day is written now,
// including deletes of doctor rows for days that are no longer open.
func (s *Store) ApplyClinicDefaults(ctx context.Context, persist bool) ([]DayResult, error) {
	if s.cfg.Kind != model.OwnerDoctor {
		return nil, ErrNotDoctor
	}
	clinicID := s.clinicID()
	if clinicID == uuid.Nil {
		return nil, ErrNoClinic
	}

	records, err := s.repo.List(ctx, model.OwnerClinic, clinicID)
	if err != nil {
		notification.Error(ctx, s.sink, string(s.cfg.Kind), "Failed to load clinic hours", err)
		return nil, fmt.Errorf("failed to list clinic schedules: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}
	s.stopAllTimersLocked()
	current := s.week
	s.week = s.adoptClinicWeek(records, &current)
	for w := range s.week {
		s.gen[w]++
		s.state[w] = SyncPending
		s.lastErr[w] = nil
	}
	s.mu.Unlock()

	if !persist {
		return nil, nil
	}
	return s.saveDays(ctx, "Clinic hours applied")
}
