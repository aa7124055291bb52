package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/repository"
	"github.com/jwalitptl/clinic-schedule/internal/service/notification"
)

const (
	opNone   = "none"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

type notifyMode int

const (
	notifyNever notifyMode = iota
	notifyFailures
	notifyAlways
)

// DayResult is the outcome of writing one weekday.
type DayResult struct {
	Weekday   model.Weekday `json:"weekday"`
	Operation string        `json:"operation"`
	Error     string        `json:"error,omitempty"`
}

func (r DayResult) Failed() bool { return r.Error != "" }

// opFor picks the storage call that makes storage match day.
func opFor(day model.DaySchedule) string {
	switch {
	case day.Status == model.DayInherited && day.Persisted():
		return opDelete
	case day.Status == model.DayInherited:
		return opNone
	case day.Persisted():
		return opUpdate
	default:
		return opCreate
	}
}

// scheduleWriteLocked marks w dirty and (re)starts its debounce timer.
// A pending timer for the same weekday is replaced, so rapid edits
// collapse into one write carrying the last value.
func (s *Store) scheduleWriteLocked(w model.Weekday) {
	s.gen[w]++
	s.state[w] = SyncPending
	if s.stopTimerLocked(w) && s.metrics != nil {
		s.metrics.DebounceCoalesced.WithLabelValues(string(s.cfg.Kind)).Inc()
	}
	s.timerSeq[w]++
	seq := s.timerSeq[w]
	s.timers[w] = time.AfterFunc(s.cfg.Debounce, func() { s.fire(w, seq) })
	s.logger.Debug().Str("weekday", w.String()).Dur("debounce", s.cfg.Debounce).Msg("write scheduled")
}

// stopTimerLocked cancels w's pending timer and reports whether there was one.
func (s *Store) stopTimerLocked(w model.Weekday) bool {
	if s.timers[w] == nil {
		return false
	}
	s.timers[w].Stop()
	s.timers[w] = nil
	// a callback that already started sees a stale sequence and returns
	s.timerSeq[w]++
	return true
}

func (s *Store) stopAllTimersLocked() {
	for w := model.Monday; w <= model.Sunday; w++ {
		s.stopTimerLocked(w)
	}
}

// flushLocked cancels every pending timer and returns the weekdays that
// were waiting on one.
func (s *Store) flushLocked() []model.Weekday {
	var pending []model.Weekday
	for w := model.Monday; w <= model.Sunday; w++ {
		if s.stopTimerLocked(w) {
			pending = append(pending, w)
		}
	}
	return pending
}

func (s *Store) fire(w model.Weekday, seq uint64) {
	s.mu.Lock()
	if s.timerSeq[w] != seq || s.timers[w] == nil {
		s.mu.Unlock()
		return
	}
	s.timers[w] = nil
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	_, _ = s.persistDay(context.Background(), w, notifyAlways)
}

func (s *Store) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.WriteTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.WriteTimeout)
	}
	return context.WithCancel(ctx)
}

// persistDay sends the whole record of w to storage. The in-memory record is
// never rolled back; a failure leaves the day in SyncError.
func (s *Store) persistDay(ctx context.Context, w model.Weekday, mode notifyMode) (string, error) {
	s.writeMu[w].Lock()
	defer s.writeMu[w].Unlock()

	s.mu.Lock()
	day := s.week[w].Clone()
	gen := s.gen[w]
	s.state[w] = SyncSaving
	s.mu.Unlock()

	op := opFor(day)
	if op == opNone {
		s.settle(w, gen, op, nil, nil)
		return op, nil
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()

	var saved *model.DaySchedule
	var err error
	start := time.Now()
	switch op {
	case opCreate:
		saved, err = s.repo.Create(wctx, s.cfg.Kind, s.cfg.OwnerID, &day)
	case opUpdate:
		saved, err = s.repo.Update(wctx, *day.ID, &day)
		if errors.Is(err, repository.ErrNotFound) {
			// row removed behind our back; recreate it
			s.observe(op, start, err)
			op, start = opCreate, time.Now()
			saved, err = s.repo.Create(wctx, s.cfg.Kind, s.cfg.OwnerID, &day)
		}
	case opDelete:
		err = s.repo.Delete(wctx, *day.ID)
		if errors.Is(err, repository.ErrNotFound) {
			err = nil
		}
	}
	s.observe(op, start, err)
	s.settle(w, gen, op, saved, err)

	if err != nil {
		s.logger.Error().Err(err).Str("weekday", w.String()).Str("operation", op).Msg("failed to persist schedule day")
		if mode >= notifyFailures {
			notification.Error(ctx, s.sink, w.String(), fmt.Sprintf("Failed to save %s", w), err)
		}
		return op, fmt.Errorf("failed to %s %s schedule: %w", op, w, err)
	}

	s.logger.Debug().Str("weekday", w.String()).Str("operation", op).Msg("schedule day persisted")
	if mode == notifyAlways {
		notification.Success(ctx, s.sink, w.String(), fmt.Sprintf("%s saved", w))
	}
	return op, nil
}

// settle records the outcome of a write that started at generation gen.
// Edits made while the write was in flight keep the day pending.
func (s *Store) settle(w model.Weekday, gen uint64, op string, saved *model.DaySchedule, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		switch op {
		case opCreate, opUpdate:
			if saved != nil && saved.ID != nil {
				id := *saved.ID
				s.week[w].ID = &id
			}
		case opDelete:
			s.week[w].ID = nil
		}
	}

	if s.gen[w] != gen {
		s.state[w] = SyncPending
		return
	}
	if err != nil {
		s.state[w] = SyncError
		s.lastErr[w] = err
		return
	}
	s.state[w] = SyncClean
	s.lastErr[w] = nil
}

func (s *Store) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ScheduleWrites.WithLabelValues(string(s.cfg.Kind), op, status).Inc()
	s.metrics.ScheduleWriteLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SaveAll fires every pending timer now and writes all weekdays
// concurrently. One failing weekday does not stop the others; the caller
// gets one result per weekday written and the user one aggregate notice.
func (s *Store) SaveAll(ctx context.Context) ([]DayResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}
	s.flushLocked()
	s.mu.Unlock()

	return s.saveDays(ctx, "Schedule saved")
}

func (s *Store) saveDays(ctx context.Context, successMsg string) ([]DayResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}
	var days []model.Weekday
	for w := model.Monday; w <= model.Sunday; w++ {
		if opFor(s.week[w]) != opNone {
			days = append(days, w)
		} else if s.state[w] != SyncSaving {
			s.state[w] = SyncClean
			s.lastErr[w] = nil
		}
	}
	s.inflight.Add(len(days))
	s.mu.Unlock()

	results := make([]DayResult, len(days))
	var g errgroup.Group
	for i, w := range days {
		i, w := i, w
		g.Go(func() error {
			defer s.inflight.Done()
			op, err := s.persistDay(ctx, w, notifyNever)
			results[i] = DayResult{Weekday: w, Operation: op}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed == 0 {
		notification.Success(ctx, s.sink, string(s.cfg.Kind), successMsg)
	} else {
		notification.Error(ctx, s.sink, string(s.cfg.Kind),
			fmt.Sprintf("%d of %d days failed to save", failed, len(results)), nil)
	}
	return results, nil
}

// RetryFailed writes again every weekday whose last write failed.
func (s *Store) RetryFailed(ctx context.Context) (retried, failed int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, 0
	}
	var days []model.Weekday
	for w := model.Monday; w <= model.Sunday; w++ {
		if s.state[w] == SyncError && s.timers[w] == nil {
			days = append(days, w)
		}
	}
	s.inflight.Add(len(days))
	s.mu.Unlock()

	for _, w := range days {
		_, err := s.persistDay(ctx, w, notifyNever)
		s.inflight.Done()
		if err != nil {
			failed++
		}
	}
	if len(days) > 0 && failed == 0 {
		notification.Success(ctx, s.sink, string(s.cfg.Kind), "Unsaved changes have been saved")
	}
	return len(days), failed
}

// Wait blocks until no write is in flight.
func (s *Store) Wait() {
	s.inflight.Wait()
}

// Close flushes pending timers, waits for every write to finish and
// rejects later edits.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := s.flushLocked()
	s.inflight.Add(len(pending))
	s.mu.Unlock()

	for _, w := range pending {
		go func(w model.Weekday) {
			defer s.inflight.Done()
			_, _ = s.persistDay(context.WithoutCancel(ctx), w, notifyAlways)
		}(w)
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
