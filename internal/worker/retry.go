package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-schedule/internal/service/schedule"
	"github.com/jwalitptl/clinic-schedule/pkg/logger"
	"github.com/jwalitptl/clinic-schedule/pkg/metrics"
)

type RetryConfig struct {
	Interval time.Duration
	// Timeout bounds one pass over all sessions.
	Timeout time.Duration
}

// StoreSource lists the schedule stores that may hold failed weekdays.
type StoreSource interface {
	Stores() []*schedule.Store
}

// RetryWorker periodically writes again every weekday whose last save
// failed, so an error state does not depend on the user retrying.
type RetryWorker struct {
	source  StoreSource
	config  RetryConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewRetryWorker(source StoreSource, config RetryConfig, logger *logger.Logger, metrics *metrics.Metrics) *RetryWorker {
	if config.Interval <= 0 {
		panic("Interval must be greater than 0")
	}
	return &RetryWorker{
		source:  source,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (w *RetryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.logger.Info("Starting schedule retry worker", "interval", w.config.Interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down schedule retry worker")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error(err, "Failed to retry schedule writes")
			}
		}
	}
}

// RunOnce retries every open store once.
func (w *RetryWorker) RunOnce(ctx context.Context) error {
	if w.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
	}

	var totalFailed int
	for _, store := range w.source.Stores() {
		retried, failed := store.RetryFailed(ctx)
		if retried == 0 {
			continue
		}
		kind := string(store.Kind())
		if w.metrics != nil {
			w.metrics.ScheduleRetries.WithLabelValues(kind, "success").Add(float64(retried - failed))
			w.metrics.ScheduleRetries.WithLabelValues(kind, "error").Add(float64(failed))
		}
		w.logger.Debug("Retried schedule writes",
			"kind", kind,
			"owner_id", store.OwnerID().String(),
			"retried", retried,
			"failed", failed)
		totalFailed += failed
	}
	if totalFailed > 0 {
		return fmt.Errorf("%d weekday writes still failing", totalFailed)
	}
	return nil
}
