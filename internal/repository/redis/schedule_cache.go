package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/repository"
	"github.com/jwalitptl/clinic-schedule/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-schedule/pkg/metrics"
)

const (
	listKeyPrefix  = "schedule:list:"
	ownerKeyPrefix = "schedule:owner:"
)

// scheduleCache keeps clinic schedule lists in redis. Doctor fallbacks and
// the calendar both read the clinic's week, so those lists are hot. Doctor
// lists pass straight through.
//
// Cache failures never fail a call; they are logged and the wrapped
// repository answers instead.
type scheduleCache struct {
	next    repository.ScheduleRepository
	client  *redis.Client
	ttl     time.Duration
	cb      *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewScheduleCache(next repository.ScheduleRepository, client *redis.Client, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) repository.ScheduleRepository {
	return &scheduleCache{
		next:   next,
		client: client,
		ttl:    ttl,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "schedule-cache",
			MaxFailures: 5,
			Timeout:     10 * time.Second,
		}),
		metrics: m,
		logger:  logger.With().Str("component", "schedule-cache").Logger(),
	}
}

func listKey(kind model.OwnerKind, ownerID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", listKeyPrefix, kind, ownerID)
}

func ownerKey(id uuid.UUID) string {
	return ownerKeyPrefix + id.String()
}

func (c *scheduleCache) List(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID) ([]*model.DaySchedule, error) {
	if kind != model.OwnerClinic {
		return c.next.List(ctx, kind, ownerID)
	}

	key := listKey(kind, ownerID)
	var data []byte
	err := c.cb.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
	switch {
	case err != nil:
		c.lookup("error")
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	case data != nil:
		var days []*model.DaySchedule
		if err := json.Unmarshal(data, &days); err == nil {
			c.lookup("hit")
			return days, nil
		}
		c.lookup("error")
		c.logger.Warn().Str("key", key).Msg("dropping undecodable cache entry")
	default:
		c.lookup("miss")
	}

	days, err := c.next.List(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, days)
	return days, nil
}

func (c *scheduleCache) Create(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID, day *model.DaySchedule) (*model.DaySchedule, error) {
	created, err := c.next.Create(ctx, kind, ownerID, day)
	if kind == model.OwnerClinic {
		c.invalidate(ctx, listKey(kind, ownerID))
	}
	return created, err
}

func (c *scheduleCache) Update(ctx context.Context, id uuid.UUID, day *model.DaySchedule) (*model.DaySchedule, error) {
	updated, err := c.next.Update(ctx, id, day)
	c.invalidateByID(ctx, id)
	return updated, err
}

func (c *scheduleCache) Delete(ctx context.Context, id uuid.UUID) error {
	err := c.next.Delete(ctx, id)
	c.invalidateByID(ctx, id)
	return err
}

func (c *scheduleCache) store(ctx context.Context, key string, days []*model.DaySchedule) {
	data, err := json.Marshal(days)
	if err != nil {
		return
	}
	err = c.cb.Execute(func() error {
		_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			for _, d := range days {
				if d.ID != nil {
					pipe.Set(ctx, ownerKey(*d.ID), key, c.ttl)
				}
			}
			return nil
		})
		return err
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *scheduleCache) invalidateByID(ctx context.Context, id uuid.UUID) {
	var key string
	err := c.cb.Execute(func() error {
		var err error
		key, err = c.client.Get(ctx, ownerKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("schedule_id", id.String()).Msg("cache index read failed")
		return
	}
	if key == "" {
		return
	}
	c.invalidate(ctx, key, ownerKey(id))
}

func (c *scheduleCache) invalidate(ctx context.Context, keys ...string) {
	err := c.cb.Execute(func() error {
		return c.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}

func (c *scheduleCache) lookup(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
