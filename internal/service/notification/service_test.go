package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	redisbroker "github.com/jwalitptl/clinic-schedule/pkg/messaging/redis"
)

type recorder struct{ notices []model.Notice }

func (r *recorder) Notify(_ context.Context, n model.Notice) { r.notices = append(r.notices, n) }

func TestHelpersBuildNotices(t *testing.T) {
	rec := &recorder{}
	Success(context.Background(), rec, "schedule", "saved")
	Error(context.Background(), rec, "schedule", "save failed", errors.New("timeout"))
	Error(context.Background(), nil, "ignored", "no sink", nil)

	require.Len(t, rec.notices, 2)
	assert.Equal(t, LevelSuccess, rec.notices[0].Level)
	assert.Equal(t, "saved", rec.notices[0].Message)
	assert.Equal(t, LevelError, rec.notices[1].Level)
	assert.Equal(t, "timeout", rec.notices[1].Detail)
	assert.False(t, rec.notices[1].CreatedAt.IsZero())
}

func TestMultiSkipsNil(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	sink := Multi(a, nil, b)
	Success(context.Background(), sink, "x", "ok")
	assert.Len(t, a.notices, 1)
	assert.Len(t, b.notices, 1)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))
	Error(context.Background(), sink, "schedule:Monday", "save failed", errors.New("boom"))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "save failed", line["message"])
	assert.Equal(t, "schedule:Monday", line["scope"])
	assert.Equal(t, "boom", line["detail"])
}

func TestBrokerSinkPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	broker := redisbroker.NewRedisBroker(client, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := broker.Subscribe(ctx, "notices")
	require.NoError(t, err)

	Success(ctx, NewBrokerSink(broker, "notices", zerolog.Nop()), "schedule", "saved")

	select {
	case raw := <-ch:
		var msg struct {
			Type    string       `json:"type"`
			Payload model.Notice `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, noticeType, msg.Type)
		assert.Equal(t, "saved", msg.Payload.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notice not published")
	}
}
