package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/pkg/messaging"
)

const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"

	noticeType = "schedule.notice"
)

// Sink shows a message to the user. Delivery is fire-and-forget: callers
// never act on the outcome.
type Sink interface {
	Notify(ctx context.Context, notice model.Notice)
}

// Success sends a success notice for scope.
func Success(ctx context.Context, s Sink, scope, msg string) {
	send(ctx, s, LevelSuccess, scope, msg, "")
}

// Error sends an error notice for scope with err as detail.
func Error(ctx context.Context, s Sink, scope, msg string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	send(ctx, s, LevelError, scope, msg, detail)
}

func send(ctx context.Context, s Sink, level, scope, msg, detail string) {
	if s == nil {
		return
	}
	s.Notify(ctx, model.Notice{
		Level:     level,
		Message:   msg,
		Scope:     scope,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
}

type logSink struct {
	logger zerolog.Logger
}

// NewLogSink writes notices to the log.
func NewLogSink(logger zerolog.Logger) Sink {
	return &logSink{logger: logger.With().Str("component", "notifications").Logger()}
}

func (s *logSink) Notify(_ context.Context, n model.Notice) {
	ev := s.logger.Info()
	if n.Level == LevelError {
		ev = s.logger.Warn()
	}
	ev.Str("notice", n.Level).
		Str("scope", n.Scope).
		Str("detail", n.Detail).
		Msg(n.Message)
}

type brokerSink struct {
	broker  messaging.Broker
	channel string
	logger  zerolog.Logger
}

// NewBrokerSink publishes notices on channel so connected front ends can
// show them as toasts.
func NewBrokerSink(broker messaging.Broker, channel string, logger zerolog.Logger) Sink {
	return &brokerSink{broker: broker, channel: channel, logger: logger}
}

func (s *brokerSink) Notify(ctx context.Context, n model.Notice) {
	msg := messaging.Message{Type: noticeType, Payload: n}
	if err := s.broker.Publish(context.WithoutCancel(ctx), s.channel, msg); err != nil {
		s.logger.Warn().Err(err).Str("channel", s.channel).Msg("failed to publish notice")
	}
}

type multiSink []Sink

// Multi fans a notice out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Notify(ctx context.Context, n model.Notice) {
	for _, s := range m {
		s.Notify(ctx, n)
	}
}
