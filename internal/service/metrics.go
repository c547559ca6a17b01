package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/rps-arena/internal/game"
	"github.com/rps-arena/pkg/logger"
)

const meterName = "github.com/rps-arena/internal/service"

type metrics struct {
	rounds   metric.Int64Counter
	sessions metric.Int64Counter
}

// newMetrics binds counters to the global meter provider. Counters that
// cannot be created fall back to no-ops.
func newMetrics(log *logger.Logger) *metrics {
	meter := otel.Meter(meterName)

	rounds, err := meter.Int64Counter(
		"rps.rounds.resolved",
		metric.WithDescription("Rounds resolved, by outcome and mode"),
		metric.WithUnit("{round}"),
	)
	if err != nil {
		log.Warn("Failed to create rounds counter", logger.Err(err))
		rounds = noop.Int64Counter{}
	}

	sessions, err := meter.Int64Counter(
		"rps.sessions.started",
		metric.WithDescription("Sessions started"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		log.Warn("Failed to create sessions counter", logger.Err(err))
		sessions = noop.Int64Counter{}
	}

	return &metrics{rounds: rounds, sessions: sessions}
}

func (m *metrics) roundResolved(ctx context.Context, outcome game.Outcome, automated bool) {
	mode := "player"
	if automated {
		mode = "exhibition"
	}
	m.rounds.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome.String()),
		attribute.String("mode", mode),
	))
}

func (m *metrics) sessionStarted(ctx context.Context) {
	m.sessions.Add(ctx, 1)
}
