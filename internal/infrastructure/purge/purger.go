// Package purge implements the scheduled permanent deletion of soft-deleted
// records. Soft-deleted users and fully retired tokens stay queryable until
// the retention window passes, then the sweeper removes them for good.
package purge

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/torqueworks/workshop-api/internal/api/metrics"
	"github.com/torqueworks/workshop-api/internal/core/ports"
)

const sweepTimeout = 2 * time.Minute

// Purger runs the retention sweep on a cron schedule.
type Purger struct {
	users     ports.UserRepository
	tokens    ports.TokenRepository
	retention time.Duration
	cron      *cron.Cron
	log       zerolog.Logger
}

// NewPurger creates a Purger. A non-positive retention defaults to 30 days.
func NewPurger(users ports.UserRepository, tokens ports.TokenRepository, retention time.Duration, log zerolog.Logger) *Purger {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &Purger{
		users:     users,
		tokens:    tokens,
		retention: retention,
		cron:      cron.New(),
		log:       log,
	}
}

// Start registers the sweep on the given cron schedule (e.g. "@daily") and
// starts the scheduler in its own goroutine.
func (p *Purger) Start(schedule string) error {
	if _, err := p.cron.AddFunc(schedule, p.sweep); err != nil {
		return err
	}
	p.cron.Start()
	p.log.Info().Str("schedule", schedule).Dur("retention", p.retention).Msg("purge sweeper started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (p *Purger) Stop() {
	<-p.cron.Stop().Done()
}

func (p *Purger) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	cutoff := time.Now().UTC().Add(-p.retention)

	users, err := p.users.PurgeDeleted(ctx, cutoff)
	if err != nil {
		p.log.Error().Err(err).Msg("user purge failed")
	} else if users > 0 {
		metrics.PurgedRecordsTotal.WithLabelValues("users").Add(float64(users))
	}

	tokens, err := p.tokens.PurgeRetired(ctx, cutoff)
	if err != nil {
		p.log.Error().Err(err).Msg("token purge failed")
	} else if tokens > 0 {
		metrics.PurgedRecordsTotal.WithLabelValues("tokens").Add(float64(tokens))
	}

	p.log.Info().Int64("users", users).Int64("tokens", tokens).Msg("purge sweep complete")
}
