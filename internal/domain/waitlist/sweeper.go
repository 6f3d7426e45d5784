package waitlist

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper is the only background process in the engine: it periodically
// flips waiting entries whose expiry has passed to expired. Entries are
// never deleted.
type Sweeper struct {
	repo     Repository
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(repo Repository, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{repo: repo, interval: interval, logger: logger}
}

// Start blocks until the context is cancelled, sweeping on each tick.
// Run it in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("waitlist sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("waitlist sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.repo.ExpireBefore(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("waitlist sweep failed")
		return
	}
	if expired > 0 {
		s.logger.Info().Int64("expired", expired).Msg("waitlist entries expired")
	}
}
