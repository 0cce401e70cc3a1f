package digest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/hopeland/leasebot/internal/logger"
)

type sender interface {
	SendOnce(ctx context.Context) (Report, error)
}

// Scheduler runs a digest every interval until its context ends. The first
// run happens one interval after start.
type Scheduler struct {
	svc      sender
	interval time.Duration
	log      zerolog.Logger
}

func NewScheduler(svc sender, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Scheduler{svc: svc, interval: interval, log: logger.Component(log, "digest-scheduler")}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("digest scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("digest scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.svc.SendOnce(ctx)
	switch {
	case errors.Is(err, ErrEmailDisabled):
		s.log.Warn().Int("rows", report.Count).Msg("digest not sent, email not configured")
	case err != nil:
		s.log.Error().Err(err).Msg("digest run failed")
	}
}
