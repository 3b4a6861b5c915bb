package service

import (
	"context"
	"time"

	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// ExpirySweeper periodically closes exceptions whose end date has passed.
// Expiry is normally owned by infrastructure cron calling the SQL function
// directly; the sweeper is an optional in-process fallback for deployments
// without one, disabled by default.
type ExpirySweeper struct {
	cases    *CaseService
	interval time.Duration
	logger   *logger.Logger
	stop     chan struct{}
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(cases *CaseService, interval time.Duration, log *logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		cases:    cases,
		interval: interval,
		logger:   log,
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is called
func (s *ExpirySweeper) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("expiry sweeper started")

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("expiry sweeper stopped")
				return
			case <-s.stop:
				s.logger.Info().Msg("expiry sweeper stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop stops the sweep loop
func (s *ExpirySweeper) Stop() {
	close(s.stop)
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	count, err := s.cases.CloseExpired(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}

	if count > 0 {
		s.logger.Info().Int("closed", count).Msg("expiry sweep completed")
	}
}
