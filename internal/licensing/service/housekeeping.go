package service

import (
	"context"
	"log/slog"
	"time"
)

// TrialSweeper expires trial licenses whose window has lapsed.
type TrialSweeper struct {
	Tenants  *TenantService
	Logger   *slog.Logger
	Interval time.Duration
}

// NewTrialSweeper defaults to an hourly sweep.
func NewTrialSweeper(tenants *TenantService, logger *slog.Logger, interval time.Duration) *TrialSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TrialSweeper{Tenants: tenants, Logger: logger, Interval: interval}
}

// Run sweeps once straight away, then every Interval, until ctx is done.
func (s *TrialSweeper) Run(ctx context.Context) {
	s.Logger.Info("trial sweeper started", "interval", s.Interval)
	defer s.Logger.Info("trial sweeper stopped")

	t := time.NewTicker(s.Interval)
	defer t.Stop()

	for {
		s.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Sweep expires lapsed trials and reports how many tenants changed.
func (s *TrialSweeper) Sweep(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Interval)
	defer cancel()
	return s.Tenants.ExpireTrials(ctx)
}

func (s *TrialSweeper) sweepOnce(ctx context.Context) {
	n, err := s.Sweep(ctx)
	switch {
	case ctx.Err() != nil:
	case err != nil:
		s.Logger.Error("trial sweep failed", "error", err)
	case n > 0:
		s.Logger.Info("trials expired", "count", n)
	default:
		s.Logger.Debug("trial sweep found nothing to expire")
	}
}
