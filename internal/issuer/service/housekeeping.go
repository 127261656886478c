package service

import (
	"context"
	"log/slog"
	"time"
)

// HousekeepingService periodically sweeps stale codes and tokens so the
// backend does not grow without bound.
type HousekeepingService struct {
	Codes    *CodeService
	Logger   *slog.Logger
	Interval time.Duration

	// OnSweep, when set, receives the counts of every completed pass.
	OnSweep func(SweepResult)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 minute.
func NewHousekeepingService(codes *CodeService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Codes:    codes,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
	defer cancel()

	res, err := s.Codes.SweepExpired(ctx)
	if err != nil {
		// SweepExpired runs every step regardless; err lists the ones that failed.
		s.Logger.Error("housekeeping sweep incomplete", "error", err)
	}

	if s.OnSweep != nil {
		s.OnSweep(res)
	}

	s.Logger.Debug("housekeeping sweep completed",
		"expired", res.Expired,
		"tokens_deleted", res.TokensDeleted,
		"codes_deleted", res.CodesDeleted,
	)
}
