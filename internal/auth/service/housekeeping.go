package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/clockx"
)

// DefaultSessionRetention is how long expired sessions and reset tokens stay
// visible before housekeeping soft-deletes them.
const DefaultSessionRetention = 30 * 24 * time.Hour

// HousekeepingService periodically soft-deletes sessions and reset tokens that
// expired more than Retention ago. Nothing is ever hard-deleted.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Clock     clockx.Clock
	Interval  time.Duration
	Retention time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewHousekeepingService creates a new housekeeping service. A non-positive
// interval defaults to 1 hour and a non-positive retention to
// DefaultSessionRetention.
func NewHousekeepingService(st store.Store, logger *slog.Logger, clock clockx.Clock, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultSessionRetention
	}
	if clock == nil {
		clock = clockx.System{}
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Clock:     clock,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down. A
// stopped service cannot be restarted.
func (s *HousekeepingService) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop blocks until any in-progress sweep has finished. Stopping a service
// that was never started is a no-op.
func (s *HousekeepingService) Stop() {
	if !s.started.Load() {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep reports what one housekeeping pass soft-deleted.
type Sweep struct {
	Sessions int64
	Resets   int64
}

// RunOnce performs a single sweep. Each table is handled independently so a
// failure in one does not stop the other.
func (s *HousekeepingService) RunOnce(ctx context.Context) Sweep {
	now := s.Clock.Now()
	cutoff := now.Add(-s.Retention)

	var sweep Sweep
	var err error

	sweep.Sessions, err = s.Store.Sessions().SoftDeleteSessionsExpiredBefore(ctx, cutoff, now)
	if err != nil {
		s.Logger.Error("failed to soft-delete expired sessions", "error", err)
	}

	sweep.Resets, err = s.Store.PasswordResets().SoftDeleteResetsExpiredBefore(ctx, cutoff, now)
	if err != nil {
		s.Logger.Error("failed to soft-delete expired password resets", "error", err)
	}

	s.Logger.Info("housekeeping sweep completed",
		"sessions", sweep.Sessions,
		"password_resets", sweep.Resets,
		"cutoff", cutoff,
	)
	return sweep
}
