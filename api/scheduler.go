/*
scheduler.go - Automated invoice status sync

PURPOSE:
  Periodically re-derives the status of every invoice and rewrites the
  cached status column where it drifted. Payments keep the column current
  for paid invoices; this catches pending -> overdue transitions that only
  the passage of time causes.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Reads never depend on the cached column, so a missed tick only
    delays reporting tools that read the table directly

CONFIGURATION:
  - CheckInterval: How often to sync (default: 1 hour, config status_sync_interval)
  - Enabled: Whether scheduler is active (false when the interval is 0)

USAGE:
  scheduler := NewStatusSyncScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - fees/ledger.go: Ledger.SyncStatuses
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StatusSyncScheduler handles the periodic invoice status sync.
type StatusSyncScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
	log    *zap.Logger
}

// NewStatusSyncScheduler creates a scheduler using the handler's config.
func NewStatusSyncScheduler(handler *Handler) *StatusSyncScheduler {
	interval := handler.Config.StatusSyncInterval
	return &StatusSyncScheduler{
		Handler:       handler,
		CheckInterval: interval,
		Enabled:       interval > 0,
		log:           handler.Log.Named("scheduler"),
	}
}

// Start begins the scheduler.
func (s *StatusSyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.stop = make(chan bool)
	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.log.Info("started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for a running sync to finish.
func (s *StatusSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.log.Info("stopped")
	}
}

func (s *StatusSyncScheduler) run(ticker *time.Ticker, stop chan bool) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one sync and returns the number of invoices updated.
func (s *StatusSyncScheduler) RunNow(ctx context.Context) int {
	updated, err := s.Handler.Ledger.SyncStatuses(ctx)
	if err != nil {
		s.log.Error("status sync failed", zap.Error(err), zap.Int("updated", updated))
	}
	if updated > 0 {
		s.Handler.Metrics.StatusSyncs.Add(float64(updated))
		s.log.Info("status sync completed", zap.Int("updated", updated))
	}
	return updated
}
