package workers

import (
	"context"
	"time"

	"flota_console/internal/logger"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper drops expired sessions and reports how many stored rows it removed.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type SessionWorker struct {
	sweeper  Sweeper
	interval time.Duration
}

func NewSessionWorker(sweeper Sweeper, interval time.Duration) *SessionWorker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SessionWorker{sweeper: sweeper, interval: interval}
}

// Start runs the sweeper in the background until ctx is done.
func (w *SessionWorker) Start(ctx context.Context) {
	go w.sweepExpired(ctx)
}

func (w *SessionWorker) sweepExpired(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Session worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep.
func (w *SessionWorker) RunOnce(ctx context.Context) {
	n, err := w.sweeper.Sweep(ctx)
	if err != nil {
		logger.Error("Session sweep failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info("Expired sessions removed", "count", n)
	}
}
