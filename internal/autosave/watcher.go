// Package autosave periodically sweeps live sessions and captures a partial
// lead when a visitor has gone quiet. The submission guard is claimed
// synchronously during the sweep, before the repository write starts, so the
// timer and a late manual submission can never both persist.
package autosave

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/clock"
	"github.com/mwhitford/leadchat/internal/metrics"
	"github.com/mwhitford/leadchat/internal/session"
)

// Config carries the sweep cadence and the inactivity bar.
type Config struct {
	// CheckInterval is how often the sweep runs.
	CheckInterval time.Duration
	// InactivityThreshold is how long a visitor must be inactive before
	// their partial lead is captured.
	InactivityThreshold time.Duration
}

// Watcher drives inactivity captures across the session table.
type Watcher struct {
	cfg     Config
	mgr     *session.Manager
	clk     clock.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher wires a watcher over the manager's sessions. Call Run to start
// sweeping.
func NewWatcher(cfg Config, mgr *session.Manager, clk clock.Clock, logger *zap.Logger, m *metrics.Metrics) *Watcher {
	return &Watcher{
		cfg:     cfg,
		mgr:     mgr,
		clk:     clk,
		logger:  logger,
		metrics: m,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Run sweeps on the configured interval until Stop is called.
func (w *Watcher) Run(ctx context.Context) {
	ticker := w.clk.NewTicker(w.cfg.CheckInterval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C():
			w.CheckOnce(ctx)
		}
	}
}

// Stop halts the sweep loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// CheckOnce runs a single sweep. A session is captured when the visitor has
// been inactive strictly past the threshold, a contact email exists, and no
// capture has been claimed yet. Claiming and writing are decoupled: the guard flips
// first, then the write runs, and a failed write never releases the guard.
func (w *Watcher) CheckOnce(ctx context.Context) int {
	if w.metrics != nil {
		w.metrics.AutosaveChecksTotal.Inc()
	}

	saved := 0
	for _, s := range w.mgr.Sessions() {
		if s.InactiveFor() <= w.cfg.InactivityThreshold {
			continue
		}
		if !s.HasEmail() {
			continue
		}
		if !s.BeginSubmit() {
			continue
		}
		w.logger.Info("capturing inactive lead",
			zap.String("session_id", s.ID.String()),
			zap.Duration("inactive_for", s.InactiveFor()),
		)
		w.mgr.SavePartial(ctx, s)
		saved++
	}
	return saved
}
