// Package engage decides when the widget opens on its own. Two competing
// triggers exist per session: a dwell timer and a scroll-depth report. Both
// race toward a single buffered channel consumed exactly once, so no matter
// how they interleave the widget auto-opens at most one time.
package engage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/clock"
	"github.com/mwhitford/leadchat/internal/domain"
	"github.com/mwhitford/leadchat/internal/session"
)

// Config carries the trigger thresholds.
type Config struct {
	// OpenAfter is the dwell time before the timer trigger fires.
	OpenAfter time.Duration
	// ScrollThreshold is the scroll depth in pixels the page must exceed to
	// fire the scroll trigger.
	ScrollThreshold int
}

// Opener is the slice of session behavior the controller needs.
type Opener interface {
	Open(trigger session.OpenTrigger) (*domain.ConversationMessage, bool)
}

// OnOpen is invoked once when a trigger wins, with the opener message that
// was emitted. It is never called for a session already opened manually.
type OnOpen func(trigger session.OpenTrigger, msg *domain.ConversationMessage)

// Controller arbitrates the auto-open triggers for one session.
type Controller struct {
	cfg    Config
	sess   Opener
	clk    clock.Clock
	logger *zap.Logger
	onOpen OnOpen

	openCh chan session.OpenTrigger

	mu       sync.Mutex
	started  bool
	scrolled bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewController builds a controller. Call Start to arm the triggers.
func NewController(cfg Config, sess Opener, clk clock.Clock, logger *zap.Logger, onOpen OnOpen) *Controller {
	return &Controller{
		cfg:    cfg,
		sess:   sess,
		clk:    clk,
		logger: logger,
		onOpen: onOpen,
		openCh: make(chan session.OpenTrigger, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start arms the dwell timer and the consumer. Safe to call once; later
// calls are no-ops.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.runTimer(ctx)
	go c.consume(ctx)
}

// ReportScroll feeds a scroll-depth sample from the page. A depth strictly
// beyond the threshold fires the scroll trigger; only the first crossing
// signals.
func (c *Controller) ReportScroll(depthPx int) {
	if depthPx <= c.cfg.ScrollThreshold {
		return
	}
	c.mu.Lock()
	already := c.scrolled
	c.scrolled = true
	c.mu.Unlock()
	if already {
		return
	}
	c.signal(session.OpenTriggerScroll)
}

// Stop disarms the controller. The consumer exits without opening if no
// trigger has won yet.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.doneCh
}

func (c *Controller) runTimer(ctx context.Context) {
	timer := c.clk.NewTimer(c.cfg.OpenAfter)
	defer timer.Stop()
	select {
	case <-timer.C():
		c.signal(session.OpenTriggerTime)
	case <-c.stopCh:
	case <-ctx.Done():
	}
}

// signal offers a trigger to the consumer. The channel holds one value and
// is read exactly once, so the losing trigger's send falls through default.
func (c *Controller) signal(trigger session.OpenTrigger) {
	select {
	case c.openCh <- trigger:
	default:
	}
}

func (c *Controller) consume(ctx context.Context) {
	defer close(c.doneCh)
	select {
	case trigger := <-c.openCh:
		msg, opened := c.sess.Open(trigger)
		if !opened {
			// Already opened manually; the trigger is spent either way.
			return
		}
		c.logger.Debug("trigger opened widget", zap.String("trigger", string(trigger)))
		if c.onOpen != nil {
			c.onOpen(trigger, msg)
		}
	case <-c.stopCh:
	case <-ctx.Done():
	}
}

// Fire injects a trigger directly. Tests use it to race producers without
// real timers.
func (c *Controller) Fire(trigger session.OpenTrigger) {
	c.signal(trigger)
}
