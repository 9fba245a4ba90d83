// Package shutdown drives graceful process termination in ordered phases:
// stop accepting traffic, drain in-flight work, then release resources.
package shutdown

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Phase orders services during shutdown. All services in a phase stop
// concurrently; phases run sequentially.
type Phase int

const (
	// PhaseDrain stops accepting new work (HTTP server, listeners).
	PhaseDrain Phase = iota
	// PhaseShutdown stops background workers once traffic has drained.
	PhaseShutdown
	// PhaseCleanup releases resources that everything else depends on
	// (database pools, outbound clients).
	PhaseCleanup
)

func (p Phase) String() string {
	switch p {
	case PhaseDrain:
		return "drain"
	case PhaseShutdown:
		return "shutdown"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Service is anything that can be shut down with a deadline.
type Service interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// ServiceFunc adapts a function to the Service interface.
type ServiceFunc struct {
	ServiceName string
	Fn          func(ctx context.Context) error
}

func (s ServiceFunc) Name() string { return s.ServiceName }

func (s ServiceFunc) Shutdown(ctx context.Context) error { return s.Fn(ctx) }

type registration struct {
	service Service
	phase   Phase
}

// Coordinator runs registered services through the shutdown phases.
// Shutdown is idempotent; the first caller wins and later callers wait
// on the same completion.
type Coordinator struct {
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	services []registration

	once       sync.Once
	shutdownCh chan struct{}
	doneCh     chan struct{}
}

// NewCoordinator creates a coordinator. timeout bounds the entire
// shutdown sequence, not each phase.
func NewCoordinator(logger *zap.Logger, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Coordinator{
		logger:     logger,
		timeout:    timeout,
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Register adds a service to the given phase. Safe to call until
// Shutdown starts; registrations after that are ignored.
func (c *Coordinator) Register(phase Phase, svc Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.shutdownCh:
		c.logger.Warn("service registered after shutdown started, ignoring",
			zap.String("service", svc.Name()))
		return
	default:
	}
	c.services = append(c.services, registration{service: svc, phase: phase})
}

// RegisterFunc registers a plain function under the given phase.
func (c *Coordinator) RegisterFunc(phase Phase, name string, fn func(ctx context.Context) error) {
	c.Register(phase, ServiceFunc{ServiceName: name, Fn: fn})
}

// ShutdownCh is closed when shutdown begins. Readiness probes watch
// this to start failing before the listener closes.
func (c *Coordinator) ShutdownCh() <-chan struct{} {
	return c.shutdownCh
}

// Shutdown runs all phases and blocks until they complete or the
// coordinator's timeout expires. Subsequent calls wait for the first.
func (c *Coordinator) Shutdown() {
	c.once.Do(func() {
		close(c.shutdownCh)
		go c.run()
	})
	<-c.doneCh
}

func (c *Coordinator) run() {
	defer close(c.doneCh)

	// Parent contexts are typically cancelled by the time we get here,
	// so the deadline hangs off Background.
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	c.logger.Info("shutdown started", zap.Duration("timeout", c.timeout))

	c.mu.Lock()
	services := make([]registration, len(c.services))
	copy(services, c.services)
	c.mu.Unlock()

	for _, phase := range []Phase{PhaseDrain, PhaseShutdown, PhaseCleanup} {
		c.runPhase(ctx, phase, services)
	}

	c.logger.Info("shutdown complete", zap.Duration("elapsed", time.Since(start)))
}

func (c *Coordinator) runPhase(ctx context.Context, phase Phase, services []registration) {
	var group []Service
	for _, reg := range services {
		if reg.phase == phase {
			group = append(group, reg.service)
		}
	}
	if len(group) == 0 {
		return
	}

	c.logger.Info("shutdown phase", zap.String("phase", phase.String()), zap.Int("services", len(group)))

	var wg sync.WaitGroup
	for _, svc := range group {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			start := time.Now()
			if err := svc.Shutdown(ctx); err != nil {
				c.logger.Error("service shutdown failed",
					zap.String("service", svc.Name()),
					zap.String("phase", phase.String()),
					zap.Duration("elapsed", time.Since(start)),
					zap.Error(err))
				return
			}
			c.logger.Info("service stopped",
				zap.String("service", svc.Name()),
				zap.Duration("elapsed", time.Since(start)))
		}(svc)
	}
	wg.Wait()
}

// ReadinessProbe reports whether the process should receive traffic.
// It flips to not-ready the moment shutdown begins so load balancers
// stop routing before the listener closes.
type ReadinessProbe struct {
	coordinator *Coordinator
}

func NewReadinessProbe(c *Coordinator) *ReadinessProbe {
	return &ReadinessProbe{coordinator: c}
}

// Ready returns false once shutdown has started.
func (p *ReadinessProbe) Ready() bool {
	select {
	case <-p.coordinator.shutdownCh:
		return false
	default:
		return true
	}
}
