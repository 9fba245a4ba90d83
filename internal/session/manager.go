package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/clock"
	"github.com/mwhitford/leadchat/internal/domain"
	apperrors "github.com/mwhitford/leadchat/internal/errors"
	"github.com/mwhitford/leadchat/internal/gateway"
	"github.com/mwhitford/leadchat/internal/metrics"
	"github.com/mwhitford/leadchat/internal/sanitize"
)

// ManagerConfig carries the session lifecycle knobs.
type ManagerConfig struct {
	// IdleTTL is how long a session may sit inactive before eviction.
	IdleTTL time.Duration
	// EvictInterval is how often the eviction sweep runs.
	EvictInterval time.Duration
}

// Manager owns the live session table. It creates sessions, recognizes
// returning visitors by their email-derived key, persists final captures when
// a conversation closes, and evicts idle sessions in the background.
type Manager struct {
	cfg     ManagerConfig
	repo    domain.LeadCaptureRepository
	gw      gateway.DialogueGateway
	clk     clock.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	onEvict  func(*Session)

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewManager wires a session manager. Call Run to start the eviction sweep.
func NewManager(cfg ManagerConfig, repo domain.LeadCaptureRepository, gw gateway.DialogueGateway, clk clock.Clock, logger *zap.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		cfg:      cfg,
		repo:     repo,
		gw:       gw,
		clk:      clk,
		logger:   logger,
		metrics:  m,
		sessions: make(map[uuid.UUID]*Session),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetOnEvict registers a callback invoked for each evicted session, after it
// has left the table. Used to release per-session resources held elsewhere,
// such as engagement controllers. Set before Run starts.
func (m *Manager) SetOnEvict(fn func(*Session)) {
	m.onEvict = fn
}

// Create starts a new session. When the visitor supplies an email, the
// session key is derived from it and any previous capture under that key
// seeds the new lead record, so a returning visitor is not asked for their
// name twice.
func (m *Manager) Create(ctx context.Context, email string) (*Session, error) {
	key := domain.SessionKeyForEmail(email)
	if email == "" {
		key = "visitor:" + uuid.NewString()
	}

	s := New(key, m.gw, m.clk, m.logger, m.metrics)

	if email != "" && m.repo != nil {
		prior, err := m.repo.GetLatestBySessionKey(ctx, key)
		if err != nil && !apperrors.IsNotFound(err) {
			// Seeding is best effort; a storage hiccup must not block a
			// new conversation.
			m.logger.Warn("returning visitor lookup failed",
				zap.String("session_key", key),
				zap.Error(err),
			)
		}
		if prior != nil {
			s.SeedLead(prior.Name, prior.BusinessName, prior.Email, prior.Phone, prior.Trade)
		}
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionsCreated.Inc()
		m.metrics.SessionsActive.Inc()
	}
	m.logger.Info("session created",
		zap.String("session_id", s.ID.String()),
		zap.Bool("returning", email != ""),
	)
	return s, nil
}

// Get returns the live session for the given ID.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("session")
	}
	return s, nil
}

// Sessions returns a snapshot of the live sessions. The autosave watcher
// iterates this without holding the manager lock across repository calls.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Submit performs the final capture for a session. The submission guard is
// claimed synchronously; if the autosave timer already claimed it, Submit
// reports a conflict and writes nothing. The repository write itself happens
// on the caller's goroutine so the visitor sees a confirmed save.
func (m *Manager) Submit(ctx context.Context, s *Session) (*domain.LeadCapture, error) {
	if !s.BeginSubmit() {
		return nil, apperrors.New(apperrors.CodeConflict, "lead already captured")
	}

	capture := s.Capture(false)
	if err := m.persist(ctx, capture); err != nil {
		return nil, err
	}
	return capture, nil
}

// SavePartial writes an inactivity capture for a session whose guard was
// already claimed by the caller. Failures are logged and counted; there is
// no retry and the guard is never released, so a failed autosave is a
// permanent, silent drop by design of the guard semantics.
func (m *Manager) SavePartial(ctx context.Context, s *Session) {
	capture := s.Capture(true)
	if err := m.persist(ctx, capture); err != nil {
		m.logger.Error("partial capture write failed",
			zap.String("session_id", s.ID.String()),
			zap.String("session_key", capture.SessionKey),
			zap.Error(err),
		)
	}
}

func (m *Manager) persist(ctx context.Context, capture *domain.LeadCapture) error {
	if m.repo == nil {
		return apperrors.InternalError("no capture repository configured", nil)
	}
	if err := m.repo.Create(ctx, capture); err != nil {
		if m.metrics != nil {
			m.metrics.CaptureWriteFailures.Inc()
		}
		return apperrors.DatabaseError("create lead capture", err)
	}
	if m.metrics != nil {
		kind := metrics.CaptureKindFinal
		if capture.IsPartial {
			kind = metrics.CaptureKindPartial
		}
		m.metrics.RecordCapture(kind, capture.IsQualified)
	}
	m.logger.Info("lead captured",
		zap.String("session_key", capture.SessionKey),
		zap.String("email", sanitize.Email(capture.Email)),
		zap.Bool("partial", capture.IsPartial),
		zap.Bool("qualified", capture.IsQualified),
	)
	return nil
}

// Run drives the idle eviction sweep until Stop is called.
func (m *Manager) Run() {
	ticker := m.clk.NewTicker(m.cfg.EvictInterval)
	defer ticker.Stop()
	defer close(m.doneCh)

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C():
			m.EvictIdle()
		}
	}
}

// EvictIdle drops sessions that have been inactive past the TTL. Exported so
// tests can drive sweeps without the ticker.
func (m *Manager) EvictIdle() int {
	m.mu.Lock()
	var evicted []*Session
	for id, s := range m.sessions {
		if s.InactiveFor() >= m.cfg.IdleTTL {
			delete(m.sessions, id)
			evicted = append(evicted, s)
		}
	}
	m.mu.Unlock()

	for _, s := range evicted {
		if m.onEvict != nil {
			m.onEvict(s)
		}
		if m.metrics != nil {
			m.metrics.SessionsEvicted.Inc()
			m.metrics.SessionsActive.Dec()
		}
		m.logger.Info("session evicted",
			zap.String("session_id", s.ID.String()),
		)
	}
	return len(evicted)
}

// Stop halts the eviction sweep and waits for it to exit.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.doneCh
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
