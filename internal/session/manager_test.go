package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/clock"
	"github.com/mwhitford/leadchat/internal/domain"
	apperrors "github.com/mwhitford/leadchat/internal/errors"
)

func newTestManager(repo *MockCaptureRepository, clk clock.Clock) *Manager {
	return NewManager(
		ManagerConfig{IdleTTL: 30 * time.Minute, EvictInterval: 5 * time.Minute},
		repo, NewMockGateway(), clk, zap.NewNop(), nil,
	)
}

func TestManagerCreateAndGet(t *testing.T) {
	clk := clock.NewMock(time.Now())
	repo := NewMockCaptureRepository()
	m := newTestManager(repo, clk)

	s, err := m.Create(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != s {
		t.Error("expected the same session back")
	}

	if _, err := m.Get(uuid.New()); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found for unknown ID, got %v", err)
	}
}

func TestManagerAnonymousSessionsGetDistinctKeys(t *testing.T) {
	clk := clock.NewMock(time.Now())
	m := newTestManager(NewMockCaptureRepository(), clk)

	a, _ := m.Create(context.Background(), "")
	b, _ := m.Create(context.Background(), "")
	if a.Key == b.Key {
		t.Errorf("anonymous sessions share key %q", a.Key)
	}
}

func TestManagerSeedsReturningVisitor(t *testing.T) {
	clk := clock.NewMock(time.Now())
	repo := NewMockCaptureRepository()
	m := newTestManager(repo, clk)

	key := domain.SessionKeyForEmail("pat@acme.test")
	repo.Create(context.Background(), &domain.LeadCapture{
		ID:         uuid.New(),
		SessionKey: key,
		Name:       "Pat",
		Email:      "pat@acme.test",
		Trade:      "plumbing",
	})

	s, err := m.Create(context.Background(), "pat@acme.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Key != key {
		t.Errorf("expected derived key %q, got %q", key, s.Key)
	}
	lead := s.Lead()
	if lead.Name != "Pat" || lead.Trade != "plumbing" {
		t.Errorf("expected seeded lead, got %+v", lead)
	}
	// Seeding never advances the conversation.
	if lead.Phase != domain.PhaseOpener {
		t.Errorf("expected opener phase, got %s", lead.Phase)
	}
}

func TestManagerCreateSurvivesLookupError(t *testing.T) {
	clk := clock.NewMock(time.Now())
	repo := NewMockCaptureRepository()
	repo.GetLatestError = errors.New("connection reset")
	m := newTestManager(repo, clk)

	if _, err := m.Create(context.Background(), "pat@acme.test"); err != nil {
		t.Fatalf("expected session despite lookup failure, got %v", err)
	}
}

func TestManagerSubmitWritesFinalCapture(t *testing.T) {
	clk := clock.NewMock(time.Now())
	repo := NewMockCaptureRepository()
	m := newTestManager(repo, clk)

	s, _ := m.Create(context.Background(), "")
	capture, err := m.Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capture.IsPartial {
		t.Error("expected final capture")
	}
	if repo.CreateCalls != 1 {
		t.Errorf("expected 1 repository write, got %d", repo.CreateCalls)
	}

	// Guard already claimed: second submission conflicts, writes nothing.
	if _, err := m.Submit(context.Background(), s); apperrors.GetCode(err) != apperrors.CodeConflict {
		t.Errorf("expected conflict, got %v", err)
	}
	if repo.CreateCalls != 1 {
		t.Errorf("expected no second write, got %d", repo.CreateCalls)
	}
}

func TestManagerSubmitAfterAutosaveClaimConflicts(t *testing.T) {
	clk := clock.NewMock(time.Now())
	repo := NewMockCaptureRepository()
	m := newTestManager(repo, clk)

	s, _ := m.Create(context.Background(), "")
	if !s.BeginSubmit() {
		t.Fatal("expected autosave claim to succeed")
	}
	m.SavePartial(context.Background(), s)

	if _, err := m.Submit(context.Background(), s); apperrors.GetCode(err) != apperrors.CodeConflict {
		t.Errorf("expected conflict after autosave claim, got %v", err)
	}
	if len(repo.Captures()) != 1 || !repo.Captures()[0].IsPartial {
		t.Errorf("expected exactly the partial capture, got %+v", repo.Captures())
	}
}

func TestManagerSavePartialFailureDoesNotReleaseGuard(t *testing.T) {
	clk := clock.NewMock(time.Now())
	repo := NewMockCaptureRepository()
	repo.CreateError = errors.New("disk full")
	m := newTestManager(repo, clk)

	s, _ := m.Create(context.Background(), "")
	if !s.BeginSubmit() {
		t.Fatal("expected claim to succeed")
	}
	m.SavePartial(context.Background(), s)

	// The failed write is a permanent drop: the guard stays claimed.
	if s.BeginSubmit() {
		t.Error("expected guard to remain claimed after failed write")
	}
}

func TestManagerEvictIdle(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMock(start)
	m := newTestManager(NewMockCaptureRepository(), clk)

	stale, _ := m.Create(context.Background(), "")
	_ = stale
	clk.Advance(20 * time.Minute)
	fresh, _ := m.Create(context.Background(), "")
	clk.Advance(15 * time.Minute)
	fresh.RecordActivity()

	if n := m.EvictIdle(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", m.Len())
	}
	if _, err := m.Get(fresh.ID); err != nil {
		t.Errorf("expected fresh session to survive, got %v", err)
	}
}
