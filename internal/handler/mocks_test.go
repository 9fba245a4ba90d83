package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mwhitford/leadchat/internal/domain"
	apperrors "github.com/mwhitford/leadchat/internal/errors"
	"github.com/mwhitford/leadchat/internal/gateway"
)

// stubGateway returns queued replies in order, falling back to a default.
type stubGateway struct {
	mu      sync.Mutex
	queue   []*gateway.TurnReply
	Default *gateway.TurnReply
	Err     error
	Calls   int
}

func (g *stubGateway) QueueReply(reply *gateway.TurnReply) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, reply)
}

func (g *stubGateway) CompleteTurn(ctx context.Context, req *gateway.TurnRequest) (*gateway.TurnReply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	if g.Err != nil {
		return nil, g.Err
	}
	if len(g.queue) > 0 {
		reply := g.queue[0]
		g.queue = g.queue[1:]
		return reply, nil
	}
	if g.Default != nil {
		return g.Default, nil
	}
	return &gateway.TurnReply{Text: "ok", ConversationPhase: string(domain.PhaseDiscovery)}, nil
}

// recordingRepo is an in-memory LeadCaptureRepository.
type recordingRepo struct {
	mu        sync.Mutex
	captures  []*domain.LeadCapture
	byKey     map[string]*domain.LeadCapture
	CreateErr error
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{byKey: make(map[string]*domain.LeadCapture)}
}

func (r *recordingRepo) Create(ctx context.Context, capture *domain.LeadCapture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.captures = append(r.captures, capture)
	r.byKey[capture.SessionKey] = capture
	return nil
}

func (r *recordingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LeadCapture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.captures {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperrors.NotFound("lead capture")
}

func (r *recordingRepo) GetLatestBySessionKey(ctx context.Context, sessionKey string) (*domain.LeadCapture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byKey[sessionKey]
	if !ok {
		return nil, apperrors.NotFound("lead capture")
	}
	return c, nil
}

func (r *recordingRepo) List(ctx context.Context, limit, offset int) ([]*domain.LeadCapture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset >= len(r.captures) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.captures) {
		end = len(r.captures)
	}
	out := make([]*domain.LeadCapture, end-offset)
	copy(out, r.captures[offset:end])
	return out, nil
}

func (r *recordingRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.captures), nil
}

func (r *recordingRepo) Captures() []*domain.LeadCapture {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.LeadCapture, len(r.captures))
	copy(out, r.captures)
	return out
}
