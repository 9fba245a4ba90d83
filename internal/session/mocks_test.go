package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mwhitford/leadchat/internal/domain"
	apperrors "github.com/mwhitford/leadchat/internal/errors"
	"github.com/mwhitford/leadchat/internal/gateway"
)

// MockGateway is a mock implementation of gateway.DialogueGateway for testing.
type MockGateway struct {
	mu sync.Mutex

	// Reply and Err are returned by the next CompleteTurn call. Replies
	// queued via QueueReply take precedence and are consumed in order.
	Reply *gateway.TurnReply
	Err   error
	queue []*gateway.TurnReply

	// Block, when set, makes CompleteTurn wait until Release is called.
	Block   chan struct{}
	entered chan struct{}

	CompleteTurnCalls int
	LastRequest       *gateway.TurnRequest
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Reply: &gateway.TurnReply{Text: "ok", ConversationPhase: string(domain.PhaseOpener)},
	}
}

// QueueReply appends a reply to be consumed by successive turns.
func (m *MockGateway) QueueReply(r *gateway.TurnReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, r)
}

// BlockNext arms the gateway so the next CompleteTurn call parks until
// Release. Entered reports when the call is inside the gateway.
func (m *MockGateway) BlockNext() (entered <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Block = make(chan struct{})
	m.entered = make(chan struct{})
	return m.entered
}

func (m *MockGateway) Release() {
	m.mu.Lock()
	block := m.Block
	m.Block = nil
	m.mu.Unlock()
	if block != nil {
		close(block)
	}
}

func (m *MockGateway) CompleteTurn(ctx context.Context, req *gateway.TurnRequest) (*gateway.TurnReply, error) {
	m.mu.Lock()
	m.CompleteTurnCalls++
	m.LastRequest = req
	block := m.Block
	entered := m.entered
	m.entered = nil
	var reply *gateway.TurnReply
	if len(m.queue) > 0 {
		reply = m.queue[0]
		m.queue = m.queue[1:]
	} else {
		reply = m.Reply
	}
	err := m.Err
	m.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// MockCaptureRepository is a mock implementation of
// domain.LeadCaptureRepository for testing.
type MockCaptureRepository struct {
	mu       sync.RWMutex
	captures []*domain.LeadCapture
	byKey    map[string]*domain.LeadCapture

	CreateCalls                int
	GetLatestBySessionKeyCalls int

	CreateError    error
	GetLatestError error
}

func NewMockCaptureRepository() *MockCaptureRepository {
	return &MockCaptureRepository{
		byKey: make(map[string]*domain.LeadCapture),
	}
}

func (m *MockCaptureRepository) Create(ctx context.Context, capture *domain.LeadCapture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateError != nil {
		return m.CreateError
	}
	m.captures = append(m.captures, capture)
	m.byKey[capture.SessionKey] = capture
	return nil
}

func (m *MockCaptureRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LeadCapture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.captures {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperrors.NotFound("lead capture")
}

func (m *MockCaptureRepository) GetLatestBySessionKey(ctx context.Context, sessionKey string) (*domain.LeadCapture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.GetLatestBySessionKeyCalls++
	if m.GetLatestError != nil {
		return nil, m.GetLatestError
	}
	c, ok := m.byKey[sessionKey]
	if !ok {
		return nil, apperrors.NotFound("lead capture")
	}
	return c, nil
}

func (m *MockCaptureRepository) List(ctx context.Context, limit, offset int) ([]*domain.LeadCapture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LeadCapture, len(m.captures))
	copy(out, m.captures)
	return out, nil
}

func (m *MockCaptureRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.captures), nil
}

func (m *MockCaptureRepository) Captures() []*domain.LeadCapture {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LeadCapture, len(m.captures))
	copy(out, m.captures)
	return out
}
