package domain

import (
	"context"

	"github.com/google/uuid"
)

// LeadCaptureRepository defines the interface for lead capture persistence.
type LeadCaptureRepository interface {
	// Create inserts a new capture record. Partial and final captures share
	// the same entity; IsPartial distinguishes them.
	Create(ctx context.Context, capture *LeadCapture) error

	// GetByID retrieves a capture by its internal ID.
	GetByID(ctx context.Context, id uuid.UUID) (*LeadCapture, error)

	// GetLatestBySessionKey retrieves the most recent capture for a session
	// key, used to resume a returning visitor identified by email.
	GetLatestBySessionKey(ctx context.Context, sessionKey string) (*LeadCapture, error)

	// List retrieves captures ordered by capture time, newest first.
	List(ctx context.Context, limit, offset int) ([]*LeadCapture, error)

	// Count returns the total number of captures.
	Count(ctx context.Context) (int, error)
}
