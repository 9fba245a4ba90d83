package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwhitford/leadchat/internal/domain"
	apperrors "github.com/mwhitford/leadchat/internal/errors"
)

// LeadCaptureRepository implements domain.LeadCaptureRepository using
// PostgreSQL.
type LeadCaptureRepository struct {
	pool  *pgxpool.Pool
	guard *Guard
}

// NewLeadCaptureRepository creates a new LeadCaptureRepository.
func NewLeadCaptureRepository(pool *pgxpool.Pool) *LeadCaptureRepository {
	return &LeadCaptureRepository{pool: pool, guard: NewGuard()}
}

// Create inserts a capture record. Partial and final captures land in the
// same table; a session may accumulate several rows over repeat visits, one
// per claimed capture.
func (r *LeadCaptureRepository) Create(ctx context.Context, capture *domain.LeadCapture) error {
	if err := r.guard.RequireUUID(capture.ID, "id"); err != nil {
		return err
	}
	if err := r.guard.RequireString(capture.SessionKey, "session_key"); err != nil {
		return err
	}

	notesJSON, err := json.Marshal(capture.QualificationNotes)
	if err != nil {
		return fmt.Errorf("failed to marshal qualification notes: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)`,
		LeadCaptureColumns.TableName,
		LeadCaptureColumns.InsertColumns(),
		LeadCaptureColumns.Placeholders(),
	)

	ctx, cancel := WithWriteTimeout(ctx)
	defer cancel()

	_, err = r.pool.Exec(ctx, query,
		capture.ID,
		capture.SessionKey,
		capture.Name,
		capture.BusinessName,
		capture.Email,
		capture.Phone,
		capture.Trade,
		capture.TeamSize,
		capture.CallHandling,
		capture.CallVolumeDisplay,
		capture.TicketValueDisplay,
		capture.Hesitation,
		capture.MissedCalls,
		capture.PotentialLoss,
		notesJSON,
		capture.IsQualified,
		capture.CapturedAt,
		capture.IsPartial,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead capture: %w", err)
	}

	return nil
}

// GetByID retrieves a capture by its internal ID.
func (r *LeadCaptureRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LeadCapture, error) {
	if err := r.guard.RequireUUID(id, "id"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1`,
		LeadCaptureColumns.Select(),
		LeadCaptureColumns.TableName,
	)

	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	return r.scanCapture(ctx, query, id)
}

// GetLatestBySessionKey retrieves the most recent capture for a session key.
// Returning visitors identified by email resume from this row.
func (r *LeadCaptureRepository) GetLatestBySessionKey(ctx context.Context, sessionKey string) (*domain.LeadCapture, error) {
	if err := r.guard.RequireString(sessionKey, "session_key"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE session_key = $1
		ORDER BY captured_at DESC
		LIMIT 1`,
		LeadCaptureColumns.Select(),
		LeadCaptureColumns.TableName,
	)

	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	return r.scanCapture(ctx, query, sessionKey)
}

// List retrieves captures with pagination, newest first.
func (r *LeadCaptureRepository) List(ctx context.Context, limit, offset int) ([]*domain.LeadCapture, error) {
	if err := r.guard.RequirePositive(limit, "limit"); err != nil {
		return nil, err
	}
	if err := r.guard.RequireNonNegative(offset, "offset"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY captured_at DESC
		LIMIT $1 OFFSET $2`,
		LeadCaptureColumns.Select(),
		LeadCaptureColumns.TableName,
	)

	ctx, cancel := WithListQueryTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query lead captures: %w", err)
	}
	defer rows.Close()

	var captures []*domain.LeadCapture
	for rows.Next() {
		capture, err := scanCaptureRow(rows)
		if err != nil {
			return nil, err
		}
		captures = append(captures, capture)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lead capture rows: %w", err)
	}

	return captures, nil
}

// Count returns the total number of captures.
func (r *LeadCaptureRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", LeadCaptureColumns.TableName)
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count lead captures: %w", err)
	}
	return count, nil
}

// scanCapture scans a single capture from a query.
func (r *LeadCaptureRepository) scanCapture(ctx context.Context, query string, args ...interface{}) (*domain.LeadCapture, error) {
	capture, err := scanCaptureRow(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("lead capture")
		}
		return nil, err
	}
	return capture, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCaptureRow(row rowScanner) (*domain.LeadCapture, error) {
	capture := &domain.LeadCapture{}
	var notesJSON []byte

	err := row.Scan(
		&capture.ID,
		&capture.SessionKey,
		&capture.Name,
		&capture.BusinessName,
		&capture.Email,
		&capture.Phone,
		&capture.Trade,
		&capture.TeamSize,
		&capture.CallHandling,
		&capture.CallVolumeDisplay,
		&capture.TicketValueDisplay,
		&capture.Hesitation,
		&capture.MissedCalls,
		&capture.PotentialLoss,
		&notesJSON,
		&capture.IsQualified,
		&capture.CapturedAt,
		&capture.IsPartial,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan lead capture: %w", err)
	}

	if len(notesJSON) > 0 {
		if err := json.Unmarshal(notesJSON, &capture.QualificationNotes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal qualification notes: %w", err)
		}
	}

	return capture, nil
}
