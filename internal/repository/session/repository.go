package session

import (
	"context"
	"time"

	"punchout-catalog/internal/domain"
)

// Repository persists PunchOut sessions, one record per token with the cart
// embedded. Implementations must enforce that UpdateCart only touches ACTIVE
// records and that Transition is atomic, since both back the single-use
// transfer guarantee.
type Repository interface {
	// Create inserts a new session. domain.ErrAlreadyExists on token collision.
	Create(ctx context.Context, s domain.PunchOutSession) error
	// Get fetches a session by token. domain.ErrNotFound when absent.
	Get(ctx context.Context, token string) (*domain.PunchOutSession, error)
	// UpdateCart replaces the cart lines and version of an ACTIVE session.
	// domain.ErrSessionNotMutable when the record is missing or not ACTIVE.
	UpdateCart(ctx context.Context, token string, lines []domain.CartLine, version int64) error
	// SetStatus sets the status unconditionally. domain.ErrNotFound when absent.
	SetStatus(ctx context.Context, token string, status domain.SessionStatus) error
	// Transition moves status from -> to atomically.
	// domain.ErrSessionNotMutable when the record is missing or not in `from`.
	Transition(ctx context.Context, token string, from, to domain.SessionStatus) error
	// DeleteExpired removes sessions whose expires_at is at or before cutoff,
	// returning the number of rows reclaimed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
