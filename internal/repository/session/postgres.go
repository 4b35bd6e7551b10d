package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"punchout-catalog/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, s domain.PunchOutSession) error {
	cart, err := marshalCart(s.Lines)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO punchout_sessions (token, buyer_identity, return_url, protocol, status, version, cart, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err = r.pool.Exec(ctx, q,
		s.Token, s.BuyerIdentity, s.ReturnURL, s.Protocol, string(s.Status), s.Version, cart, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, token string) (*domain.PunchOutSession, error) {
	const q = `
SELECT token, buyer_identity, return_url, protocol, status, version, cart, created_at, expires_at
FROM punchout_sessions
WHERE token = $1
`
	var s domain.PunchOutSession
	var status string
	var cart []byte
	if err := r.pool.QueryRow(ctx, q, token).Scan(
		&s.Token,
		&s.BuyerIdentity,
		&s.ReturnURL,
		&s.Protocol,
		&status,
		&s.Version,
		&cart,
		&s.CreatedAt,
		&s.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	s.Status = domain.SessionStatus(status)
	if len(cart) > 0 {
		if err := json.Unmarshal(cart, &s.Lines); err != nil {
			return nil, fmt.Errorf("decode cart for %s: %w", token, err)
		}
	}
	return &s, nil
}

func (r *postgresRepo) UpdateCart(ctx context.Context, token string, lines []domain.CartLine, version int64) error {
	cart, err := marshalCart(lines)
	if err != nil {
		return err
	}
	const q = `
UPDATE punchout_sessions
SET cart = $2, version = $3
WHERE token = $1 AND status = 'ACTIVE'
`
	cmd, err := r.pool.Exec(ctx, q, token, cart, version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrSessionNotMutable
	}
	return nil
}

func (r *postgresRepo) SetStatus(ctx context.Context, token string, status domain.SessionStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE punchout_sessions SET status = $2 WHERE token = $1`, token, string(status))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Transition(ctx context.Context, token string, from, to domain.SessionStatus) error {
	const q = `
UPDATE punchout_sessions
SET status = $3
WHERE token = $1 AND status = $2
`
	cmd, err := r.pool.Exec(ctx, q, token, string(from), string(to))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrSessionNotMutable
	}
	return nil
}

func (r *postgresRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM punchout_sessions WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// marshalCart keeps the embedded cart a plain JSON array; an empty cart is
// stored as [] rather than NULL.
func marshalCart(lines []domain.CartLine) ([]byte, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	out, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return out, nil
}
