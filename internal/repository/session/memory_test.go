package session

import (
	"context"
	"testing"
	"time"

	"punchout-catalog/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testSession(token string, status domain.SessionStatus) domain.PunchOutSession {
	now := time.Now()
	return domain.PunchOutSession{
		Token:         token,
		BuyerIdentity: "coupa-acme",
		ReturnURL:     "https://acme.coupahost.com/punchout/checkout",
		Protocol:      "cxml",
		Status:        status,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Hour),
	}
}

func TestMemoryCreateAndGet(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testSession("tok-12345", domain.StatusActive)))
	require.ErrorIs(t, repo.Create(ctx, testSession("tok-12345", domain.StatusActive)), domain.ErrAlreadyExists)

	got, err := repo.Get(ctx, "tok-12345")
	require.NoError(t, err)
	require.Equal(t, "coupa-acme", got.BuyerIdentity)

	_, err = repo.Get(ctx, "tok-missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryUpdateCartRequiresActive(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testSession("tok-12345", domain.StatusActive)))

	lines := []domain.CartLine{{ProductID: "P1", Name: "Widget", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}}
	require.NoError(t, repo.UpdateCart(ctx, "tok-12345", lines, 1))

	got, err := repo.Get(ctx, "tok-12345")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	require.EqualValues(t, 1, got.Version)

	// Mutating the returned copy must not leak into the store.
	got.Lines[0].Quantity = 99
	again, err := repo.Get(ctx, "tok-12345")
	require.NoError(t, err)
	require.Equal(t, 2, again.Lines[0].Quantity)

	require.NoError(t, repo.SetStatus(ctx, "tok-12345", domain.StatusTransferred))
	require.ErrorIs(t, repo.UpdateCart(ctx, "tok-12345", lines, 2), domain.ErrSessionNotMutable)
	require.ErrorIs(t, repo.UpdateCart(ctx, "tok-absent1", lines, 1), domain.ErrSessionNotMutable)
}

func TestMemoryTransition(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testSession("tok-12345", domain.StatusActive)))

	require.NoError(t, repo.Transition(ctx, "tok-12345", domain.StatusActive, domain.StatusTransferred))
	// Second transfer attempt loses the race.
	require.ErrorIs(t, repo.Transition(ctx, "tok-12345", domain.StatusActive, domain.StatusTransferred), domain.ErrSessionNotMutable)
}

func TestMemoryDeleteExpired(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	fresh := testSession("tok-fresh-1", domain.StatusActive)
	stale := testSession("tok-stale-1", domain.StatusActive)
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.Create(ctx, stale))

	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = repo.Get(ctx, "tok-stale-1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.Get(ctx, "tok-fresh-1")
	require.NoError(t, err)
}
