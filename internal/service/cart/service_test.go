package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"punchout-catalog/internal/buyerdir"
	"punchout-catalog/internal/domain"
	"punchout-catalog/internal/registry"
	sessionrepo "punchout-catalog/internal/repository/session"
	sessionsvc "punchout-catalog/internal/service/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubVerifier struct{}

func (stubVerifier) VerifyToken(_ context.Context, _ string) (*buyerdir.Verification, error) {
	return &buyerdir.Verification{BuyerIdentity: "coupa-acme"}, nil
}

type stubResolver struct {
	info *ProductInfo
	err  error
}

func (s *stubResolver) Resolve(_ context.Context, _ string) (*ProductInfo, error) {
	return s.info, s.err
}

type fixture struct {
	carts *Service
	repo  sessionrepo.Repository
	token string
}

func newFixture(t *testing.T, resolver ProductResolver) *fixture {
	t.Helper()
	reg, err := registry.New([]registry.BuyerSystem{
		{Identity: "coupa-acme", Protocol: registry.ProtocolCXML, ReturnURL: "https://acme.coupahost.com/punchout/checkout"},
	})
	require.NoError(t, err)

	repo := sessionrepo.NewMemory()
	sessions := sessionsvc.New(repo, stubVerifier{}, reg, time.Hour, zap.NewNop())
	carts := New(sessions, repo, resolver, zap.NewNop())

	_, err = sessions.Verify(context.Background(), "tok-12345")
	require.NoError(t, err)

	return &fixture{carts: carts, repo: repo, token: "tok-12345"}
}

func line(productID string, qty int, price string) domain.CartLine {
	return domain.CartLine{
		ProductID: productID,
		Name:      "Item " + productID,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestUpsertQuantitiesAccumulate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	snap, err := f.carts.Upsert(ctx, f.token, line("P1", 2, "10.00"))
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	require.EqualValues(t, 1, snap.Version)

	snap, err = f.carts.Upsert(ctx, f.token, line("P1", 1, "10.00"))
	require.NoError(t, err)
	require.Len(t, snap.Items, 1, "same product id merges, never duplicates")
	require.Equal(t, 3, snap.Items[0].Quantity)
	require.EqualValues(t, 2, snap.Version)
	require.True(t, snap.Items[0].ExtendedPrice().Equal(decimal.RequireFromString("30.00")))
	require.True(t, snap.Total.Equal(decimal.RequireFromString("30.00")))
}

func TestUpsertNegativeQuantityRemoves(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.carts.Upsert(ctx, f.token, line("P1", 2, "10.00"))
	require.NoError(t, err)

	snap, err := f.carts.Upsert(ctx, f.token, line("P1", -2, "10.00"))
	require.NoError(t, err)
	require.Empty(t, snap.Items)
	require.True(t, snap.Total.IsZero())

	// Decrement of an absent line is a no-op.
	snap, err = f.carts.Upsert(ctx, f.token, line("P9", -1, "5.00"))
	require.NoError(t, err)
	require.Empty(t, snap.Items)
}

func TestSnapshotInsertionOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, id := range []string{"P3", "P1", "P2"} {
		_, err := f.carts.Upsert(ctx, f.token, line(id, 1, "1.00"))
		require.NoError(t, err)
	}
	// Re-adding P3 must not move it.
	_, err := f.carts.Upsert(ctx, f.token, line("P3", 1, "1.00"))
	require.NoError(t, err)

	snap, err := f.carts.Snapshot(ctx, f.token)
	require.NoError(t, err)
	require.Len(t, snap.Items, 3)
	require.Equal(t, "P3", snap.Items[0].ProductID)
	require.Equal(t, "P1", snap.Items[1].ProductID)
	require.Equal(t, "P2", snap.Items[2].ProductID)
}

func TestRemoveIsUnconditional(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.carts.Upsert(ctx, f.token, line("P1", 5, "2.50"))
	require.NoError(t, err)

	snap, err := f.carts.Remove(ctx, f.token, "P1")
	require.NoError(t, err)
	require.Empty(t, snap.Items)

	snap, err = f.carts.Remove(ctx, f.token, "P1")
	require.NoError(t, err, "removing an absent line is a no-op")
	require.Empty(t, snap.Items)
}

func TestMutationRejectedOutsideActive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.repo.SetStatus(ctx, f.token, domain.StatusTransferred))
	_, err := f.carts.Upsert(ctx, f.token, line("P1", 1, "1.00"))
	require.ErrorIs(t, err, domain.ErrSessionNotMutable)
	_, err = f.carts.Remove(ctx, f.token, "P1")
	require.ErrorIs(t, err, domain.ErrSessionNotMutable)

	require.NoError(t, f.repo.SetStatus(ctx, f.token, domain.StatusExpired))
	_, err = f.carts.Upsert(ctx, f.token, line("P1", 1, "1.00"))
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	_, err = f.carts.Snapshot(ctx, f.token)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestUpsertValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.carts.Upsert(ctx, f.token, domain.CartLine{ProductID: "", Quantity: 1})
	require.ErrorIs(t, err, domain.ErrLineInvalid)

	_, err = f.carts.Upsert(ctx, f.token, domain.CartLine{ProductID: "P1", Quantity: 0})
	require.ErrorIs(t, err, domain.ErrLineInvalid)

	_, err = f.carts.Upsert(ctx, f.token, domain.CartLine{ProductID: "P1", Quantity: 1, UnitPrice: decimal.NewFromInt(-3)})
	require.ErrorIs(t, err, domain.ErrLineInvalid)
}

func TestResolverFillsMissingMetadata(t *testing.T) {
	resolver := &stubResolver{info: &ProductInfo{Name: "Stapler", Brand: "Swingline", UnspscCode: "44121615"}}
	f := newFixture(t, resolver)
	ctx := context.Background()

	snap, err := f.carts.Upsert(ctx, f.token, domain.CartLine{ProductID: "P1", Quantity: 1, UnitPrice: decimal.NewFromInt(4)})
	require.NoError(t, err)
	require.Equal(t, "Stapler", snap.Items[0].Name)
	require.Equal(t, "Swingline", snap.Items[0].Brand)
	require.Equal(t, domain.DefaultUnitOfMeasure, snap.Items[0].UnitOfMeasure)
}

func TestResolverFailureIsNotFatal(t *testing.T) {
	resolver := &stubResolver{err: errors.New("catalog down")}
	f := newFixture(t, resolver)

	snap, err := f.carts.Upsert(context.Background(), f.token, domain.CartLine{ProductID: "P1", Quantity: 1, UnitPrice: decimal.NewFromInt(4)})
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
}

func TestConcurrentUpsertsSerialize(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.carts.Upsert(ctx, f.token, line("P1", 1, "1.00"))
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := f.carts.Snapshot(ctx, f.token)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	require.Equal(t, workers, snap.Items[0].Quantity)
	require.EqualValues(t, workers, snap.Version)
}

func TestShortTokenFlow(t *testing.T) {
	ctx := context.Background()
	reg, err := registry.New([]registry.BuyerSystem{
		{Identity: "coupa-acme", Protocol: registry.ProtocolCXML, ReturnURL: "https://acme.coupahost.com/punchout/checkout"},
	})
	require.NoError(t, err)
	repo := sessionrepo.NewMemory()
	sessions := sessionsvc.New(repo, stubVerifier{}, reg, time.Hour, zap.NewNop())
	carts := New(sessions, repo, nil, zap.NewNop())

	sess, err := sessions.Verify(ctx, "tok-123")
	require.NoError(t, err, "short buyer-issued tokens pass format validation")
	require.Equal(t, "coupa-acme", sess.BuyerIdentity)

	_, err = carts.Upsert(ctx, "tok-123", line("P1", 2, "10.00"))
	require.NoError(t, err)
	snap, err := carts.Upsert(ctx, "tok-123", line("P1", 1, "10.00"))
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	require.Equal(t, 3, snap.Items[0].Quantity)
	require.True(t, snap.Items[0].ExtendedPrice().Equal(decimal.RequireFromString("30.00")))
}
