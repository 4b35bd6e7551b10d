// Package punchout is the Session Lifecycle Controller: the single entry
// point the HTTP layer talks to. It drives the session state machine
//
//	PENDING_VERIFICATION -> ACTIVE -> TRANSFERRED (success)
//	                              \-> EXPIRED     (timeout)
//	                     \-> INVALID              (verification failure)
//
// and guarantees that TRANSFERRED, EXPIRED and INVALID are terminal.
package punchout

import (
	"context"
	"time"

	"punchout-catalog/internal/domain"
	sessionrepo "punchout-catalog/internal/repository/session"
	cartsvc "punchout-catalog/internal/service/cart"
	sessionsvc "punchout-catalog/internal/service/session"
	transfersvc "punchout-catalog/internal/service/transfer"

	"go.uber.org/zap"
)

type Controller struct {
	sessions  *sessionsvc.Service
	carts     *cartsvc.Service
	transfers *transfersvc.Service
	store     transitioner
	logger    *zap.Logger
}

type transitioner interface {
	Transition(ctx context.Context, token string, from, to domain.SessionStatus) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// TransferResult is the outcome of a successful hand-back build.
type TransferResult struct {
	Message  *domain.OrderTransferMessage `json:"message"`
	Document string                       `json:"document"`
	Redirect *domain.RedirectPayload      `json:"redirect"`
}

func New(sessions *sessionsvc.Service, carts *cartsvc.Service, transfers *transfersvc.Service, store sessionrepo.Repository, logger *zap.Logger) *Controller {
	return &Controller{
		sessions:  sessions,
		carts:     carts,
		transfers: transfers,
		store:     store,
		logger:    logger,
	}
}

// VerifySession resolves a token into a session, activating it on first
// contact. Idempotent for valid tokens.
func (c *Controller) VerifySession(ctx context.Context, token string) (*domain.PunchOutSession, error) {
	return c.sessions.Verify(ctx, token)
}

// UpdateCart applies the items as upserts, in the order received, and
// returns the resulting snapshot.
func (c *Controller) UpdateCart(ctx context.Context, token string, items []domain.CartLine) (*cartsvc.Snapshot, error) {
	var snap *cartsvc.Snapshot
	for _, item := range items {
		s, err := c.carts.Upsert(ctx, token, item)
		if err != nil {
			return nil, err
		}
		snap = s
	}
	if snap == nil {
		// Nothing to apply; echo the current state.
		return c.carts.Snapshot(ctx, token)
	}
	return snap, nil
}

// RemoveLine deletes one product from the cart.
func (c *Controller) RemoveLine(ctx context.Context, token, productID string) (*cartsvc.Snapshot, error) {
	return c.carts.Remove(ctx, token, productID)
}

// GetCart returns the current snapshot.
func (c *Controller) GetCart(ctx context.Context, token string) (*cartsvc.Snapshot, error) {
	return c.carts.Snapshot(ctx, token)
}

// Transfer encodes the cart and builds the hand-back redirect, then moves
// the session to TRANSFERRED. A transfer is single-use: the ACTIVE ->
// TRANSFERRED step is an atomic conditional update, so a concurrent second
// attempt fails with SESSION_NOT_MUTABLE. Any encoding or redirect failure
// leaves the session ACTIVE so the shopper can retry with the cart intact.
func (c *Controller) Transfer(ctx context.Context, token string) (*TransferResult, error) {
	sess, err := c.sessions.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case domain.StatusActive:
	case domain.StatusExpired:
		return nil, domain.ErrSessionExpired
	case domain.StatusInvalid:
		return nil, domain.ErrTokenUnknown
	default:
		return nil, domain.ErrSessionNotMutable
	}

	msg, err := c.transfers.Encode(sess)
	if err != nil {
		return nil, err
	}
	redirect, doc, err := c.transfers.BuildRedirect(msg, sess)
	if err != nil {
		return nil, err
	}

	if err := c.store.Transition(ctx, token, domain.StatusActive, domain.StatusTransferred); err != nil {
		return nil, err
	}
	c.logger.Info("punchout session transferred",
		zap.String("token", token),
		zap.String("buyer", sess.BuyerIdentity),
		zap.String("documentId", msg.DocumentID))

	return &TransferResult{Message: msg, Document: doc, Redirect: redirect}, nil
}
