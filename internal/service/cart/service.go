// Package cart implements the Cart State Manager: the server-authoritative
// line-item list of an active PunchOut session. The client is a display
// cache; every mutation returns the resulting snapshot and a version number
// so stale views are detectable.
package cart

import (
	"context"
	"time"

	"punchout-catalog/internal/domain"
	sessionrepo "punchout-catalog/internal/repository/session"
	sessionsvc "punchout-catalog/internal/service/session"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service struct {
	sessions sessionLoader
	store    cartStore
	resolver ProductResolver
	locks    *tokenLocks
	logger   *zap.Logger
	now      func() time.Time
}

type sessionLoader interface {
	Load(ctx context.Context, token string) (*domain.PunchOutSession, error)
}

type cartStore interface {
	UpdateCart(ctx context.Context, token string, lines []domain.CartLine, version int64) error
}

// ProductResolver resolves a product id into display metadata via the
// external catalog backend. Optional; a nil resolver means lines are taken
// as sent.
type ProductResolver interface {
	Resolve(ctx context.Context, productID string) (*ProductInfo, error)
}

// ProductInfo is the display metadata the catalog backend knows about a
// product. Pricing stays with the caller; this core only carries it.
type ProductInfo struct {
	SupplierPartID string
	Name           string
	Description    string
	Brand          string
	PartNumber     string
	UnspscCode     string
}

// Snapshot is the cart state returned after every operation.
type Snapshot struct {
	Items   []domain.CartLine `json:"items"`
	Version int64             `json:"version"`
	Total   decimal.Decimal   `json:"total"`
}

func New(sessions *sessionsvc.Service, store sessionrepo.Repository, resolver ProductResolver, logger *zap.Logger) *Service {
	return &Service{
		sessions: sessions,
		store:    store,
		resolver: resolver,
		locks:    newTokenLocks(),
		logger:   logger,
		now:      time.Now,
	}
}

// Upsert merges a line into the session's cart: quantities for the same
// product id add up, and a result at or below zero removes the line.
func (s *Service) Upsert(ctx context.Context, token string, line domain.CartLine) (*Snapshot, error) {
	if err := line.Validate(); err != nil {
		return nil, err
	}

	release := s.locks.acquire(token)
	defer release()

	sess, err := s.mutable(ctx, token)
	if err != nil {
		return nil, err
	}

	s.enrich(ctx, &line)
	sess.Lines = mergeLine(sess.Lines, line, s.now())
	return s.persist(ctx, sess)
}

// Remove deletes the line unconditionally; an absent product id is a no-op,
// not an error.
func (s *Service) Remove(ctx context.Context, token, productID string) (*Snapshot, error) {
	release := s.locks.acquire(token)
	defer release()

	sess, err := s.mutable(ctx, token)
	if err != nil {
		return nil, err
	}

	kept := sess.Lines[:0]
	for _, l := range sess.Lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	sess.Lines = kept
	return s.persist(ctx, sess)
}

// Snapshot returns the current cart in first-insertion order. Reads are
// allowed on ACTIVE and TRANSFERRED sessions.
func (s *Service) Snapshot(ctx context.Context, token string) (*Snapshot, error) {
	sess, err := s.sessions.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case domain.StatusActive, domain.StatusTransferred:
		return snapshotOf(sess), nil
	case domain.StatusExpired:
		return nil, domain.ErrSessionExpired
	case domain.StatusInvalid:
		return nil, domain.ErrTokenUnknown
	default:
		return nil, domain.ErrSessionNotMutable
	}
}

func (s *Service) mutable(ctx context.Context, token string) (*domain.PunchOutSession, error) {
	sess, err := s.sessions.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case domain.StatusActive:
		return sess, nil
	case domain.StatusExpired:
		return nil, domain.ErrSessionExpired
	default:
		return nil, domain.ErrSessionNotMutable
	}
}

func (s *Service) persist(ctx context.Context, sess *domain.PunchOutSession) (*Snapshot, error) {
	sess.Version++
	if err := s.store.UpdateCart(ctx, sess.Token, sess.Lines, sess.Version); err != nil {
		return nil, err
	}
	return snapshotOf(sess), nil
}

// enrich fills missing display metadata from the catalog backend. Best
// effort: the cart still works when the backend is down.
func (s *Service) enrich(ctx context.Context, line *domain.CartLine) {
	if s.resolver == nil || line.Name != "" {
		return
	}
	info, err := s.resolver.Resolve(ctx, line.ProductID)
	if err != nil {
		s.logger.Warn("resolve product metadata", zap.String("productId", line.ProductID), zap.Error(err))
		return
	}
	line.Name = info.Name
	if line.SupplierPartID == "" {
		line.SupplierPartID = info.SupplierPartID
	}
	if line.Description == "" {
		line.Description = info.Description
	}
	if line.Brand == "" {
		line.Brand = info.Brand
	}
	if line.PartNumber == "" {
		line.PartNumber = info.PartNumber
	}
	if line.UnspscCode == "" {
		line.UnspscCode = info.UnspscCode
	}
}

// mergeLine applies "add to cart" semantics: an existing line keeps its
// position, metadata and unit price, only the quantity moves.
func mergeLine(lines []domain.CartLine, in domain.CartLine, now time.Time) []domain.CartLine {
	for i := range lines {
		if lines[i].ProductID != in.ProductID {
			continue
		}
		q := lines[i].Quantity + in.Quantity
		if q <= 0 {
			return append(lines[:i], lines[i+1:]...)
		}
		lines[i].Quantity = q
		return lines
	}
	if in.Quantity <= 0 {
		// Decrement of a line that is not there: nothing to do.
		return lines
	}
	if in.UnitOfMeasure == "" {
		in.UnitOfMeasure = domain.DefaultUnitOfMeasure
	}
	in.AddedAt = now
	return append(lines, in)
}

func snapshotOf(sess *domain.PunchOutSession) *Snapshot {
	items := make([]domain.CartLine, len(sess.Lines))
	copy(items, sess.Lines)
	total := decimal.Zero
	for _, l := range items {
		total = total.Add(l.ExtendedPrice())
	}
	return &Snapshot{Items: items, Version: sess.Version, Total: total}
}
