// Package transfer implements the Order Transfer Encoder: it projects an
// active session's cart into the buyer system's wire format and builds the
// browser form POST that hands the shopper back.
package transfer

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"punchout-catalog/internal/domain"
	"punchout-catalog/internal/registry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service struct {
	registry         *registry.Registry
	supplierIdentity string
	currency         string
	logger           *zap.Logger
	now              func() time.Time
	newDocumentID    func() string
}

func New(reg *registry.Registry, supplierIdentity, currency string, logger *zap.Logger) *Service {
	return &Service{
		registry:         reg,
		supplierIdentity: supplierIdentity,
		currency:         currency,
		logger:           logger,
		now:              time.Now,
		newDocumentID:    uuid.NewString,
	}
}

// Encode builds the order-transfer message from the session's cart snapshot.
// Deterministic for a given cart except for the fresh document id.
func (s *Service) Encode(sess *domain.PunchOutSession) (*domain.OrderTransferMessage, error) {
	if len(sess.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	lines := make([]domain.OrderLine, 0, len(sess.Lines))
	total := decimal.Zero
	for _, l := range sess.Lines {
		if strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("%w: line %s has no name", domain.ErrEncoding, l.ProductID)
		}
		if l.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: line %s has negative unit price", domain.ErrEncoding, l.ProductID)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %s has non-positive quantity", domain.ErrEncoding, l.ProductID)
		}
		uom := l.UnitOfMeasure
		if uom == "" {
			uom = domain.DefaultUnitOfMeasure
		}
		ext := l.ExtendedPrice()
		lines = append(lines, domain.OrderLine{
			ProductID:      l.ProductID,
			SupplierPartID: l.SupplierPartID,
			Name:           l.Name,
			Description:    l.Description,
			UnspscCode:     l.UnspscCode,
			Quantity:       l.Quantity,
			UnitOfMeasure:  uom,
			UnitPrice:      l.UnitPrice,
			ExtendedPrice:  ext,
		})
		total = total.Add(ext)
	}

	return &domain.OrderTransferMessage{
		DocumentID:    s.newDocumentID(),
		BuyerIdentity: sess.BuyerIdentity,
		SessionToken:  sess.Token,
		Lines:         lines,
		Total:         total,
		CreatedAt:     s.now(),
	}, nil
}

// BuildRedirect produces the form-POST payload for the buyer system's return
// URL, in the protocol its registry entry declares. The destination is the
// session's captured return URL, never a re-resolved one. Returns the
// payload and the raw document for display and audit.
func (s *Service) BuildRedirect(msg *domain.OrderTransferMessage, sess *domain.PunchOutSession) (*domain.RedirectPayload, string, error) {
	bs, ok := s.registry.Lookup(msg.BuyerIdentity)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrBuyerSystemUnknown, msg.BuyerIdentity)
	}

	dest := sess.ReturnURL
	if dest == "" {
		dest = bs.ReturnURL
	}
	protocol := sess.Protocol
	if protocol == "" {
		protocol = bs.Protocol
	}

	var fields []domain.FormField
	var doc string
	switch protocol {
	case registry.ProtocolCXML:
		cxml, err := encodeCXML(msg, s.supplierIdentity, bs.Identity, s.currency, s.now())
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", domain.ErrEncoding, err)
		}
		doc = cxml
		// The field value is pre-encoded per the cXML PunchOut convention.
		fields = []domain.FormField{{Name: "cxml-urlencoded", Value: url.QueryEscape(cxml)}}
	case registry.ProtocolOCI:
		fields = ociFields(msg, s.currency)
		doc = encodeForm(fields)
	default:
		return nil, "", fmt.Errorf("%w: protocol %q", domain.ErrEncoding, protocol)
	}

	s.logger.Info("order transfer encoded",
		zap.String("token", sess.Token),
		zap.String("buyer", msg.BuyerIdentity),
		zap.String("documentId", msg.DocumentID),
		zap.String("protocol", protocol),
		zap.Int("lines", len(msg.Lines)))

	return &domain.RedirectPayload{
		URL:    dest,
		Method: http.MethodPost,
		Fields: fields,
	}, doc, nil
}

func encodeForm(fields []domain.FormField) string {
	v := url.Values{}
	for _, f := range fields {
		v.Set(f.Name, f.Value)
	}
	return v.Encode()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
