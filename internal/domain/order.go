package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderTransferMessage is the projection of a session's cart handed back to
// the buyer system. It is derived on demand and never persisted; DocumentID
// is fresh per transfer attempt.
type OrderTransferMessage struct {
	DocumentID    string          `json:"documentId"`
	BuyerIdentity string          `json:"buyerIdentity"`
	SessionToken  string          `json:"-"`
	Lines         []OrderLine     `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// OrderLine is one transferred line item with its computed extended price.
type OrderLine struct {
	ProductID      string          `json:"productId"`
	SupplierPartID string          `json:"supplierPartId,omitempty"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	UnspscCode     string          `json:"unspscCode,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitOfMeasure  string          `json:"unitOfMeasure"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	ExtendedPrice  decimal.Decimal `json:"extendedPrice"`
}

// FormField is one hidden input of the hand-back form.
type FormField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RedirectPayload describes the browser form POST that returns control to the
// buyer system. It is submitted as a real same-tab form, not a fetch, so the
// shopper's browser context travels to the buyer's origin.
type RedirectPayload struct {
	URL    string      `json:"url"`
	Method string      `json:"method"`
	Fields []FormField `json:"fields"`
}
