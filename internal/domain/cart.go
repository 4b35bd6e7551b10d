package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultUnitOfMeasure is assumed when a line carries no unit code.
const DefaultUnitOfMeasure = "EA"

// CartLine is one cart entry, keyed by ProductID within its session's cart.
// Quantity of a stored line is always >= 1; incoming upserts may carry a
// negative quantity to decrement.
type CartLine struct {
	ProductID      string          `json:"productId"`
	SupplierPartID string          `json:"supplierPartId,omitempty"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Brand          string          `json:"brand,omitempty"`
	PartNumber     string          `json:"partNumber,omitempty"`
	UnspscCode     string          `json:"unspscCode,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	UnitOfMeasure  string          `json:"unitOfMeasure"`
	AddedAt        time.Time       `json:"addedAt"`
}

// Validate checks an incoming upsert line. Quantity zero is rejected because
// it is neither an add nor a decrement.
func (l CartLine) Validate() error {
	if strings.TrimSpace(l.ProductID) == "" {
		return fmt.Errorf("%w: productId required", ErrLineInvalid)
	}
	if l.Quantity == 0 {
		return fmt.Errorf("%w: quantity must be non-zero", ErrLineInvalid)
	}
	if l.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unitPrice must not be negative", ErrLineInvalid)
	}
	return nil
}

// ExtendedPrice is quantity * unit price.
func (l CartLine) ExtendedPrice() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
