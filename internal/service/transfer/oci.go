package transfer

import (
	"fmt"
	"strconv"

	"punchout-catalog/internal/domain"
)

// ociFields renders the SAP OCI "inbound section" field set, one indexed
// group of NEW_ITEM-* fields per line, indices starting at 1.
func ociFields(msg *domain.OrderTransferMessage, currency string) []domain.FormField {
	fields := make([]domain.FormField, 0, len(msg.Lines)*7)
	for i, l := range msg.Lines {
		n := strconv.Itoa(i + 1)
		add := func(name, value string) {
			if value != "" {
				fields = append(fields, domain.FormField{Name: fmt.Sprintf("NEW_ITEM-%s[%s]", name, n), Value: value})
			}
		}
		add("DESCRIPTION", l.Name)
		add("QUANTITY", strconv.Itoa(l.Quantity))
		add("UNIT", l.UnitOfMeasure)
		add("PRICE", money(l.UnitPrice))
		add("CURRENCY", currency)
		add("VENDORMAT", l.SupplierPartID)
		add("EXT_PRODUCT_ID", l.ProductID)
		add("MATGROUP", l.UnspscCode)
	}
	return fields
}
