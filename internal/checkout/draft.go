package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharma-checkout/internal/apperr"
)

// DefaultDeliveryFee is the flat fee the storefront charges per order.
var DefaultDeliveryFee = decimal.NewFromInt(25)

// BuildDraft assembles a validated OrderDraft from a selected address and
// the current cart. Pure: no I/O, no side effects beyond minting the
// client reference.
func BuildDraft(addressID string, items []LineItem, method PaymentMethod, deliveryFee decimal.Decimal) (*OrderDraft, error) {
	if addressID == "" {
		return nil, apperr.ErrNoAddress
	}
	if len(items) == 0 {
		return nil, apperr.ErrEmptyCart
	}
	if method != PaymentCash && method != PaymentCard {
		return nil, fmt.Errorf("%q: %w", method, apperr.ErrBadMethod)
	}

	pharmacy := items[0].PharmacyID
	subtotal := decimal.Zero
	for i, it := range items {
		if it.MedicineID == "" || it.PharmacyID == "" {
			return nil, fmt.Errorf("item %d: %w", i, apperr.ErrBadLineItem)
		}
		if it.Quantity < 1 {
			return nil, fmt.Errorf("item %d: %w", i, apperr.ErrBadQuantity)
		}
		if it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("item %d: %w", i, apperr.ErrNegativePrice)
		}
		if it.PharmacyID != pharmacy {
			return nil, fmt.Errorf("item %d: %w", i, apperr.ErrMixedPharmacies)
		}
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	return &OrderDraft{
		AddressID:     addressID,
		Items:         append([]LineItem(nil), items...),
		PaymentMethod: method,
		Subtotal:      subtotal,
		DeliveryFee:   deliveryFee,
		Total:         subtotal.Add(deliveryFee),
		Status:        "pending",
		ClientRef:     uuid.NewString(),
	}, nil
}
