package checkout

import "github.com/shopspring/decimal"

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// LineItem is one cart entry. All items in a draft must belong to the same
// pharmacy; cross-pharmacy carts are rejected at draft assembly.
type LineItem struct {
	MedicineID string          `json:"medicineId"`
	PharmacyID string          `json:"pharmacyId"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"price"`
}

// OrderDraft is the client-assembled, not-yet-submitted order payload.
// It is immutable once submitted and never outlives the in-flight request.
// Totals are computed client-side as a hint; the server is authoritative
// for the final charge.
type OrderDraft struct {
	AddressID     string          `json:"address"`
	Items         []LineItem      `json:"items"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`

	// ClientRef is minted per draft and sent as the Idempotency-Key header,
	// so resubmitting after a transient failure does not have to mean a
	// duplicate order. The server may ignore it.
	ClientRef string `json:"-"`
}

// Order is the client's read-only projection of a server-owned order.
// PaymentURL and DeepLink are present only for card payments.
type Order struct {
	ID            string          `json:"_id"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus string          `json:"paymentStatus"`
	PaymentURL    string          `json:"paymentUrl,omitempty"`
	DeepLink      string          `json:"deepLink,omitempty"`
}
