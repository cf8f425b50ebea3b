package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment status values the storefront's reconciler observes.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

type Order struct {
	ID            string          `json:"_id"`
	AddressID     string          `json:"address"`
	PaymentMethod string          `json:"paymentMethod"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus string          `json:"paymentStatus"`
	DeepLink      string          `json:"deepLink,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Item struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	MedicineID string          `json:"medicineId"`
	PharmacyID string          `json:"pharmacyId"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}
