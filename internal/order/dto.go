package order

import "github.com/shopspring/decimal"

// CreateOrderItem is one submitted cart line.
// swagger:model CreateOrderItem
type CreateOrderItem struct {
	MedicineID string          `json:"medicineId" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	PharmacyID string          `json:"pharmacyId" example:"b2f5ff47-2b1e-4f22-8a96-5f3c1f2f2e7b"`
	Quantity   int             `json:"quantity"   example:"2"`
	Price      decimal.Decimal `json:"price"      example:"10.00"`
}

// CreateOrderRequest is the order submission payload. Client totals are a
// hint only; the server recomputes and is authoritative.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	AddressID     string            `json:"address"`
	Items         []CreateOrderItem `json:"items"`
	PaymentMethod string            `json:"paymentMethod" example:"card"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	DeliveryFee   decimal.Decimal   `json:"deliveryFee"`
	Total         decimal.Decimal   `json:"total"`
	Status        string            `json:"status"`
}

// CreateOrderResponse is what the storefront consumes after submission.
// swagger:model CreateOrderResponse
type CreateOrderResponse struct {
	ID            string          `json:"_id"`
	PaymentMethod string          `json:"paymentMethod"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus string          `json:"paymentStatus"`
	PaymentURL    string          `json:"paymentUrl,omitempty"`
	DeepLink      string          `json:"deepLink,omitempty"`
}
