// Package outcome turns a terminal reconciliation result into the view the
// success/failure screens render.
package outcome

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pharma-checkout/internal/checkout"
	"pharma-checkout/internal/reconcile"
)

type Action string

const (
	ActionTrackOrder       Action = "track_order"
	ActionViewOrders       Action = "view_orders"
	ActionContinueShopping Action = "continue_shopping"
	ActionRetry            Action = "retry"
	ActionReturnToCart     Action = "return_to_cart"
	ActionContactSupport   Action = "contact_support"
)

// View is everything the hosting screen needs to render an outcome.
type View struct {
	Title         string
	Message       string
	OrderID       string
	Total         decimal.Decimal
	PaymentMethod checkout.PaymentMethod
	Paid          bool
	Guidance      []string
	Actions       []Action
}

// Present maps a terminal session result onto one of the two branches.
// order is the submitted projection the result belongs to.
func Present(res reconcile.Result, order *checkout.Order) View {
	v := View{
		OrderID:       res.OrderID,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
	}

	if res.State == reconcile.StatePaid {
		v.Paid = true
		v.Title = "Order Placed Successfully!"
		v.Message = fmt.Sprintf("Thank you for your order. Paid via %s.", order.PaymentMethod)
		v.Actions = []Action{ActionTrackOrder, ActionViewOrders, ActionContinueShopping}
		return v
	}

	v.Title = "Payment Processing Failed"
	v.Actions = []Action{ActionRetry, ActionReturnToCart, ActionContactSupport}

	if order.PaymentMethod == checkout.PaymentCard {
		v.Message = "There was an issue processing your card payment. Please try again or use a different payment method."
		v.Guidance = []string{
			"Your card may have been declined by your bank. Check your card details or try a different payment method.",
			"Ensure your card is valid, has sufficient funds, and supports online payments.",
		}
	} else {
		v.Title = "Order Failed"
		v.Message = "We couldn't process your order. Please try again."
		v.Guidance = []string{
			"There was an issue processing your payment. This could be due to a temporary service disruption.",
			"Check your internet connection and try again in a moment.",
		}
	}
	return v
}
