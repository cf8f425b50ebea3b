package checkout

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pharma-checkout/internal/reconcile"
	"pharma-checkout/internal/redirect"
)

// API is the slice of the pharmacy backend the checkout flow consumes.
// *Client satisfies it.
type API interface {
	Submit(ctx context.Context, draft *OrderDraft) (*Order, error)
	VerifyPayment(ctx context.Context, orderID string) (bool, error)
	ClearCart(ctx context.Context) error
}

// ServiceConfig wires a checkout Service.
type ServiceConfig struct {
	API          API
	Redirector   redirect.Redirector
	Links        reconcile.LinkSource
	PollInterval time.Duration
	MaxWait      time.Duration
	Redispatch   func(url string)
	Log          *zap.Logger
}

// Service runs a checkout attempt end to end: submit the draft, then either
// short-circuit (cash) or reconcile the card payment.
type Service struct {
	cfg ServiceConfig
	log *zap.Logger
}

func NewService(cfg ServiceConfig) *Service {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cfg: cfg, log: log}
}

// PlacedOrder is the terminal outcome of a checkout attempt whose
// submission succeeded.
type PlacedOrder struct {
	Order  *Order
	Result reconcile.Result
}

// PlaceOrder submits the draft and drives it to a terminal state.
//
// Cash orders never enter reconciliation: a successful submission is the
// terminal paid state. Card orders open the hosted checkout page and race
// the deep-link and poll channels. The cart is cleared only after a paid
// terminal state, never speculatively; a clear failure is logged, not
// fatal, since the order itself already succeeded.
func (s *Service) PlaceOrder(ctx context.Context, draft *OrderDraft) (*PlacedOrder, error) {
	order, err := s.cfg.API.Submit(ctx, draft)
	if err != nil {
		return nil, err
	}

	if draft.PaymentMethod == PaymentCash {
		res := reconcile.Result{
			OrderID:  order.ID,
			State:    reconcile.StatePaid,
			Evidence: reconcile.EvidenceNone,
		}
		s.clearCart(ctx, order.ID)
		return &PlacedOrder{Order: order, Result: res}, nil
	}

	session, err := reconcile.NewSession(reconcile.Config{
		OrderID:      order.ID,
		PaymentURL:   order.PaymentURL,
		ReturnURL:    order.DeepLink,
		Redirector:   s.cfg.Redirector,
		Links:        s.cfg.Links,
		Verifier:     s.cfg.API,
		PollInterval: s.cfg.PollInterval,
		MaxWait:      s.cfg.MaxWait,
		Redispatch:   s.cfg.Redispatch,
		Log:          s.log,
	})
	if err != nil {
		return nil, err
	}

	res, err := session.Run(ctx)
	if err != nil {
		return &PlacedOrder{Order: order, Result: res}, err
	}
	if res.State == reconcile.StatePaid {
		s.clearCart(ctx, order.ID)
	}
	return &PlacedOrder{Order: order, Result: res}, nil
}

func (s *Service) clearCart(ctx context.Context, orderID string) {
	if err := s.cfg.API.ClearCart(ctx); err != nil {
		s.log.Warn("cart clear failed after paid order",
			zap.String("order_id", orderID), zap.Error(err))
	}
}
