package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharma-checkout/internal/apperr"
)

// ClientConfig replaces the storefront's ambient axios interceptors with an
// explicit configuration object: base URL, bearer token, timeout.
type ClientConfig struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
	HTTP      *http.Client
	Log       *zap.Logger
}

// Client talks to the order endpoints of the pharmacy API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	log     *zap.Logger
}

func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTP
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AuthToken,
		log:     log,
	}
}

// Submit sends the draft to POST /orders and returns the server's order
// projection. Network failures come back as Transient, 4xx responses as
// Rejected carrying the server message. No side effects are applied on
// failure.
func (c *Client) Submit(ctx context.Context, draft *OrderDraft) (*Order, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if draft.ClientRef != "" {
		req.Header.Set("Idempotency-Key", draft.ClientRef)
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.AsTransient(err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusCreated || res.StatusCode == http.StatusOK:
		var order Order
		if err := json.NewDecoder(res.Body).Decode(&order); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		c.log.Info("order submitted",
			zap.String("order_id", order.ID),
			zap.String("payment_method", string(draft.PaymentMethod)))
		return &order, nil

	case res.StatusCode >= 400 && res.StatusCode < 500:
		return nil, &apperr.Rejected{Message: serverMessage(res.Body, res.Status)}

	default:
		return nil, apperr.AsTransient(fmt.Errorf("submit order: %s", res.Status))
	}
}

// VerifyPayment queries GET /orders/{id}/verify-payment. Satisfies
// reconcile.PaymentVerifier.
func (c *Client) VerifyPayment(ctx context.Context, orderID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/orders/%s/verify-payment", c.baseURL, orderID), nil)
	if err != nil {
		return false, err
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return false, apperr.AsTransient(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return false, apperr.AsTransient(fmt.Errorf("verify payment: %s", res.Status))
	}

	var out struct {
		IsPaid bool `json:"isPaid"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode verify-payment: %w", err)
	}
	return out.IsPaid, nil
}

// GetOrder fetches the full order projection.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/orders/%s", c.baseURL, orderID), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.AsTransient(err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		var order Order
		if err := json.NewDecoder(res.Body).Decode(&order); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		return &order, nil
	case res.StatusCode == http.StatusNotFound:
		return nil, &apperr.Rejected{Message: "order not found"}
	default:
		return nil, apperr.AsTransient(fmt.Errorf("get order: %s", res.Status))
	}
}

// ClearCart empties the server-side cart via DELETE /cart.
func (c *Client) ClearCart(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/cart", nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return apperr.AsTransient(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		return apperr.AsTransient(fmt.Errorf("clear cart: %s", res.Status))
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// serverMessage pulls the "message" field out of an error body, falling
// back to the HTTP status line.
func serverMessage(r io.Reader, status string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&body); err == nil && body.Message != "" {
		return body.Message
	}
	return status
}
