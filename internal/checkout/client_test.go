package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"pharma-checkout/internal/apperr"
)

func testDraft(t *testing.T, method PaymentMethod) *OrderDraft {
	t.Helper()
	draft, err := BuildDraft("A1", []LineItem{item("M1", "P1", 2, "10.00")}, method, DefaultDeliveryFee)
	if err != nil {
		t.Fatalf("BuildDraft: %v", err)
	}
	return draft
}

func TestClientSubmit_OK(t *testing.T) {
	t.Parallel()

	var gotAuth, gotIdem string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"O1","paymentMethod":"card","total":"45.00","paymentStatus":"pending","paymentUrl":"https://pay/x","deepLink":"app://payment-complete/O1"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, AuthToken: "tok-123"})
	draft := testDraft(t, PaymentCard)

	order, err := c.Submit(context.Background(), draft)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if order.ID != "O1" || order.PaymentURL != "https://pay/x" || order.DeepLink != "app://payment-complete/O1" {
		t.Fatalf("order=%+v", order)
	}
	if !order.Total.Equal(decimal.RequireFromString("45.00")) {
		t.Fatalf("total=%s", order.Total)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("auth header=%q", gotAuth)
	}
	if gotIdem != draft.ClientRef {
		t.Fatalf("idempotency key=%q, want %q", gotIdem, draft.ClientRef)
	}
	if gotBody["address"] != "A1" || gotBody["paymentMethod"] != "card" {
		t.Fatalf("payload=%v", gotBody)
	}
	if _, ok := gotBody["items"].([]any); !ok {
		t.Fatalf("payload items missing: %v", gotBody)
	}
}

func TestClientSubmit_RejectedCarriesServerMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"total does not match items"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := c.Submit(context.Background(), testDraft(t, PaymentCash))

	var rej *apperr.Rejected
	if !errors.As(err, &rej) {
		t.Fatalf("err=%v, want Rejected", err)
	}
	if rej.Message != "total does not match items" {
		t.Fatalf("message=%q", rej.Message)
	}
}

func TestClientSubmit_ServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := c.Submit(context.Background(), testDraft(t, PaymentCash))
	if !apperr.IsTransient(err) {
		t.Fatalf("err=%v, want transient", err)
	}
}

func TestClientSubmit_NetworkErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := c.Submit(context.Background(), testDraft(t, PaymentCash))
	if !apperr.IsTransient(err) {
		t.Fatalf("err=%v, want transient", err)
	}
}

func TestClientVerifyPayment(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/O1/verify-payment" {
			t.Errorf("path=%s", r.URL.Path)
		}
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			_, _ = w.Write([]byte(`{"isPaid":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"isPaid":true}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})

	paid, err := c.VerifyPayment(context.Background(), "O1")
	if err != nil || paid {
		t.Fatalf("first poll paid=%v err=%v", paid, err)
	}
	paid, err = c.VerifyPayment(context.Background(), "O1")
	if err != nil || !paid {
		t.Fatalf("second poll paid=%v err=%v", paid, err)
	}
}

func TestClientClearCart(t *testing.T) {
	t.Parallel()

	cleared := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/cart" {
			cleared = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	if err := c.ClearCart(context.Background()); err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
	if !cleared {
		t.Fatal("cart not cleared")
	}
}

func TestClientGetOrder_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := c.GetOrder(context.Background(), "missing")

	var rej *apperr.Rejected
	if !errors.As(err, &rej) {
		t.Fatalf("err=%v, want Rejected", err)
	}
}
