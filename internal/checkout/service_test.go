package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"pharma-checkout/internal/apperr"
	"pharma-checkout/internal/deeplink"
	"pharma-checkout/internal/reconcile"
	"pharma-checkout/internal/redirect"
)

//
// ---------- STUBS & FAKES ----------
//

// fakeAPI scripts the backend for service tests.
type fakeAPI struct {
	mu          sync.Mutex
	submitOrder *Order
	submitErr   error
	paidAfter   int // verify-payment returns true from this call on (0 = never)
	verifyCalls int
	cartCleared int
}

func (f *fakeAPI) Submit(ctx context.Context, draft *OrderDraft) (*Order, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	o := *f.submitOrder
	return &o, nil
}

func (f *fakeAPI) VerifyPayment(ctx context.Context, orderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.paidAfter > 0 && f.verifyCalls >= f.paidAfter, nil
}

func (f *fakeAPI) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cartCleared++
	return nil
}

func (f *fakeAPI) stats() (verifies, clears int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls, f.cartCleared
}

// countingRedirector records whether a browser session was ever opened.
type countingRedirector struct {
	mu     sync.Mutex
	opened int
	result redirect.Result
	block  bool
}

func (r *countingRedirector) Open(ctx context.Context, paymentURL, returnURL string) (redirect.Result, error) {
	r.mu.Lock()
	r.opened++
	r.mu.Unlock()
	if r.block {
		<-ctx.Done()
		return redirect.Result{Type: redirect.Dismiss}, ctx.Err()
	}
	return r.result, nil
}

func (r *countingRedirector) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

func newTestService(api *fakeAPI, rd redirect.Redirector, links reconcile.LinkSource) *Service {
	return NewService(ServiceConfig{
		API:          api,
		Redirector:   rd,
		Links:        links,
		PollInterval: 10 * time.Millisecond,
	})
}

//
// ---------- TESTS ----------
//

// A cash order resolves paid at submission time: no redirect, no
// reconciliation, cart cleared.
func TestPlaceOrder_CashShortCircuit(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{submitOrder: &Order{ID: "O1", PaymentMethod: PaymentCash, PaymentStatus: "pending"}}
	rd := &countingRedirector{block: true}
	svc := newTestService(api, rd, deeplink.NewDispatcher())

	placed, err := svc.PlaceOrder(context.Background(), testDraft(t, PaymentCash))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if placed.Result.State != reconcile.StatePaid || placed.Result.Evidence != reconcile.EvidenceNone {
		t.Fatalf("result=%+v", placed.Result)
	}
	if rd.openCount() != 0 {
		t.Fatal("cash order opened a browser session")
	}
	verifies, clears := api.stats()
	if verifies != 0 {
		t.Fatalf("cash order polled verify-payment %d times", verifies)
	}
	if clears != 1 {
		t.Fatalf("cart cleared %d times, want 1", clears)
	}
}

// A card order reconciles through the poll channel, then clears the cart.
func TestPlaceOrder_CardPaidViaPoll(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		submitOrder: &Order{
			ID:            "O1",
			PaymentMethod: PaymentCard,
			PaymentStatus: "pending",
			PaymentURL:    "https://pay/x",
			DeepLink:      "app://payment-complete/O1",
		},
		paidAfter: 2,
	}
	rd := &countingRedirector{block: true}
	svc := newTestService(api, rd, deeplink.NewDispatcher())

	placed, err := svc.PlaceOrder(context.Background(), testDraft(t, PaymentCard))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if placed.Result.State != reconcile.StatePaid || placed.Result.Evidence != reconcile.EvidencePoll {
		t.Fatalf("result=%+v", placed.Result)
	}
	if rd.openCount() != 1 {
		t.Fatalf("browser opened %d times", rd.openCount())
	}
	if _, clears := api.stats(); clears != 1 {
		t.Fatalf("cart cleared %d times, want 1", clears)
	}
}

// A card order resolved by the deep link clears the cart too.
func TestPlaceOrder_CardPaidViaDeepLink(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		submitOrder: &Order{
			ID:            "O1",
			PaymentMethod: PaymentCard,
			PaymentURL:    "https://pay/x",
			DeepLink:      "app://payment-complete/O1",
		},
	}
	d := deeplink.NewDispatcher()
	d.SetInitialURL("app://payment-complete/O1")
	svc := newTestService(api, &countingRedirector{block: true}, d)

	placed, err := svc.PlaceOrder(context.Background(), testDraft(t, PaymentCard))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if placed.Result.Evidence != reconcile.EvidenceDeepLink {
		t.Fatalf("evidence=%s", placed.Result.Evidence)
	}
}

// Abandoned payment: browser cancel, no completion URL. The cart stays
// intact so the user can retry.
func TestPlaceOrder_CardCancelledKeepsCart(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		submitOrder: &Order{
			ID:            "O1",
			PaymentMethod: PaymentCard,
			PaymentURL:    "https://pay/x",
			DeepLink:      "app://payment-complete/O1",
		},
	}
	rd := &countingRedirector{result: redirect.Result{Type: redirect.Cancel}}
	svc := newTestService(api, rd, deeplink.NewDispatcher())

	placed, err := svc.PlaceOrder(context.Background(), testDraft(t, PaymentCard))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if placed.Result.State != reconcile.StateFailed || placed.Result.Evidence != reconcile.EvidenceBrowser {
		t.Fatalf("result=%+v", placed.Result)
	}
	if _, clears := api.stats(); clears != 0 {
		t.Fatal("cart cleared on a failed payment")
	}
}

// A rejected submission surfaces the error and applies no side effects.
func TestPlaceOrder_SubmissionRejected(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{submitErr: &apperr.Rejected{Message: "invalid address"}}
	rd := &countingRedirector{block: true}
	svc := newTestService(api, rd, deeplink.NewDispatcher())

	_, err := svc.PlaceOrder(context.Background(), testDraft(t, PaymentCard))
	if apperr.Kind(err) != "rejected" {
		t.Fatalf("err=%v", err)
	}
	if rd.openCount() != 0 {
		t.Fatal("browser opened after rejection")
	}
	if _, clears := api.stats(); clears != 0 {
		t.Fatal("cart cleared after rejection")
	}
}
