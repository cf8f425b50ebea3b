// Package reconcile decides, client-side, whether an initiated card payment
// settled. Two independent evidence channels watch the same order: inbound
// payment-completion deep links and a fixed-interval payment-status poll.
// Whichever fires first wins; the browser session's own verdict is a third,
// lower-priority signal because the provider's settlement webhook may land
// after the browser closes.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pharma-checkout/internal/deeplink"
	"pharma-checkout/internal/redirect"
)

type State string

const (
	StateAwaitingRedirect   State = "awaiting_redirect"
	StateAwaitingCompletion State = "awaiting_completion"
	StatePaid               State = "resolved_paid"
	StateFailed             State = "resolved_failed"
	StateAbandoned          State = "abandoned"
)

// Terminal reports whether st is a resolved state.
func (st State) Terminal() bool {
	return st == StatePaid || st == StateFailed
}

// Evidence names the signal that resolved a session.
type Evidence string

const (
	EvidenceDeepLink Evidence = "deep_link"
	EvidencePoll     Evidence = "poll"
	EvidenceBrowser  Evidence = "browser_result"
	EvidenceNone     Evidence = "none"
)

// DefaultPollInterval matches the interval the storefront polls
// verify-payment at.
const DefaultPollInterval = 5 * time.Second

// PaymentVerifier reports whether an order's payment has settled.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, orderID string) (bool, error)
}

// LinkSource hands out subscriptions to inbound deep-link events.
type LinkSource interface {
	Subscribe() *deeplink.Subscription
}

// Config wires one session. OrderID, Redirector, Links and Verifier are
// required.
type Config struct {
	OrderID    string
	PaymentURL string
	ReturnURL  string

	Redirector redirect.Redirector
	Links      LinkSource
	Verifier   PaymentVerifier

	// PollInterval defaults to DefaultPollInterval. The first poll fires
	// immediately on entering awaiting_completion.
	PollInterval time.Duration

	// MaxWait bounds awaiting_completion. Zero means wait indefinitely,
	// which is what the storefront does: the user can always abandon the
	// screen. When set, expiry resolves the session failed with no evidence.
	MaxWait time.Duration

	// Redispatch, when set, re-delivers a tentative cancel-with-URL browser
	// result as a direct URI dispatch. Works around the OS reporting
	// cancellation on iOS even when the redirect fired.
	Redispatch func(url string)

	Log *zap.Logger
}

// Result is a session's terminal snapshot.
type Result struct {
	OrderID  string
	State    State
	Evidence Evidence
}

// Session watches exactly one order. It is owned by the flow that created
// it; Run may be called once.
type Session struct {
	cfg Config
	log *zap.Logger

	mu       sync.Mutex
	state    State
	evidence Evidence
}

var (
	errNoOrder     = errors.New("reconcile: order id is required")
	errNoRedirect  = errors.New("reconcile: redirector is required")
	errNoLinks     = errors.New("reconcile: link source is required")
	errNoVerifier  = errors.New("reconcile: payment verifier is required")
	errAlreadyDone = errors.New("reconcile: session already ran")
)

func NewSession(cfg Config) (*Session, error) {
	switch {
	case cfg.OrderID == "":
		return nil, errNoOrder
	case cfg.Redirector == nil:
		return nil, errNoRedirect
	case cfg.Links == nil:
		return nil, errNoLinks
	case cfg.Verifier == nil:
		return nil, errNoVerifier
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{cfg: cfg, log: log, state: StateAwaitingRedirect, evidence: EvidenceNone}, nil
}

// State returns the current state and the evidence that resolved it.
func (s *Session) State() (State, Evidence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.evidence
}

// Run drives the session to a terminal state. It opens the redirector,
// subscribes to deep links, polls payment status, and returns on the first
// resolving signal. Cancelling ctx tears the session down: the subscription
// is removed, the ticker stopped, and the browser session abandoned. A late
// deep link after teardown cannot fire because the listener is gone.
func (s *Session) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.state != StateAwaitingRedirect {
		st, ev := s.state, s.evidence
		s.mu.Unlock()
		return Result{OrderID: s.cfg.OrderID, State: st, Evidence: ev}, errAlreadyDone
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := s.cfg.Links.Subscribe()
	defer sub.Cancel()

	browserc := make(chan redirect.Result, 1)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.cfg.Redirector.Open(gctx, s.cfg.PaymentURL, s.cfg.ReturnURL)
		if err != nil {
			// Teardown cancels the browser session; anything else is worth
			// a log line but the evidence channels still own the outcome.
			if gctx.Err() == nil {
				s.log.Warn("browser session error", zap.String("order_id", s.cfg.OrderID), zap.Error(err))
			}
			return nil
		}
		select {
		case browserc <- res:
		case <-gctx.Done():
		}
		return nil
	})
	// Teardown must cancel the browser session before waiting on it.
	defer func() {
		cancel()
		_ = g.Wait()
	}()

	s.setState(StateAwaitingCompletion)
	s.log.Info("awaiting payment completion",
		zap.String("order_id", s.cfg.OrderID),
		zap.Duration("poll_interval", s.cfg.PollInterval))

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.cfg.MaxWait > 0 {
		t := time.NewTimer(s.cfg.MaxWait)
		defer t.Stop()
		deadline = t.C
	}

	// First poll fires immediately; later ones on the ticker.
	if s.pollOnce(ctx) {
		return s.resolve(StatePaid, EvidencePoll), nil
	}

	for {
		select {
		case <-ctx.Done():
			s.abandon()
			return Result{OrderID: s.cfg.OrderID, State: StateAbandoned, Evidence: EvidenceNone}, ctx.Err()

		case raw := <-sub.URLs():
			if deeplink.Matches(raw, s.cfg.OrderID) {
				return s.resolve(StatePaid, EvidenceDeepLink), nil
			}
			// Another session's order, or noise. Not our concern.
			s.log.Debug("ignoring deep link for another order", zap.String("url", raw))

		case <-ticker.C:
			if s.pollOnce(ctx) {
				return s.resolve(StatePaid, EvidencePoll), nil
			}

		case res := <-browserc:
			if done, result := s.onBrowserResult(res); done {
				return result, nil
			}

		case <-deadline:
			s.log.Warn("payment completion wait expired", zap.String("order_id", s.cfg.OrderID))
			return s.resolve(StateFailed, EvidenceNone), nil
		}
	}
}

// onBrowserResult applies the browser's verdict. Success (and the iOS
// tentative cancel carrying a URL) counts only when the URL carries this
// order's completion marker; a bare cancel/dismiss means the user abandoned
// payment and no further waiting is useful.
func (s *Session) onBrowserResult(res redirect.Result) (bool, Result) {
	matched := res.URL != "" && deeplink.Matches(res.URL, s.cfg.OrderID)

	switch res.Type {
	case redirect.Success:
		if matched {
			return true, s.resolve(StatePaid, EvidenceBrowser)
		}
		// Unconfirmed success: the settlement webhook may still be in
		// flight, keep the channels racing.
		s.log.Debug("browser success without completion URL, still waiting",
			zap.String("order_id", s.cfg.OrderID))
		return false, Result{}

	default: // Cancel, Dismiss
		if matched {
			if s.cfg.Redispatch != nil {
				s.cfg.Redispatch(res.URL)
			}
			return true, s.resolve(StatePaid, EvidenceBrowser)
		}
		return true, s.resolve(StateFailed, EvidenceBrowser)
	}
}

// pollOnce queries payment status once. Per-tick failures are deliberately
// swallowed; the next tick retries.
func (s *Session) pollOnce(ctx context.Context) bool {
	paid, err := s.cfg.Verifier.VerifyPayment(ctx, s.cfg.OrderID)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Debug("verify-payment poll failed", zap.String("order_id", s.cfg.OrderID), zap.Error(err))
		}
		return false
	}
	return paid
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	if !s.state.Terminal() && s.state != StateAbandoned {
		s.state = st
	}
	s.mu.Unlock()
}

// resolve performs the single allowed terminal transition. A session that
// already resolved keeps its first verdict.
func (s *Session) resolve(st State, ev Evidence) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		s.state = st
		s.evidence = ev
		s.log.Info("reconciliation resolved",
			zap.String("order_id", s.cfg.OrderID),
			zap.String("state", string(st)),
			zap.String("evidence", string(ev)))
	}
	return Result{OrderID: s.cfg.OrderID, State: s.state, Evidence: s.evidence}
}

func (s *Session) abandon() {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = StateAbandoned
		s.evidence = EvidenceNone
	}
	s.mu.Unlock()
}
