// Package deeplink handles inbound payment-completion URIs.
//
// The hosted checkout page breaks out of the browser by navigating to
// <scheme>://payment-complete/<orderId>. The Dispatcher is the process-wide
// entry point for those URIs; reconciliation sessions subscribe to it and
// match order ids themselves.
package deeplink

import (
	"net/url"
	"strings"
	"sync"
)

// Marker identifies a payment-completion URI regardless of scheme or host.
const Marker = "payment-complete"

// OrderID extracts the order id from a completion URI. The id is the final
// path segment after the marker. Returns false for anything else.
func OrderID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}

	// Custom schemes put the marker in the host (app://payment-complete/O1),
	// http callbacks put it in the path.
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if u.Host == Marker && len(segs) >= 1 && segs[0] != "" {
		return segs[len(segs)-1], true
	}
	for i, s := range segs {
		if s == Marker && i+1 < len(segs) && segs[i+1] != "" {
			return segs[len(segs)-1], true
		}
	}
	return "", false
}

// Matches reports whether raw is a completion link for orderID.
func Matches(raw, orderID string) bool {
	id, ok := OrderID(raw)
	return ok && id == orderID
}

// Subscription is a cancellable handle on the dispatcher's URL stream.
// Cancel is safe to call more than once; a cancelled subscription never
// delivers again.
type Subscription struct {
	ch     chan string
	once   sync.Once
	cancel func()
}

// URLs returns the channel inbound URIs are delivered on.
func (s *Subscription) URLs() <-chan string { return s.ch }

// Cancel removes the subscription from its dispatcher.
func (s *Subscription) Cancel() { s.once.Do(s.cancel) }

// Dispatcher fans inbound URI-open events out to subscribers. It covers both
// the warm case (process already running, Deliver called per event) and the
// cold-start case (process launched via a URI, recorded with SetInitialURL
// and replayed to each new subscriber exactly once).
type Dispatcher struct {
	mu      sync.Mutex
	subs    map[int]chan string
	next    int
	initial string
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[int]chan string)}
}

// SetInitialURL records the launch URI so subscriptions created afterwards
// see it first.
func (d *Dispatcher) SetInitialURL(raw string) {
	d.mu.Lock()
	d.initial = raw
	d.mu.Unlock()
}

// Deliver hands an inbound URI to every live subscriber. A subscriber that
// is not draining its channel loses the event rather than blocking delivery.
func (d *Dispatcher) Deliver(raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.subs {
		select {
		case ch <- raw:
		default:
		}
	}
}

// Subscribe registers a new listener and returns its handle.
func (d *Dispatcher) Subscribe() *Subscription {
	d.mu.Lock()
	id := d.next
	d.next++
	ch := make(chan string, 4)
	d.subs[id] = ch
	if d.initial != "" {
		ch <- d.initial
	}
	d.mu.Unlock()

	return &Subscription{
		ch: ch,
		cancel: func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		},
	}
}
