package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"no address", ErrNoAddress, "validation"},
		{"wrapped empty cart", fmt.Errorf("draft: %w", ErrEmptyCart), "validation"},
		{"mixed pharmacies", ErrMixedPharmacies, "validation"},
		{"rejected", &Rejected{Message: "total mismatch"}, "rejected"},
		{"transient", &Transient{Err: errors.New("connection refused")}, "transient"},
		{"deadline", context.DeadlineExceeded, "transient"},
		{"canceled", context.Canceled, "canceled"},
		{"unknown", errors.New("boom"), "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Kind(tc.err); got != tc.want {
				t.Fatalf("Kind(%v)=%q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	if got := HTTPStatus(nil); got != http.StatusOK {
		t.Fatalf("nil status=%d", got)
	}
	if got := HTTPStatus(ErrBadQuantity); got != http.StatusBadRequest {
		t.Fatalf("validation status=%d", got)
	}
	if got := HTTPStatus(&Rejected{Message: "nope"}); got != http.StatusBadRequest {
		t.Fatalf("rejected status=%d", got)
	}
	if got := HTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("internal status=%d", got)
	}
}

func TestAsTransientIdempotent(t *testing.T) {
	t.Parallel()

	base := errors.New("timeout")
	tr := AsTransient(base)
	if !IsTransient(tr) {
		t.Fatal("expected transient")
	}
	if again := AsTransient(tr); again != tr {
		t.Fatal("double wrap")
	}
	if !errors.Is(tr, base) {
		t.Fatal("lost cause")
	}
}

func TestRejectedMessageVerbatim(t *testing.T) {
	t.Parallel()

	rej := Rejectedf("unknown pharmacy %q", "P9")
	if rej.Message != `unknown pharmacy "P9"` {
		t.Fatalf("message=%q", rej.Message)
	}
	var out *Rejected
	if !errors.As(fmt.Errorf("submit: %w", rej), &out) {
		t.Fatal("Rejected lost through wrapping")
	}
}
