// Package redirect opens the payment provider's hosted checkout page.
package redirect

import (
	"context"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// ResultType is the verdict the browser session reports when it closes.
type ResultType string

const (
	// Success means the page navigated to the return target.
	Success ResultType = "success"
	// Cancel means the user backed out of the session. On iOS this can be
	// reported even when the redirect fired, so a Cancel carrying a matching
	// URL is still a tentative success signal.
	Cancel ResultType = "cancel"
	// Dismiss means the session was closed without a verdict.
	Dismiss ResultType = "dismiss"
)

// Result is what the browser observed at close time. URL is the address the
// session ended on, if any.
type Result struct {
	Type ResultType
	URL  string
}

// Redirector opens paymentURL in a browser session configured to break out
// at returnURL. Open blocks until the session closes or ctx is done; it must
// honor cancellation because the session is bounded only by user action.
type Redirector interface {
	Open(ctx context.Context, paymentURL, returnURL string) (Result, error)
}

// Func adapts a function to the Redirector interface.
type Func func(ctx context.Context, paymentURL, returnURL string) (Result, error)

func (f Func) Open(ctx context.Context, paymentURL, returnURL string) (Result, error) {
	return f(ctx, paymentURL, returnURL)
}

// Browser launches the OS browser at the payment URL and waits for the
// context. The OS owns the window: it cannot be force-closed from here, so
// the verdict comes from elsewhere (the deep-link callback or polling) and
// Open reports Dismiss once the session is torn down.
type Browser struct {
	Log *zap.Logger
}

func (b *Browser) Open(ctx context.Context, paymentURL, returnURL string) (Result, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", paymentURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", paymentURL)
	default:
		cmd = exec.Command("xdg-open", paymentURL)
	}

	if err := cmd.Start(); err != nil {
		return Result{Type: Dismiss}, err
	}
	if b.Log != nil {
		b.Log.Info("opened hosted checkout page",
			zap.String("payment_url", paymentURL),
			zap.String("return_url", returnURL))
	}

	<-ctx.Done()
	return Result{Type: Dismiss}, ctx.Err()
}
