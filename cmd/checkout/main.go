// Command checkout places one order against the pharmacy API and drives it
// to a terminal state, printing the outcome. For card payments it runs a
// local HTTP listener as the deep-link return target and opens the hosted
// checkout page in the system browser.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharma-checkout/internal/apperr"
	"pharma-checkout/internal/checkout"
	"pharma-checkout/internal/config"
	"pharma-checkout/internal/deeplink"
	"pharma-checkout/internal/outcome"
	"pharma-checkout/internal/redirect"
)

func main() {
	var (
		addressID = flag.String("address", "", "saved delivery address id")
		medicine  = flag.String("medicine", "", "medicine id")
		pharmacy  = flag.String("pharmacy", "", "pharmacy id")
		qty       = flag.Int("qty", 1, "quantity")
		price     = flag.String("price", "0", "unit price")
		method    = flag.String("method", "cash", "payment method: cash or card")
	)
	flag.Parse()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger, *addressID, *medicine, *pharmacy, *qty, *price, *method); err != nil {
		switch apperr.Kind(err) {
		case "validation":
			fmt.Fprintln(os.Stderr, "cannot place order:", err)
		case "rejected":
			fmt.Fprintln(os.Stderr, "order rejected by the server:", err)
		case "transient":
			fmt.Fprintln(os.Stderr, "network trouble, try again:", err)
		default:
			fmt.Fprintln(os.Stderr, "checkout failed:", err)
		}
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger, addressID, medicine, pharmacy string, qty int, price, method string) error {
	unitPrice, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("bad price %q: %w", price, err)
	}

	draft, err := checkout.BuildDraft(addressID, []checkout.LineItem{{
		MedicineID: medicine,
		PharmacyID: pharmacy,
		Quantity:   qty,
		UnitPrice:  unitPrice,
	}}, checkout.PaymentMethod(method), checkout.DefaultDeliveryFee)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := deeplink.NewDispatcher()
	stopCallback, err := serveCallback(cfg.CallbackAddr, dispatcher, logger)
	if err != nil {
		return fmt.Errorf("callback listener: %w", err)
	}
	defer stopCallback()

	client := checkout.NewClient(checkout.ClientConfig{
		BaseURL:   cfg.APIBaseURL,
		AuthToken: cfg.AuthToken,
		Timeout:   cfg.HTTPTimeout,
		Log:       logger,
	})
	svc := checkout.NewService(checkout.ServiceConfig{
		API:          client,
		Redirector:   &redirect.Browser{Log: logger},
		Links:        dispatcher,
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.MaxWait,
		Redispatch:   dispatcher.Deliver,
		Log:          logger,
	})

	placed, err := svc.PlaceOrder(ctx, draft)
	if err != nil {
		return err
	}

	printView(outcome.Present(placed.Result, placed.Order))
	return nil
}

// serveCallback runs the local stand-in for the OS deep-link surface: the
// hosted checkout page redirects here, and every hit is handed to the
// dispatcher.
func serveCallback(addr string, d *deeplink.Dispatcher, logger *zap.Logger) (func(), error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/payment-complete/", func(w http.ResponseWriter, r *http.Request) {
		full := "http://" + addr + r.URL.Path
		d.Deliver(full)
		logger.Info("deep link received", zap.String("url", full))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><h1>Payment received</h1><p>You can return to the app.</p></body></html>"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Give a bad listen address a moment to surface before checkout starts.
	select {
	case err := <-errc:
		return nil, err
	case <-time.After(50 * time.Millisecond):
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

func printView(v outcome.View) {
	fmt.Println(v.Title)
	fmt.Println(v.Message)
	fmt.Printf("Order #%s\n", v.OrderID)
	fmt.Printf("EGP %s via %s\n", v.Total.StringFixed(2), v.PaymentMethod)
	for _, g := range v.Guidance {
		fmt.Println(" -", g)
	}
	fmt.Print("Next: ")
	for i, a := range v.Actions {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Print(string(a))
	}
	fmt.Println()
}
