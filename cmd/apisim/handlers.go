package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharma-checkout/internal/httpx"
	"pharma-checkout/internal/order"
)

// simLinks are the URLs the simulator hands back to the storefront:
// publicURL hosts the fake checkout page, deepLinkURL is where the page
// breaks out to on completion.
type simLinks struct {
	publicURL   string
	deepLinkURL string
}

func newRouter(log *zap.Logger, repo order.Repository, token string, links simLinks) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(log))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	v1 := r.Group("/v1", httpx.BearerAuth(token))
	{
		v1.POST("/orders", createOrderHandler(repo, links))
		v1.GET("/orders/:id", getOrderHandler(repo))
		v1.GET("/orders/:id/verify-payment", verifyPaymentHandler(repo))
		v1.DELETE("/cart", clearCartHandler())
	}

	// The "hosted checkout page" is reached by the browser, not the app:
	// no bearer token there.
	r.GET("/pay/:id", payPageHandler(repo))
	r.POST("/pay/:id/complete", payCompleteHandler(repo))
	r.POST("/pay/:id/cancel", payCancelHandler(repo))

	return r
}

// createOrderHandler accepts an order submission, recomputes the money
// server-side and persists the order. Card orders get a hosted payment URL
// and a return deep link.
func createOrderHandler(repo order.Repository, links simLinks) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json: " + err.Error()})
			return
		}
		if msg, ok := validateCreate(req); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"message": msg})
			return
		}

		// Client totals are a hint. Recompute and charge our own numbers.
		subtotal := decimal.Zero
		for _, it := range req.Items {
			subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		total := subtotal.Add(req.DeliveryFee)

		id := uuid.NewString()
		o := &order.Order{
			ID:            id,
			AddressID:     req.AddressID,
			PaymentMethod: req.PaymentMethod,
			Subtotal:      subtotal,
			DeliveryFee:   req.DeliveryFee,
			Total:         total,
			PaymentStatus: order.StatusPending,
		}
		if req.PaymentMethod == "card" {
			o.DeepLink = fmt.Sprintf("%s/payment-complete/%s", links.deepLinkURL, id)
		}

		items := make([]order.Item, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, order.Item{
				ID:         uuid.NewString(),
				OrderID:    id,
				MedicineID: it.MedicineID,
				PharmacyID: it.PharmacyID,
				Quantity:   it.Quantity,
				Price:      it.Price,
			})
		}

		if err := repo.Create(c.Request.Context(), o, items); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "could not persist order"})
			return
		}

		res := order.CreateOrderResponse{
			ID:            o.ID,
			PaymentMethod: o.PaymentMethod,
			Total:         o.Total,
			PaymentStatus: o.PaymentStatus,
			DeepLink:      o.DeepLink,
		}
		if o.PaymentMethod == "card" {
			res.PaymentURL = fmt.Sprintf("%s/pay/%s", links.publicURL, id)
		}
		c.JSON(http.StatusCreated, res)
	}
}

func validateCreate(req order.CreateOrderRequest) (string, bool) {
	if req.AddressID == "" {
		return "address is required", false
	}
	if len(req.Items) == 0 {
		return "order has no items", false
	}
	if req.PaymentMethod != "cash" && req.PaymentMethod != "card" {
		return fmt.Sprintf("unsupported payment method %q", req.PaymentMethod), false
	}
	pharmacy := req.Items[0].PharmacyID
	for i, it := range req.Items {
		switch {
		case it.MedicineID == "" || it.PharmacyID == "":
			return fmt.Sprintf("item %d is missing medicine or pharmacy", i), false
		case it.Quantity < 1:
			return fmt.Sprintf("item %d has quantity %d", i, it.Quantity), false
		case it.Price.IsNegative():
			return fmt.Sprintf("item %d has a negative price", i), false
		case it.PharmacyID != pharmacy:
			return "items span more than one pharmacy", false
		}
	}
	return "", true
}

func getOrderHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, items, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"message": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"message": "lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o, "items": items})
	}
}

func verifyPaymentHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, _, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"message": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"message": "lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"isPaid": o.PaymentStatus == order.StatusPaid})
	}
}

func clearCartHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// The simulator keeps no cart of its own; acknowledging is enough
		// for the storefront's post-payment cleanup.
		c.Status(http.StatusNoContent)
	}
}

// payPageHandler serves the stand-in for the provider's hosted checkout.
func payPageHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		o, _, err := repo.GetByID(c.Request.Context(), id)
		if err != nil {
			c.String(http.StatusNotFound, "unknown order")
			return
		}
		page := fmt.Sprintf(`<!DOCTYPE html>
<html><body>
<h1>Pay EGP %s</h1>
<p>Order %s</p>
<form method="post" action="/pay/%s/complete"><button>Pay now</button></form>
<form method="post" action="/pay/%s/cancel"><button>Cancel</button></form>
</body></html>`, o.Total.StringFixed(2), o.ID, o.ID, o.ID)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	}
}

// payCompleteHandler settles the payment and bounces the browser to the
// order's return deep link, the way the provider does after settlement.
func payCompleteHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		o, _, err := repo.GetByID(c.Request.Context(), id)
		if err != nil {
			c.String(http.StatusNotFound, "unknown order")
			return
		}
		if err := repo.MarkPaid(c.Request.Context(), id); err != nil {
			c.String(http.StatusInternalServerError, "settlement failed")
			return
		}
		if o.DeepLink != "" {
			c.Redirect(http.StatusFound, o.DeepLink)
			return
		}
		c.String(http.StatusOK, "payment complete")
	}
}

// payCancelHandler leaves the order pending: the provider reports nothing
// on abandonment, the storefront's browser result carries the news.
func payCancelHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, err := repo.GetByID(c.Request.Context(), c.Param("id")); err != nil {
			c.String(http.StatusNotFound, "unknown order")
			return
		}
		c.String(http.StatusOK, "payment cancelled")
	}
}
