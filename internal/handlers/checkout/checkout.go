// Package checkout converts a mutable cart into an immutable order snapshot
// and opens an external payment session for it. The cart is never cleared
// here; that happens only once the webhook confirms payment.
package checkout

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dtstore/storefront/internal/cart"
	"github.com/dtstore/storefront/internal/handlers"
	"github.com/dtstore/storefront/internal/logging"
	"github.com/dtstore/storefront/internal/models"
	"github.com/dtstore/storefront/internal/money"
	"github.com/dtstore/storefront/internal/mykafka"
	"github.com/dtstore/storefront/internal/ordernum"
	"github.com/dtstore/storefront/internal/orders"
	"github.com/dtstore/storefront/internal/payment"
)

type Handler struct {
	Cart     *cart.Store
	Orders   *orders.Repo
	Payments payment.Provider
	Producer *mykafka.Producer
	BaseURL  string
}

type createSessionRequest struct {
	ShippingName       string `json:"shipping_name"`
	ShippingEmail      string `json:"shipping_email"`
	ShippingPhone      string `json:"shipping_phone"`
	ShippingAddress    string `json:"shipping_address"`
	ShippingCity       string `json:"shipping_city"`
	ShippingPostalCode string `json:"shipping_postal_code"`
	ShippingCountry    string `json:"shipping_country"`
}

func (r *createSessionRequest) validate() error {
	required := map[string]string{
		"shipping_name":        r.ShippingName,
		"shipping_email":       r.ShippingEmail,
		"shipping_address":     r.ShippingAddress,
		"shipping_city":        r.ShippingCity,
		"shipping_postal_code": r.ShippingPostalCode,
		"shipping_country":     r.ShippingCountry,
	}
	for field, v := range required {
		if v == "" {
			return fmt.Errorf("%s is required", field)
		}
	}
	return nil
}

func (h *Handler) CreateSession(c echo.Context) error {
	userID, err := handlers.PrincipalID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.create_session", "user_id", userID)

	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	lines, err := h.Cart.List(ctx, userID)
	if err != nil {
		l.Error("cart read failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	// lines whose product vanished from the catalog carry no price; drop them
	priced := lines[:0]
	for _, line := range lines {
		if line.Product != nil {
			priced = append(priced, line)
		}
	}
	if len(priced) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	// Totals are computed server-side from the catalog prices, in decimal,
	// and rounded exactly once at the point of persistence. VAT comes off
	// the unrounded subtotal.
	rawSubtotal := decimal.Zero
	for _, line := range priced {
		rawSubtotal = rawSubtotal.Add(line.Product.PriceExclVat.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	subtotal := money.Round2(rawSubtotal)
	vatAmount := money.VAT(rawSubtotal)
	shippingCost := decimal.Zero // flat free shipping
	total := subtotal.Add(vatAmount).Add(shippingCost)

	order := models.Order{
		OrderNumber:        ordernum.Generate(),
		UserID:             userID,
		Status:             orders.StatusPending,
		PaymentStatus:      orders.PaymentPending,
		Subtotal:           subtotal,
		VatAmount:          vatAmount,
		ShippingCost:       shippingCost,
		Total:              total,
		ShippingName:       req.ShippingName,
		ShippingEmail:      req.ShippingEmail,
		ShippingPhone:      req.ShippingPhone,
		ShippingAddress:    req.ShippingAddress,
		ShippingCity:       req.ShippingCity,
		ShippingPostalCode: req.ShippingPostalCode,
		ShippingCountry:    req.ShippingCountry,
	}

	items := make([]models.OrderItem, 0, len(priced))
	for _, line := range priced {
		items = append(items, models.OrderItem{
			ProductID:    line.ProductID,
			ProductName:  line.Product.NameEn,
			ProductBrand: line.Product.Brand,
			ProductImage: line.Product.ImageURL,
			PriceExclVat: line.Product.PriceExclVat,
			PriceInclVat: line.Product.PriceInclVat,
			Quantity:     line.Quantity,
		})
	}

	if err := h.Orders.Create(ctx, &order, items); err != nil {
		l.Error("order create failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	sessionParams := payment.SessionParams{
		SuccessURL:        fmt.Sprintf("%s/order-confirmation?order=%s", h.BaseURL, order.OrderNumber),
		CancelURL:         h.BaseURL + "/cart",
		CustomerEmail:     req.ShippingEmail,
		ClientReferenceID: fmt.Sprint(order.ID),
		Metadata: map[string]string{
			"orderId":     fmt.Sprint(order.ID),
			"orderNumber": order.OrderNumber,
			"userId":      fmt.Sprint(userID),
		},
	}
	for _, line := range priced {
		sessionParams.LineItems = append(sessionParams.LineItems, payment.LineItem{
			Name:        line.Product.NameEn,
			Description: line.Product.Brand,
			ImageURL:    line.Product.ImageURL,
			UnitAmount:  money.EurToCents(line.Product.PriceInclVat),
			Quantity:    int64(line.Quantity),
		})
	}

	sess, err := h.Payments.CreateSession(ctx, sessionParams)
	if err != nil {
		// The pending order stays behind on purpose: a slow webhook or a
		// reconciliation job may still need it, and the customer's cart is
		// intact for a retry.
		l.Error("payment session failed", "order_number", order.OrderNumber, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable")
	}

	if err := h.Orders.SetStripeSession(ctx, order.ID, sess.ID); err != nil {
		l.Warn("recording session id failed", "order_number", order.OrderNumber, "error", err)
	}

	h.publish(c, map[string]any{
		"type":        "order_created",
		"userID":      userID,
		"orderID":     order.ID,
		"orderNumber": order.OrderNumber,
		"total":       order.Total,
	})

	l.Info("checkout session created", "order_number", order.OrderNumber)
	return c.JSON(http.StatusOK, echo.Map{
		"session_id":   sess.ID,
		"session_url":  sess.URL,
		"order_number": order.OrderNumber,
	})
}

func (h *Handler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
