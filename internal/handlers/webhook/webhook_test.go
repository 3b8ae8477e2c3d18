package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dtstore/storefront/internal/cart"
	"github.com/dtstore/storefront/internal/models"
	"github.com/dtstore/storefront/internal/mykafka"
	"github.com/dtstore/storefront/internal/orders"
)

const testSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newTestHandler(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.CartItem{}, &models.Order{}, &models.OrderItem{}))
	h := &Handler{
		Orders:   orders.NewRepo(db),
		Cart:     cart.NewStore(db),
		Producer: &mykafka.Producer{},
		Secret:   testSecret,
	}
	return h, db
}

func seedPendingOrder(t *testing.T, db *gorm.DB, userID uint) models.Order {
	t.Helper()
	o := models.Order{
		OrderNumber:   "DT-TEST01-ABC123",
		UserID:        userID,
		Status:        orders.StatusPending,
		PaymentStatus: orders.PaymentPending,
		Subtotal:      decimal.RequireFromString("100.00"),
		VatAmount:     decimal.RequireFromString("23.00"),
		Total:         decimal.RequireFromString("123.00"),
		ShippingName:  "Ana Silva",
		ShippingEmail: "ana@example.com",
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}

func deliver(t *testing.T, h *Handler, payload, sig string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stripe/webhook", strings.NewReader(payload))
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := h.Handle(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func sessionCompletedPayload(orderID, userID uint, orderNumber string) string {
	return fmt.Sprintf(`{
		"id": "evt_1AbCdEf",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_live_abc",
			"object": "checkout.session",
			"payment_intent": "pi_123",
			"metadata": {"orderId": "%d", "orderNumber": "%s", "userId": "%d"}
		}}
	}`, orderID, orderNumber, userID)
}

func TestHandleSessionCompletedSettlesOrderAndClearsCart(t *testing.T) {
	h, db := newTestHandler(t)
	order := seedPendingOrder(t, db, 7)
	require.NoError(t, db.Create(&models.CartItem{UserID: 7, ProductID: 1, Quantity: 2}).Error)

	payload := sessionCompletedPayload(order.ID, 7, order.OrderNumber)
	rec := deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	require.Equal(t, "paid", got.PaymentStatus)
	require.Equal(t, "processing", got.Status)
	require.Equal(t, "pi_123", got.StripePaymentIntentID)
	require.NotNil(t, got.PaidAt)

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 7).Count(&cartCount).Error)
	require.Zero(t, cartCount)
}

func TestHandleSessionCompletedReplayIsNoOp(t *testing.T) {
	h, db := newTestHandler(t)
	order := seedPendingOrder(t, db, 7)
	payload := sessionCompletedPayload(order.ID, 7, order.OrderNumber)

	rec := deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	firstPaidAt := got.PaidAt
	require.NotNil(t, firstPaidAt)

	// the user starts a new cart between deliveries; a replay must not wipe it
	require.NoError(t, db.Create(&models.CartItem{UserID: 7, ProductID: 2, Quantity: 1}).Error)

	rec = deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, db.First(&got, order.ID).Error)
	require.Equal(t, "paid", got.PaymentStatus)
	require.Equal(t, firstPaidAt.Unix(), got.PaidAt.Unix())

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 7).Count(&cartCount).Error)
	require.EqualValues(t, 1, cartCount)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.EqualValues(t, 1, orderCount)
}

func TestHandleRejectsMissingOrInvalidSignature(t *testing.T) {
	// nil repo and store prove no storage is touched before verification
	h := &Handler{Secret: testSecret}
	payload := `{"id": "evt_1", "type": "checkout.session.completed", "data": {"object": {}}}`

	rec := deliver(t, h, payload, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = deliver(t, h, payload, "t=123,v1=deadbeef")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	tampered := strings.Replace(payload, "evt_1", "evt_2", 1)
	rec = deliver(t, h, tampered, signPayload(t, payload))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTestEventShortCircuits(t *testing.T) {
	h := &Handler{Secret: testSecret}
	payload := `{"id": "evt_test_123", "type": "checkout.session.completed", "data": {"object": {}}}`

	rec := deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "verified")
}

func TestHandleUnrecognizedEventTypeIsAcknowledged(t *testing.T) {
	h, db := newTestHandler(t)
	order := seedPendingOrder(t, db, 7)

	payload := fmt.Sprintf(`{
		"id": "evt_1ZzYyXx",
		"type": "charge.refund.updated",
		"data": {"object": {"metadata": {"orderId": "%d"}}}
	}`, order.ID)
	rec := deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	require.Equal(t, "pending", got.PaymentStatus)
}

func TestHandlePaymentFailedMarksOrder(t *testing.T) {
	h, db := newTestHandler(t)
	order := seedPendingOrder(t, db, 7)

	payload := fmt.Sprintf(`{
		"id": "evt_1FaIlEd",
		"type": "payment_intent.payment_failed",
		"data": {"object": {
			"id": "pi_456",
			"object": "payment_intent",
			"metadata": {"orderId": "%d"}
		}}
	}`, order.ID)
	rec := deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	require.Equal(t, "failed", got.PaymentStatus)
}

func TestHandleSessionCompletedWithPartialMetadata(t *testing.T) {
	h, db := newTestHandler(t)
	order := seedPendingOrder(t, db, 7)

	// only orderId present; the settle path and its event publish must cope
	payload := fmt.Sprintf(`{
		"id": "evt_1PaRtIa",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_live_partial",
			"object": "checkout.session",
			"payment_intent": "pi_789",
			"metadata": {"orderId": "%d"}
		}}
	}`, order.ID)
	rec := deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	require.Equal(t, "paid", got.PaymentStatus)
}

func TestHandleUndecodableSessionPayloadIsAcknowledged(t *testing.T) {
	h, db := newTestHandler(t)
	seedPendingOrder(t, db, 7)

	// signed, so retrying the delivery can never repair it
	payload := `{
		"id": "evt_1BaDoBj",
		"type": "checkout.session.completed",
		"data": {"object": "not a session"}
	}`
	rec := deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got).Error)
	require.Equal(t, "pending", got.PaymentStatus)
}

func TestHandleSessionWithoutOrderMetadata(t *testing.T) {
	h, db := newTestHandler(t)
	seedPendingOrder(t, db, 7)

	payload := `{
		"id": "evt_1NoMeTa",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_live_other", "object": "checkout.session"}}
	}`
	rec := deliver(t, h, payload, signPayload(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got).Error)
	require.Equal(t, "pending", got.PaymentStatus)
}
