package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dtstore/storefront/internal/models"
	"github.com/dtstore/storefront/internal/orders"
)

func newOrdersHandler(t *testing.T) (*OrderHandler, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return &OrderHandler{Orders: orders.NewRepo(db)}, db
}

func seedOrder(t *testing.T, db *gorm.DB, userID uint, number string) models.Order {
	t.Helper()
	o := models.Order{
		OrderNumber:   number,
		UserID:        userID,
		Status:        orders.StatusPending,
		PaymentStatus: orders.PaymentPending,
		Subtotal:      decimal.RequireFromString("10.00"),
		VatAmount:     decimal.RequireFromString("2.30"),
		Total:         decimal.RequireFromString("12.30"),
		ShippingName:  "Ana Silva",
		ShippingEmail: "ana@example.com",
	}
	require.NoError(t, db.Create(&o).Error)
	require.NoError(t, db.Create(&models.OrderItem{
		OrderID: o.ID, ProductID: 1, ProductName: "Mug",
		PriceExclVat: decimal.RequireFromString("10.00"),
		PriceInclVat: decimal.RequireFromString("12.30"),
		Quantity:     1,
	}).Error)
	return o
}

func getOrder(t *testing.T, h *OrderHandler, userID uint, number string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+number, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("number")
	c.SetParamValues(number)
	c.Set("userID", userID)
	if err := h.GetByNumber(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestGetByNumberReturnsOwnOrderWithItems(t *testing.T) {
	h, db := newOrdersHandler(t)
	o := seedOrder(t, db, 1, "DT-AAA111-XYZ001")

	rec := getOrder(t, h, 1, o.OrderNumber)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OrderNumber string             `json:"order_number"`
		Items       []models.OrderItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, o.OrderNumber, resp.OrderNumber)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "Mug", resp.Items[0].ProductName)
}

func TestGetByNumberForeignOrderLooksMissing(t *testing.T) {
	h, db := newOrdersHandler(t)
	o := seedOrder(t, db, 2, "DT-BBB222-XYZ002")

	rec := getOrder(t, h, 1, o.OrderNumber)
	require.Equal(t, http.StatusNotFound, rec.Code)

	recMissing := getOrder(t, h, 1, "DT-NOPE00-000000")
	require.Equal(t, http.StatusNotFound, recMissing.Code)
	require.JSONEq(t, recMissing.Body.String(), rec.Body.String())
}

func TestListMyOrdersNewestFirst(t *testing.T) {
	h, db := newOrdersHandler(t)
	for i := 0; i < 3; i++ {
		seedOrder(t, db, 1, fmt.Sprintf("DT-CCC33%d-XYZ00%d", i, i))
	}
	seedOrder(t, db, 2, "DT-DDD444-XYZ009")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uint(1))
	require.NoError(t, h.ListMyOrders(c))

	var list []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
	for _, o := range list {
		require.EqualValues(t, 1, o.UserID)
	}
}
