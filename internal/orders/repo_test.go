package orders

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dtstore/storefront/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testOrder(number string) *models.Order {
	return &models.Order{
		OrderNumber:        number,
		UserID:             1,
		Status:             StatusPending,
		PaymentStatus:      PaymentPending,
		Subtotal:           dec("100.00"),
		VatAmount:          dec("23.00"),
		ShippingCost:       dec("0.00"),
		Total:              dec("123.00"),
		ShippingName:       "Maria Silva",
		ShippingEmail:      "maria@example.com",
		ShippingAddress:    "Rua das Flores 1",
		ShippingCity:       "Lisboa",
		ShippingPostalCode: "1000-001",
		ShippingCountry:    "Portugal",
	}
}

func testItems() []models.OrderItem {
	return []models.OrderItem{
		{ProductID: 1, ProductName: "Phone X", PriceExclVat: dec("40.00"), PriceInclVat: dec("49.20"), Quantity: 2},
		{ProductID: 2, ProductName: "Charger", PriceExclVat: dec("20.00"), PriceInclVat: dec("24.60"), Quantity: 1},
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	order := testOrder("DT-TEST-000001")
	require.NoError(t, repo.Create(ctx, order, testItems()))
	require.NotZero(t, order.ID)

	got, items, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "DT-TEST-000001", got.OrderNumber)
	require.Len(t, items, 2)
	require.Equal(t, order.ID, items[0].OrderID)
	require.True(t, got.Total.Equal(got.Subtotal.Add(got.VatAmount).Add(got.ShippingCost)))

	byNum, items2, err := repo.GetByNumber(ctx, "DT-TEST-000001")
	require.NoError(t, err)
	require.Equal(t, got.ID, byNum.ID)
	require.Len(t, items2, 2)
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	repo := NewRepo(newTestDB(t))

	err := repo.Create(context.Background(), testOrder("DT-TEST-000002"), nil)
	require.Error(t, err)

	var count int64
	require.NoError(t, repo.DB.Model(&models.Order{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestGetNotFound(t *testing.T) {
	repo := NewRepo(newTestDB(t))

	_, _, err := repo.GetByID(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = repo.GetByNumber(context.Background(), "DT-NOPE-000000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListByUser(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	first := testOrder("DT-TEST-000003")
	require.NoError(t, repo.Create(ctx, first, testItems()))
	second := testOrder("DT-TEST-000004")
	require.NoError(t, repo.Create(ctx, second, testItems()))

	other := testOrder("DT-TEST-000005")
	other.UserID = 2
	require.NoError(t, repo.Create(ctx, other, testItems()))

	list, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	order := testOrder("DT-TEST-000006")
	require.NoError(t, repo.Create(ctx, order, testItems()))

	applied, err := repo.MarkPaid(ctx, order.ID, "pi_123")
	require.NoError(t, err)
	require.True(t, applied)

	got, _, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, got.PaymentStatus)
	require.Equal(t, StatusProcessing, got.Status)
	require.Equal(t, "pi_123", got.StripePaymentIntentID)
	require.NotNil(t, got.PaidAt)

	// replay: same transition again is a no-op, not an error
	applied, err = repo.MarkPaid(ctx, order.ID, "pi_123")
	require.NoError(t, err)
	require.False(t, applied)

	again, _, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, again.PaymentStatus)
	require.Equal(t, got.PaidAt.Unix(), again.PaidAt.Unix())
}

func TestMarkPaymentFailed(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	order := testOrder("DT-TEST-000007")
	require.NoError(t, repo.Create(ctx, order, testItems()))

	applied, err := repo.MarkPaymentFailed(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, applied)

	// no transition out of failed
	applied, err = repo.MarkPaid(ctx, order.ID, "pi_456")
	require.NoError(t, err)
	require.False(t, applied)

	got, _, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentFailed, got.PaymentStatus)
	require.Equal(t, StatusPending, got.Status)
}

func TestMarkRefundedRequiresPaid(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	order := testOrder("DT-TEST-000008")
	require.NoError(t, repo.Create(ctx, order, testItems()))

	applied, err := repo.MarkRefunded(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, applied)

	_, err = repo.MarkPaid(ctx, order.ID, "pi_789")
	require.NoError(t, err)

	applied, err = repo.MarkRefunded(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, applied)
}

func TestUpdateStatusTransitions(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	order := testOrder("DT-TEST-000009")
	require.NoError(t, repo.Create(ctx, order, testItems()))

	// pending -> shipped skips processing
	err := repo.UpdateStatus(ctx, order.ID, StatusShipped)
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, StatusProcessing))
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, StatusShipped))

	got, _, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ShippedAt)
	require.Nil(t, got.DeliveredAt)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, StatusDelivered))

	got, _, err = repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeliveredAt)

	// delivered is terminal
	err = repo.UpdateStatus(ctx, order.ID, StatusCancelled)
	require.ErrorIs(t, err, ErrInvalidTransition)

	err = repo.UpdateStatus(ctx, 9999, StatusProcessing)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusCancellable(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ctx := context.Background()

	order := testOrder("DT-TEST-000010")
	require.NoError(t, repo.Create(ctx, order, testItems()))

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, StatusCancelled))

	got, _, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
}
