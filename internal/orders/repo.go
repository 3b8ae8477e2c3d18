package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dtstore/storefront/internal/models"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Repo owns the orders and order_items tables. Orders are created once,
// atomically with their item snapshots, and afterwards only their status
// fields are mutated.
type Repo struct {
	DB *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{DB: db}
}

// Create persists the order and its item snapshots in one transaction.
// A partially written order (row without items) must never be visible.
func (r *Repo) Create(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("order %s has no items", order.OrderNumber)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		return tx.Create(&items).Error
	})
}

func (r *Repo) GetByID(ctx context.Context, id uint) (*models.Order, []models.OrderItem, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	items, err := r.itemsFor(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	return &order, items, nil
}

func (r *Repo) GetByNumber(ctx context.Context, number string) (*models.Order, []models.OrderItem, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Where("order_number = ?", number).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	items, err := r.itemsFor(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	return &order, items, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SetStripeSession records the external checkout session reference.
func (r *Repo) SetStripeSession(ctx context.Context, orderID uint, sessionID string) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("stripe_session_id", sessionID).Error
}

// MarkPaid transitions payment status pending->paid, moves the order to
// processing and stamps paid_at. The conditional WHERE makes redelivered
// webhook events no-ops: the first delivery wins, every later one reports
// applied=false with no error.
func (r *Repo) MarkPaid(ctx context.Context, orderID uint, paymentIntentID string) (applied bool, err error) {
	now := time.Now().UTC()
	updates := map[string]any{
		"payment_status": PaymentPaid,
		"status":         StatusProcessing,
		"paid_at":        &now,
	}
	if paymentIntentID != "" {
		updates["stripe_payment_intent_id"] = paymentIntentID
	}

	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, PaymentPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkPaymentFailed transitions payment status pending->failed. An order
// already paid (or already failed) is left untouched.
func (r *Repo) MarkPaymentFailed(ctx context.Context, orderID uint) (applied bool, err error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, PaymentPending).
		Update("payment_status", PaymentFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkRefunded transitions payment status paid->refunded.
func (r *Repo) MarkRefunded(ctx context.Context, orderID uint) (applied bool, err error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, PaymentPaid).
		Update("payment_status", PaymentRefunded)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateStatus applies a fulfillment transition, stamping shipped_at and
// delivered_at where appropriate. Transitions not allowed by the status
// machine return ErrInvalidTransition.
func (r *Repo) UpdateStatus(ctx context.Context, orderID uint, status string) error {
	from, ok := statusPredecessors[status]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	updates := map[string]any{"status": status}
	now := time.Now().UTC()
	switch status {
	case StatusShipped:
		updates["shipped_at"] = &now
	case StatusDelivered:
		updates["delivered_at"] = &now
	}

	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return fmt.Errorf("%w: order %d cannot move to %q", ErrInvalidTransition, orderID, status)
	}
	return nil
}

func (r *Repo) itemsFor(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
