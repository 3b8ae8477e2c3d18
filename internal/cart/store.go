package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/dtstore/storefront/internal/models"
)

var ErrValidation = errors.New("validation")

// Line is a cart row joined with the current product record. Product is nil
// when the product has been removed from the catalog since it was added.
type Line struct {
	ID        uint            `json:"id"`
	ProductID uint            `json:"product_id"`
	Quantity  uint            `json:"quantity"`
	Product   *models.Product `json:"product"`
}

// Store owns the cart_items table. One row per (user, product); Add keeps
// that invariant by incrementing instead of inserting a duplicate.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) List(ctx context.Context, userID uint) ([]Line, error) {
	var items []models.CartItem
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []Line{}, nil
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	var products []models.Product
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Product:   byID[it.ProductID],
		})
	}
	return lines, nil
}

// Add upserts: an existing (user, product) line gets its quantity bumped by
// the given amount, otherwise a new line is inserted.
func (s *Store) Add(ctx context.Context, userID, productID, quantity uint) (*models.CartItem, error) {
	if productID == 0 {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if quantity < 1 {
		quantity = 1
	}

	var item models.CartItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
		}

		item = models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateQuantity sets an absolute quantity; zero or less deletes the line.
// Setting a line to the quantity it already has is a no-op success.
func (s *Store) UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) error {
	q := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID)
	if quantity <= 0 {
		return q.Delete(&models.CartItem{}).Error
	}
	return q.Model(&models.CartItem{}).Update("quantity", quantity).Error
}

// Remove deletes a line unconditionally; a line already gone is success.
func (s *Store) Remove(ctx context.Context, userID, itemID uint) error {
	return s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&models.CartItem{}).Error
}

// Clear drops every line for the user. Called by the payment webhook once
// the paid transition is durably committed, never before.
func (s *Store) Clear(ctx context.Context, userID uint) error {
	return s.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
