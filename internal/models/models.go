package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"size:320"                 json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"      json:"id"`
	Token     string    `gorm:"unique;not null" json:"token"`
	UserID    uint      `gorm:"index;not null"  json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"        json:"expires_at"`
	Revoked   bool      `gorm:"default:false"   json:"revoked"`
}

type Category struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"      json:"id"`
	Slug   string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	NameEn string `gorm:"size:255;not null"             json:"name_en"`
	NamePt string `gorm:"size:255;not null"             json:"name_pt"`
}

type Product struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"      json:"id"`
	Slug          string          `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	NameEn        string          `gorm:"size:255;not null"             json:"name_en"`
	NamePt        string          `gorm:"size:255;not null"             json:"name_pt"`
	DescriptionEn string          `json:"description_en"`
	DescriptionPt string          `json:"description_pt"`
	Brand         string          `gorm:"size:100"                      json:"brand"`
	CategoryID    uint            `gorm:"index"                         json:"category_id"`
	PriceExclVat  decimal.Decimal `gorm:"type:decimal(10,2);not null"   json:"price_excl_vat"`
	PriceInclVat  decimal.Decimal `gorm:"type:decimal(10,2);not null"   json:"price_incl_vat"`
	ImageURL      string          `json:"image_url"`
	InStock       bool            `gorm:"default:true"                  json:"in_stock"`
	StockQuantity uint            `json:"stock_quantity"`
	IsNew         bool            `gorm:"default:false"                 json:"is_new"`
	IsBestSeller  bool            `gorm:"default:false"                 json:"is_best_seller"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                  json:"id"`
	UserID    uint `gorm:"index;not null"              json:"user_id"`
	ProductID uint `gorm:"not null"                    json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"  json:"quantity"`
}

type Order struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"     json:"id"`
	OrderNumber string `gorm:"size:64;uniqueIndex;not null" json:"order_number"`
	UserID      uint   `gorm:"index;not null"               json:"user_id"`

	Status        string `gorm:"size:32;not null;default:pending" json:"status"`
	PaymentStatus string `gorm:"size:32;not null;default:pending" json:"payment_status"`

	Subtotal     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	VatAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"vat_amount"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"shipping_cost"`
	Total        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`

	ShippingName       string `gorm:"size:255;not null" json:"shipping_name"`
	ShippingEmail      string `gorm:"size:320;not null" json:"shipping_email"`
	ShippingPhone      string `gorm:"size:50"           json:"shipping_phone"`
	ShippingAddress    string `gorm:"not null"          json:"shipping_address"`
	ShippingCity       string `gorm:"size:100;not null" json:"shipping_city"`
	ShippingPostalCode string `gorm:"size:20;not null"  json:"shipping_postal_code"`
	ShippingCountry    string `gorm:"size:100;not null" json:"shipping_country"`

	StripeSessionID       string `gorm:"size:255" json:"stripe_session_id"`
	StripePaymentIntentID string `gorm:"size:255" json:"stripe_payment_intent_id"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PaidAt      *time.Time `json:"paid_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

// OrderItem is a denormalized snapshot of the product at purchase time.
// Later catalog edits must not change what a historical order shows.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID      uint            `gorm:"index;not null"              json:"order_id"`
	ProductID    uint            `gorm:"not null"                    json:"product_id"`
	ProductName  string          `gorm:"size:255;not null"           json:"product_name"`
	ProductBrand string          `gorm:"size:100"                    json:"product_brand"`
	ProductImage string          `json:"product_image"`
	PriceExclVat decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_excl_vat"`
	PriceInclVat decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_incl_vat"`
	Quantity     uint            `gorm:"not null;check:quantity>0"   json:"quantity"`
	CreatedAt    time.Time       `json:"created_at"`
}

type NewsletterSubscription struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	Email     string    `gorm:"size:320;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
