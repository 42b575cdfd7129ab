package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID         int64     `db:"cart_id" json:"cart_id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type CartItem struct {
	ID        int64     `db:"item_id" json:"item_id"`
	CartID    int64     `db:"cart_id" json:"cart_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	ModelID   *int64    `db:"model_id" json:"model_id"`
	ColorID   *int64    `db:"color_id" json:"color_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}

// CartLine is a cart item joined with its product and color
type CartLine struct {
	ItemID        int64               `db:"item_id" json:"item_id"`
	ProductID     int64               `db:"product_id" json:"product_id"`
	ProductName   string              `db:"product_name" json:"product_name"`
	ModelID       *int64              `db:"model_id" json:"model_id"`
	ModelName     *string             `db:"model_name" json:"model_name"`
	ColorID       *int64              `db:"color_id" json:"color_id"`
	ColorName     *string             `db:"color_name" json:"color_name"`
	UnitPrice     decimal.NullDecimal `db:"unit_price" json:"unit_price"`
	OriginalPrice decimal.NullDecimal `db:"original_price" json:"original_price"`
	StockQuantity *int                `db:"stock_quantity" json:"stock_quantity"`
	Threshold     *int                `db:"threshold" json:"-"`
	Quantity      int                 `db:"quantity" json:"quantity"`
	ImageURL      *string             `db:"image_url" json:"image_url"`
	LineTotal     decimal.Decimal     `db:"-" json:"line_total"`
	StockStatus   string              `db:"-" json:"stock_status"`
}

type CartView struct {
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Wishlist struct {
	ID         int64     `db:"wishlist_id" json:"wishlist_id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type WishlistItem struct {
	ID         int64     `db:"item_id" json:"item_id"`
	WishlistID int64     `db:"wishlist_id" json:"wishlist_id"`
	ProductID  int64     `db:"product_id" json:"product_id"`
	ColorID    *int64    `db:"color_id" json:"color_id"`
	AddedAt    time.Time `db:"added_at" json:"added_at"`
}

// WishlistLine is a wishlist item with a product summary
type WishlistLine struct {
	ItemID    int64          `json:"item_id"`
	ColorID   *int64         `json:"color_id"`
	AddedAt   time.Time      `json:"added_at"`
	Product   ProductSummary `json:"product"`
	ColorName *string        `json:"color_name,omitempty"`
}
