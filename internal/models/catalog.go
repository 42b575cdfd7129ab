package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Product types
const (
	ProductTypeSingle   = "single"
	ProductTypeVariable = "variable"
)

// Derived stock statuses
const (
	StockInStock    = "IN_STOCK"
	StockLow        = "LOW_STOCK"
	StockOutOfStock = "OUT_OF_STOCK"
)

// Category is a top-level catalog grouping
type Category struct {
	ID        int64     `db:"category_id" json:"category_id"`
	Name      string    `db:"name" json:"name"`
	ImageURL  *string   `db:"image_url" json:"image_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Subcategory struct {
	ID         int64  `db:"subcategory_id" json:"subcategory_id"`
	CategoryID int64  `db:"category_id" json:"category_id"`
	Name       string `db:"name" json:"name"`
}

// CategoryWithSubcategories is the listing shape for GET /categories
type CategoryWithSubcategories struct {
	Category
	Subcategories []Subcategory `json:"subcategories"`
}

// HSN is a GST tax classification code
type HSN struct {
	ID          int64               `db:"hsn_id" json:"hsn_id"`
	Code        string              `db:"hsn_code" json:"hsn_code"`
	Description *string             `db:"hsn_description" json:"hsn_description"`
	GSTRate     decimal.NullDecimal `db:"gst_rate" json:"gst_rate"`
}

type Product struct {
	ID            int64               `db:"product_id" json:"product_id"`
	Name          string              `db:"name" json:"name"`
	Description   string              `db:"description" json:"description"`
	CategoryID    int64               `db:"category_id" json:"category_id"`
	SubcategoryID *int64              `db:"subcategory_id" json:"subcategory_id"`
	HSNID         *int64              `db:"hsn_id" json:"hsn_id"`
	ProductType   string              `db:"product_type" json:"product_type"`
	Rating        float64             `db:"rating" json:"rating"`
	Raters        int                 `db:"raters" json:"raters"`
	Offers        decimal.NullDecimal `db:"offers" json:"offers"`
	SKU           *string             `db:"sku_id" json:"sku_id"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// ProductRow is a product joined with its taxonomy names
type ProductRow struct {
	Product
	CategoryName    *string `db:"category_name" json:"category"`
	SubcategoryName *string `db:"subcategory_name" json:"subcategory"`
	HSNCode         *string `db:"hsn_code" json:"hsn_code"`
}

type ProductModel struct {
	ID          int64  `db:"model_id" json:"model_id"`
	ProductID   int64  `db:"product_id" json:"product_id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

// ProductColor is the purchasable variant carrying price and stock
type ProductColor struct {
	ID            int64               `db:"color_id" json:"color_id"`
	ProductID     int64               `db:"product_id" json:"product_id"`
	ModelID       *int64              `db:"model_id" json:"model_id"`
	Name          string              `db:"name" json:"name"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	OriginalPrice decimal.NullDecimal `db:"original_price" json:"original_price"`
	StockQuantity int                 `db:"stock_quantity" json:"stock_quantity"`
	Threshold     int                 `db:"threshold" json:"threshold"`
}

// StockStatus derives the availability label from quantity and threshold.
func (c ProductColor) StockStatus() string {
	return StockStatusFor(c.StockQuantity, c.Threshold)
}

func StockStatusFor(quantity, threshold int) string {
	switch {
	case quantity <= 0:
		return StockOutOfStock
	case quantity <= threshold:
		return StockLow
	default:
		return StockInStock
	}
}

type ProductImage struct {
	ID        int64  `db:"image_id" json:"image_id"`
	ProductID *int64 `db:"product_id" json:"product_id,omitempty"`
	ColorID   *int64 `db:"color_id" json:"color_id,omitempty"`
	ImageURL  string `db:"image_url" json:"image_url"`
}

type ProductSpecification struct {
	ID        int64  `db:"spec_id" json:"spec_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Key       string `db:"key" json:"key"`
	Value     string `db:"value" json:"value"`
}

type ModelSpecification struct {
	ID      int64  `db:"spec_id" json:"spec_id"`
	ModelID int64  `db:"model_id" json:"model_id"`
	Key     string `db:"key" json:"key"`
	Value   string `db:"value" json:"value"`
}

// ColorView is a color with its images and derived stock status
type ColorView struct {
	ProductColor
	Status string         `json:"stock_status"`
	Images []ProductImage `json:"images"`
}

type ModelView struct {
	ProductModel
	Specifications []ModelSpecification `json:"specifications"`
	Colors         []ColorView          `json:"colors"`
}

// PriceRollup summarizes all colors of a product: price and original
// price of the cheapest color, stock summed across colors.
type PriceRollup struct {
	Price         decimal.NullDecimal `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	StockQuantity int                 `json:"stock_quantity"`
}

// RollupColors computes the price rollup. A product without colors has a
// null price and zero stock.
func RollupColors(colors []ProductColor) PriceRollup {
	var r PriceRollup
	for i, c := range colors {
		r.StockQuantity += c.StockQuantity
		if i == 0 || c.Price.LessThan(r.Price.Decimal) {
			r.Price = decimal.NullDecimal{Decimal: c.Price, Valid: true}
			r.OriginalPrice = c.OriginalPrice
		}
	}
	return r
}

// ProductView is the full nested product representation
type ProductView struct {
	ProductRow
	PriceRollup
	Images         []ProductImage         `json:"images"`
	Specifications []ProductSpecification `json:"specifications"`
	Models         []ModelView            `json:"models"`
	Colors         []ColorView            `json:"colors"`
}

// ProductSummary is the compact listing shape used by similar products,
// category listings and wishlists.
type ProductSummary struct {
	ProductRow
	PriceRollup
	Image *string `json:"image"`
}

// StockReportRow is one color line of the admin stock report
type StockReportRow struct {
	ProductID     int64   `db:"product_id" json:"product_id"`
	ProductName   string  `db:"product_name" json:"product_name"`
	SKU           *string `db:"sku_id" json:"sku_id"`
	ModelID       *int64  `db:"model_id" json:"model_id"`
	ModelName     *string `db:"model_name" json:"model_name"`
	ColorID       int64   `db:"color_id" json:"color_id"`
	ColorName     string  `db:"color_name" json:"color_name"`
	StockQuantity int     `db:"stock_quantity" json:"stock_quantity"`
	Threshold     int     `db:"threshold" json:"threshold"`
	Status        string  `db:"-" json:"status"`
}
