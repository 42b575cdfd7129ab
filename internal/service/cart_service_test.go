package service

import (
	"testing"
	"time"

	"ecom-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSummarizeCart(t *testing.T) {
	lines := []models.CartLine{
		{ItemID: 1, ProductName: "Mouse", UnitPrice: decimal.NewNullDecimal(dec("249.50")), Quantity: 2,
			StockQuantity: intPtr(40), Threshold: intPtr(10)},
		{ItemID: 2, ProductName: "Cable", UnitPrice: decimal.NewNullDecimal(dec("99")), Quantity: 1,
			StockQuantity: intPtr(3), Threshold: intPtr(10)},
		{ItemID: 3, ProductName: "Orphan", Quantity: 4},
	}

	view := summarizeCart(lines)

	assert.Equal(t, 7, view.ItemCount)
	assert.Equal(t, "598.00", view.Subtotal.StringFixed(2))
	require.Len(t, view.Items, 3)
	assert.Equal(t, "499.00", view.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, models.StockInStock, view.Items[0].StockStatus)
	assert.Equal(t, models.StockLow, view.Items[1].StockStatus)
	assert.True(t, view.Items[2].LineTotal.IsZero())
	assert.Equal(t, models.StockOutOfStock, view.Items[2].StockStatus)
}

func TestSummarizeEmptyCart(t *testing.T) {
	view := summarizeCart(nil)
	assert.NotNil(t, view.Items)
	assert.Equal(t, 0, view.ItemCount)
	assert.True(t, view.Subtotal.IsZero())
}

func TestAssembleWishlist(t *testing.T) {
	now := time.Now()
	items := []models.WishlistItem{
		{ID: 1, ProductID: 10, ColorID: int64Ptr(100), AddedAt: now},
		{ID: 2, ProductID: 11, AddedAt: now},
		{ID: 3, ProductID: 99, AddedAt: now},
	}
	summaries := []models.ProductSummary{
		{ProductRow: models.ProductRow{Product: models.Product{ID: 10, Name: "Phone"}}},
		{ProductRow: models.ProductRow{Product: models.Product{ID: 11, Name: "Case"}}},
	}
	colors := []models.ProductColor{{ID: 100, ProductID: 10, Name: "Blue"}}

	lines := assembleWishlist(items, summaries, colors)

	require.Len(t, lines, 2)
	assert.Equal(t, "Phone", lines[0].Product.Name)
	require.NotNil(t, lines[0].ColorName)
	assert.Equal(t, "Blue", *lines[0].ColorName)
	assert.Nil(t, lines[1].ColorName)
}
