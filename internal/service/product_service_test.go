package service

import (
	"testing"

	"ecom-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

func TestBuildSKU(t *testing.T) {
	assert.Equal(t, "3-NA-NA-17", BuildSKU(3, nil, nil, 17))
	assert.Equal(t, "3-8-8517-17", BuildSKU(3, int64Ptr(8), strPtr("8517"), 17))
	assert.Equal(t, "3-8-NA-17", BuildSKU(3, int64Ptr(8), strPtr(""), 17))
}

func TestFoldRating(t *testing.T) {
	avg, raters := FoldRating(0, 0, 4)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 1, raters)

	avg, raters = FoldRating(4.5, 2, 3)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 3, raters)

	avg, _ = FoldRating(4, 2, 5)
	assert.Equal(t, 4.33, avg)
}

func TestSlugTerm(t *testing.T) {
	assert.Equal(t, "wireless mouse pro", SlugTerm("wireless-mouse-pro"))
	assert.Equal(t, "mouse", SlugTerm(" mouse "))
}

func TestProductInputNormalizeSingle(t *testing.T) {
	price := decimal.NewFromInt(499)
	in := ProductInput{
		Name:        "  Desk Lamp ",
		Description: "Warm light",
		CategoryID:  int64Ptr(1),
		ProductType: "Single",
		Colors:      []ColorInput{{Name: "White", Price: &price}},
	}

	require.NoError(t, in.normalize(10))
	assert.Equal(t, "Desk Lamp", in.Name)
	assert.Equal(t, models.ProductTypeSingle, in.ProductType)
	assert.Equal(t, "Desk Lamp", in.ModelName)
	assert.Equal(t, "Warm light", in.ModelDescription)
	require.NotNil(t, in.Colors[0].StockQuantity)
	assert.Equal(t, 0, *in.Colors[0].StockQuantity)
	assert.Equal(t, 10, *in.Colors[0].Threshold)

	keys := in.expectedImageKeys()
	assert.True(t, keys["color_images_0"])
	assert.Len(t, keys, 1)
}

func TestProductInputNormalizeRejects(t *testing.T) {
	price := decimal.NewFromInt(10)
	negative := decimal.NewFromInt(-1)
	offer := decimal.NewFromInt(150)

	tests := []struct {
		name string
		in   ProductInput
	}{
		{"missing name", ProductInput{Description: "d", CategoryID: int64Ptr(1), ProductType: "single"}},
		{"missing category", ProductInput{Name: "n", Description: "d", ProductType: "single"}},
		{"bad type", ProductInput{Name: "n", Description: "d", CategoryID: int64Ptr(1), ProductType: "bundle"}},
		{"offer out of range", ProductInput{Name: "n", Description: "d", CategoryID: int64Ptr(1), ProductType: "single", Offers: &offer}},
		{"color without price", ProductInput{Name: "n", Description: "d", CategoryID: int64Ptr(1), ProductType: "single",
			Colors: []ColorInput{{Name: "Red"}}}},
		{"negative price", ProductInput{Name: "n", Description: "d", CategoryID: int64Ptr(1), ProductType: "single",
			Colors: []ColorInput{{Name: "Red", Price: &negative}}}},
		{"model without description", ProductInput{Name: "n", Description: "d", NewCategory: "c", ProductType: "variable",
			Models: []ModelInput{{Name: "M1", Colors: []ColorInput{{Name: "Red", Price: &price}}}}}},
		{"long hsn", ProductInput{Name: "n", Description: "d", CategoryID: int64Ptr(1), ProductType: "single",
			NewHSNCode: "1234567890123456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.normalize(10)
			assert.True(t, IsKind(err, KindInvalid), "got %v", err)
		})
	}
}

func TestVariableImageKeys(t *testing.T) {
	price := decimal.NewFromInt(10)
	in := ProductInput{
		Name: "Phone", Description: "d", NewCategory: "Phones", ProductType: "variable",
		Models: []ModelInput{
			{Name: "A", Description: "a", Colors: []ColorInput{{Name: "Red", Price: &price}, {Name: "Blue", Price: &price}}},
			{Name: "B", Description: "b", Colors: []ColorInput{{Name: "Black", Price: &price}}},
		},
	}
	require.NoError(t, in.normalize(10))

	keys := in.expectedImageKeys()
	assert.Len(t, keys, 3)
	assert.True(t, keys[VariableColorImagesKey(0, 1)])
	assert.True(t, keys["model_1_color_images_0"])
}

func TestAssembleViews(t *testing.T) {
	rows := []models.ProductRow{
		{Product: models.Product{ID: 1, Name: "Phone", ProductType: models.ProductTypeVariable}},
		{Product: models.Product{ID: 2, Name: "Empty", ProductType: models.ProductTypeSingle}},
		{Product: models.Product{ID: 3, Name: "Mug", ProductType: models.ProductTypeSingle}},
	}
	productModels := []models.ProductModel{{ID: 10, ProductID: 1, Name: "Pro"}}
	colors := []models.ProductColor{
		{ID: 100, ProductID: 1, ModelID: int64Ptr(10), Name: "Black", Price: dec("999"), StockQuantity: 3, Threshold: 10},
		{ID: 101, ProductID: 1, ModelID: int64Ptr(10), Name: "White", Price: dec("899"),
			OriginalPrice: decimal.NewNullDecimal(dec("950")), StockQuantity: 20, Threshold: 10},
		{ID: 102, ProductID: 3, Name: "Blue", Price: dec("250"), StockQuantity: 0, Threshold: 5},
	}
	images := []models.ProductImage{
		{ID: 1, ProductID: int64Ptr(1), ImageURL: "/p.png"},
		{ID: 2, ColorID: int64Ptr(100), ImageURL: "/black.png"},
	}
	specs := []models.ProductSpecification{{ID: 5, ProductID: 1, Key: "OS", Value: "Android"}}
	modelSpecs := []models.ModelSpecification{{ID: 6, ModelID: 10, Key: "RAM", Value: "8GB"}}

	views := assembleViews(rows, productModels, colors, images, specs, modelSpecs)
	require.Len(t, views, 3)

	phone := views[0]
	assert.Equal(t, "899.00", phone.Price.Decimal.StringFixed(2))
	assert.Equal(t, "950.00", phone.OriginalPrice.Decimal.StringFixed(2))
	assert.Equal(t, 23, phone.StockQuantity)
	require.Len(t, phone.Images, 1)
	assert.Equal(t, "/p.png", phone.Images[0].ImageURL)
	require.Len(t, phone.Models, 1)
	assert.Len(t, phone.Models[0].Specifications, 1)
	require.Len(t, phone.Models[0].Colors, 2)
	assert.Equal(t, models.StockLow, phone.Models[0].Colors[0].Status)
	assert.Len(t, phone.Models[0].Colors[0].Images, 1)
	assert.Equal(t, models.StockInStock, phone.Models[0].Colors[1].Status)
	assert.NotNil(t, phone.Colors)
	assert.Empty(t, phone.Colors)
	assert.Len(t, phone.Specifications, 1)

	empty := views[1]
	assert.False(t, empty.Price.Valid)
	assert.Equal(t, 0, empty.StockQuantity)
	assert.NotNil(t, empty.Images)
	assert.NotNil(t, empty.Models)
	assert.NotNil(t, empty.Colors)

	mug := views[2]
	require.Len(t, mug.Colors, 1)
	assert.Equal(t, models.StockOutOfStock, mug.Colors[0].Status)
}

func TestAssembleSummariesPrefersProductImage(t *testing.T) {
	rows := []models.ProductRow{
		{Product: models.Product{ID: 1}},
		{Product: models.Product{ID: 2}},
		{Product: models.Product{ID: 3}},
	}
	images := []models.ProductImage{
		{ID: 1, ProductID: int64Ptr(1), ColorID: int64Ptr(9), ImageURL: "/color-1.png"},
		{ID: 2, ProductID: int64Ptr(1), ImageURL: "/cover-1.png"},
		{ID: 3, ProductID: int64Ptr(2), ColorID: int64Ptr(8), ImageURL: "/color-2.png"},
	}

	sums := assembleSummaries(rows, nil, images)
	require.Len(t, sums, 3)
	require.NotNil(t, sums[0].Image)
	assert.Equal(t, "/cover-1.png", *sums[0].Image)
	require.NotNil(t, sums[1].Image)
	assert.Equal(t, "/color-2.png", *sums[1].Image)
	assert.Nil(t, sums[2].Image)
}

func TestDroppedBelowStock(t *testing.T) {
	before := &models.ProductColor{StockQuantity: 12, Threshold: 10}
	assert.True(t, droppedBelowStock(before, &models.ProductColor{StockQuantity: 10, Threshold: 10}))
	assert.True(t, droppedBelowStock(before, &models.ProductColor{StockQuantity: 0, Threshold: 10}))
	assert.False(t, droppedBelowStock(before, &models.ProductColor{StockQuantity: 11, Threshold: 10}))

	low := &models.ProductColor{StockQuantity: 5, Threshold: 10}
	assert.False(t, droppedBelowStock(low, &models.ProductColor{StockQuantity: 4, Threshold: 10}))
}
