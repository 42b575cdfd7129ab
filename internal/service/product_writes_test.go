package service

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"ecom-service/config"
	"ecom-service/internal/media"
	"ecom-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProductRollbackDiscardsUploads(t *testing.T) {
	st, mock := newMockStore(t)
	dir := t.TempDir()
	storage, err := media.NewLocalStorage(dir, "/product_images")
	require.NoError(t, err)
	svc := NewProductService(st, nil, nil, storage, config.BusinessConfig{DefaultStockThreshold: 10})

	price := dec("1499")
	in := ProductInput{
		Name:        "Earbuds",
		Description: "Wireless earbuds",
		CategoryID:  int64Ptr(42),
		ProductType: models.ProductTypeSingle,
		Colors:      []ColorInput{{Name: "Black", Price: &price}},
	}
	files := ProductFiles{
		ProductImages: []Upload{{Filename: "front.png", Reader: strings.NewReader("png")}},
		ColorImages: map[string][]Upload{
			SingleColorImagesKey(0): {{Filename: "black.jpg", Reader: strings.NewReader("jpg")}},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(sqlRe("SELECT * FROM categories WHERE category_id = $1")).
		WithArgs(42).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err = svc.CreateProduct(context.Background(), in, files)
	assert.True(t, IsKind(err, KindInvalid), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRateProductRaterCountIsAdminOnly(t *testing.T) {
	svc := NewProductService(nil, nil, nil, nil, config.BusinessConfig{})
	ctx := context.Background()
	rating := 4.5

	raters := 10
	_, err := svc.RateProduct(ctx, Actor{CustomerID: 2}, 5, RatingInput{Rating: &rating, Raters: &raters})
	assert.True(t, IsKind(err, KindForbidden), "got %v", err)

	// admins pass the gate and reach field validation
	negative := -1
	_, err = svc.RateProduct(ctx, Actor{IsAdmin: true}, 5, RatingInput{Rating: &rating, Raters: &negative})
	assert.True(t, IsKind(err, KindInvalid), "got %v", err)
}
