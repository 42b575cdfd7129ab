package api

import (
	"testing"

	"ecom-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildShareMeta(t *testing.T) {
	p := &models.ProductView{
		ProductRow: models.ProductRow{Product: models.Product{ID: 3, Name: "Desk Lamp", Description: "Warm light"}},
		Images:     []models.ProductImage{{ImageURL: "/product_images/abc_lamp.png"}},
	}

	meta := buildShareMeta(p, "desk-lamp", "https://shop.example.com", "https://api.example.com")

	assert.Equal(t, "Desk Lamp", meta.Title)
	assert.Equal(t, "https://api.example.com/product_images/abc_lamp.png", meta.Image)
	assert.Equal(t, "https://shop.example.com/products/desk-lamp", meta.URL)

	p.Images[0].ImageURL = "https://cdn.example.com/lamp.png"
	meta = buildShareMeta(p, "desk-lamp", "https://shop.example.com", "https://api.example.com")
	assert.Equal(t, "https://cdn.example.com/lamp.png", meta.Image)

	p.Images = nil
	assert.Empty(t, buildShareMeta(p, "x", "", "").Image)
}

func TestRenderShareEscapes(t *testing.T) {
	page, err := renderShare(shareMeta{
		Title:       `Lamp "Pro" <b>`,
		Description: `<script>alert(1)</script>`,
		URL:         "https://shop.example.com/products/lamp",
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, `og:url" content="https://shop.example.com/products/lamp"`)
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, `"Pro"`)
	assert.NotContains(t, html, "<img")
}
