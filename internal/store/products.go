package store

import (
	"context"

	"ecom-service/internal/models"

	"github.com/shopspring/decimal"
)

const productRowSelect = `
	SELECT p.*, c.name AS category_name, s.name AS subcategory_name, h.hsn_code
	FROM products p
	LEFT JOIN categories c ON c.category_id = p.category_id
	LEFT JOIN subcategories s ON s.subcategory_id = p.subcategory_id
	LEFT JOIN hsn h ON h.hsn_id = p.hsn_id`

// CreateProduct inserts a product; the SKU is set afterwards because it embeds the id
func (q *Queries) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, description, category_id, subcategory_id, hsn_id, product_type, offers)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`

	return q.get(ctx, p, query,
		p.Name, p.Description, p.CategoryID, p.SubcategoryID, p.HSNID, p.ProductType, p.Offers)
}

func (q *Queries) SetProductSKU(ctx context.Context, productID int64, sku string) error {
	return q.exec(ctx, "UPDATE products SET sku_id = $1 WHERE product_id = $2", sku, productID)
}

// GetProduct retrieves a product by ID
func (q *Queries) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := q.get(ctx, &p, "SELECT * FROM products WHERE product_id = $1", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *Queries) GetProductRow(ctx context.Context, id int64) (*models.ProductRow, error) {
	var p models.ProductRow
	if err := q.get(ctx, &p, productRowSelect+" WHERE p.product_id = $1", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *Queries) ListProductRows(ctx context.Context) ([]models.ProductRow, error) {
	var out []models.ProductRow
	err := q.sel(ctx, &out, productRowSelect+" ORDER BY p.product_id")
	return out, err
}

func (q *Queries) ListProductRowsByCategory(ctx context.Context, categoryID int64) ([]models.ProductRow, error) {
	var out []models.ProductRow
	err := q.sel(ctx, &out, productRowSelect+" WHERE p.category_id = $1 ORDER BY p.product_id", categoryID)
	return out, err
}

func (q *Queries) ListProductRowsByIDs(ctx context.Context, ids []int64) ([]models.ProductRow, error) {
	out := []models.ProductRow{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := q.in(productRowSelect+" WHERE p.product_id IN (?) ORDER BY p.product_id", ids)
	if err != nil {
		return nil, err
	}
	err = q.sel(ctx, &out, query, args...)
	return out, err
}

// FindProductRowByName returns the first product whose name contains term, case-insensitively
func (q *Queries) FindProductRowByName(ctx context.Context, term string) (*models.ProductRow, error) {
	var p models.ProductRow
	err := q.get(ctx, &p,
		productRowSelect+" WHERE p.name ILIKE '%' || $1 || '%' ORDER BY p.product_id LIMIT 1", term)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListSimilarProductRows returns products of the same category and type
func (q *Queries) ListSimilarProductRows(ctx context.Context, p *models.Product, limit int) ([]models.ProductRow, error) {
	var out []models.ProductRow
	err := q.sel(ctx, &out,
		productRowSelect+`
		WHERE p.category_id = $1 AND p.product_type = $2 AND p.product_id <> $3
		ORDER BY p.product_id LIMIT $4`,
		p.CategoryID, p.ProductType, p.ID, limit)
	return out, err
}

func (q *Queries) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, category_id = $3, subcategory_id = $4, hsn_id = $5,
		    product_type = $6, updated_at = NOW()
		WHERE product_id = $7
		RETURNING *`

	return q.get(ctx, p, query,
		p.Name, p.Description, p.CategoryID, p.SubcategoryID, p.HSNID, p.ProductType, p.ID)
}

func (q *Queries) UpdateProductOffer(ctx context.Context, id int64, offers decimal.NullDecimal) error {
	return q.exec(ctx,
		"UPDATE products SET offers = $1, updated_at = NOW() WHERE product_id = $2", offers, id)
}

func (q *Queries) UpdateProductRating(ctx context.Context, id int64, rating float64, raters int) error {
	return q.exec(ctx,
		"UPDATE products SET rating = $1, raters = $2, updated_at = NOW() WHERE product_id = $3",
		rating, raters, id)
}

// GetProductForUpdate locks the product row for read-modify-write
func (q *Queries) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := q.get(ctx, &p, "SELECT * FROM products WHERE product_id = $1 FOR UPDATE", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *Queries) TouchProduct(ctx context.Context, id int64) error {
	return q.exec(ctx, "UPDATE products SET updated_at = NOW() WHERE product_id = $1", id)
}

func (q *Queries) DeleteProduct(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM products WHERE product_id = $1", id)
}

// DetachProductFromCollections removes a product from every cart and wishlist
func (q *Queries) DetachProductFromCollections(ctx context.Context, productID int64) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM cart_items WHERE product_id = $1", productID); err != nil {
		return mapErr(err)
	}
	_, err := q.db.ExecContext(ctx, "DELETE FROM wishlist_items WHERE product_id = $1", productID)
	return mapErr(err)
}

func (q *Queries) CountOrderItemsForProduct(ctx context.Context, productID int64) (int, error) {
	var n int
	err := q.get(ctx, &n, "SELECT COUNT(*) FROM order_items WHERE product_id = $1", productID)
	return n, err
}

// Models

func (q *Queries) CreateModel(ctx context.Context, m *models.ProductModel) error {
	return q.get(ctx, m,
		"INSERT INTO product_models (product_id, name, description) VALUES ($1, $2, $3) RETURNING *",
		m.ProductID, m.Name, m.Description)
}

func (q *Queries) GetModel(ctx context.Context, id int64) (*models.ProductModel, error) {
	var m models.ProductModel
	if err := q.get(ctx, &m, "SELECT * FROM product_models WHERE model_id = $1", id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (q *Queries) UpdateModel(ctx context.Context, m *models.ProductModel) error {
	return q.get(ctx, m,
		"UPDATE product_models SET name = $1, description = $2 WHERE model_id = $3 RETURNING *",
		m.Name, m.Description, m.ID)
}

func (q *Queries) DeleteModel(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM product_models WHERE model_id = $1", id)
}

func (q *Queries) ListModelsByProducts(ctx context.Context, productIDs []int64) ([]models.ProductModel, error) {
	out := []models.ProductModel{}
	if len(productIDs) == 0 {
		return out, nil
	}
	query, args, err := q.in("SELECT * FROM product_models WHERE product_id IN (?) ORDER BY model_id", productIDs)
	if err != nil {
		return nil, err
	}
	err = q.sel(ctx, &out, query, args...)
	return out, err
}

// Colors

func (q *Queries) CreateColor(ctx context.Context, c *models.ProductColor) error {
	query := `
		INSERT INTO product_colors (product_id, model_id, name, price, original_price, stock_quantity, threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`

	return q.get(ctx, c, query,
		c.ProductID, c.ModelID, c.Name, c.Price, c.OriginalPrice, c.StockQuantity, c.Threshold)
}

func (q *Queries) GetColor(ctx context.Context, id int64) (*models.ProductColor, error) {
	var c models.ProductColor
	if err := q.get(ctx, &c, "SELECT * FROM product_colors WHERE color_id = $1", id); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetColorForUpdate locks the color row until the transaction ends
func (q *Queries) GetColorForUpdate(ctx context.Context, id int64) (*models.ProductColor, error) {
	var c models.ProductColor
	if err := q.get(ctx, &c, "SELECT * FROM product_colors WHERE color_id = $1 FOR UPDATE", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) UpdateColor(ctx context.Context, c *models.ProductColor) error {
	query := `
		UPDATE product_colors
		SET model_id = $1, name = $2, price = $3, original_price = $4, stock_quantity = $5, threshold = $6
		WHERE color_id = $7
		RETURNING *`

	return q.get(ctx, c, query,
		c.ModelID, c.Name, c.Price, c.OriginalPrice, c.StockQuantity, c.Threshold, c.ID)
}

// AdjustColorStock adds delta to the stock and returns the updated row.
// The schema's stock check rejects results below zero.
func (q *Queries) AdjustColorStock(ctx context.Context, colorID int64, delta int) (*models.ProductColor, error) {
	var c models.ProductColor
	err := q.get(ctx, &c,
		"UPDATE product_colors SET stock_quantity = stock_quantity + $1 WHERE color_id = $2 RETURNING *",
		delta, colorID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) DeleteColor(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM product_colors WHERE color_id = $1", id)
}

func (q *Queries) ListColorsByProducts(ctx context.Context, productIDs []int64) ([]models.ProductColor, error) {
	out := []models.ProductColor{}
	if len(productIDs) == 0 {
		return out, nil
	}
	query, args, err := q.in("SELECT * FROM product_colors WHERE product_id IN (?) ORDER BY color_id", productIDs)
	if err != nil {
		return nil, err
	}
	err = q.sel(ctx, &out, query, args...)
	return out, err
}

// Images

func (q *Queries) CreateImage(ctx context.Context, img *models.ProductImage) error {
	return q.get(ctx, img,
		"INSERT INTO product_images (product_id, color_id, image_url) VALUES ($1, $2, $3) RETURNING *",
		img.ProductID, img.ColorID, img.ImageURL)
}

func (q *Queries) GetImage(ctx context.Context, id int64) (*models.ProductImage, error) {
	var img models.ProductImage
	if err := q.get(ctx, &img, "SELECT * FROM product_images WHERE image_id = $1", id); err != nil {
		return nil, err
	}
	return &img, nil
}

func (q *Queries) UpdateImageURL(ctx context.Context, id int64, url string) error {
	return q.exec(ctx, "UPDATE product_images SET image_url = $1 WHERE image_id = $2", url, id)
}

func (q *Queries) DeleteImage(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM product_images WHERE image_id = $1", id)
}

// GetCoverImage returns the lowest-id product-level image
func (q *Queries) GetCoverImage(ctx context.Context, productID int64) (*models.ProductImage, error) {
	var img models.ProductImage
	err := q.get(ctx, &img,
		"SELECT * FROM product_images WHERE product_id = $1 AND color_id IS NULL ORDER BY image_id LIMIT 1",
		productID)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// ListImagesByProducts returns product-level images and images of the products' colors
func (q *Queries) ListImagesByProducts(ctx context.Context, productIDs []int64) ([]models.ProductImage, error) {
	out := []models.ProductImage{}
	if len(productIDs) == 0 {
		return out, nil
	}
	query, args, err := q.in(`
		SELECT i.image_id, COALESCE(i.product_id, c.product_id) AS product_id, i.color_id, i.image_url
		FROM product_images i
		LEFT JOIN product_colors c ON c.color_id = i.color_id
		WHERE i.product_id IN (?) OR c.product_id IN (?)
		ORDER BY i.image_id`, productIDs, productIDs)
	if err != nil {
		return nil, err
	}
	err = q.sel(ctx, &out, query, args...)
	return out, err
}

// Specifications

func (q *Queries) CreateProductSpec(ctx context.Context, s *models.ProductSpecification) error {
	return q.get(ctx, s,
		"INSERT INTO product_specifications (product_id, key, value) VALUES ($1, $2, $3) RETURNING *",
		s.ProductID, s.Key, s.Value)
}

func (q *Queries) GetProductSpec(ctx context.Context, id int64) (*models.ProductSpecification, error) {
	var s models.ProductSpecification
	if err := q.get(ctx, &s, "SELECT * FROM product_specifications WHERE spec_id = $1", id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *Queries) UpdateProductSpec(ctx context.Context, s *models.ProductSpecification) error {
	return q.get(ctx, s,
		"UPDATE product_specifications SET key = $1, value = $2 WHERE spec_id = $3 RETURNING *",
		s.Key, s.Value, s.ID)
}

func (q *Queries) DeleteProductSpec(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM product_specifications WHERE spec_id = $1", id)
}

func (q *Queries) ListProductSpecsByProducts(ctx context.Context, productIDs []int64) ([]models.ProductSpecification, error) {
	out := []models.ProductSpecification{}
	if len(productIDs) == 0 {
		return out, nil
	}
	query, args, err := q.in("SELECT * FROM product_specifications WHERE product_id IN (?) ORDER BY spec_id", productIDs)
	if err != nil {
		return nil, err
	}
	err = q.sel(ctx, &out, query, args...)
	return out, err
}

func (q *Queries) CreateModelSpec(ctx context.Context, s *models.ModelSpecification) error {
	return q.get(ctx, s,
		"INSERT INTO model_specifications (model_id, key, value) VALUES ($1, $2, $3) RETURNING *",
		s.ModelID, s.Key, s.Value)
}

func (q *Queries) GetModelSpec(ctx context.Context, id int64) (*models.ModelSpecification, error) {
	var s models.ModelSpecification
	if err := q.get(ctx, &s, "SELECT * FROM model_specifications WHERE spec_id = $1", id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *Queries) UpdateModelSpec(ctx context.Context, s *models.ModelSpecification) error {
	return q.get(ctx, s,
		"UPDATE model_specifications SET key = $1, value = $2 WHERE spec_id = $3 RETURNING *",
		s.Key, s.Value, s.ID)
}

func (q *Queries) DeleteModelSpec(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM model_specifications WHERE spec_id = $1", id)
}

func (q *Queries) ListModelSpecsByModels(ctx context.Context, modelIDs []int64) ([]models.ModelSpecification, error) {
	out := []models.ModelSpecification{}
	if len(modelIDs) == 0 {
		return out, nil
	}
	query, args, err := q.in("SELECT * FROM model_specifications WHERE model_id IN (?) ORDER BY spec_id", modelIDs)
	if err != nil {
		return nil, err
	}
	err = q.sel(ctx, &out, query, args...)
	return out, err
}

// StockReport lists every color with its stock for the admin report
func (q *Queries) StockReport(ctx context.Context) ([]models.StockReportRow, error) {
	var out []models.StockReportRow
	err := q.sel(ctx, &out, `
		SELECT p.product_id, p.name AS product_name, p.sku_id,
		       c.model_id, m.name AS model_name,
		       c.color_id, c.name AS color_name, c.stock_quantity, c.threshold
		FROM product_colors c
		JOIN products p ON p.product_id = c.product_id
		LEFT JOIN product_models m ON m.model_id = c.model_id
		ORDER BY c.stock_quantity, p.product_id, c.color_id`)
	return out, err
}
