package store

import (
	"context"

	"ecom-service/internal/models"
)

// ListCategories returns categories ordered by name
func (q *Queries) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := q.sel(ctx, &out, "SELECT * FROM categories ORDER BY name")
	return out, err
}

func (q *Queries) ListSubcategories(ctx context.Context) ([]models.Subcategory, error) {
	var out []models.Subcategory
	err := q.sel(ctx, &out, "SELECT * FROM subcategories ORDER BY category_id, name")
	return out, err
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	if err := q.get(ctx, &c, "SELECT * FROM categories WHERE category_id = $1", id); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCategoryByName matches case-insensitively
func (q *Queries) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	if err := q.get(ctx, &c, "SELECT * FROM categories WHERE LOWER(name) = LOWER($1)", name); err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) CreateCategory(ctx context.Context, c *models.Category) error {
	return q.get(ctx, c,
		"INSERT INTO categories (name, image_url) VALUES ($1, $2) RETURNING *",
		c.Name, c.ImageURL)
}

func (q *Queries) UpdateCategory(ctx context.Context, c *models.Category) error {
	return q.get(ctx, c,
		"UPDATE categories SET name = $1, image_url = $2 WHERE category_id = $3 RETURNING *",
		c.Name, c.ImageURL, c.ID)
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM categories WHERE category_id = $1", id)
}

// CountProductsInCategory counts products filed under a category
func (q *Queries) CountProductsInCategory(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := q.get(ctx, &n, "SELECT COUNT(*) FROM products WHERE category_id = $1", categoryID)
	return n, err
}

func (q *Queries) CountProductsInSubcategory(ctx context.Context, subcategoryID int64) (int, error) {
	var n int
	err := q.get(ctx, &n, "SELECT COUNT(*) FROM products WHERE subcategory_id = $1", subcategoryID)
	return n, err
}

func (q *Queries) CountProductsWithHSN(ctx context.Context, hsnID int64) (int, error) {
	var n int
	err := q.get(ctx, &n, "SELECT COUNT(*) FROM products WHERE hsn_id = $1", hsnID)
	return n, err
}

func (q *Queries) GetSubcategory(ctx context.Context, id int64) (*models.Subcategory, error) {
	var s models.Subcategory
	if err := q.get(ctx, &s, "SELECT * FROM subcategories WHERE subcategory_id = $1", id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *Queries) FindSubcategoryByName(ctx context.Context, categoryID int64, name string) (*models.Subcategory, error) {
	var s models.Subcategory
	err := q.get(ctx, &s,
		"SELECT * FROM subcategories WHERE category_id = $1 AND LOWER(name) = LOWER($2)",
		categoryID, name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *Queries) CreateSubcategory(ctx context.Context, s *models.Subcategory) error {
	return q.get(ctx, s,
		"INSERT INTO subcategories (category_id, name) VALUES ($1, $2) RETURNING *",
		s.CategoryID, s.Name)
}

func (q *Queries) UpdateSubcategory(ctx context.Context, s *models.Subcategory) error {
	return q.get(ctx, s,
		"UPDATE subcategories SET category_id = $1, name = $2 WHERE subcategory_id = $3 RETURNING *",
		s.CategoryID, s.Name, s.ID)
}

func (q *Queries) DeleteSubcategory(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM subcategories WHERE subcategory_id = $1", id)
}

func (q *Queries) ListHSN(ctx context.Context) ([]models.HSN, error) {
	var out []models.HSN
	err := q.sel(ctx, &out, "SELECT * FROM hsn ORDER BY hsn_code")
	return out, err
}

func (q *Queries) GetHSN(ctx context.Context, id int64) (*models.HSN, error) {
	var h models.HSN
	if err := q.get(ctx, &h, "SELECT * FROM hsn WHERE hsn_id = $1", id); err != nil {
		return nil, err
	}
	return &h, nil
}

func (q *Queries) FindHSNByCode(ctx context.Context, code string) (*models.HSN, error) {
	var h models.HSN
	if err := q.get(ctx, &h, "SELECT * FROM hsn WHERE hsn_code = $1", code); err != nil {
		return nil, err
	}
	return &h, nil
}

func (q *Queries) CreateHSN(ctx context.Context, h *models.HSN) error {
	return q.get(ctx, h,
		"INSERT INTO hsn (hsn_code, hsn_description, gst_rate) VALUES ($1, $2, $3) RETURNING *",
		h.Code, h.Description, h.GSTRate)
}

func (q *Queries) UpdateHSN(ctx context.Context, h *models.HSN) error {
	return q.get(ctx, h,
		"UPDATE hsn SET hsn_code = $1, hsn_description = $2, gst_rate = $3 WHERE hsn_id = $4 RETURNING *",
		h.Code, h.Description, h.GSTRate, h.ID)
}

func (q *Queries) DeleteHSN(ctx context.Context, id int64) error {
	return q.exec(ctx, "DELETE FROM hsn WHERE hsn_id = $1", id)
}

func (q *Queries) ListStates(ctx context.Context) ([]models.State, error) {
	var out []models.State
	err := q.sel(ctx, &out, "SELECT * FROM states ORDER BY name")
	return out, err
}

func (q *Queries) StateExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := q.get(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM states WHERE state_id = $1)", id)
	return exists, err
}
