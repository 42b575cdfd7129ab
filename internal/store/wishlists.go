package store

import (
	"context"

	"ecom-service/internal/models"
)

func (q *Queries) GetOrCreateWishlist(ctx context.Context, customerID int64) (*models.Wishlist, error) {
	var w models.Wishlist
	err := q.get(ctx, &w, `
		INSERT INTO wishlists (customer_id) VALUES ($1)
		ON CONFLICT (customer_id) DO UPDATE SET customer_id = EXCLUDED.customer_id
		RETURNING *`, customerID)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (q *Queries) ListWishlistItems(ctx context.Context, wishlistID int64) ([]models.WishlistItem, error) {
	out := []models.WishlistItem{}
	err := q.sel(ctx, &out,
		"SELECT * FROM wishlist_items WHERE wishlist_id = $1 ORDER BY added_at DESC, item_id DESC", wishlistID)
	return out, err
}

func (q *Queries) GetWishlistItem(ctx context.Context, wishlistID, itemID int64) (*models.WishlistItem, error) {
	var it models.WishlistItem
	err := q.get(ctx, &it,
		"SELECT * FROM wishlist_items WHERE wishlist_id = $1 AND item_id = $2", wishlistID, itemID)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// AddWishlistItem inserts the line or returns the existing one
func (q *Queries) AddWishlistItem(ctx context.Context, it *models.WishlistItem) error {
	err := q.get(ctx, it, `
		INSERT INTO wishlist_items (wishlist_id, product_id, color_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (wishlist_id, product_id, COALESCE(color_id, 0)) DO NOTHING
		RETURNING *`,
		it.WishlistID, it.ProductID, it.ColorID)
	if err != ErrNotFound {
		return err
	}
	return q.get(ctx, it, `
		SELECT * FROM wishlist_items
		WHERE wishlist_id = $1 AND product_id = $2 AND COALESCE(color_id, 0) = COALESCE($3, 0)`,
		it.WishlistID, it.ProductID, it.ColorID)
}

func (q *Queries) DeleteWishlistItem(ctx context.Context, wishlistID, itemID int64) error {
	return q.exec(ctx, "DELETE FROM wishlist_items WHERE wishlist_id = $1 AND item_id = $2", wishlistID, itemID)
}
