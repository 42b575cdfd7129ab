package store

import (
	"context"

	"ecom-service/internal/models"
)

// GetOrCreateCart returns the customer's cart, creating it on first use
func (q *Queries) GetOrCreateCart(ctx context.Context, customerID int64) (*models.Cart, error) {
	var c models.Cart
	err := q.get(ctx, &c, `
		INSERT INTO carts (customer_id) VALUES ($1)
		ON CONFLICT (customer_id) DO UPDATE SET customer_id = EXCLUDED.customer_id
		RETURNING *`, customerID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCartLines joins cart items with product, model, color and first image
func (q *Queries) ListCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error) {
	out := []models.CartLine{}
	err := q.sel(ctx, &out, `
		SELECT ci.item_id, ci.product_id, p.name AS product_name,
		       ci.model_id, m.name AS model_name,
		       ci.color_id, c.name AS color_name,
		       c.price AS unit_price, c.original_price, c.stock_quantity, c.threshold,
		       ci.quantity,
		       (SELECT i.image_url FROM product_images i
		         WHERE i.color_id = ci.color_id OR (i.product_id = ci.product_id AND i.color_id IS NULL)
		         ORDER BY (i.color_id IS NULL), i.image_id LIMIT 1) AS image_url
		FROM cart_items ci
		JOIN products p ON p.product_id = ci.product_id
		LEFT JOIN product_models m ON m.model_id = ci.model_id
		LEFT JOIN product_colors c ON c.color_id = ci.color_id
		WHERE ci.cart_id = $1
		ORDER BY ci.item_id`, cartID)
	return out, err
}

func (q *Queries) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	out := []models.CartItem{}
	err := q.sel(ctx, &out, "SELECT * FROM cart_items WHERE cart_id = $1 ORDER BY item_id", cartID)
	return out, err
}

func (q *Queries) GetCartItem(ctx context.Context, cartID, itemID int64) (*models.CartItem, error) {
	var it models.CartItem
	err := q.get(ctx, &it, "SELECT * FROM cart_items WHERE cart_id = $1 AND item_id = $2", cartID, itemID)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// FindCartItem finds the line for a product/color pair
func (q *Queries) FindCartItem(ctx context.Context, cartID, productID int64, colorID *int64) (*models.CartItem, error) {
	var it models.CartItem
	err := q.get(ctx, &it, `
		SELECT * FROM cart_items
		WHERE cart_id = $1 AND product_id = $2 AND COALESCE(color_id, 0) = COALESCE($3, 0)`,
		cartID, productID, colorID)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (q *Queries) CreateCartItem(ctx context.Context, it *models.CartItem) error {
	return q.get(ctx, it, `
		INSERT INTO cart_items (cart_id, product_id, model_id, color_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`,
		it.CartID, it.ProductID, it.ModelID, it.ColorID, it.Quantity)
}

func (q *Queries) SetCartItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	return q.exec(ctx, "UPDATE cart_items SET quantity = $1 WHERE item_id = $2", quantity, itemID)
}

func (q *Queries) DeleteCartItem(ctx context.Context, cartID, itemID int64) error {
	return q.exec(ctx, "DELETE FROM cart_items WHERE cart_id = $1 AND item_id = $2", cartID, itemID)
}

func (q *Queries) ClearCart(ctx context.Context, cartID int64) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID)
	return mapErr(err)
}

// LockCart holds the cart row until the transaction ends
func (q *Queries) LockCart(ctx context.Context, cartID int64) error {
	var id int64
	return q.get(ctx, &id, "SELECT cart_id FROM carts WHERE cart_id = $1 FOR UPDATE", cartID)
}

// DeleteCartItems removes exactly the given lines of a cart
func (q *Queries) DeleteCartItems(ctx context.Context, cartID int64, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	query, args, err := q.in("DELETE FROM cart_items WHERE cart_id = ? AND item_id IN (?)", cartID, itemIDs)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, query, args...)
	return mapErr(err)
}
