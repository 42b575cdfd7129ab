package service

import (
	"context"

	"ecom-service/internal/models"
	"ecom-service/internal/store"
	"ecom-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService manages the one cart each customer owns
type CartService struct {
	store  *store.Store
	logger *zap.Logger
}

func NewCartService(store *store.Store) *CartService {
	return &CartService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CartItemInput adds a product, optionally a specific color, to the cart
type CartItemInput struct {
	ProductID int64  `json:"product_id" binding:"required"`
	ColorID   *int64 `json:"color_id"`
	Quantity  int    `json:"quantity"`
}

func (s *CartService) GetCart(ctx context.Context, customerID int64) (*models.CartView, error) {
	cart, err := s.store.GetOrCreateCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	lines, err := s.store.ListCartLines(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	return summarizeCart(lines), nil
}

// summarizeCart fills line totals and stock labels and sums the cart
func summarizeCart(lines []models.CartLine) *models.CartView {
	view := &models.CartView{Items: orEmpty(lines), Subtotal: decimal.Zero}
	for i := range view.Items {
		line := &view.Items[i]
		line.LineTotal = decimal.Zero
		if line.UnitPrice.Valid {
			line.LineTotal = line.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		}
		line.StockStatus = models.StockOutOfStock
		if line.StockQuantity != nil {
			threshold := 0
			if line.Threshold != nil {
				threshold = *line.Threshold
			}
			line.StockStatus = models.StockStatusFor(*line.StockQuantity, threshold)
		}
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
		view.ItemCount += line.Quantity
	}
	return view
}

// resolveColor picks the color a cart or order line refers to. Without an
// explicit color a product with exactly one color defaults to it.
func resolveColor(ctx context.Context, q *store.Queries, productID int64, colorID *int64, lock bool) (*models.ProductColor, error) {
	if colorID != nil {
		get := q.GetColor
		if lock {
			get = q.GetColorForUpdate
		}
		c, err := get(ctx, *colorID)
		if err == store.ErrNotFound {
			return nil, Invalid("color %d does not exist", *colorID)
		}
		if err != nil {
			return nil, err
		}
		if c.ProductID != productID {
			return nil, Invalid("color %d does not belong to product %d", *colorID, productID)
		}
		return c, nil
	}

	colors, err := q.ListColorsByProducts(ctx, []int64{productID})
	if err != nil {
		return nil, err
	}
	switch len(colors) {
	case 0:
		return nil, Invalid("product %d has no purchasable colors", productID)
	case 1:
		if lock {
			return q.GetColorForUpdate(ctx, colors[0].ID)
		}
		return &colors[0], nil
	}
	return nil, Invalid("color_id is required for product %d", productID)
}

func (s *CartService) AddItem(ctx context.Context, customerID int64, in CartItemInput) (*models.CartView, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return nil, Invalid("quantity must be at least 1")
	}

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetProduct(ctx, in.ProductID); err != nil {
			return storeErr(err, "product")
		}
		color, err := resolveColor(ctx, q, in.ProductID, in.ColorID, false)
		if err != nil {
			return err
		}
		cart, err := q.GetOrCreateCart(ctx, customerID)
		if err != nil {
			return err
		}

		existing, err := q.FindCartItem(ctx, cart.ID, in.ProductID, &color.ID)
		if err != nil && err != store.ErrNotFound {
			return err
		}
		quantity := in.Quantity
		if existing != nil {
			quantity += existing.Quantity
		}
		if quantity > color.StockQuantity {
			return Conflict("only %d units of %s in stock", color.StockQuantity, color.Name)
		}

		if existing != nil {
			return q.SetCartItemQuantity(ctx, existing.ID, quantity)
		}
		item := &models.CartItem{
			CartID:    cart.ID,
			ProductID: in.ProductID,
			ModelID:   color.ModelID,
			ColorID:   &color.ID,
			Quantity:  quantity,
		}
		return storeErr(q.CreateCartItem(ctx, item), "cart item")
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

func (s *CartService) UpdateItem(ctx context.Context, customerID, itemID int64, quantity int) (*models.CartView, error) {
	if quantity < 1 {
		return nil, Invalid("quantity must be at least 1")
	}

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		cart, err := q.GetOrCreateCart(ctx, customerID)
		if err != nil {
			return err
		}
		item, err := q.GetCartItem(ctx, cart.ID, itemID)
		if err != nil {
			return storeErr(err, "cart item")
		}
		if item.ColorID != nil {
			color, err := q.GetColor(ctx, *item.ColorID)
			if err != nil {
				return storeErr(err, "color")
			}
			if quantity > color.StockQuantity {
				return Conflict("only %d units of %s in stock", color.StockQuantity, color.Name)
			}
		}
		return q.SetCartItemQuantity(ctx, item.ID, quantity)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

func (s *CartService) RemoveItem(ctx context.Context, customerID, itemID int64) error {
	cart, err := s.store.GetOrCreateCart(ctx, customerID)
	if err != nil {
		return err
	}
	return storeErr(s.store.DeleteCartItem(ctx, cart.ID, itemID), "cart item")
}

func (s *CartService) Clear(ctx context.Context, customerID int64) error {
	cart, err := s.store.GetOrCreateCart(ctx, customerID)
	if err != nil {
		return err
	}
	if err := s.store.ClearCart(ctx, cart.ID); err != nil {
		return err
	}
	s.logger.Debug("Cart cleared", zap.Int64("customer_id", customerID))
	return nil
}
