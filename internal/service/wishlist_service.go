package service

import (
	"context"

	"ecom-service/internal/models"
	"ecom-service/internal/store"
	"ecom-service/internal/util"

	"go.uber.org/zap"
)

type WishlistService struct {
	store  *store.Store
	carts  *CartService
	logger *zap.Logger
}

func NewWishlistService(store *store.Store, carts *CartService) *WishlistService {
	return &WishlistService{
		store:  store,
		carts:  carts,
		logger: util.GetLogger(),
	}
}

type WishlistItemInput struct {
	ProductID int64  `json:"product_id" binding:"required"`
	ColorID   *int64 `json:"color_id"`
}

// GetWishlist returns the items, newest first, with product summaries
func (s *WishlistService) GetWishlist(ctx context.Context, customerID int64) ([]models.WishlistLine, error) {
	w, err := s.store.GetOrCreateWishlist(ctx, customerID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListWishlistItems(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	rows, err := s.store.ListProductRowsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	summaries, err := buildProductSummaries(ctx, s.store.Queries, rows)
	if err != nil {
		return nil, err
	}
	colors, err := s.store.ListColorsByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	return assembleWishlist(items, summaries, colors), nil
}

func assembleWishlist(items []models.WishlistItem, summaries []models.ProductSummary, colors []models.ProductColor) []models.WishlistLine {
	byProduct := make(map[int64]models.ProductSummary, len(summaries))
	for _, sum := range summaries {
		byProduct[sum.ID] = sum
	}
	colorNames := make(map[int64]string, len(colors))
	for _, c := range colors {
		colorNames[c.ID] = c.Name
	}

	out := make([]models.WishlistLine, 0, len(items))
	for _, it := range items {
		sum, ok := byProduct[it.ProductID]
		if !ok {
			continue
		}
		line := models.WishlistLine{ItemID: it.ID, ColorID: it.ColorID, AddedAt: it.AddedAt, Product: sum}
		if it.ColorID != nil {
			if name, ok := colorNames[*it.ColorID]; ok {
				line.ColorName = &name
			}
		}
		out = append(out, line)
	}
	return out
}

// AddItem is idempotent: adding a product/color pair twice keeps one line
func (s *WishlistService) AddItem(ctx context.Context, customerID int64, in WishlistItemInput) (*models.WishlistItem, error) {
	if _, err := s.store.GetProduct(ctx, in.ProductID); err != nil {
		return nil, storeErr(err, "product")
	}
	if in.ColorID != nil {
		c, err := s.store.GetColor(ctx, *in.ColorID)
		if err == store.ErrNotFound {
			return nil, Invalid("color %d does not exist", *in.ColorID)
		}
		if err != nil {
			return nil, err
		}
		if c.ProductID != in.ProductID {
			return nil, Invalid("color %d does not belong to product %d", *in.ColorID, in.ProductID)
		}
	}

	w, err := s.store.GetOrCreateWishlist(ctx, customerID)
	if err != nil {
		return nil, err
	}
	item := &models.WishlistItem{WishlistID: w.ID, ProductID: in.ProductID, ColorID: in.ColorID}
	if err := s.store.AddWishlistItem(ctx, item); err != nil {
		return nil, storeErr(err, "wishlist item")
	}
	return item, nil
}

func (s *WishlistService) RemoveItem(ctx context.Context, customerID, itemID int64) error {
	w, err := s.store.GetOrCreateWishlist(ctx, customerID)
	if err != nil {
		return err
	}
	return storeErr(s.store.DeleteWishlistItem(ctx, w.ID, itemID), "wishlist item")
}

// MoveToCart adds one unit of the item to the cart and then drops it from
// the wishlist. A failed cart add leaves the wishlist untouched.
func (s *WishlistService) MoveToCart(ctx context.Context, customerID, itemID int64) (*models.CartView, error) {
	w, err := s.store.GetOrCreateWishlist(ctx, customerID)
	if err != nil {
		return nil, err
	}
	item, err := s.store.GetWishlistItem(ctx, w.ID, itemID)
	if err != nil {
		return nil, storeErr(err, "wishlist item")
	}

	cart, err := s.carts.AddItem(ctx, customerID, CartItemInput{ProductID: item.ProductID, ColorID: item.ColorID, Quantity: 1})
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteWishlistItem(ctx, w.ID, item.ID); err != nil && err != store.ErrNotFound {
		s.logger.Warn("Failed to remove moved wishlist item", zap.Int64("item_id", item.ID), zap.Error(err))
	}
	return cart, nil
}
