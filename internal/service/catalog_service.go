package service

import (
	"context"
	"fmt"
	"strings"

	"ecom-service/internal/media"
	"ecom-service/internal/models"
	"ecom-service/internal/redisclient"
	"ecom-service/internal/store"
	"ecom-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxHSNCodeLength = 15

// CatalogService manages categories, subcategories, HSN codes and states
type CatalogService struct {
	store  *store.Store
	redis  *redisclient.Client
	media  media.Storage
	logger *zap.Logger
}

func NewCatalogService(store *store.Store, redis *redisclient.Client, storage media.Storage) *CatalogService {
	return &CatalogService{
		store:  store,
		redis:  redis,
		media:  storage,
		logger: util.GetLogger(),
	}
}

// ListCategories returns every category with its subcategories
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.CategoryWithSubcategories, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubcategories(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[int64][]models.Subcategory)
	for _, sub := range subs {
		byCategory[sub.CategoryID] = append(byCategory[sub.CategoryID], sub)
	}

	out := make([]models.CategoryWithSubcategories, 0, len(categories))
	for _, c := range categories {
		children := byCategory[c.ID]
		if children == nil {
			children = []models.Subcategory{}
		}
		out = append(out, models.CategoryWithSubcategories{Category: c, Subcategories: children})
	}
	return out, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string, image *Upload) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateCategory")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("category name is required")
	}
	if _, err := s.store.FindCategoryByName(ctx, name); err == nil {
		return nil, Conflict("category %q already exists", name)
	} else if err != store.ErrNotFound {
		return nil, err
	}

	c := &models.Category{Name: name}
	if image != nil {
		urls, err := saveUploads(ctx, s.media, []Upload{*image})
		if err != nil {
			return nil, err
		}
		c.ImageURL = &urls[0]
	}

	if err := s.store.CreateCategory(ctx, c); err != nil {
		if c.ImageURL != nil {
			discardFiles(ctx, s.media, []string{*c.ImageURL})
		}
		return nil, storeErr(err, "category")
	}

	s.logger.Info("Category created", zap.Int64("category_id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// CategoryPatch holds the category fields to change; nil keeps the current value
type CategoryPatch struct {
	Name     *string `json:"name"`
	ImageURL *string `json:"image_url"`
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, patch CategoryPatch) (*models.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, storeErr(err, "category")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, Invalid("category name cannot be empty")
		}
		if other, err := s.store.FindCategoryByName(ctx, name); err == nil && other.ID != id {
			return nil, Conflict("category %q already exists", name)
		} else if err != nil && err != store.ErrNotFound {
			return nil, err
		}
		c.Name = name
	}
	if patch.ImageURL != nil {
		c.ImageURL = patch.ImageURL
	}

	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, storeErr(err, "category")
	}
	s.invalidateCategory(ctx, id)
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return storeErr(err, "category")
	}
	n, err := s.store.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return Conflict("category is used by %d products", n)
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return storeErr(err, "category")
	}
	s.logger.Info("Category deleted", zap.Int64("category_id", id))
	return nil
}

func (s *CatalogService) CreateSubcategory(ctx context.Context, categoryID int64, name string) (*models.Subcategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("subcategory name is required")
	}
	if categoryID == 0 {
		return nil, Invalid("category_id is required")
	}
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		if err == store.ErrNotFound {
			return nil, Invalid("category %d does not exist", categoryID)
		}
		return nil, err
	}
	if _, err := s.store.FindSubcategoryByName(ctx, categoryID, name); err == nil {
		return nil, Conflict("subcategory %q already exists in this category", name)
	} else if err != store.ErrNotFound {
		return nil, err
	}

	sub := &models.Subcategory{CategoryID: categoryID, Name: name}
	if err := s.store.CreateSubcategory(ctx, sub); err != nil {
		return nil, storeErr(err, "subcategory")
	}
	return sub, nil
}

// SubcategoryPatch changes a subcategory's name or moves it to another category
type SubcategoryPatch struct {
	Name       *string `json:"name"`
	CategoryID *int64  `json:"category_id"`
}

func (s *CatalogService) UpdateSubcategory(ctx context.Context, id int64, patch SubcategoryPatch) (*models.Subcategory, error) {
	sub, err := s.store.GetSubcategory(ctx, id)
	if err != nil {
		return nil, storeErr(err, "subcategory")
	}

	if patch.CategoryID != nil && *patch.CategoryID != sub.CategoryID {
		if _, err := s.store.GetCategory(ctx, *patch.CategoryID); err != nil {
			if err == store.ErrNotFound {
				return nil, Invalid("category %d does not exist", *patch.CategoryID)
			}
			return nil, err
		}
		n, err := s.store.CountProductsInSubcategory(ctx, id)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, Conflict("subcategory is used by %d products and cannot change category", n)
		}
		sub.CategoryID = *patch.CategoryID
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, Invalid("subcategory name cannot be empty")
		}
		sub.Name = name
	}

	if other, err := s.store.FindSubcategoryByName(ctx, sub.CategoryID, sub.Name); err == nil && other.ID != id {
		return nil, Conflict("subcategory %q already exists in this category", sub.Name)
	} else if err != nil && err != store.ErrNotFound {
		return nil, err
	}

	if err := s.store.UpdateSubcategory(ctx, sub); err != nil {
		return nil, storeErr(err, "subcategory")
	}
	s.invalidateCategory(ctx, sub.CategoryID)
	return sub, nil
}

func (s *CatalogService) DeleteSubcategory(ctx context.Context, id int64) error {
	if _, err := s.store.GetSubcategory(ctx, id); err != nil {
		return storeErr(err, "subcategory")
	}
	n, err := s.store.CountProductsInSubcategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return Conflict("subcategory is used by %d products", n)
	}
	return storeErr(s.store.DeleteSubcategory(ctx, id), "subcategory")
}

func (s *CatalogService) ListHSN(ctx context.Context) ([]models.HSN, error) {
	return s.store.ListHSN(ctx)
}

// HSNInput is the body for creating or editing an HSN code
type HSNInput struct {
	Code        string           `json:"hsn_code"`
	Description *string          `json:"hsn_description"`
	GSTRate     *decimal.Decimal `json:"gst_rate"`
}

func (in *HSNInput) normalize() error {
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" {
		return Invalid("hsn_code is required")
	}
	if len(in.Code) > maxHSNCodeLength {
		return Invalid("hsn_code must be at most %d characters", maxHSNCodeLength)
	}
	if in.GSTRate != nil && (in.GSTRate.IsNegative() || in.GSTRate.GreaterThan(decimal.NewFromInt(100))) {
		return Invalid("gst_rate must be between 0 and 100")
	}
	return nil
}

func (s *CatalogService) CreateHSN(ctx context.Context, in HSNInput) (*models.HSN, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if _, err := s.store.FindHSNByCode(ctx, in.Code); err == nil {
		return nil, Conflict("HSN code %s already exists", in.Code)
	} else if err != store.ErrNotFound {
		return nil, err
	}

	h := &models.HSN{Code: in.Code, Description: in.Description}
	if in.GSTRate != nil {
		h.GSTRate = decimal.NewNullDecimal(*in.GSTRate)
	}
	if err := s.store.CreateHSN(ctx, h); err != nil {
		return nil, storeErr(err, "HSN code")
	}
	return h, nil
}

func (s *CatalogService) UpdateHSN(ctx context.Context, id int64, in HSNInput) (*models.HSN, error) {
	h, err := s.store.GetHSN(ctx, id)
	if err != nil {
		return nil, storeErr(err, "HSN code")
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if other, err := s.store.FindHSNByCode(ctx, in.Code); err == nil && other.ID != id {
		return nil, Conflict("HSN code %s already exists", in.Code)
	} else if err != nil && err != store.ErrNotFound {
		return nil, err
	}

	h.Code = in.Code
	h.Description = in.Description
	h.GSTRate = decimal.NullDecimal{}
	if in.GSTRate != nil {
		h.GSTRate = decimal.NewNullDecimal(*in.GSTRate)
	}
	if err := s.store.UpdateHSN(ctx, h); err != nil {
		return nil, storeErr(err, "HSN code")
	}
	// product SKUs embed the code, so cached views are stale
	if s.redis != nil {
		if err := s.redis.InvalidateProducts(ctx); err != nil {
			s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
		}
	}
	return h, nil
}

func (s *CatalogService) DeleteHSN(ctx context.Context, id int64) error {
	if _, err := s.store.GetHSN(ctx, id); err != nil {
		return storeErr(err, "HSN code")
	}
	n, err := s.store.CountProductsWithHSN(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return Conflict("HSN code is used by %d products", n)
	}
	return storeErr(s.store.DeleteHSN(ctx, id), "HSN code")
}

func (s *CatalogService) ListStates(ctx context.Context) ([]models.State, error) {
	return s.store.ListStates(ctx)
}

// invalidateCategory drops cached views of every product in a category
func (s *CatalogService) invalidateCategory(ctx context.Context, categoryID int64) {
	if s.redis == nil {
		return
	}
	rows, err := s.store.ListProductRowsByCategory(ctx, categoryID)
	if err != nil {
		s.logger.Warn("Failed to list products for cache invalidation", zap.Error(err))
		return
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	if err := s.redis.InvalidateProducts(ctx, ids...); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(fmt.Errorf("category %d: %w", categoryID, err)))
	}
}
