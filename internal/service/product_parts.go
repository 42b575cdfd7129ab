package service

import (
	"context"
	"strings"

	"ecom-service/internal/models"
	"ecom-service/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ownership checks: every child addressed under /products/:id must belong
// to that product.

func (s *ProductService) ownedModel(ctx context.Context, q *store.Queries, productID, modelID int64) (*models.ProductModel, error) {
	m, err := q.GetModel(ctx, modelID)
	if err != nil {
		return nil, storeErr(err, "model")
	}
	if m.ProductID != productID {
		return nil, Invalid("model %d does not belong to product %d", modelID, productID)
	}
	return m, nil
}

func (s *ProductService) ownedColor(ctx context.Context, q *store.Queries, productID, colorID int64, lock bool) (*models.ProductColor, error) {
	get := q.GetColor
	if lock {
		get = q.GetColorForUpdate
	}
	c, err := get(ctx, colorID)
	if err != nil {
		return nil, storeErr(err, "color")
	}
	if c.ProductID != productID {
		return nil, Invalid("color %d does not belong to product %d", colorID, productID)
	}
	return c, nil
}

func (s *ProductService) ownedImage(ctx context.Context, q *store.Queries, productID, imageID int64) (*models.ProductImage, error) {
	img, err := q.GetImage(ctx, imageID)
	if err != nil {
		return nil, storeErr(err, "image")
	}
	if img.ProductID != nil && *img.ProductID == productID {
		return img, nil
	}
	if img.ColorID != nil {
		if _, err := s.ownedColor(ctx, q, productID, *img.ColorID, false); err == nil {
			return img, nil
		}
	}
	return nil, Invalid("image %d does not belong to product %d", imageID, productID)
}

func (s *ProductService) requireProduct(ctx context.Context, q *store.Queries, productID int64) (*models.Product, error) {
	p, err := q.GetProduct(ctx, productID)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	return p, nil
}

// touch bumps updated_at and drops the cached views of a product
func (s *ProductService) touch(ctx context.Context, productID int64) {
	if err := s.store.TouchProduct(ctx, productID); err != nil {
		s.logger.Warn("Failed to touch product", zap.Int64("product_id", productID), zap.Error(err))
	}
	s.invalidate(ctx, productID)
}

// Images

// AddImage stores a product image, or a color image when colorID is set
func (s *ProductService) AddImage(ctx context.Context, productID int64, colorID *int64, up Upload) (*models.ProductImage, error) {
	if _, err := s.requireProduct(ctx, s.store.Queries, productID); err != nil {
		return nil, err
	}
	img := &models.ProductImage{ProductID: &productID}
	if colorID != nil {
		if _, err := s.ownedColor(ctx, s.store.Queries, productID, *colorID, false); err != nil {
			return nil, err
		}
		img = &models.ProductImage{ColorID: colorID}
	}

	urls, err := saveUploads(ctx, s.media, []Upload{up})
	if err != nil {
		return nil, err
	}
	img.ImageURL = urls[0]
	if err := s.store.CreateImage(ctx, img); err != nil {
		discardFiles(ctx, s.media, urls)
		return nil, storeErr(err, "image")
	}
	s.touch(ctx, productID)
	return img, nil
}

// ReplaceImage swaps the file behind an image
func (s *ProductService) ReplaceImage(ctx context.Context, productID, imageID int64, up Upload) (*models.ProductImage, error) {
	img, err := s.ownedImage(ctx, s.store.Queries, productID, imageID)
	if err != nil {
		return nil, err
	}
	return s.swapImageFile(ctx, productID, img, up)
}

func (s *ProductService) swapImageFile(ctx context.Context, productID int64, img *models.ProductImage, up Upload) (*models.ProductImage, error) {
	urls, err := saveUploads(ctx, s.media, []Upload{up})
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateImageURL(ctx, img.ID, urls[0]); err != nil {
		discardFiles(ctx, s.media, urls)
		return nil, storeErr(err, "image")
	}
	discardFiles(ctx, s.media, []string{img.ImageURL})
	img.ImageURL = urls[0]
	s.touch(ctx, productID)
	return img, nil
}

// ReplaceCoverImage replaces the lowest-id product image, creating one
// when the product has none.
func (s *ProductService) ReplaceCoverImage(ctx context.Context, productID int64, up Upload) (*models.ProductImage, error) {
	cover, err := s.store.GetCoverImage(ctx, productID)
	if err == store.ErrNotFound {
		return s.AddImage(ctx, productID, nil, up)
	}
	if err != nil {
		return nil, err
	}
	return s.swapImageFile(ctx, productID, cover, up)
}

func (s *ProductService) DeleteImage(ctx context.Context, productID, imageID int64) error {
	img, err := s.ownedImage(ctx, s.store.Queries, productID, imageID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteImage(ctx, img.ID); err != nil {
		return storeErr(err, "image")
	}
	discardFiles(ctx, s.media, []string{img.ImageURL})
	s.touch(ctx, productID)
	return nil
}

// Models

// AddModel creates a model with its specifications and colors
func (s *ProductService) AddModel(ctx context.Context, productID int64, in ModelInput) (*models.ModelView, error) {
	if err := in.validate(s.cfg.DefaultStockThreshold); err != nil {
		return nil, err
	}

	view := &models.ModelView{Specifications: []models.ModelSpecification{}, Colors: []models.ColorView{}}
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if _, err := s.requireProduct(ctx, q, productID); err != nil {
			return err
		}
		view.ProductModel = models.ProductModel{ProductID: productID, Name: in.Name, Description: in.Description}
		if err := q.CreateModel(ctx, &view.ProductModel); err != nil {
			return storeErr(err, "model")
		}
		for _, sp := range in.Specifications {
			spec := models.ModelSpecification{ModelID: view.ID, Key: sp.Key, Value: sp.Value}
			if err := q.CreateModelSpec(ctx, &spec); err != nil {
				return storeErr(err, "model specification")
			}
			view.Specifications = append(view.Specifications, spec)
		}
		for i := range in.Colors {
			color := in.Colors[i].toColor(productID, &view.ID)
			if err := q.CreateColor(ctx, &color); err != nil {
				return storeErr(err, "color")
			}
			view.Colors = append(view.Colors, models.ColorView{
				ProductColor: color,
				Status:       color.StockStatus(),
				Images:       []models.ProductImage{},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.touch(ctx, productID)
	return view, nil
}

// ModelPatch changes a model's name or description
type ModelPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *ProductService) UpdateModel(ctx context.Context, productID, modelID int64, patch ModelPatch) (*models.ProductModel, error) {
	m, err := s.ownedModel(ctx, s.store.Queries, productID, modelID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if m.Name = strings.TrimSpace(*patch.Name); m.Name == "" {
			return nil, Invalid("model name cannot be empty")
		}
	}
	if patch.Description != nil {
		if m.Description = strings.TrimSpace(*patch.Description); m.Description == "" {
			return nil, Invalid("model description cannot be empty")
		}
	}
	if err := s.store.UpdateModel(ctx, m); err != nil {
		return nil, storeErr(err, "model")
	}
	s.touch(ctx, productID)
	return m, nil
}

func (s *ProductService) DeleteModel(ctx context.Context, productID, modelID int64) error {
	if _, err := s.ownedModel(ctx, s.store.Queries, productID, modelID); err != nil {
		return err
	}
	if err := s.store.DeleteModel(ctx, modelID); err != nil {
		return storeErr(err, "model")
	}
	s.touch(ctx, productID)
	return nil
}

// Colors

// AddColor adds a color. Without model_id a single product's color goes
// under its default model.
func (s *ProductService) AddColor(ctx context.Context, productID int64, in ColorInput) (*models.ColorView, error) {
	if err := in.validate(s.cfg.DefaultStockThreshold); err != nil {
		return nil, err
	}

	var color models.ProductColor
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		p, err := s.requireProduct(ctx, q, productID)
		if err != nil {
			return err
		}
		modelID := in.ModelID
		if modelID != nil {
			if _, err := s.ownedModel(ctx, q, productID, *modelID); err != nil {
				return err
			}
		} else if p.ProductType == models.ProductTypeSingle {
			existing, err := q.ListModelsByProducts(ctx, []int64{productID})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				modelID = &existing[0].ID
			}
		}
		color = in.toColor(productID, modelID)
		return storeErr(q.CreateColor(ctx, &color), "color")
	})
	if err != nil {
		return nil, err
	}
	s.touch(ctx, productID)
	return &models.ColorView{ProductColor: color, Status: color.StockStatus(), Images: []models.ProductImage{}}, nil
}

// ColorPatch changes some fields of a color
type ColorPatch struct {
	ModelID       *int64           `json:"model_id"`
	Name          *string          `json:"name"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	StockQuantity *int             `json:"stock_quantity"`
	Threshold     *int             `json:"threshold"`
}

// UpdateColor replaces a color; name and price are required
func (s *ProductService) UpdateColor(ctx context.Context, productID, colorID int64, in ColorInput) (*models.ColorView, error) {
	if err := in.validate(s.cfg.DefaultStockThreshold); err != nil {
		return nil, err
	}
	patch := ColorPatch{
		ModelID:       in.ModelID,
		Name:          &in.Name,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		Threshold:     in.Threshold,
	}
	return s.changeColor(ctx, productID, colorID, patch, func(c *models.ProductColor) {
		c.OriginalPrice = decimal.NullDecimal{}
		if in.OriginalPrice != nil {
			c.OriginalPrice = decimal.NewNullDecimal(in.OriginalPrice.Round(2))
		}
	})
}

func (s *ProductService) PatchColor(ctx context.Context, productID, colorID int64, patch ColorPatch) (*models.ColorView, error) {
	return s.changeColor(ctx, productID, colorID, patch, func(c *models.ProductColor) {
		if patch.OriginalPrice != nil {
			c.OriginalPrice = decimal.NewNullDecimal(patch.OriginalPrice.Round(2))
		}
	})
}

func (s *ProductService) changeColor(ctx context.Context, productID, colorID int64, patch ColorPatch, extra func(*models.ProductColor)) (*models.ColorView, error) {
	var before, after models.ProductColor
	var productName string
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		p, err := s.requireProduct(ctx, q, productID)
		if err != nil {
			return err
		}
		productName = p.Name
		c, err := s.ownedColor(ctx, q, productID, colorID, true)
		if err != nil {
			return err
		}
		before = *c

		if patch.ModelID != nil {
			if _, err := s.ownedModel(ctx, q, productID, *patch.ModelID); err != nil {
				return err
			}
			c.ModelID = patch.ModelID
		}
		if patch.Name != nil {
			if c.Name = strings.TrimSpace(*patch.Name); c.Name == "" {
				return Invalid("color name cannot be empty")
			}
		}
		if patch.Price != nil {
			if patch.Price.IsNegative() {
				return Invalid("price cannot be negative")
			}
			c.Price = patch.Price.Round(2)
		}
		if patch.StockQuantity != nil {
			if *patch.StockQuantity < 0 {
				return Invalid("stock cannot be negative")
			}
			c.StockQuantity = *patch.StockQuantity
		}
		if patch.Threshold != nil {
			if *patch.Threshold < 0 {
				return Invalid("threshold cannot be negative")
			}
			c.Threshold = *patch.Threshold
		}
		extra(c)
		if c.OriginalPrice.Valid && c.OriginalPrice.Decimal.IsNegative() {
			return Invalid("original price cannot be negative")
		}

		if err := q.UpdateColor(ctx, c); err != nil {
			return storeErr(err, "color")
		}
		after = *c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if droppedBelowStock(&before, &after) {
		publishStockLow(ctx, s.events, s.logger, productName, &after)
	}
	s.touch(ctx, productID)

	images, err := s.store.ListImagesByProducts(ctx, []int64{productID})
	if err != nil {
		return nil, err
	}
	view := &models.ColorView{ProductColor: after, Status: after.StockStatus(), Images: []models.ProductImage{}}
	for _, img := range images {
		if img.ColorID != nil && *img.ColorID == colorID {
			view.Images = append(view.Images, img)
		}
	}
	return view, nil
}

func (s *ProductService) DeleteColor(ctx context.Context, productID, colorID int64) error {
	var urls []string
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if _, err := s.ownedColor(ctx, q, productID, colorID, true); err != nil {
			return err
		}
		images, err := q.ListImagesByProducts(ctx, []int64{productID})
		if err != nil {
			return err
		}
		for _, img := range images {
			if img.ColorID != nil && *img.ColorID == colorID {
				urls = append(urls, img.ImageURL)
			}
		}
		return storeErr(q.DeleteColor(ctx, colorID), "color")
	})
	if err != nil {
		return err
	}
	discardFiles(ctx, s.media, urls)
	s.touch(ctx, productID)
	return nil
}

// Specifications

func (s *ProductService) AddProductSpec(ctx context.Context, productID int64, in SpecInput) (*models.ProductSpecification, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.requireProduct(ctx, s.store.Queries, productID); err != nil {
		return nil, err
	}
	spec := &models.ProductSpecification{ProductID: productID, Key: in.Key, Value: in.Value}
	if err := s.store.CreateProductSpec(ctx, spec); err != nil {
		return nil, storeErr(err, "specification")
	}
	s.touch(ctx, productID)
	return spec, nil
}

func (s *ProductService) ownedProductSpec(ctx context.Context, productID, specID int64) (*models.ProductSpecification, error) {
	spec, err := s.store.GetProductSpec(ctx, specID)
	if err != nil {
		return nil, storeErr(err, "specification")
	}
	if spec.ProductID != productID {
		return nil, Invalid("specification %d does not belong to product %d", specID, productID)
	}
	return spec, nil
}

func (s *ProductService) UpdateProductSpec(ctx context.Context, productID, specID int64, in SpecInput) (*models.ProductSpecification, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	spec, err := s.ownedProductSpec(ctx, productID, specID)
	if err != nil {
		return nil, err
	}
	spec.Key, spec.Value = in.Key, in.Value
	if err := s.store.UpdateProductSpec(ctx, spec); err != nil {
		return nil, storeErr(err, "specification")
	}
	s.touch(ctx, productID)
	return spec, nil
}

func (s *ProductService) DeleteProductSpec(ctx context.Context, productID, specID int64) error {
	if _, err := s.ownedProductSpec(ctx, productID, specID); err != nil {
		return err
	}
	if err := s.store.DeleteProductSpec(ctx, specID); err != nil {
		return storeErr(err, "specification")
	}
	s.touch(ctx, productID)
	return nil
}

func (s *ProductService) AddModelSpec(ctx context.Context, productID, modelID int64, in SpecInput) (*models.ModelSpecification, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.ownedModel(ctx, s.store.Queries, productID, modelID); err != nil {
		return nil, err
	}
	spec := &models.ModelSpecification{ModelID: modelID, Key: in.Key, Value: in.Value}
	if err := s.store.CreateModelSpec(ctx, spec); err != nil {
		return nil, storeErr(err, "model specification")
	}
	s.touch(ctx, productID)
	return spec, nil
}

func (s *ProductService) ownedModelSpec(ctx context.Context, productID, modelID, specID int64) (*models.ModelSpecification, error) {
	if _, err := s.ownedModel(ctx, s.store.Queries, productID, modelID); err != nil {
		return nil, err
	}
	spec, err := s.store.GetModelSpec(ctx, specID)
	if err != nil {
		return nil, storeErr(err, "model specification")
	}
	if spec.ModelID != modelID {
		return nil, Invalid("specification %d does not belong to model %d", specID, modelID)
	}
	return spec, nil
}

func (s *ProductService) UpdateModelSpec(ctx context.Context, productID, modelID, specID int64, in SpecInput) (*models.ModelSpecification, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	spec, err := s.ownedModelSpec(ctx, productID, modelID, specID)
	if err != nil {
		return nil, err
	}
	spec.Key, spec.Value = in.Key, in.Value
	if err := s.store.UpdateModelSpec(ctx, spec); err != nil {
		return nil, storeErr(err, "model specification")
	}
	s.touch(ctx, productID)
	return spec, nil
}

func (s *ProductService) DeleteModelSpec(ctx context.Context, productID, modelID, specID int64) error {
	if _, err := s.ownedModelSpec(ctx, productID, modelID, specID); err != nil {
		return err
	}
	if err := s.store.DeleteModelSpec(ctx, specID); err != nil {
		return storeErr(err, "model specification")
	}
	s.touch(ctx, productID)
	return nil
}
