package service

import (
	"context"

	"ecom-service/internal/models"
	"ecom-service/internal/store"
)

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func productIDs(rows []models.ProductRow) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

// buildProductViews loads every child collection of rows with one query per
// table and nests them.
func buildProductViews(ctx context.Context, q *store.Queries, rows []models.ProductRow) ([]models.ProductView, error) {
	if len(rows) == 0 {
		return []models.ProductView{}, nil
	}
	ids := productIDs(rows)

	productModels, err := q.ListModelsByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	colors, err := q.ListColorsByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	images, err := q.ListImagesByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	specs, err := q.ListProductSpecsByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	modelIDs := make([]int64, len(productModels))
	for i, m := range productModels {
		modelIDs[i] = m.ID
	}
	modelSpecs, err := q.ListModelSpecsByModels(ctx, modelIDs)
	if err != nil {
		return nil, err
	}

	return assembleViews(rows, productModels, colors, images, specs, modelSpecs), nil
}

func assembleViews(
	rows []models.ProductRow,
	productModels []models.ProductModel,
	colors []models.ProductColor,
	images []models.ProductImage,
	specs []models.ProductSpecification,
	modelSpecs []models.ModelSpecification,
) []models.ProductView {
	productImages := make(map[int64][]models.ProductImage)
	colorImages := make(map[int64][]models.ProductImage)
	for _, img := range images {
		switch {
		case img.ColorID != nil:
			colorImages[*img.ColorID] = append(colorImages[*img.ColorID], img)
		case img.ProductID != nil:
			productImages[*img.ProductID] = append(productImages[*img.ProductID], img)
		}
	}

	rawColors := make(map[int64][]models.ProductColor)
	colorViews := make(map[int64][]models.ColorView)
	modelColors := make(map[int64][]models.ColorView)
	for _, c := range colors {
		cv := models.ColorView{
			ProductColor: c,
			Status:       c.StockStatus(),
			Images:       orEmpty(colorImages[c.ID]),
		}
		rawColors[c.ProductID] = append(rawColors[c.ProductID], c)
		colorViews[c.ProductID] = append(colorViews[c.ProductID], cv)
		if c.ModelID != nil {
			modelColors[*c.ModelID] = append(modelColors[*c.ModelID], cv)
		}
	}

	specsByProduct := make(map[int64][]models.ProductSpecification)
	for _, sp := range specs {
		specsByProduct[sp.ProductID] = append(specsByProduct[sp.ProductID], sp)
	}
	specsByModel := make(map[int64][]models.ModelSpecification)
	for _, sp := range modelSpecs {
		specsByModel[sp.ModelID] = append(specsByModel[sp.ModelID], sp)
	}
	modelsByProduct := make(map[int64][]models.ModelView)
	for _, m := range productModels {
		modelsByProduct[m.ProductID] = append(modelsByProduct[m.ProductID], models.ModelView{
			ProductModel:   m,
			Specifications: orEmpty(specsByModel[m.ID]),
			Colors:         orEmpty(modelColors[m.ID]),
		})
	}

	out := make([]models.ProductView, 0, len(rows))
	for _, r := range rows {
		// variable products expose their colors under models only
		var flat []models.ColorView
		if r.ProductType == models.ProductTypeSingle {
			flat = colorViews[r.ID]
		}
		out = append(out, models.ProductView{
			ProductRow:     r,
			PriceRollup:    models.RollupColors(rawColors[r.ID]),
			Images:         orEmpty(productImages[r.ID]),
			Specifications: orEmpty(specsByProduct[r.ID]),
			Models:         orEmpty(modelsByProduct[r.ID]),
			Colors:         orEmpty(flat),
		})
	}
	return out
}

// buildProductSummaries attaches the price rollup and a display image
func buildProductSummaries(ctx context.Context, q *store.Queries, rows []models.ProductRow) ([]models.ProductSummary, error) {
	if len(rows) == 0 {
		return []models.ProductSummary{}, nil
	}
	ids := productIDs(rows)

	colors, err := q.ListColorsByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	images, err := q.ListImagesByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	return assembleSummaries(rows, colors, images), nil
}

func assembleSummaries(rows []models.ProductRow, colors []models.ProductColor, images []models.ProductImage) []models.ProductSummary {
	rawColors := make(map[int64][]models.ProductColor)
	for _, c := range colors {
		rawColors[c.ProductID] = append(rawColors[c.ProductID], c)
	}

	// product-level images win over color images; images arrive in id order
	cover := make(map[int64]string)
	fallback := make(map[int64]string)
	for _, img := range images {
		if img.ProductID == nil {
			continue
		}
		pid := *img.ProductID
		if img.ColorID == nil {
			if _, ok := cover[pid]; !ok {
				cover[pid] = img.ImageURL
			}
		} else if _, ok := fallback[pid]; !ok {
			fallback[pid] = img.ImageURL
		}
	}

	out := make([]models.ProductSummary, 0, len(rows))
	for _, r := range rows {
		sum := models.ProductSummary{
			ProductRow:  r,
			PriceRollup: models.RollupColors(rawColors[r.ID]),
		}
		if url, ok := cover[r.ID]; ok {
			sum.Image = &url
		} else if url, ok := fallback[r.ID]; ok {
			sum.Image = &url
		}
		out = append(out, sum)
	}
	return out
}
