package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"ecom-service/config"
	"ecom-service/internal/broker"
	"ecom-service/internal/importer"
	"ecom-service/internal/media"
	"ecom-service/internal/models"
	"ecom-service/internal/redisclient"
	"ecom-service/internal/store"
	"ecom-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// ProductService handles the product catalog and its variants
type ProductService struct {
	store  *store.Store
	redis  *redisclient.Client
	events *broker.EventPublisher
	media  media.Storage
	cfg    config.BusinessConfig
	logger *zap.Logger
}

func NewProductService(
	store *store.Store,
	redis *redisclient.Client,
	events *broker.EventPublisher,
	storage media.Storage,
	cfg config.BusinessConfig,
) *ProductService {
	return &ProductService{
		store:  store,
		redis:  redis,
		events: events,
		media:  storage,
		cfg:    cfg,
		logger: util.GetLogger(),
	}
}

// SpecInput is a key/value specification line
type SpecInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (sp *SpecInput) validate() error {
	sp.Key = strings.TrimSpace(sp.Key)
	sp.Value = strings.TrimSpace(sp.Value)
	if sp.Key == "" || sp.Value == "" {
		return Invalid("specification key and value are required")
	}
	return nil
}

// ColorInput describes a purchasable color
type ColorInput struct {
	ModelID       *int64           `json:"model_id,omitempty"`
	Name          string           `json:"name"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	StockQuantity *int             `json:"stock_quantity"`
	Threshold     *int             `json:"threshold"`
}

func (c *ColorInput) validate(defaultThreshold int) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Invalid("color name is required")
	}
	if c.Price == nil {
		return Invalid("price is required for color %q", c.Name)
	}
	if c.Price.IsNegative() {
		return Invalid("price of color %q cannot be negative", c.Name)
	}
	if c.OriginalPrice != nil && c.OriginalPrice.IsNegative() {
		return Invalid("original price of color %q cannot be negative", c.Name)
	}
	if c.StockQuantity == nil {
		zero := 0
		c.StockQuantity = &zero
	}
	if *c.StockQuantity < 0 {
		return Invalid("stock of color %q cannot be negative", c.Name)
	}
	if c.Threshold == nil {
		t := defaultThreshold
		c.Threshold = &t
	}
	if *c.Threshold < 0 {
		return Invalid("threshold of color %q cannot be negative", c.Name)
	}
	return nil
}

func (c *ColorInput) toColor(productID int64, modelID *int64) models.ProductColor {
	color := models.ProductColor{
		ProductID:     productID,
		ModelID:       modelID,
		Name:          c.Name,
		Price:         c.Price.Round(2),
		StockQuantity: *c.StockQuantity,
		Threshold:     *c.Threshold,
	}
	if c.OriginalPrice != nil {
		color.OriginalPrice = decimal.NewNullDecimal(c.OriginalPrice.Round(2))
	}
	return color
}

// ModelInput describes a model of a variable product
type ModelInput struct {
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Specifications []SpecInput  `json:"specifications"`
	Colors         []ColorInput `json:"colors"`
}

func (m *ModelInput) validate(defaultThreshold int) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Description = strings.TrimSpace(m.Description)
	if m.Name == "" || m.Description == "" {
		return Invalid("model name and description are required")
	}
	for i := range m.Specifications {
		if err := m.Specifications[i].validate(); err != nil {
			return err
		}
	}
	for i := range m.Colors {
		if err := m.Colors[i].validate(defaultThreshold); err != nil {
			return err
		}
	}
	return nil
}

// ProductInput is the creation payload. The category may be referenced by
// id or created inline, likewise the subcategory and HSN code.
type ProductInput struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	CategoryID        *int64           `json:"category_id"`
	NewCategory       string           `json:"new_category"`
	SubcategoryID     *int64           `json:"subcategory_id"`
	NewSubcategory    string           `json:"new_subcategory"`
	HSNID             *int64           `json:"hsn_id"`
	NewHSNCode        string           `json:"new_hsn_code"`
	NewHSNDescription string           `json:"new_hsn_description"`
	ProductType       string           `json:"product_type"`
	Offers            *decimal.Decimal `json:"offers"`

	// single products
	ModelName        string       `json:"model_name"`
	ModelDescription string       `json:"model_description"`
	Specifications   []SpecInput  `json:"specifications"`
	Colors           []ColorInput `json:"colors"`

	// variable products
	Models []ModelInput `json:"models"`
}

// ProductFiles are the images sent along with a new product. ColorImages is
// keyed by form field: color_images_<i> for single products and
// model_<i>_color_images_<j> for variable ones.
type ProductFiles struct {
	ProductImages []Upload
	ColorImages   map[string][]Upload
}

func SingleColorImagesKey(color int) string {
	return fmt.Sprintf("color_images_%d", color)
}

func VariableColorImagesKey(model, color int) string {
	return fmt.Sprintf("model_%d_color_images_%d", model, color)
}

func validateOffer(offer *decimal.Decimal) error {
	if offer != nil && (offer.IsNegative() || offer.GreaterThan(hundred)) {
		return Invalid("offers must be between 0 and 100")
	}
	return nil
}

// normalize validates the payload and fills defaults in place
func (in *ProductInput) normalize(defaultThreshold int) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.NewCategory = strings.TrimSpace(in.NewCategory)
	in.NewSubcategory = strings.TrimSpace(in.NewSubcategory)
	in.NewHSNCode = strings.TrimSpace(in.NewHSNCode)
	in.ProductType = strings.ToLower(strings.TrimSpace(in.ProductType))

	if in.Name == "" || in.Description == "" {
		return Invalid("name and description are required")
	}
	if in.CategoryID == nil && in.NewCategory == "" {
		return Invalid("category is required")
	}
	if len(in.NewHSNCode) > maxHSNCodeLength {
		return Invalid("hsn_code must be at most %d characters", maxHSNCodeLength)
	}
	if err := validateOffer(in.Offers); err != nil {
		return err
	}

	switch in.ProductType {
	case models.ProductTypeSingle:
		if in.ModelName = strings.TrimSpace(in.ModelName); in.ModelName == "" {
			in.ModelName = in.Name
		}
		if in.ModelDescription = strings.TrimSpace(in.ModelDescription); in.ModelDescription == "" {
			in.ModelDescription = in.Description
		}
		for i := range in.Specifications {
			if err := in.Specifications[i].validate(); err != nil {
				return err
			}
		}
		for i := range in.Colors {
			if err := in.Colors[i].validate(defaultThreshold); err != nil {
				return err
			}
		}
	case models.ProductTypeVariable:
		for i := range in.Models {
			if err := in.Models[i].validate(defaultThreshold); err != nil {
				return err
			}
		}
	default:
		return Invalid("product_type must be %q or %q", models.ProductTypeSingle, models.ProductTypeVariable)
	}
	return nil
}

// expectedImageKeys lists the color image fields the payload can carry
func (in *ProductInput) expectedImageKeys() map[string]bool {
	keys := make(map[string]bool)
	if in.ProductType == models.ProductTypeSingle {
		for i := range in.Colors {
			keys[SingleColorImagesKey(i)] = true
		}
		return keys
	}
	for i, m := range in.Models {
		for j := range m.Colors {
			keys[VariableColorImagesKey(i, j)] = true
		}
	}
	return keys
}

// BuildSKU renders <category>-<subcategory|NA>-<hsn|NA>-<product>
func BuildSKU(categoryID int64, subcategoryID *int64, hsnCode *string, productID int64) string {
	sub := "NA"
	if subcategoryID != nil {
		sub = strconv.FormatInt(*subcategoryID, 10)
	}
	hsn := "NA"
	if hsnCode != nil && *hsnCode != "" {
		hsn = *hsnCode
	}
	return fmt.Sprintf("%d-%s-%s-%d", categoryID, sub, hsn, productID)
}

// CreateProduct stores a product with all of its variants in one
// transaction. Files are written first and removed again on failure.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput, files ProductFiles) (*models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.CreateProduct")
	defer span.End()

	if err := in.normalize(s.cfg.DefaultStockThreshold); err != nil {
		return nil, err
	}
	expected := in.expectedImageKeys()
	for key := range files.ColorImages {
		if !expected[key] {
			return nil, Invalid("unexpected file field %q", key)
		}
	}

	productURLs, err := saveUploads(ctx, s.media, files.ProductImages)
	if err != nil {
		return nil, err
	}
	saved := append([]string{}, productURLs...)
	colorURLs := make(map[string][]string)
	for key, uploads := range files.ColorImages {
		urls, err := saveUploads(ctx, s.media, uploads)
		if err != nil {
			discardFiles(ctx, s.media, saved)
			return nil, err
		}
		colorURLs[key] = urls
		saved = append(saved, urls...)
	}

	var productID int64
	err = s.store.InTx(ctx, func(q *store.Queries) error {
		category, err := resolveCategory(ctx, q, &in)
		if err != nil {
			return err
		}
		subcategoryID, err := resolveSubcategory(ctx, q, category.ID, &in)
		if err != nil {
			return err
		}
		hsn, err := resolveHSN(ctx, q, &in)
		if err != nil {
			return err
		}

		p := &models.Product{
			Name:          in.Name,
			Description:   in.Description,
			CategoryID:    category.ID,
			SubcategoryID: subcategoryID,
			ProductType:   in.ProductType,
		}
		if hsn != nil {
			p.HSNID = &hsn.ID
		}
		if in.Offers != nil {
			p.Offers = decimal.NewNullDecimal(in.Offers.Round(2))
		}
		if err := q.CreateProduct(ctx, p); err != nil {
			return storeErr(err, "product")
		}
		productID = p.ID

		var hsnCode *string
		if hsn != nil {
			hsnCode = &hsn.Code
		}
		if err := q.SetProductSKU(ctx, p.ID, BuildSKU(p.CategoryID, p.SubcategoryID, hsnCode, p.ID)); err != nil {
			return storeErr(err, "product SKU")
		}

		for _, url := range productURLs {
			img := &models.ProductImage{ProductID: &p.ID, ImageURL: url}
			if err := q.CreateImage(ctx, img); err != nil {
				return err
			}
		}

		if in.ProductType == models.ProductTypeSingle {
			return s.createSingleVariants(ctx, q, p.ID, &in, colorURLs)
		}
		return s.createVariableVariants(ctx, q, p.ID, &in, colorURLs)
	})
	if err != nil {
		discardFiles(ctx, s.media, saved)
		util.SpanError(span, err)
		return nil, err
	}

	s.invalidate(ctx, productID)
	s.logger.Info("Product created",
		zap.Int64("product_id", productID),
		zap.String("product_type", in.ProductType),
		zap.Int("images", len(saved)))

	return s.loadProduct(ctx, productID)
}

func (s *ProductService) createSingleVariants(ctx context.Context, q *store.Queries, productID int64, in *ProductInput, colorURLs map[string][]string) error {
	m := &models.ProductModel{ProductID: productID, Name: in.ModelName, Description: in.ModelDescription}
	if err := q.CreateModel(ctx, m); err != nil {
		return storeErr(err, "model")
	}
	for _, sp := range in.Specifications {
		if err := q.CreateProductSpec(ctx, &models.ProductSpecification{ProductID: productID, Key: sp.Key, Value: sp.Value}); err != nil {
			return storeErr(err, "specification")
		}
	}
	for i := range in.Colors {
		if err := createColorWithImages(ctx, q, productID, &m.ID, &in.Colors[i], colorURLs[SingleColorImagesKey(i)]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductService) createVariableVariants(ctx context.Context, q *store.Queries, productID int64, in *ProductInput, colorURLs map[string][]string) error {
	for i := range in.Models {
		mi := &in.Models[i]
		m := &models.ProductModel{ProductID: productID, Name: mi.Name, Description: mi.Description}
		if err := q.CreateModel(ctx, m); err != nil {
			return storeErr(err, "model")
		}
		for _, sp := range mi.Specifications {
			if err := q.CreateModelSpec(ctx, &models.ModelSpecification{ModelID: m.ID, Key: sp.Key, Value: sp.Value}); err != nil {
				return storeErr(err, "model specification")
			}
		}
		for j := range mi.Colors {
			if err := createColorWithImages(ctx, q, productID, &m.ID, &mi.Colors[j], colorURLs[VariableColorImagesKey(i, j)]); err != nil {
				return err
			}
		}
	}
	return nil
}

func createColorWithImages(ctx context.Context, q *store.Queries, productID int64, modelID *int64, in *ColorInput, urls []string) error {
	color := in.toColor(productID, modelID)
	if err := q.CreateColor(ctx, &color); err != nil {
		return storeErr(err, "color")
	}
	for _, url := range urls {
		if err := q.CreateImage(ctx, &models.ProductImage{ColorID: &color.ID, ImageURL: url}); err != nil {
			return err
		}
	}
	return nil
}

func resolveCategory(ctx context.Context, q *store.Queries, in *ProductInput) (*models.Category, error) {
	if in.CategoryID != nil {
		c, err := q.GetCategory(ctx, *in.CategoryID)
		if err == store.ErrNotFound {
			return nil, Invalid("category %d does not exist", *in.CategoryID)
		}
		return c, err
	}
	c, err := q.FindCategoryByName(ctx, in.NewCategory)
	if err == nil {
		return c, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}
	c = &models.Category{Name: in.NewCategory}
	if err := q.CreateCategory(ctx, c); err != nil {
		return nil, storeErr(err, "category")
	}
	return c, nil
}

func resolveSubcategory(ctx context.Context, q *store.Queries, categoryID int64, in *ProductInput) (*int64, error) {
	if in.SubcategoryID != nil {
		sub, err := q.GetSubcategory(ctx, *in.SubcategoryID)
		if err == store.ErrNotFound {
			return nil, Invalid("subcategory %d does not exist", *in.SubcategoryID)
		}
		if err != nil {
			return nil, err
		}
		if sub.CategoryID != categoryID {
			return nil, Invalid("subcategory %d does not belong to category %d", sub.ID, categoryID)
		}
		return &sub.ID, nil
	}
	if in.NewSubcategory == "" {
		return nil, nil
	}
	sub, err := q.FindSubcategoryByName(ctx, categoryID, in.NewSubcategory)
	if err == nil {
		return &sub.ID, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}
	sub = &models.Subcategory{CategoryID: categoryID, Name: in.NewSubcategory}
	if err := q.CreateSubcategory(ctx, sub); err != nil {
		return nil, storeErr(err, "subcategory")
	}
	return &sub.ID, nil
}

func resolveHSN(ctx context.Context, q *store.Queries, in *ProductInput) (*models.HSN, error) {
	if in.HSNID != nil {
		h, err := q.GetHSN(ctx, *in.HSNID)
		if err == store.ErrNotFound {
			return nil, Invalid("HSN %d does not exist", *in.HSNID)
		}
		return h, err
	}
	if in.NewHSNCode == "" {
		return nil, nil
	}
	h, err := q.FindHSNByCode(ctx, in.NewHSNCode)
	if err == nil {
		return h, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}
	h = &models.HSN{Code: in.NewHSNCode}
	if desc := strings.TrimSpace(in.NewHSNDescription); desc != "" {
		h.Description = &desc
	}
	if err := q.CreateHSN(ctx, h); err != nil {
		return nil, storeErr(err, "HSN code")
	}
	return h, nil
}

// ListProducts returns the full nested view of every product
func (s *ProductService) ListProducts(ctx context.Context) ([]models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.ListProducts")
	defer span.End()

	if s.redis != nil {
		data, ok, err := s.redis.GetCachedProductList(ctx)
		if err != nil {
			s.logger.Warn("Product list cache read failed", zap.Error(err))
		} else if ok {
			var views []models.ProductView
			if err := json.Unmarshal(data, &views); err == nil {
				util.ProductCacheTotal.WithLabelValues("hit").Inc()
				return views, nil
			}
		}
		util.ProductCacheTotal.WithLabelValues("miss").Inc()
	}

	rows, err := s.store.ListProductRows(ctx)
	if err != nil {
		return nil, err
	}
	views, err := buildProductViews(ctx, s.store.Queries, rows)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(views); err == nil {
			if err := s.redis.CacheProductList(ctx, data, s.cfg.ProductCacheTTL); err != nil {
				s.logger.Warn("Product list cache write failed", zap.Error(err))
			}
		}
	}
	return views, nil
}

// GetProduct returns one product view, served from Redis when cached
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.GetProduct")
	defer span.End()

	if s.redis != nil {
		data, ok, err := s.redis.GetCachedProduct(ctx, id)
		if err != nil {
			s.logger.Warn("Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
		} else if ok {
			var view models.ProductView
			if err := json.Unmarshal(data, &view); err == nil {
				util.ProductCacheTotal.WithLabelValues("hit").Inc()
				return &view, nil
			}
		}
		util.ProductCacheTotal.WithLabelValues("miss").Inc()
	}

	view, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(view); err == nil {
			if err := s.redis.CacheProduct(ctx, id, data, s.cfg.ProductCacheTTL); err != nil {
				s.logger.Warn("Product cache write failed", zap.Int64("product_id", id), zap.Error(err))
			}
		}
	}
	return view, nil
}

func (s *ProductService) loadProduct(ctx context.Context, id int64) (*models.ProductView, error) {
	row, err := s.store.GetProductRow(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	views, err := buildProductViews(ctx, s.store.Queries, []models.ProductRow{*row})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// SlugTerm turns a slug into the name fragment searched for
func SlugTerm(slug string) string {
	return strings.TrimSpace(strings.ReplaceAll(slug, "-", " "))
}

// GetProductBySlug resolves numeric slugs as ids, anything else as a
// case-insensitive name fragment with hyphens read as spaces.
func (s *ProductService) GetProductBySlug(ctx context.Context, slug string) (*models.ProductView, error) {
	if id, err := strconv.ParseInt(slug, 10, 64); err == nil {
		return s.GetProduct(ctx, id)
	}
	term := SlugTerm(slug)
	if term == "" {
		return nil, Invalid("slug is empty")
	}
	row, err := s.store.FindProductRowByName(ctx, term)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	return s.GetProduct(ctx, row.ID)
}

// SimilarProducts returns products of the same category and type
func (s *ProductService) SimilarProducts(ctx context.Context, id int64) ([]models.ProductSummary, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	rows, err := s.store.ListSimilarProductRows(ctx, p, s.cfg.SimilarProductsLimit)
	if err != nil {
		return nil, err
	}
	return buildProductSummaries(ctx, s.store.Queries, rows)
}

func (s *ProductService) ProductsByCategory(ctx context.Context, categoryID int64) ([]models.ProductSummary, error) {
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		return nil, storeErr(err, "category")
	}
	rows, err := s.store.ListProductRowsByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return buildProductSummaries(ctx, s.store.Queries, rows)
}

// StockReport lists every color with its derived stock status
func (s *ProductService) StockReport(ctx context.Context) ([]models.StockReportRow, error) {
	rows, err := s.store.StockReport(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Status = models.StockStatusFor(rows[i].StockQuantity, rows[i].Threshold)
	}
	return orEmpty(rows), nil
}

// ExportProducts writes the catalog as an XLSX workbook
func (s *ProductService) ExportProducts(ctx context.Context, w io.Writer) error {
	rows, err := s.store.ListProductRows(ctx)
	if err != nil {
		return err
	}
	views, err := buildProductViews(ctx, s.store.Queries, rows)
	if err != nil {
		return err
	}
	return importer.WriteProductsXLSX(w, views)
}

// ProductPatch changes product fields; nil keeps the current value
type ProductPatch struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	ProductType   *string `json:"product_type"`
	CategoryID    *int64  `json:"category_id"`
	SubcategoryID *int64  `json:"subcategory_id"`
	HSNID         *int64  `json:"hsn_id"`
}

// categorization is a change of category, subcategory or HSN. The set
// flags distinguish "clear" from "leave alone" for nullable links.
type categorization struct {
	categoryID     *int64
	subcategoryID  *int64
	setSubcategory bool
	hsnID          *int64
	setHSN         bool
}

func (s *ProductService) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.UpdateProduct")
	defer span.End()

	change := categorization{categoryID: patch.CategoryID}
	if patch.SubcategoryID != nil {
		change.subcategoryID, change.setSubcategory = patch.SubcategoryID, true
	}
	if patch.HSNID != nil {
		change.hsnID, change.setHSN = patch.HSNID, true
	}

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		p, err := q.GetProductForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "product")
		}
		if patch.Name != nil {
			if p.Name = strings.TrimSpace(*patch.Name); p.Name == "" {
				return Invalid("name cannot be empty")
			}
		}
		if patch.Description != nil {
			if p.Description = strings.TrimSpace(*patch.Description); p.Description == "" {
				return Invalid("description cannot be empty")
			}
		}
		if patch.ProductType != nil {
			t := strings.ToLower(strings.TrimSpace(*patch.ProductType))
			if t != models.ProductTypeSingle && t != models.ProductTypeVariable {
				return Invalid("product_type must be %q or %q", models.ProductTypeSingle, models.ProductTypeVariable)
			}
			p.ProductType = t
		}
		return applyCategorization(ctx, q, p, change)
	})
	if err != nil {
		return nil, err
	}
	return s.afterChange(ctx, id)
}

func (s *ProductService) SetCategory(ctx context.Context, id, categoryID int64) (*models.ProductView, error) {
	return s.recategorize(ctx, id, categorization{categoryID: &categoryID})
}

// SetSubcategory links or, with nil, unlinks the product's subcategory
func (s *ProductService) SetSubcategory(ctx context.Context, id int64, subcategoryID *int64) (*models.ProductView, error) {
	return s.recategorize(ctx, id, categorization{subcategoryID: subcategoryID, setSubcategory: true})
}

func (s *ProductService) SetCategorization(ctx context.Context, id, categoryID int64, subcategoryID *int64) (*models.ProductView, error) {
	return s.recategorize(ctx, id, categorization{
		categoryID:     &categoryID,
		subcategoryID:  subcategoryID,
		setSubcategory: true,
	})
}

func (s *ProductService) SetHSN(ctx context.Context, id int64, hsnID *int64) (*models.ProductView, error) {
	return s.recategorize(ctx, id, categorization{hsnID: hsnID, setHSN: true})
}

func (s *ProductService) recategorize(ctx context.Context, id int64, change categorization) (*models.ProductView, error) {
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		p, err := q.GetProductForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "product")
		}
		return applyCategorization(ctx, q, p, change)
	})
	if err != nil {
		return nil, err
	}
	return s.afterChange(ctx, id)
}

// applyCategorization validates the links, saves p and refreshes its SKU.
// A subcategory that does not belong to a new category is dropped.
func applyCategorization(ctx context.Context, q *store.Queries, p *models.Product, change categorization) error {
	if change.categoryID != nil {
		if _, err := q.GetCategory(ctx, *change.categoryID); err != nil {
			if err == store.ErrNotFound {
				return Invalid("category %d does not exist", *change.categoryID)
			}
			return err
		}
		if *change.categoryID != p.CategoryID && !change.setSubcategory && p.SubcategoryID != nil {
			sub, err := q.GetSubcategory(ctx, *p.SubcategoryID)
			if err != nil && err != store.ErrNotFound {
				return err
			}
			if err == store.ErrNotFound || sub.CategoryID != *change.categoryID {
				p.SubcategoryID = nil
			}
		}
		p.CategoryID = *change.categoryID
	}

	if change.setSubcategory {
		if change.subcategoryID == nil {
			p.SubcategoryID = nil
		} else {
			sub, err := q.GetSubcategory(ctx, *change.subcategoryID)
			if err == store.ErrNotFound {
				return Invalid("subcategory %d does not exist", *change.subcategoryID)
			}
			if err != nil {
				return err
			}
			if sub.CategoryID != p.CategoryID {
				return Invalid("subcategory %d does not belong to category %d", sub.ID, p.CategoryID)
			}
			p.SubcategoryID = &sub.ID
		}
	}

	var hsnCode *string
	if change.setHSN {
		p.HSNID = change.hsnID
	}
	if p.HSNID != nil {
		h, err := q.GetHSN(ctx, *p.HSNID)
		if err == store.ErrNotFound {
			return Invalid("HSN %d does not exist", *p.HSNID)
		}
		if err != nil {
			return err
		}
		hsnCode = &h.Code
	}

	if err := q.UpdateProduct(ctx, p); err != nil {
		return storeErr(err, "product")
	}
	return storeErr(q.SetProductSKU(ctx, p.ID, BuildSKU(p.CategoryID, p.SubcategoryID, hsnCode, p.ID)), "product SKU")
}

// SetOffer sets the discount percentage; nil removes it
func (s *ProductService) SetOffer(ctx context.Context, id int64, offer *decimal.Decimal) (*models.ProductView, error) {
	if err := validateOffer(offer); err != nil {
		return nil, err
	}
	var value decimal.NullDecimal
	if offer != nil {
		value = decimal.NewNullDecimal(offer.Round(2))
	}
	if err := s.store.UpdateProductOffer(ctx, id, value); err != nil {
		return nil, storeErr(err, "product")
	}
	return s.afterChange(ctx, id)
}

// RatingInput either sets rating and raters outright (admins only) or,
// with raters omitted, folds one new rating into the average.
type RatingInput struct {
	Rating *float64 `json:"rating"`
	Raters *int     `json:"raters"`
}

// FoldRating adds one rating to an average over raters ratings
func FoldRating(average float64, raters int, rating float64) (float64, int) {
	total := average*float64(raters) + rating
	raters++
	return math.Round(total/float64(raters)*100) / 100, raters
}

func (s *ProductService) RateProduct(ctx context.Context, actor Actor, id int64, in RatingInput) (*models.ProductView, error) {
	if in.Rating == nil {
		return nil, Invalid("rating is required")
	}
	if in.Raters != nil && !actor.IsAdmin {
		return nil, Forbidden("only admins can set the rating count")
	}
	if *in.Rating < 0 || *in.Rating > 5 {
		return nil, Invalid("rating must be between 0 and 5")
	}
	if in.Raters != nil && *in.Raters < 0 {
		return nil, Invalid("raters cannot be negative")
	}

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		p, err := q.GetProductForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "product")
		}
		rating, raters := *in.Rating, 0
		if in.Raters != nil {
			raters = *in.Raters
		} else {
			rating, raters = FoldRating(p.Rating, p.Raters, *in.Rating)
		}
		return storeErr(q.UpdateProductRating(ctx, id, rating, raters), "product")
	})
	if err != nil {
		return nil, err
	}
	return s.afterChange(ctx, id)
}

// DeleteProduct removes a product that was never ordered, together with
// its cart and wishlist lines and its stored images.
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "ProductService.DeleteProduct")
	defer span.End()

	var urls []string
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetProductForUpdate(ctx, id); err != nil {
			return storeErr(err, "product")
		}
		n, err := q.CountOrderItemsForProduct(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return Conflict("product appears in %d order items and cannot be deleted", n)
		}
		images, err := q.ListImagesByProducts(ctx, []int64{id})
		if err != nil {
			return err
		}
		for _, img := range images {
			urls = append(urls, img.ImageURL)
		}
		if err := q.DetachProductFromCollections(ctx, id); err != nil {
			return err
		}
		return storeErr(q.DeleteProduct(ctx, id), "product")
	})
	if err != nil {
		return err
	}

	discardFiles(ctx, s.media, urls)
	s.invalidate(ctx, id)
	s.logger.Info("Product deleted", zap.Int64("product_id", id), zap.Int("images", len(urls)))
	return nil
}

// afterChange drops cached views and returns the fresh product
func (s *ProductService) afterChange(ctx context.Context, id int64) (*models.ProductView, error) {
	s.invalidate(ctx, id)
	return s.loadProduct(ctx, id)
}

func (s *ProductService) invalidate(ctx context.Context, ids ...int64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.InvalidateProducts(ctx, ids...); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Int64s("product_ids", ids), zap.Error(err))
	}
}

// publishStockLow announces a color that fell out of IN_STOCK
func publishStockLow(ctx context.Context, events *broker.EventPublisher, logger *zap.Logger, productName string, c *models.ProductColor) {
	util.StockLowEventsTotal.Inc()
	if events == nil {
		return
	}
	event := &models.StockLowEvent{
		BaseEvent:     broker.NewBaseEvent(models.EventTypeStockLow),
		ProductID:     c.ProductID,
		ProductName:   productName,
		ColorID:       c.ID,
		ColorName:     c.Name,
		StockQuantity: c.StockQuantity,
		Threshold:     c.Threshold,
	}
	if err := events.PublishStockLow(ctx, event); err != nil {
		logger.Error("Failed to publish StockLow event", zap.Int64("color_id", c.ID), zap.Error(err))
	}
}

// droppedBelowStock reports whether a color left IN_STOCK
func droppedBelowStock(before, after *models.ProductColor) bool {
	return before.StockStatus() == models.StockInStock && after.StockStatus() != models.StockInStock
}
