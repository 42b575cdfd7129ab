package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"ecom-service/internal/importer"
	"ecom-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.svc.Products.ListProducts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.svc.Products.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) productBySlug(c *gin.Context) {
	product, err := h.svc.Products.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) similarProducts(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	products, err := h.svc.Products.SimilarProducts(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) productsByCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	products, err := h.svc.Products.ProductsByCategory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) stockStatus(c *gin.Context) {
	rows, err := h.svc.Products.StockReport(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) exportProducts(c *gin.Context) {
	c.Header("Content-Type", importer.ContentTypeXLSX)
	c.Header("Content-Disposition", `attachment; filename="products.xlsx"`)
	if err := h.svc.Products.ExportProducts(c.Request.Context(), c.Writer); err != nil {
		if c.Writer.Written() {
			h.logger.Error("Product export aborted mid-stream")
			return
		}
		c.Header("Content-Disposition", "")
		h.respondError(c, err)
		return
	}
}

// isColorImageField matches color_images_<i> and model_<i>_color_images_<j>
func isColorImageField(field string) bool {
	return strings.HasPrefix(field, "color_images_") ||
		(strings.HasPrefix(field, "model_") && strings.Contains(field, "_color_images_"))
}

// createProduct accepts a JSON body, or a multipart form whose data field
// holds the JSON and whose file fields carry the images.
func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	files := service.ProductFiles{ColorImages: map[string][]service.Upload{}}

	if !isMultipart(c) {
		if !bindJSON(c, &in) {
			return
		}
	} else {
		form, err := c.MultipartForm()
		if err != nil {
			badRequest(c, "Invalid multipart form", err)
			return
		}
		data := form.Value["data"]
		if len(data) == 0 {
			badRequest(c, "Missing data field", nil)
			return
		}
		if err := json.Unmarshal([]byte(data[0]), &in); err != nil {
			badRequest(c, "Invalid product data", err)
			return
		}

		var closers []func()
		defer func() {
			for _, fn := range closers {
				fn()
			}
		}()
		for field, headers := range form.File {
			uploads, closeFn, err := openUploads(headers)
			if err != nil {
				badRequest(c, "Unreadable file", err)
				return
			}
			closers = append(closers, closeFn)
			switch {
			case field == "product_images":
				files.ProductImages = uploads
			case isColorImageField(field):
				files.ColorImages[field] = uploads
			default:
				badRequest(c, "Unexpected file field "+strconv.Quote(field), nil)
				return
			}
		}
	}

	product, err := h.svc.Products.CreateProduct(c.Request.Context(), in, files)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch service.ProductPatch
	if !bindJSON(c, &patch) {
		return
	}
	product, err := h.svc.Products.UpdateProduct(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Products.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

func (h *Handler) setOffer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Offers *decimal.Decimal `json:"offers"`
	}
	if !bindJSON(c, &body) {
		return
	}
	product, err := h.svc.Products.SetOffer(c.Request.Context(), id, body.Offers)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) rateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.RatingInput
	if !bindJSON(c, &in) {
		return
	}
	product, err := h.svc.Products.RateProduct(c.Request.Context(), actorFrom(c), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": product.ID, "rating": product.Rating, "raters": product.Raters})
}

func (h *Handler) setCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		CategoryID int64 `json:"category_id" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	product, err := h.svc.Products.SetCategory(c.Request.Context(), id, body.CategoryID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) setSubcategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		SubcategoryID *int64 `json:"subcategory_id"`
	}
	if !bindJSON(c, &body) {
		return
	}
	product, err := h.svc.Products.SetSubcategory(c.Request.Context(), id, body.SubcategoryID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) setCategorization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		CategoryID    int64  `json:"category_id" binding:"required"`
		SubcategoryID *int64 `json:"subcategory_id"`
	}
	if !bindJSON(c, &body) {
		return
	}
	product, err := h.svc.Products.SetCategorization(c.Request.Context(), id, body.CategoryID, body.SubcategoryID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) setHSN(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body struct {
		HSNID *int64 `json:"hsn_id"`
	}
	if !bindJSON(c, &body) {
		return
	}
	product, err := h.svc.Products.SetHSN(c.Request.Context(), id, body.HSNID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// formImage opens the single "image" file of a multipart request
func formImage(c *gin.Context) (service.Upload, func(), bool) {
	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "Missing image file", err)
		return service.Upload{}, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Unreadable image", err)
		return service.Upload{}, nil, false
	}
	return service.Upload{Filename: fh.Filename, Reader: f}, func() { f.Close() }, true
}

func (h *Handler) replaceCoverImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	up, done, ok := formImage(c)
	if !ok {
		return
	}
	defer done()
	img, err := h.svc.Products.ReplaceCoverImage(c.Request.Context(), id, up)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

func (h *Handler) addImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var colorID *int64
	if raw := c.PostForm("color_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "Invalid color_id", err)
			return
		}
		colorID = &v
	}
	up, done, ok := formImage(c)
	if !ok {
		return
	}
	defer done()
	img, err := h.svc.Products.AddImage(c.Request.Context(), id, colorID, up)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

func (h *Handler) replaceImage(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "image_id")
	if !ok {
		return
	}
	up, done, ok := formImage(c)
	if !ok {
		return
	}
	defer done()
	img, err := h.svc.Products.ReplaceImage(c.Request.Context(), ids[0], ids[1], up)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

func (h *Handler) deleteImage(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "image_id")
	if !ok {
		return
	}
	if err := h.svc.Products.DeleteImage(c.Request.Context(), ids[0], ids[1]); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}

func (h *Handler) addModel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.ModelInput
	if !bindJSON(c, &in) {
		return
	}
	m, err := h.svc.Products.AddModel(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) updateModel(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "model_id")
	if !ok {
		return
	}
	var patch service.ModelPatch
	if !bindJSON(c, &patch) {
		return
	}
	m, err := h.svc.Products.UpdateModel(c.Request.Context(), ids[0], ids[1], patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) deleteModel(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "model_id")
	if !ok {
		return
	}
	if err := h.svc.Products.DeleteModel(c.Request.Context(), ids[0], ids[1]); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Model deleted"})
}

func (h *Handler) addColor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.ColorInput
	if !bindJSON(c, &in) {
		return
	}
	color, err := h.svc.Products.AddColor(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, color)
}

func (h *Handler) updateColor(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "color_id")
	if !ok {
		return
	}
	var in service.ColorInput
	if !bindJSON(c, &in) {
		return
	}
	color, err := h.svc.Products.UpdateColor(c.Request.Context(), ids[0], ids[1], in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, color)
}

func (h *Handler) patchColor(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "color_id")
	if !ok {
		return
	}
	var patch service.ColorPatch
	if !bindJSON(c, &patch) {
		return
	}
	color, err := h.svc.Products.PatchColor(c.Request.Context(), ids[0], ids[1], patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, color)
}

func (h *Handler) deleteColor(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "color_id")
	if !ok {
		return
	}
	if err := h.svc.Products.DeleteColor(c.Request.Context(), ids[0], ids[1]); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Color deleted"})
}

func (h *Handler) addProductSpec(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.SpecInput
	if !bindJSON(c, &in) {
		return
	}
	spec, err := h.svc.Products.AddProductSpec(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, spec)
}

func (h *Handler) updateProductSpec(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "spec_id")
	if !ok {
		return
	}
	var in service.SpecInput
	if !bindJSON(c, &in) {
		return
	}
	spec, err := h.svc.Products.UpdateProductSpec(c.Request.Context(), ids[0], ids[1], in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spec)
}

func (h *Handler) deleteProductSpec(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "spec_id")
	if !ok {
		return
	}
	if err := h.svc.Products.DeleteProductSpec(c.Request.Context(), ids[0], ids[1]); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Specification deleted"})
}

func (h *Handler) addModelSpec(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "model_id")
	if !ok {
		return
	}
	var in service.SpecInput
	if !bindJSON(c, &in) {
		return
	}
	spec, err := h.svc.Products.AddModelSpec(c.Request.Context(), ids[0], ids[1], in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, spec)
}

func (h *Handler) updateModelSpec(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "model_id", "spec_id")
	if !ok {
		return
	}
	var in service.SpecInput
	if !bindJSON(c, &in) {
		return
	}
	spec, err := h.svc.Products.UpdateModelSpec(c.Request.Context(), ids[0], ids[1], ids[2], in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spec)
}

func (h *Handler) deleteModelSpec(c *gin.Context) {
	ids, ok := pathIDs(c, "id", "model_id", "spec_id")
	if !ok {
		return
	}
	if err := h.svc.Products.DeleteModelSpec(c.Request.Context(), ids[0], ids[1], ids[2]); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Specification deleted"})
}
