package api

import (
	"mime/multipart"
	"net/http"
	"strings"

	"ecom-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listCategories(c *gin.Context) {
	cats, err := h.svc.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// createCategory takes a multipart form with name and an optional image,
// or a JSON body with just the name.
func (h *Handler) createCategory(c *gin.Context) {
	var name string
	var image *service.Upload

	if isMultipart(c) {
		name = c.PostForm("name")
		if fh, err := c.FormFile("image"); err == nil {
			f, err := fh.Open()
			if err != nil {
				badRequest(c, "Unreadable image", err)
				return
			}
			defer f.Close()
			image = &service.Upload{Filename: fh.Filename, Reader: f}
		}
	} else {
		var body struct {
			Name string `json:"name" binding:"required"`
		}
		if !bindJSON(c, &body) {
			return
		}
		name = body.Name
	}

	cat, err := h.svc.Catalog.CreateCategory(c.Request.Context(), name, image)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch service.CategoryPatch
	if !bindJSON(c, &patch) {
		return
	}
	cat, err := h.svc.Catalog.UpdateCategory(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

func (h *Handler) createSubcategory(c *gin.Context) {
	var body struct {
		Name       string `json:"name" binding:"required"`
		CategoryID int64  `json:"category_id" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	sub, err := h.svc.Catalog.CreateSubcategory(c.Request.Context(), body.CategoryID, body.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) updateSubcategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch service.SubcategoryPatch
	if !bindJSON(c, &patch) {
		return
	}
	sub, err := h.svc.Catalog.UpdateSubcategory(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) deleteSubcategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteSubcategory(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subcategory deleted"})
}

func (h *Handler) listHSN(c *gin.Context) {
	list, err := h.svc.Catalog.ListHSN(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) createHSN(c *gin.Context) {
	var in service.HSNInput
	if !bindJSON(c, &in) {
		return
	}
	hsn, err := h.svc.Catalog.CreateHSN(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hsn)
}

func (h *Handler) updateHSN(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.HSNInput
	if !bindJSON(c, &in) {
		return
	}
	hsn, err := h.svc.Catalog.UpdateHSN(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hsn)
}

func (h *Handler) deleteHSN(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteHSN(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "HSN deleted"})
}

func (h *Handler) listStates(c *gin.Context) {
	states, err := h.svc.Catalog.ListStates(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, states)
}

// openUploads opens every file header. The returned closer must be called
// once the service is done reading.
func openUploads(files []*multipart.FileHeader) ([]service.Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opened = append(opened, f)
		uploads = append(uploads, service.Upload{Filename: fh.Filename, Reader: f})
	}
	return uploads, closeAll, nil
}
