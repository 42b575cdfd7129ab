package api

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"ecom-service/internal/models"
	"ecom-service/internal/service"

	"github.com/gin-gonic/gin"
)

var sharePage = template.Must(template.New("share").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta property="og:title" content="{{.Title}}">
    <meta property="og:description" content="{{.Description}}">
    <meta property="og:image" content="{{.Image}}">
    <meta property="og:type" content="product">
    <meta property="og:url" content="{{.URL}}">
    <meta name="twitter:card" content="summary_large_image">
    <meta name="twitter:title" content="{{.Title}}">
    <meta name="twitter:description" content="{{.Description}}">
    <meta name="twitter:image" content="{{.Image}}">
    <meta name="description" content="{{.Description}}">
    <title>{{.Title}}</title>
</head>
<body>
    <h1>{{.Title}}</h1>
    <p>{{.Description}}</p>
    {{if .Image}}<img src="{{.Image}}" alt="{{.Title}}" />{{end}}
</body>
</html>
`))

type shareMeta struct {
	Title       string
	Description string
	Image       string
	URL         string
}

// buildShareMeta picks the first product image, made absolute against
// apiURL, and links back to the storefront product page.
func buildShareMeta(p *models.ProductView, slug, siteURL, apiURL string) shareMeta {
	meta := shareMeta{
		Title:       p.Name,
		Description: p.Description,
		URL:         siteURL + "/products/" + url.PathEscape(slug),
	}
	if len(p.Images) > 0 {
		img := p.Images[0].ImageURL
		if !strings.HasPrefix(img, "http://") && !strings.HasPrefix(img, "https://") {
			img = apiURL + "/" + strings.TrimLeft(img, "/")
		}
		meta.Image = img
	}
	return meta
}

func renderShare(meta shareMeta) ([]byte, error) {
	var buf bytes.Buffer
	if err := sharePage.Execute(&buf, meta); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// shareProduct serves crawler-friendly OpenGraph tags for a product link
func (h *Handler) shareProduct(c *gin.Context) {
	slug := c.Param("slug")
	product, err := h.svc.Products.GetProductBySlug(c.Request.Context(), slug)
	if err != nil {
		if service.IsKind(err, service.KindNotFound) {
			c.String(http.StatusNotFound, "Product not found")
			return
		}
		h.respondError(c, err)
		return
	}

	page, err := renderShare(buildShareMeta(product, slug, h.opts.PublicSiteURL, h.opts.PublicAPIURL))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
