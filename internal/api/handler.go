package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ecom-service/internal/service"
	"ecom-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services bundles the business layer the handlers call into
type Services struct {
	Auth      *service.AuthService
	Catalog   *service.CatalogService
	Products  *service.ProductService
	Carts     *service.CartService
	Wishlists *service.WishlistService
	Orders    *service.OrderService
	Customers *service.CustomerService
	Devices   *service.DeviceService
}

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options are the HTTP-facing settings of the handler
type Options struct {
	AllowedOrigins []string
	// PublicSiteURL is the storefront origin used in share links
	PublicSiteURL string
	// PublicAPIURL prefixes relative media URLs in share pages
	PublicAPIURL string
	// MediaDir is served at MediaURL when images are stored locally
	MediaDir         string
	MediaURL         string
	OAuthRedirect    string
	MaxUploadBytes   int64
	ReadinessTimeout time.Duration
}

// Handler contains HTTP handlers
type Handler struct {
	svc    Services
	feed   *FeedHub
	checks map[string]Pinger
	opts   Options
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler. feed may be nil when the live
// order feed is disabled.
func NewHandler(svc Services, feed *FeedHub, checks map[string]Pinger, opts Options) *Handler {
	if opts.ReadinessTimeout == 0 {
		opts.ReadinessTimeout = 2 * time.Second
	}
	if opts.MaxUploadBytes == 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Handler{
		svc:    svc,
		feed:   feed,
		checks: checks,
		opts:   opts,
		logger: util.Named("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(corsMiddleware(h.opts.AllowedOrigins))
	router.Use(securityHeaders())
	router.MaxMultipartMemory = h.opts.MaxUploadBytes

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.opts.MediaDir != "" && h.opts.MediaURL != "" {
		router.Static(h.opts.MediaURL, h.opts.MediaDir)
	}
	router.GET("/share/products/:slug", h.shareProduct)

	v1 := router.Group("/api/v1")
	authed := h.requireAuth()
	admin := []gin.HandlerFunc{authed, requireAdmin()}

	a := v1.Group("/auth")
	{
		a.POST("/signup", h.signup)
		a.POST("/admin-signup", h.adminSignup)
		a.POST("/login", h.login)
		a.POST("/logout", authed, h.logout)
		a.GET("/check", h.checkAuth)
		a.GET("/me", authed, h.me)
		a.GET("/google/login", h.googleLogin)
		a.GET("/google/callback", h.googleCallback)
	}

	v1.GET("/categories", h.listCategories)
	v1.GET("/categories/:id/products", h.productsByCategory)
	v1.POST("/categories", append(admin, h.createCategory)...)
	v1.PUT("/categories/:id", append(admin, h.updateCategory)...)
	v1.DELETE("/categories/:id", append(admin, h.deleteCategory)...)
	v1.POST("/subcategories", append(admin, h.createSubcategory)...)
	v1.PUT("/subcategories/:id", append(admin, h.updateSubcategory)...)
	v1.DELETE("/subcategories/:id", append(admin, h.deleteSubcategory)...)
	v1.GET("/hsn", h.listHSN)
	v1.POST("/hsn", append(admin, h.createHSN)...)
	v1.PUT("/hsn/:id", append(admin, h.updateHSN)...)
	v1.DELETE("/hsn/:id", append(admin, h.deleteHSN)...)
	v1.GET("/states", h.listStates)

	p := v1.Group("/products")
	{
		p.GET("", h.listProducts)
		p.GET("/slug/:slug", h.productBySlug)
		p.GET("/stock-status", append(admin, h.stockStatus)...)
		p.GET("/export", append(admin, h.exportProducts)...)
		p.GET("/:id", h.getProduct)
		p.GET("/:id/similar", h.similarProducts)
		p.PATCH("/:id/rating", authed, h.rateProduct)

		p.POST("", append(admin, h.createProduct)...)
		p.PUT("/:id", append(admin, h.updateProduct)...)
		p.PATCH("/:id", append(admin, h.updateProduct)...)
		p.DELETE("/:id", append(admin, h.deleteProduct)...)
		p.PUT("/:id/offer", append(admin, h.setOffer)...)
		p.PUT("/:id/category", append(admin, h.setCategory)...)
		p.PUT("/:id/subcategory", append(admin, h.setSubcategory)...)
		p.PUT("/:id/categorization", append(admin, h.setCategorization)...)
		p.PUT("/:id/hsn", append(admin, h.setHSN)...)

		p.POST("/:id/cover-image", append(admin, h.replaceCoverImage)...)
		p.POST("/:id/images", append(admin, h.addImage)...)
		p.PUT("/:id/images/:image_id", append(admin, h.replaceImage)...)
		p.DELETE("/:id/images/:image_id", append(admin, h.deleteImage)...)

		p.POST("/:id/models", append(admin, h.addModel)...)
		p.PUT("/:id/models/:model_id", append(admin, h.updateModel)...)
		p.DELETE("/:id/models/:model_id", append(admin, h.deleteModel)...)

		p.POST("/:id/colors", append(admin, h.addColor)...)
		p.PUT("/:id/colors/:color_id", append(admin, h.updateColor)...)
		p.PATCH("/:id/colors/:color_id", append(admin, h.patchColor)...)
		p.DELETE("/:id/colors/:color_id", append(admin, h.deleteColor)...)

		p.POST("/:id/specifications", append(admin, h.addProductSpec)...)
		p.PUT("/:id/specifications/:spec_id", append(admin, h.updateProductSpec)...)
		p.DELETE("/:id/specifications/:spec_id", append(admin, h.deleteProductSpec)...)

		p.POST("/:id/models/:model_id/specifications", append(admin, h.addModelSpec)...)
		p.PUT("/:id/models/:model_id/specifications/:spec_id", append(admin, h.updateModelSpec)...)
		p.DELETE("/:id/models/:model_id/specifications/:spec_id", append(admin, h.deleteModelSpec)...)
	}

	cart := v1.Group("/cart", authed)
	{
		cart.GET("", h.getCart)
		cart.DELETE("", h.clearCart)
		cart.POST("/items", h.addCartItem)
		cart.PUT("/items/:item_id", h.updateCartItem)
		cart.DELETE("/items/:item_id", h.removeCartItem)
	}

	wl := v1.Group("/wishlist", authed)
	{
		wl.GET("", h.getWishlist)
		wl.POST("/items", h.addWishlistItem)
		wl.DELETE("/items/:item_id", h.removeWishlistItem)
		wl.POST("/items/:item_id/move-to-cart", h.moveWishlistItem)
	}

	orders := v1.Group("/orders", authed)
	{
		orders.POST("/checkout", h.checkout)
		orders.POST("", h.placeOrder)
		orders.GET("", h.listMyOrders)
		orders.GET("/:id", h.getOrder)
		orders.POST("/:id/cancel", h.cancelOrder)
		orders.PUT("/:id/delivery-status", requireAdmin(), h.updateDeliveryStatus)
		orders.PUT("/:id/payment-status", requireAdmin(), h.updatePaymentStatus)
		orders.PUT("/:id/shipment", requireAdmin(), h.updateShipment)
	}
	v1.GET("/order-history", authed, h.orderHistory)

	adm := v1.Group("/admin")
	{
		adm.GET("/orders", append(admin, h.listAllOrders)...)
		// browsers cannot set headers on a websocket handshake
		adm.GET("/orders/feed", h.requireAuthQuery(), requireAdmin(), h.orderFeed)
	}

	oc := v1.Group("/offline-customers", admin...)
	{
		oc.POST("", h.createOfflineCustomer)
		oc.GET("", h.listOfflineCustomers)
		oc.GET("/:id", h.getOfflineCustomer)
		oc.PUT("/:id", h.updateOfflineCustomer)
		oc.DELETE("/:id", h.deleteOfflineCustomer)
		oc.POST("/:id/addresses", h.addOfflineAddress)
		oc.GET("/:id/addresses", h.listOfflineAddresses)
	}

	addr := v1.Group("/addresses", authed)
	{
		addr.GET("", h.listAddresses)
		addr.POST("", h.addAddress)
		addr.PUT("/:id", h.updateAddress)
		addr.DELETE("/:id", h.deleteAddress)
	}

	dev := v1.Group("/devices")
	{
		dev.GET("", authed, h.listDevices)
		dev.POST("", append(admin, h.addDevice)...)
		dev.POST("/upload", append(admin, h.uploadDevices)...)
		dev.POST("/search", authed, h.searchDevices)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.ReadinessTimeout)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

var statusByKind = map[service.Kind]int{
	service.KindNotFound:        http.StatusNotFound,
	service.KindInvalid:         http.StatusBadRequest,
	service.KindConflict:        http.StatusConflict,
	service.KindForbidden:       http.StatusForbidden,
	service.KindUnauthorized:    http.StatusUnauthorized,
	service.KindTooManyRequests: http.StatusTooManyRequests,
}

// respondError writes a service error with its mapped status. Anything
// else is logged and reported as a 500 without internals.
func (h *Handler) respondError(c *gin.Context, err error) {
	if se, ok := service.AsError(err); ok {
		if status, known := statusByKind[se.Kind]; known {
			c.JSON(status, gin.H{"error": se.Message})
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		c.Status(499)
		return
	}

	h.logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal server error",
		"details": http.StatusText(http.StatusInternalServerError),
	})
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// bindJSON decodes the body and answers 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "Invalid request body", err)
		return false
	}
	return true
}

// pathID parses a positive integer path parameter
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name, nil)
		return 0, false
	}
	return id, true
}

func pathIDs(c *gin.Context, names ...string) ([]int64, bool) {
	ids := make([]int64, len(names))
	for i, n := range names {
		id, ok := pathID(c, n)
		if !ok {
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}
