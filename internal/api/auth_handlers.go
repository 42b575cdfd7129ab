package api

import (
	"net/http"
	"net/url"

	"ecom-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) signup(c *gin.Context) {
	var req service.SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) adminSignup(c *gin.Context) {
	var req service.SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.AdminSignup(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), claimsFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// checkAuth never fails; clients poll it to decide what to render
func (h *Handler) checkAuth(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Auth.Check(c.Request.Context(), bearerToken(c)))
}

func (h *Handler) me(c *gin.Context) {
	customer, err := h.svc.Auth.Me(c.Request.Context(), claimsFrom(c).CustomerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) googleLogin(c *gin.Context) {
	target, err := h.svc.Auth.GoogleLoginURL(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// googleCallback hands the token to the storefront when a redirect target
// is configured and answers JSON otherwise.
func (h *Handler) googleCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		badRequest(c, "Google login was cancelled", nil)
		return
	}
	res, err := h.svc.Auth.GoogleCallback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if h.opts.OAuthRedirect == "" {
		c.JSON(http.StatusOK, res)
		return
	}
	target, err := url.Parse(h.opts.OAuthRedirect)
	if err != nil {
		h.respondError(c, err)
		return
	}
	q := target.Query()
	q.Set("token", res.Token)
	target.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, target.String())
}
