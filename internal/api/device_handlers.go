package api

import (
	"net/http"

	"ecom-service/internal/service"

	"github.com/gin-gonic/gin"
)

// uploadDevices imports a CSV or XLSX ledger sent as the "file" field
func (h *Handler) uploadDevices(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file part", err)
		return
	}
	if fh.Filename == "" {
		badRequest(c, "No selected file", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Unreadable file", err)
		return
	}
	defer f.Close()

	res, err := h.svc.Devices.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) searchDevices(c *gin.Context) {
	var body struct {
		SearchTerm string `json:"search_term"`
	}
	if !bindJSON(c, &body) {
		return
	}
	status, err := h.svc.Devices.Search(c.Request.Context(), body.SearchTerm)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) listDevices(c *gin.Context) {
	txns, err := h.svc.Devices.List(c.Request.Context(), c.Query("device_srno"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (h *Handler) addDevice(c *gin.Context) {
	var in service.DeviceInput
	if !bindJSON(c, &in) {
		return
	}
	txn, err := h.svc.Devices.Add(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}
