package handler

import (
	catalogapp "github.com/erp/orderledger/internal/application/catalog"
	"github.com/gin-gonic/gin"
)

// BundleHandler handles the bundle endpoints
type BundleHandler struct {
	BaseHandler
	bundleService *catalogapp.BundleService
}

// NewBundleHandler creates a new BundleHandler
func NewBundleHandler(bundleService *catalogapp.BundleService) *BundleHandler {
	return &BundleHandler{bundleService: bundleService}
}

// Create handles POST /bundles. Posting for a product that already has a
// bundle adds the components to it.
func (h *BundleHandler) Create(c *gin.Context) {
	var req catalogapp.CreateBundleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	bundle, err := h.bundleService.CreateBundle(c.Request.Context(), h.actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, bundle)
}

// Get handles GET /bundles/:id
func (h *BundleHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	bundle, err := h.bundleService.GetBundle(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bundle)
}

// Update handles PUT /bundles/:id
func (h *BundleHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req catalogapp.UpdateBundleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	bundle, err := h.bundleService.UpdateBundle(c.Request.Context(), h.actor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bundle)
}

// Delete handles DELETE /bundles/:id
func (h *BundleHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.bundleService.DeleteBundle(c.Request.Context(), h.actor(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
