package handler

import (
	"context"

	tradeapp "github.com/erp/orderledger/internal/application/trade"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderItemHandler handles the per-item endpoints. Each answers with the
// order after the change, or order_deleted when the last item went away.
type OrderItemHandler struct {
	BaseHandler
	orderService *tradeapp.OrderService
}

// NewOrderItemHandler creates a new OrderItemHandler
func NewOrderItemHandler(orderService *tradeapp.OrderService) *OrderItemHandler {
	return &OrderItemHandler{orderService: orderService}
}

type itemAction func(ctx context.Context, actor shared.Actor, itemID uuid.UUID) (*tradeapp.OrderResult, error)

func (h *OrderItemHandler) run(c *gin.Context, action itemAction) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := action(c.Request.Context(), h.actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Update handles PATCH /order-items/:id
func (h *OrderItemHandler) Update(c *gin.Context) {
	var req tradeapp.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, actor shared.Actor, itemID uuid.UUID) (*tradeapp.OrderResult, error) {
		return h.orderService.UpdateItem(ctx, actor, itemID, req)
	})
}

// Delete handles DELETE /order-items/:id
func (h *OrderItemHandler) Delete(c *gin.Context) {
	h.run(c, h.orderService.DeleteItem)
}

// Cancel handles POST /order-items/:id/cancel
func (h *OrderItemHandler) Cancel(c *gin.Context) {
	h.run(c, h.orderService.CancelItem)
}

// RequestCancel handles POST /order-items/:id/request-cancel
func (h *OrderItemHandler) RequestCancel(c *gin.Context) {
	h.run(c, h.orderService.RequestCancelItem)
}

// RejectCancel handles POST /order-items/:id/reject-cancel
func (h *OrderItemHandler) RejectCancel(c *gin.Context) {
	h.run(c, h.orderService.RejectCancelItem)
}
