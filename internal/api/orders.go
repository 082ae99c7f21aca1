package api

import (
	"net/http"

	"parts-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type transitionRequest struct {
	StatusID int64  `json:"status_id" binding:"required"`
	Comment  string `json:"comment"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, err := h.svc.Orders.CreateOrder(c.Request.Context(), actorOf(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	order, err := h.svc.Orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) getOrderHistory(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	history, err := h.svc.Orders.GetStatusHistory(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *Handler) updateOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	var upd service.OrderUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badBody(c, err)
		return
	}

	order, err := h.svc.Orders.UpdateOrder(c.Request.Context(), actorOf(c), orderID, &upd)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) transitionOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	order, err := h.svc.Statuses.Transition(c.Request.Context(), actorOf(c), orderID, req.StatusID, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) deleteOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	restored, err := h.svc.Deletion.DeleteOrder(c.Request.Context(), actorOf(c), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "order deleted",
		"order_id": orderID,
		"restored": restored,
	})
}

func (h *Handler) addPayment(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"code":    "ERR_VALIDATION",
		})
		return
	}

	order, err := h.svc.Payments.AddPartialPayment(c.Request.Context(), actorOf(c), orderID, req.Amount)
	if err != nil {
		h.respondEnvelopeError(c, err)
		return
	}
	respondEnvelope(c, order)
}

func (h *Handler) markFullyPaid(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	order, err := h.svc.Payments.MarkFullyPaid(c.Request.Context(), actorOf(c), orderID)
	if err != nil {
		h.respondEnvelopeError(c, err)
		return
	}
	respondEnvelope(c, order)
}

func (h *Handler) resetPayment(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	order, err := h.svc.Payments.ResetPayment(c.Request.Context(), actorOf(c), orderID)
	if err != nil {
		h.respondEnvelopeError(c, err)
		return
	}
	respondEnvelope(c, order)
}
