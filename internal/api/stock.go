package api

import (
	"net/http"
	"strconv"

	"parts-service/internal/models"
	"parts-service/internal/service"

	"github.com/gin-gonic/gin"
)

type receiveRequest struct {
	PartID      int64 `json:"part_id" binding:"required"`
	WarehouseID int64 `json:"warehouse_id" binding:"required"`
	Quantity    int   `json:"quantity"`
}

func (h *Handler) getStock(c *gin.Context) {
	partID, err1 := strconv.ParseInt(c.Query("part_id"), 10, 64)
	warehouseID, err2 := strconv.ParseInt(c.Query("warehouse_id"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "part_id and warehouse_id query parameters are required",
			"code":  "ERR_VALIDATION",
		})
		return
	}

	qty, err := h.svc.Ledger.QuantityOf(c.Request.Context(), partID, warehouseID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StockEntry{PartID: partID, WarehouseID: warehouseID, Quantity: qty})
}

func (h *Handler) assignStock(c *gin.Context) {
	var req models.StockEntry
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	entry, err := h.svc.Ledger.Assign(c.Request.Context(), actorOf(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) receiveStock(c *gin.Context) {
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	entry, err := h.svc.Ledger.Receive(c.Request.Context(), actorOf(c), req.PartID, req.WarehouseID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *Handler) transferStock(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	result, err := h.svc.Transfer.Transfer(c.Request.Context(), actorOf(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
