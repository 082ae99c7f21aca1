package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"parts-service/internal/service"
	"parts-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Services groups the core components the handlers call
type Services struct {
	Orders   *service.OrderService
	Statuses *service.OrderStatusMachine
	Payments *service.PaymentTracker
	Deletion *service.OrderDeletionService
	Ledger   *service.StockLedger
	Transfer *service.StockTransferService
}

// Handler contains HTTP handlers
type Handler struct {
	svc    Services
	checks map[string]ReadinessCheck
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, checks map[string]ReadinessCheck) *Handler {
	return &Handler{
		svc:    svc,
		checks: checks,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	// payment routes answer with the {success, ...} envelope, failures included
	payments := v1.Group("/orders/:id/payments", envelopeResponses(), actorMiddleware(), requireActor())
	{
		payments.POST("", h.addPayment)
		payments.POST("/full", h.markFullyPaid)
		payments.POST("/reset", h.resetPayment)
	}

	api := v1.Group("", actorMiddleware())
	{
		api.POST("/orders", requireActor(), h.createOrder)
		api.GET("/orders/:id", h.getOrder)
		api.GET("/orders/:id/history", h.getOrderHistory)
		api.PATCH("/orders/:id", requireActor(), h.updateOrder)
		api.PUT("/orders/:id/status", requireActor(), h.transitionOrder)
		api.DELETE("/orders/:id", requireActor(), h.deleteOrder)

		api.GET("/stock", h.getStock)
		api.POST("/stock", requireActor(), h.assignStock)
		api.POST("/stock/receive", requireActor(), h.receiveStock)
		api.POST("/stock/transfer", requireActor(), h.transferStock)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck runs every registered dependency check
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = "unavailable"
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "not ready",
			"dependencies": failed,
			"time":         time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, "ERR_VALIDATION", "Invalid order ID")
		return 0, false
	}
	return id, true
}

func badBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"code":    "ERR_VALIDATION",
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// requestLogger replaces gin.Logger with structured access logs
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
