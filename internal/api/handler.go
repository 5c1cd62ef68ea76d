package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"profit-guard/internal/broker"
	"profit-guard/internal/models"
	"profit-guard/internal/notify"
	"profit-guard/internal/service"
	"profit-guard/internal/store"
	"profit-guard/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	orchestrator *service.Orchestrator
	dispatcher   *notify.Dispatcher
	publisher    *broker.EventPublisher
	store        *store.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(orchestrator *service.Orchestrator, dispatcher *notify.Dispatcher, publisher *broker.EventPublisher, st *store.Store) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		publisher:    publisher,
		store:        st,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/profit/check", h.checkProfit)
		v1.GET("/orders/:id/profit", h.checkOrderProfit)
		v1.POST("/orders/:id/process", h.processOrder)
		v1.GET("/shadow-logs", h.listShadowLogs)
		v1.POST("/notifications/test", h.testNotification)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// CheckProfitRequest is the standalone profit simulator input
type CheckProfitRequest struct {
	SalePrice    decimal.Decimal  `json:"sale_price" binding:"required"`
	CostPrice    decimal.Decimal  `json:"cost_price"`
	ShippingCost *decimal.Decimal `json:"shipping_cost,omitempty"`
	Marketplace  string           `json:"marketplace" binding:"required"`
	Category     *string          `json:"category,omitempty"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`
	ListingID    *string          `json:"listing_id,omitempty"`
}

// checkProfit runs one standalone profit decision
func (h *Handler) checkProfit(c *gin.Context) {
	var req CheckProfitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.orchestrator.CheckProfit(c.Request.Context(), service.CheckRequest{
		SalePrice:    req.SalePrice,
		CostPrice:    req.CostPrice,
		ShippingCost: req.ShippingCost,
		Marketplace:  req.Marketplace,
		Category:     req.Category,
		ExchangeRate: req.ExchangeRate,
		ListingID:    req.ListingID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Profit check failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"allowed":     result.Allowed,
		"verdict":     result.Verdict,
		"reason":      result.Reason,
		"calculation": result.Calculation,
		"threshold":   result.Threshold,
	})
}

// checkOrderProfit computes the aggregate decision for an order
func (h *Handler) checkOrderProfit(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	summary, err := h.orchestrator.CheckOrderProfit(c.Request.Context(), orderID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrOrderNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Order profit check failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// processOrder runs the full pipeline for one order. With ?async=true
// the order is enqueued as a job instead, going through the same dedup
// path as a webhook delivery.
func (h *Handler) processOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	if c.Query("async") == "true" {
		event := &models.OrderReceivedEvent{OrderID: orderID}
		if err := h.publisher.PublishOrderReceived(c.Request.Context(), event); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to enqueue order",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"order_id": orderID,
			"event_id": event.EventID,
		})
		return
	}

	result, err := h.orchestrator.ProcessOrder(c.Request.Context(), orderID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrOrderNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Order processing failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// listShadowLogs returns recent audit entries, newest first
func (h *Handler) listShadowLogs(c *gin.Context) {
	operation := c.DefaultQuery("operation", "check_profit")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	entries, err := h.store.ListShadowLogs(c.Request.Context(), operation, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list shadow logs",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"operation": operation,
		"entries":   entries,
	})
}

// testNotification dispatches an operator-supplied event
func (h *Handler) testNotification(c *gin.Context) {
	var ev notify.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if ev.Type == "" {
		ev.Type = notify.EventTest
	}
	if ev.Severity == "" {
		ev.Severity = notify.SeverityInfo
	}

	results := h.dispatcher.Send(c.Request.Context(), ev)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func parseOrderID(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return 0, false
	}
	return orderID, true
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
