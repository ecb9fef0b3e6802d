package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/imrishuroy/go-bakery-orderflow/internal/checkout"
	"github.com/imrishuroy/go-bakery-orderflow/internal/metrics"
	"github.com/imrishuroy/go-bakery-orderflow/internal/notify"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
	"github.com/imrishuroy/go-bakery-orderflow/internal/validation"
)

// OrderService is implemented by *checkout.Service.
type OrderService interface {
	CreateOrder(ctx context.Context, req validation.CreateOrderRequest, idempotencyKey string) (*checkout.Created, error)
	Quote(ctx context.Context, req validation.QuoteRequest) (*checkout.Quote, error)
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	List(ctx context.Context, status string, limit int) ([]orders.Order, error)
	Update(ctx context.Context, orderID string, u orders.Update) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*orders.Order, error)
	Delete(ctx context.Context, orderID string) error
	ResendNotifications(ctx context.Context, orderID string) (*notify.Result, error)
	NotificationStatus(ctx context.Context, orderID string) (orders.NotificationStatus, error)
}

// HandlerConfig groups dependencies for the orders handler.
type HandlerConfig struct {
	Service OrderService
	Logger  *zap.Logger
	// OrderLimiter throttles POST /orders; nil disables it.
	OrderLimiter *rate.Limiter
}

type updateOrderRequest struct {
	Status               *string `json:"status"`
	Landmark             *string `json:"landmark"`
	DeliveryInstructions *string `json:"deliveryInstructions"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// RegisterOrdersRoutes registers routes for order API.
func RegisterOrdersRoutes(r gin.IRouter, cfg HandlerConfig) {
	v := validation.New()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := cfg.Service

	r.POST("/orders", RateLimit(cfg.OrderLimiter), func(c *gin.Context) {
		ctx := c.Request.Context()

		var raw validation.RawOrderRequest
		if err := validation.BindJSON(c, &raw); err != nil {
			// BindJSON already wrote a 400
			return
		}

		created, err := svc.CreateOrder(ctx, raw.Normalize(), c.GetHeader("Idempotency-Key"))
		if err != nil {
			metrics.RecordOrderOperation("create", false)
			writeError(c, logger, err)
			return
		}
		metrics.RecordOrderOperation("create", true)

		status := http.StatusCreated
		if created.Replayed {
			status = http.StatusOK
		}
		o := created.Order
		c.Header("Location", fmt.Sprintf("/orders/%s", o.OrderID))
		c.JSON(status, gin.H{
			"orderId":            o.OrderID,
			"orderNumber":        o.OrderNumber,
			"status":             o.Status,
			"notificationStatus": created.NotificationState,
			"replayed":           created.Replayed,
			"order":              o,
		})
	})

	r.GET("/orders", func(c *gin.Context) {
		limit := 0
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": gin.H{"limit": "must be a non-negative integer"}})
				return
			}
			limit = n
		}
		list, err := svc.List(c.Request.Context(), c.Query("status"), limit)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		o, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, o)
	})

	r.PUT("/orders/:id", func(c *gin.Context) {
		var req updateOrderRequest
		if err := validation.BindJSON(c, &req); err != nil {
			return
		}
		u := orders.Update{Landmark: req.Landmark, DeliveryInstructions: req.DeliveryInstructions}
		if req.Status != nil {
			st := orders.Status(*req.Status)
			u.Status = &st
		}
		o, err := svc.Update(c.Request.Context(), c.Param("id"), u)
		if err != nil {
			metrics.RecordOrderOperation("update", false)
			writeError(c, logger, err)
			return
		}
		metrics.RecordOrderOperation("update", true)
		c.JSON(http.StatusOK, o)
	})

	r.PUT("/orders/:id/status", func(c *gin.Context) {
		var req statusRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		o, err := svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			metrics.RecordOrderOperation("update_status", false)
			writeError(c, logger, err)
			return
		}
		metrics.RecordOrderOperation("update_status", true)
		c.JSON(http.StatusOK, o)
	})

	r.DELETE("/orders/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			metrics.RecordOrderOperation("delete", false)
			writeError(c, logger, err)
			return
		}
		metrics.RecordOrderOperation("delete", true)
		c.Status(http.StatusNoContent)
	})

	r.POST("/orders/:id/notifications/resend", func(c *gin.Context) {
		res, err := svc.ResendNotifications(c.Request.Context(), c.Param("id"))
		if err != nil {
			metrics.RecordOrderOperation("resend", false)
			writeError(c, logger, err)
			return
		}
		metrics.RecordOrderOperation("resend", true)
		c.JSON(http.StatusOK, res)
	})

	r.GET("/orders/:id/notifications/status", func(c *gin.Context) {
		id := c.Param("id")
		ns, err := svc.NotificationStatus(c.Request.Context(), id)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orderId": id, "notificationStatus": ns})
	})

	r.POST("/checkout/quote", func(c *gin.Context) {
		var raw validation.RawQuoteRequest
		if err := validation.BindJSON(c, &raw); err != nil {
			return
		}
		q, err := svc.Quote(c.Request.Context(), raw.Normalize())
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, q)
	})
}

var _ OrderService = (*checkout.Service)(nil)
