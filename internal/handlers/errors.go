package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/catalog"
	"github.com/imrishuroy/go-bakery-orderflow/internal/checkout"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
)

// writeError maps service errors onto HTTP responses.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var ve *checkout.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": ve.Fields})
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found", "detail": err.Error()})
	case errors.Is(err, catalog.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found", "detail": err.Error()})
	case errors.Is(err, checkout.ErrRequestInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress", "detail": err.Error()})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "detail": err.Error()})
	}
}
