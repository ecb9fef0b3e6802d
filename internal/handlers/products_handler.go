package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/catalog"
)

// RegisterProductRoutes exposes the read-only catalog.
func RegisterProductRoutes(r gin.IRouter, reader catalog.Reader, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r.GET("/products", func(c *gin.Context) {
		list, err := reader.List(c.Request.Context(), c.Query("category"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		if list == nil {
			list = []catalog.Product{}
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/products/:id", func(c *gin.Context) {
		p, err := reader.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})
}
