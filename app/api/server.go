package api

import (
	"github.com/gin-gonic/gin"
)

// NewServer builds the gin engine with the host-side endpoints. The scraping
// core has no network surface of its own; this is a thin reporting wrapper.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	return r
}
