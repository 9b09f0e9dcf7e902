// Package httpapi exposes the listing service over HTTP with gin.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"LensInventory/internal/domain"
	"LensInventory/internal/platform"
	"LensInventory/internal/usecase"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	defaultMaxImageBytes = 10 << 20
)

// ListingGenerator is the slice of the listing service the API drives.
type ListingGenerator interface {
	FromImage(ctx context.Context, req usecase.ImageRequest) (domain.GenerationResult, error)
	FromAnalysis(ctx context.Context, requestID string, analysis domain.ProductAnalysis, platforms []string) (domain.GenerationResult, error)
	Recent(ctx context.Context, limit int) ([]domain.GeneratedListing, error)
}

// Deps wires the router.
type Deps struct {
	Listings      ListingGenerator
	Platforms     *platform.Registry
	Logger        *slog.Logger
	MaxImageBytes int64
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(deps Deps) *gin.Engine {
	h := &handler{
		listings:      deps.Listings,
		platforms:     deps.Platforms,
		logger:        deps.Logger,
		maxImageBytes: deps.MaxImageBytes,
	}
	if h.maxImageBytes <= 0 {
		h.maxImageBytes = defaultMaxImageBytes
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(deps.Logger))

	router.GET("/", h.welcome)
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/platforms", h.listPlatforms)
	router.POST("/analyze", h.analyze)
	router.POST("/listings", h.generate)
	router.GET("/listings/recent", h.recent)

	return router
}

// requestID echoes the caller's X-Request-ID or generates a fresh one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger == nil {
			return
		}
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		)
	}
}
