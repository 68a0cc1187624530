// Package httpapi exposes the back-office operations over HTTP. Handlers are
// thin: multipart/JSON decoding plus status mapping, with all behavior in the
// domain services.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/mbellec/retail-backoffice/internal/dataset"
	importsvc "github.com/mbellec/retail-backoffice/internal/domain/imports/service"
	"github.com/mbellec/retail-backoffice/pkg/storage"
)

// Server bundles the HTTP dependencies.
type Server struct {
	dataset *dataset.Service
	imports *importsvc.Service
	archive storage.Archive
	logger  *slog.Logger
}

// Config tunes the HTTP layer.
type Config struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
	MetricsEnabled     bool
	Registry           *prometheus.Registry
	// Archive enables the upload-archive endpoints when set.
	Archive storage.Archive
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(ds *dataset.Service, imports *importsvc.Service, logger *slog.Logger, cfg Config) *gin.Engine {
	s := &Server{dataset: ds, imports: imports, archive: cfg.Archive, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	if cfg.RateLimitPerSecond > 0 {
		r.Use(rateLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.MetricsEnabled && cfg.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	{
		api.POST("/imports/sales/preview", s.previewSalesImport)
		api.POST("/imports/sales/commit", s.commitSalesImport)
		api.POST("/imports/stock/preview", s.previewStockImport)
		api.POST("/imports/stock/commit", s.commitStockImport)
		if s.archive != nil {
			api.GET("/imports/archive", s.listArchive)
			api.GET("/imports/archive/:id", s.downloadArchive)
			api.DELETE("/imports/archive/:id", s.deleteArchive)
		}

		api.GET("/sales", s.listSales)
		api.POST("/sales", s.createSales)
		api.DELETE("/sales/:id", s.deleteSale)
		api.POST("/sales/bulk-delete", s.bulkDeleteSales)
		api.GET("/sales/export", s.exportSales)
		api.GET("/sales/stats", s.salesStats)
		api.GET("/sales/unmatched", s.unmatchedSales)

		api.GET("/products", s.listProducts)
		api.POST("/products", s.createProduct)
		api.PATCH("/products/:id", s.updateProduct)
		api.DELETE("/products/:id", s.deleteProduct)
		api.GET("/products/search", s.searchProducts)
		api.GET("/products/alerts", s.stockAlerts)

		api.POST("/reconcile", s.reconcile)
	}

	return r
}

// requestLogger logs one line per request with status and latency.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
		)
	}
}

// rateLimiter applies a global token-bucket limit.
func rateLimiter(limit rate.Limit, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// mutationStatus maps a dataset outcome to an HTTP response.
func (s *Server) mutationStatus(c *gin.Context, result dataset.MutationResult) {
	switch result.Outcome {
	case dataset.OutcomeApplied:
		c.JSON(http.StatusOK, gin.H{
			"outcome": result.Outcome,
			"written": result.Written,
		})
	case dataset.OutcomeDegraded:
		// The write persisted but a follow-up step failed; the client gets
		// the truth, not a fake success.
		c.JSON(http.StatusAccepted, gin.H{
			"outcome": result.Outcome,
			"written": result.Written,
			"error":   result.Err.Error(),
		})
	default:
		c.JSON(http.StatusBadGateway, gin.H{
			"outcome": result.Outcome,
			"error":   result.Err.Error(),
		})
	}
}
