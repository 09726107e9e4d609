package restapi

import (
	"net/http"
	"strconv"
	"time"

	"chainfolio/internal/config"
	"chainfolio/internal/pkg/metrics"
	"chainfolio/internal/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter configures the gin engine: CORS, request logging, metrics
// and the versioned API group.
func SetupRouter(portfolioHandler *PortfolioHandler, cfg *config.Config, zapLogger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ZapLoggerMiddleware(zapLogger))
	router.Use(cors.Default())
	router.Use(latencyMiddleware())

	rateLimiter := NewAddressRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)

	v1 := router.Group("/api/v1")
	v1.Use(rateLimiter.Middleware())
	{
		v1.GET("/portfolio", portfolioHandler.GetPortfolioHandler)
		v1.GET("/transactions", portfolioHandler.GetTransactionsHandler)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func latencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
