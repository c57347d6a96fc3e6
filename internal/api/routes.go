package api

import (
	"os"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evemgr/pricing-core/internal/api/handlers"
	"github.com/evemgr/pricing-core/internal/config"
	"github.com/evemgr/pricing-core/internal/metrics"
	"github.com/evemgr/pricing-core/internal/services"
)

func SetupRouter(
	appraisalService *services.AppraisalService,
	pricingService *services.PricingService,
	marketDataService *services.MarketDataService,
	cfg *config.Config,
) *gin.Engine {
	router := gin.Default()

	// CORS configuration - allow origins from environment or use defaults
	corsConfig := cors.DefaultConfig()
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-User-ID", "X-Privileged"}
	router.Use(cors.New(corsConfig))

	router.Use(requestMetrics())

	// Initialize handlers
	appraisalHandler := handlers.NewAppraisalHandler(appraisalService)
	priceHandler := handlers.NewPriceHandler(pricingService, marketDataService, cfg)
	subscriptionHandler := handlers.NewSubscriptionHandler(pricingService)

	// API routes
	api := router.Group("/api")
	{
		appraisals := api.Group("/appraisals")
		{
			appraisals.POST("", appraisalHandler.CreateAppraisal)
			appraisals.GET("", appraisalHandler.ListAppraisals)
			appraisals.GET("/:id", appraisalHandler.GetAppraisal)
			appraisals.DELETE("/:id", appraisalHandler.DeleteAppraisal)
		}

		prices := api.Group("/prices")
		{
			prices.GET("", priceHandler.GetPrices)
			prices.GET("/trend", priceHandler.GetTrend)
			prices.GET("/status", priceHandler.GetStatus)
			prices.POST("/refresh", priceHandler.RefreshPrices)
			prices.POST("/cleanup", priceHandler.Cleanup(appraisalService))
		}

		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.POST("", subscriptionHandler.Subscribe)
			subscriptions.DELETE("", subscriptionHandler.Unsubscribe)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestMetrics counts requests by method, route template, and status.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}
