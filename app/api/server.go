package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler) {
	// Source routes
	r.GET("/whu/rsgis", handler.GetWhuRsgis)
	r.GET("/whu/rsgis/:type", handler.GetWhuRsgis)
	r.GET("/whu/rsgis/:type/:sub", handler.GetWhuRsgis)

	r.GET("/bilibili/user/video-podcast/:uid", handler.GetBilibiliPodcast)
	r.GET("/bilibili/user/video-podcast/:uid/:embed", handler.GetBilibiliPodcast)

	// Media passthrough consumed by emitted enclosure URLs
	r.GET("/proxy/:provider", handler.GetProxy)

	// Health and status endpoints
	r.GET("/health", handler.GetHealth)

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "RSSHub",
			"description": "Everything is RSSable",
			"endpoints": map[string]string{
				"whu/rsgis":              "/whu/rsgis/<type>/<sub>",
				"bilibili video podcast": "/bilibili/user/video-podcast/<uid>/<embed?>",
				"proxy":                  "/proxy/<provider>?url=<percent-encoded url>",
				"health":                 "/health",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
