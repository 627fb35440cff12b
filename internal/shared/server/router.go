package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"contract-analyzer/internal/services/health"
	"contract-analyzer/internal/sessions"
	"contract-analyzer/internal/shared/config"
	"contract-analyzer/internal/shared/metrics"
	"contract-analyzer/internal/shared/server/middleware"
	"contract-analyzer/internal/shared/server/respond"
)

const modelRateLimitGroup = "MODEL"

// RouterDeps holds the handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	SessionsHandler *sessions.Handler
	Health          *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: modelGroup,
			Rules: map[string]middleware.RateLimitRule{
				modelRateLimitGroup: middleware.PerMinute(deps.Config.ModelRateLimit),
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	if deps.SessionsHandler != nil {
		deps.SessionsHandler.RegisterRoutes(api)
	}

	return r
}

// modelGroup puts the routes that call the model into their own limit group.
func modelGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	path := c.FullPath()
	if strings.HasSuffix(path, "/analyze") || strings.HasSuffix(path, "/chat") {
		return modelRateLimitGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
