package api

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	intconfig "dispatch/internal/config"
	h "dispatch/internal/http/handlers"
	"dispatch/internal/http/middleware"
	"dispatch/internal/utils"
)

// dispatchRoles may issue and confirm actions when tokens are enforced.
var dispatchRoles = []string{"owner", "admin", "dispatcher"}

// NewRouter mounts the dispatch API. gatherer backs /metrics; nil uses the
// default registry.
func NewRouter(env intconfig.Env, api *h.API, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.L().Warn("failed to set trusted proxies", zap.Error(err))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"ok":      false,
			"error":   "NotFound",
			"message": "route tidak ditemukan",
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		})
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", h.Health)
		apiGroup.GET("/db-check", h.DBCheck)
		apiGroup.GET("/routes", h.Routes)

		secured := apiGroup.Group("")
		secured.Use(middleware.Identity(env.JWTSecret))
		if env.JWTSecret != "" {
			secured.Use(middleware.RequireRoles(dispatchRoles...))
		}

		actions := secured.Group("/actions")
		actions.POST("", api.PostAction)
		actions.POST("/command", api.PostCommand)
		actions.GET("/sessions/:id", api.GetSession)
		actions.POST("/sessions/:id/confirm", api.ConfirmSession)

		trips := secured.Group("/trips")
		trips.GET("/:id/consequences", api.GetConsequences)
		trips.GET("/:id/audit", api.GetTripAudit)
		trips.GET("/:id/audit.pdf", api.GetTripAuditPDF)

		secured.GET("/availability", api.GetAvailability)
	}

	h.SetRouter(r)
	return r
}
