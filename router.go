package main

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/shopswift-api/common/auth"
	apperrors "github.com/yashrajoria/shopswift-api/common/errors"
	"github.com/yashrajoria/shopswift-api/common/logger"
	commonmw "github.com/yashrajoria/shopswift-api/common/middleware"
	"github.com/yashrajoria/shopswift-api/controllers"
	"github.com/yashrajoria/shopswift-api/middleware"
	"github.com/yashrajoria/shopswift-api/routes"
)

type routerDeps struct {
	Orders  *controllers.OrderController
	Carts   *controllers.CartController
	Health  *controllers.HealthController
	Metrics commonmw.MetricsRecorder

	IPLimiter   *commonmw.RateLimiter
	UserLimiter *commonmw.RateLimiter
}

// newRouter builds the HTTP engine. Every request, health checks and
// unauthenticated calls included, is limited per client IP; protected routes
// are additionally limited per user once authenticated.
func newRouter(cfg *Config, d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(commonmw.RequestID())
	r.Use(commonmw.RequestLogger(logger.Log))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORS(cfg.AllowedOrigins))
	r.Use(commonmw.RateLimitMiddleware(d.IPLimiter, nil))
	r.Use(commonmw.Timeout(cfg.RequestTimeout))
	if d.Metrics != nil {
		r.Use(commonmw.Metrics(d.Metrics, cfg.ServiceName))
	}
	r.Use(apperrors.ErrorMiddleware())

	authMW := middleware.AuthMiddleware(middleware.AuthConfig{
		Parser:              auth.NewTokenParser(cfg.JWTSecret),
		TrustGatewayHeaders: cfg.TrustGatewayHeaders,
	})
	protect := []gin.HandlerFunc{authMW, commonmw.RateLimitMiddleware(d.UserLimiter, middleware.RateLimitKey)}

	api := r.Group("/api")
	routes.RegisterHealthRoutes(api, d.Health)
	routes.RegisterOrderRoutes(api, d.Orders, protect...)
	routes.RegisterCartRoutes(api, d.Carts, protect...)
	return r
}
