package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/shopswift-api/controllers"
	"github.com/yashrajoria/shopswift-api/middleware"
)

// RegisterOrderRoutes sets up the order endpoints. protect runs before every
// handler, typically auth followed by the per-user rate limit.
func RegisterOrderRoutes(r *gin.RouterGroup, oc *controllers.OrderController, protect ...gin.HandlerFunc) {
	orderRoutes := r.Group("/orders")
	orderRoutes.Use(protect...)

	orderRoutes.POST("", oc.CreateOrder)
	// must stay ahead of /:id
	orderRoutes.GET("/myorders", oc.GetMyOrders)
	orderRoutes.GET("/:id", oc.GetOrderByID)

	adminRoutes := orderRoutes.Group("")
	adminRoutes.Use(middleware.AdminOnly())
	adminRoutes.GET("", oc.GetOrders)
	adminRoutes.PUT("/:id/deliver", oc.MarkDelivered)
}

// RegisterCartRoutes sets up the cart endpoints for the caller's own cart.
func RegisterCartRoutes(r *gin.RouterGroup, cc *controllers.CartController, protect ...gin.HandlerFunc) {
	cartRoutes := r.Group("/cart")
	cartRoutes.Use(protect...)

	cartRoutes.GET("", cc.GetCart)
	cartRoutes.POST("", cc.AddItem)
	cartRoutes.PUT("/:itemId", cc.UpdateItem)
	cartRoutes.DELETE("/:itemId", cc.RemoveItem)
}

func RegisterHealthRoutes(r *gin.RouterGroup, hc *controllers.HealthController) {
	r.GET("/health", hc.Health)
}
