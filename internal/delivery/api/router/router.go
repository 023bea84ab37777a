// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"storefront/internal/delivery/api/middleware"
	"storefront/internal/delivery/api/router/handler"
	"storefront/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler       *handler.AuthHandler
	CatalogHandler    *handler.CatalogHandler
	CartHandler       *handler.CartHandler
	OrderHandler      *handler.OrderHandler
	AdminOrderHandler *handler.AdminOrderHandler
	DeviceHandler     *handler.DeviceHandler
	AuthMiddleware    *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler       *handler.AuthHandler
	catalogHandler    *handler.CatalogHandler
	cartHandler       *handler.CartHandler
	orderHandler      *handler.OrderHandler
	adminOrderHandler *handler.AdminOrderHandler
	deviceHandler     *handler.DeviceHandler
	authMiddleware    *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:       params.AuthHandler,
		catalogHandler:    params.CatalogHandler,
		cartHandler:       params.CartHandler,
		orderHandler:      params.OrderHandler,
		adminOrderHandler: params.AdminOrderHandler,
		deviceHandler:     params.DeviceHandler,
		authMiddleware:    params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	authenticate := r.authMiddleware.Authenticate
	adminOnly := r.authMiddleware.RequireRoles(entity.AdminRoles...)

	e.GET("/health", handler.HealthCheck)

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/refresh", r.authHandler.Refresh)
	}

	e.GET("/me", r.authHandler.Me, authenticate)

	// Catalog reads are public; writes need a back-office role.
	e.GET("/search", r.catalogHandler.Search)
	e.GET("/categories", r.catalogHandler.ListCategories)
	e.POST("/categories", r.catalogHandler.CreateCategory, authenticate, adminOnly)

	productsGroup := e.Group("/products")
	{
		productsGroup.GET("", r.catalogHandler.ListProducts)
		productsGroup.GET("/:id", r.catalogHandler.GetProduct)
		productsGroup.POST("", r.catalogHandler.CreateProduct, authenticate, adminOnly)
		productsGroup.PUT("/:id", r.catalogHandler.UpdateProduct, authenticate, adminOnly)
		productsGroup.DELETE("/:id", r.catalogHandler.DeleteProduct, authenticate, adminOnly)
		productsGroup.POST("/:id/reviews", r.catalogHandler.AddReview, authenticate)
	}

	cartGroup := e.Group("/cart", authenticate)
	{
		cartGroup.GET("", r.cartHandler.ListItems)
		cartGroup.POST("", r.cartHandler.AddItem)
		cartGroup.DELETE("", r.cartHandler.Clear)
		cartGroup.PUT("/:id", r.cartHandler.UpdateItem)
		cartGroup.DELETE("/:id", r.cartHandler.RemoveItem)
	}

	ordersGroup := e.Group("/orders", authenticate)
	{
		ordersGroup.POST("", r.orderHandler.CreateOrder)
		ordersGroup.GET("", r.orderHandler.ListOrders)
		ordersGroup.GET("/:id", r.orderHandler.GetOrder)
		ordersGroup.GET("/:id/qr", r.orderHandler.GetOrderQR)
	}

	devicesGroup := e.Group("/devices", authenticate)
	{
		devicesGroup.POST("", r.deviceHandler.RegisterDevice)
		devicesGroup.GET("", r.deviceHandler.GetUserDevices)
		devicesGroup.PUT("/:id/token", r.deviceHandler.UpdateFCMToken)
		devicesGroup.DELETE("/:id", r.deviceHandler.DeactivateDevice)
	}

	adminGroup := e.Group("/admin", authenticate, adminOnly)
	{
		adminGroup.GET("/products", r.catalogHandler.ListAllProducts)

		adminGroup.GET("/orders", r.adminOrderHandler.ListOrders)
		adminGroup.PATCH("/orders", r.adminOrderHandler.UpdateOrder)
		adminGroup.GET("/orders/:id", r.adminOrderHandler.GetOrder)
		adminGroup.PATCH("/orders/:id", r.adminOrderHandler.UpdateOrder)
		adminGroup.POST("/orders/:id/items", r.adminOrderHandler.AddItem)
		adminGroup.DELETE("/orders/:id/items/:itemId", r.adminOrderHandler.RemoveItem)
	}
}
