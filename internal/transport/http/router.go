package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dtstore/storefront/internal/handlers"
	carthandlers "github.com/dtstore/storefront/internal/handlers/cart"
	"github.com/dtstore/storefront/internal/handlers/checkout"
	"github.com/dtstore/storefront/internal/handlers/webhook"
	"github.com/dtstore/storefront/internal/service"
)

type Deps struct {
	DB                *gorm.DB
	AuthHandler       *handlers.AuthHandler
	ProductHandler    *handlers.ProductHandler
	CategoryHandler   *handlers.CategoryHandler
	SearchHandler     *handlers.SearchHandler
	NewsletterHandler *handlers.NewsletterHandler
	OrderHandler      *handlers.OrderHandler
	CartHandler       *carthandlers.CartHandler
	CheckoutHandler   *checkout.Handler
	WebhookHandler    *webhook.Handler
	ServiceHandler    *service.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.GET("/search", d.SearchHandler.Search)
	v1.POST("/newsletter", d.NewsletterHandler.Subscribe)

	// Stripe signs this request itself; no session auth applies.
	v1.POST("/stripe/webhook", d.WebhookHandler.Handle)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/featured", d.ProductHandler.GetFeatured)
	products.GET("/slug/:slug", d.ProductHandler.GetProductBySlug)
	products.GET("/:id", d.ProductHandler.GetProduct)

	categories := v1.Group("/categories")
	categories.GET("", d.CategoryHandler.ListCategories)
	categories.GET("/:slug", d.CategoryHandler.GetBySlug)
	categories.GET("/:slug/products", d.CategoryHandler.GetProducts)

	admin := v1.Group("/admin", d.ServiceHandler.AutoRefreshMiddlewareAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	cart := v1.Group("/cart", d.ServiceHandler.AutoRefreshMiddleware)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("/:id", d.CartHandler.UpdateQuantity)
	cart.DELETE("/:id", d.CartHandler.RemoveItem)
	cart.DELETE("", d.CartHandler.ClearCart)

	checkoutGroup := v1.Group("/checkout", d.ServiceHandler.AutoRefreshMiddleware)
	checkoutGroup.POST("/session", d.CheckoutHandler.CreateSession)

	ordersGroup := v1.Group("/orders", d.ServiceHandler.AutoRefreshMiddleware)
	ordersGroup.GET("", d.OrderHandler.ListMyOrders)
	ordersGroup.GET("/:number", d.OrderHandler.GetByNumber)
}
