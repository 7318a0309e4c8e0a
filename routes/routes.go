package routes

import (
	"net/http"

	"github.com/antonioqueb/ooak/controllers"
	"github.com/antonioqueb/ooak/middleware"
	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds Stripe event payloads.
const maxWebhookBody = 1 << 20

type Controllers struct {
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Webhook  *controllers.WebhookController
	Content  *controllers.ContentController
}

// RegisterRoutes mounts the storefront API. limit applies to browser-facing
// routes only; Stripe deliveries are never rate limited.
func RegisterRoutes(r *gin.Engine, h Controllers, limit gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "storefront"})
	})

	r.POST("/api/webhooks/stripe", middleware.BodyLimit(maxWebhookBody), h.Webhook.StripeWebhook)

	api := r.Group("/api")
	if limit != nil {
		api.Use(limit)
	}

	api.GET("/collections", h.Content.ListCollections)
	api.GET("/collections/:slug", h.Content.GetCollection)
	api.GET("/products/:slug", h.Content.GetProduct)
	api.GET("/projects", h.Content.ListProjects)
	api.GET("/projects/:slug", h.Content.GetProject)
	api.GET("/events", h.Content.ListEvents)
	api.GET("/events/:slug", h.Content.GetEvent)
	api.GET("/legal", h.Content.ListLegalPages)
	api.GET("/legal/:slug", h.Content.GetLegalPage)
	api.GET("/footer", h.Content.GetFooter)
	api.GET("/brand", h.Content.GetBrand)
	api.POST("/newsletter", h.Content.Subscribe)
	api.POST("/content/invalidate", h.Content.InvalidateCache)

	cart := api.Group("/cart")
	cart.GET("", h.Cart.GetCart)
	cart.DELETE("", h.Cart.ClearCart)
	cart.POST("/items", h.Cart.AddItem)
	cart.PATCH("/items/:id", h.Cart.SetQuantity)
	cart.DELETE("/items/:id", h.Cart.RemoveItem)

	checkout := api.Group("/checkout")
	checkout.POST("/session", h.Checkout.CreateSession)
	checkout.GET("/confirm", h.Checkout.Confirm)
	checkout.GET("/session-status", h.Checkout.SessionStatus)
}
