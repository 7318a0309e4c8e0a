package controllers

import (
	"net/http"

	"github.com/antonioqueb/ooak/cart"
	"github.com/antonioqueb/ooak/models"
	"github.com/gin-gonic/gin"
)

// CartHeader carries the opaque cart id between the storefront and this service.
const CartHeader = "X-Cart-ID"

// CartController exposes the server-side cart stores.
type CartController struct {
	carts *cart.Registry
}

func NewCartController(carts *cart.Registry) *CartController {
	return &CartController{carts: carts}
}

// resolve returns the caller's cart, creating one when the header is missing or stale.
func (cc *CartController) resolve(ctx *gin.Context) (string, *cart.Store) {
	id, store := cc.carts.Get(ctx.GetHeader(CartHeader))
	ctx.Header(CartHeader, id)
	return id, store
}

func respondCart(ctx *gin.Context, status int, id string, store *cart.Store) {
	snap := store.Snapshot()
	if snap.Items == nil {
		snap.Items = []models.CartItem{}
	}
	ctx.JSON(status, models.Cart{ID: id, Items: snap.Items, Count: snap.Count, Total: snap.Total})
}

// GetCart handles GET /api/cart
func (cc *CartController) GetCart(ctx *gin.Context) {
	id, store := cc.resolve(ctx)
	respondCart(ctx, http.StatusOK, id, store)
}

// AddItem handles POST /api/cart/items
func (cc *CartController) AddItem(ctx *gin.Context) {
	var item models.CartItem
	if err := ctx.ShouldBindJSON(&item); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart item", "details": err.Error()})
		return
	}

	id, store := cc.resolve(ctx)
	store.Add(item)
	respondCart(ctx, http.StatusOK, id, store)
}

// SetQuantity handles PATCH /api/cart/items/:id
func (cc *CartController) SetQuantity(ctx *gin.Context) {
	var req models.SetQuantityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity", "details": err.Error()})
		return
	}

	id, store := cc.resolve(ctx)
	if !store.SetQuantity(ctx.Param("id"), *req.Quantity) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Item not in cart"})
		return
	}
	respondCart(ctx, http.StatusOK, id, store)
}

// RemoveItem handles DELETE /api/cart/items/:id
func (cc *CartController) RemoveItem(ctx *gin.Context) {
	id, store := cc.resolve(ctx)
	if !store.Remove(ctx.Param("id")) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Item not in cart"})
		return
	}
	respondCart(ctx, http.StatusOK, id, store)
}

// ClearCart handles DELETE /api/cart
func (cc *CartController) ClearCart(ctx *gin.Context) {
	id, store := cc.resolve(ctx)
	store.Clear()
	respondCart(ctx, http.StatusOK, id, store)
}
