package controllers

import (
	"net/http"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/cart"
	"github.com/antonioqueb/ooak/models"
	"github.com/antonioqueb/ooak/services"
	"github.com/gin-gonic/gin"
)

type CheckoutController struct {
	checkout services.CheckoutService
	carts    *cart.Registry
}

func NewCheckoutController(checkout services.CheckoutService, carts *cart.Registry) *CheckoutController {
	return &CheckoutController{checkout: checkout, carts: carts}
}

// CreateSession handles POST /api/checkout/session. Items come from the body,
// or from the X-Cart-ID cart when the body has none.
func (cc *CheckoutController) CreateSession(ctx *gin.Context) {
	var req models.CheckoutRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}
	}

	cartID := ctx.GetHeader(CartHeader)
	if cartID != "" {
		store, ok := cc.carts.Lookup(cartID)
		if !ok {
			cartID = ""
		} else if len(req.Items) == 0 {
			req.Items = store.Items()
		}
	}

	res, err := cc.checkout.CreateSession(ctx.Request.Context(), req.Items, cartID)
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Confirm handles GET /api/checkout/confirm?session_id=
func (cc *CheckoutController) Confirm(ctx *gin.Context) {
	res, err := cc.checkout.Confirm(ctx.Request.Context(), ctx.Query("session_id"))
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// SessionStatus handles GET /api/checkout/session-status?session_id=
func (cc *CheckoutController) SessionStatus(ctx *gin.Context) {
	res, err := cc.checkout.SessionStatus(ctx.Request.Context(), ctx.Query("session_id"))
	if err != nil {
		apperr.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}
