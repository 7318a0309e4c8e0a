package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/logger"
	"github.com/antonioqueb/ooak/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebhookController struct {
	webhooks services.WebhookService
	logger   *zap.Logger
}

func NewWebhookController(webhooks services.WebhookService, log *zap.Logger) *WebhookController {
	return &WebhookController{webhooks: webhooks, logger: log}
}

// StripeWebhook handles POST /api/webhooks/stripe. Any failure after the
// signature check answers 500 so Stripe redelivers the event.
func (wc *WebhookController) StripeWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	outcome, err := wc.webhooks.HandleStripeEvent(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
	case errors.Is(err, apperr.ErrSignatureInvalid), errors.Is(err, apperr.ErrInvalidInput):
		apperr.Respond(ctx, err)
	default:
		logger.For(ctx, wc.logger).Error("Stripe webhook processing failed",
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err),
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errorMessage(err)})
	}
}

func errorMessage(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
