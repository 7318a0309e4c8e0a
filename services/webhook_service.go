package services

import (
	"context"
	"encoding/json"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/logger"
	aws_pkg "github.com/antonioqueb/ooak/pkg/aws"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// WebhookOutcome describes what a verified event led to.
type WebhookOutcome string

const (
	WebhookIgnored WebhookOutcome = "ignored"
	WebhookUnpaid  WebhookOutcome = "unpaid"
	WebhookSynced  WebhookOutcome = "synced"
)

type WebhookService interface {
	// HandleStripeEvent verifies and processes one delivery. A returned error
	// other than a signature failure should make Stripe redeliver.
	HandleStripeEvent(ctx context.Context, payload []byte, sigHeader string) (WebhookOutcome, error)
}

type webhookService struct {
	stripe  PaymentProvider
	syncer  OrderSyncer
	carts   CartLookup
	metrics aws_pkg.Recorder
	logger  *zap.Logger
}

func NewWebhookService(provider PaymentProvider, syncer OrderSyncer, carts CartLookup, metrics aws_pkg.Recorder, logger *zap.Logger) WebhookService {
	return &webhookService{
		stripe:  provider,
		syncer:  syncer,
		carts:   carts,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *webhookService) HandleStripeEvent(ctx context.Context, payload []byte, sigHeader string) (WebhookOutcome, error) {
	event, err := s.stripe.ConstructEvent(payload, sigHeader)
	if err != nil {
		logger.For(ctx, s.logger).Warn("Stripe webhook signature verification failed", zap.Error(err))
		aws_pkg.CountAsync(s.metrics, aws_pkg.MetricWebhookRejections, nil)
		return "", apperr.New(apperr.KindSignatureInvalid, "invalid webhook signature", err)
	}

	log := logger.For(ctx, s.logger).With(zap.String("event_id", event.ID))
	log.Info("Processing Stripe webhook", zap.String("event_type", string(event.Type)))

	if !syncTrigger(event.Type) {
		log.Debug("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
		return WebhookIgnored, nil
	}

	var sess stripe.CheckoutSession
	if event.Data == nil {
		return "", apperr.InvalidInput("event has no data")
	}
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		log.Error("Failed to unmarshal checkout session", zap.Error(err))
		return "", apperr.New(apperr.KindInvalidInput, "malformed checkout session", err)
	}

	log = log.With(zap.String("session_id", sess.ID))

	// Delayed methods (OXXO, bank transfer) complete unpaid and sync on
	// checkout.session.async_payment_succeeded.
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		log.Info("Checkout completed without payment, waiting for async payment")
		return WebhookUnpaid, nil
	}

	lines, err := s.stripe.ListLineItems(ctx, sess.ID)
	if err != nil {
		log.Error("Failed to list line items", zap.Error(err))
		return "", providerError("line item lookup failed", err)
	}

	res, err := s.syncer.Sync(ctx, &sess, lines, SourceWebhook)
	if err != nil {
		return "", err
	}

	clearCart(s.carts, &sess, log)
	log.Info("Webhook order sync done",
		zap.String("order_id", res.OrderID),
		zap.Bool("deduplicated", res.Deduplicated),
	)
	return WebhookSynced, nil
}

// syncTrigger reports whether an event type can carry a paid session.
func syncTrigger(t stripe.EventType) bool {
	switch t {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return true
	}
	return false
}
