package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/clients"
	"github.com/antonioqueb/ooak/logger"
	"github.com/antonioqueb/ooak/models"
	aws_pkg "github.com/antonioqueb/ooak/pkg/aws"
	"github.com/antonioqueb/ooak/repository"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// Sync sources, used in logs, metrics and the order.synced event.
const (
	SourceConfirm = "confirm"
	SourceWebhook = "webhook"
)

// ERPPoster is the write side of the ERP client.
type ERPPoster interface {
	PostJSON(ctx context.Context, path string, body interface{}, headers http.Header, out interface{}) error
}

// EventPublisher delivers order events. Both the SNS client and the Kafka
// producer implement it.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, message []byte) error
}

// OrderSyncer turns a paid checkout session into exactly one ERP order.
type OrderSyncer interface {
	Sync(ctx context.Context, sess *stripe.CheckoutSession, lines []*stripe.LineItem, source string) (*models.OrderSyncResult, error)
}

// SyncError is returned when the ERP rejects the order-creation call.
type SyncError struct {
	Status int
	Body   string
	Err    error
}

func (e *SyncError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("order sync: %v", e.Err)
	}
	return fmt.Sprintf("order sync: erp status=%d body=%s", e.Status, e.Body)
}

func (e *SyncError) Unwrap() error { return e.Err }

type orderSyncService struct {
	erp         ERPPoster
	orderPath   string
	ledger      repository.SyncLedger
	claimTTL    time.Duration
	events      EventPublisher
	eventsTopic string
	metrics     aws_pkg.Recorder
	logger      *zap.Logger
}

// NewOrderSyncService wires the ERP client and the dedup ledger. events and
// metrics may be nil.
func NewOrderSyncService(
	erp ERPPoster,
	orderPath string,
	ledger repository.SyncLedger,
	claimTTL time.Duration,
	events EventPublisher,
	eventsTopic string,
	metrics aws_pkg.Recorder,
	logger *zap.Logger,
) OrderSyncer {
	return &orderSyncService{
		erp:         erp,
		orderPath:   orderPath,
		ledger:      ledger,
		claimTTL:    claimTTL,
		events:      events,
		eventsTopic: eventsTopic,
		metrics:     metrics,
		logger:      logger,
	}
}

func (s *orderSyncService) Sync(ctx context.Context, sess *stripe.CheckoutSession, lines []*stripe.LineItem, source string) (*models.OrderSyncResult, error) {
	if sess == nil || sess.ID == "" {
		return nil, apperr.InvalidInput("checkout session is required")
	}
	log := logger.For(ctx, s.logger).With(zap.String("session_id", sess.ID), zap.String("source", source))

	claim, err := s.ledger.Claim(ctx, sess.ID, s.claimTTL)
	if err != nil {
		log.Error("Order sync ledger unavailable", zap.Error(err))
		return nil, apperr.New(apperr.KindSyncFailed, "order sync failed", err)
	}

	switch claim.State {
	case repository.ClaimCompleted:
		log.Info("Order already synced", zap.String("order_id", claim.OrderID))
		aws_pkg.CountAsync(s.metrics, aws_pkg.MetricOrderSyncDeduped, map[string]string{"Source": source})
		return &models.OrderSyncResult{OrderID: claim.OrderID, Deduplicated: true}, nil
	case repository.ClaimInProgress:
		log.Info("Order sync already in progress")
		return nil, apperr.New(apperr.KindSyncInProgress, "order sync already in progress", nil)
	}

	payload := BuildOrderPayload(sess, lines)
	headers := http.Header{}
	headers.Set("Idempotency-Key", sess.ID)

	var resp []byte
	if err := s.erp.PostJSON(ctx, s.orderPath, payload, headers, &resp); err != nil {
		// The claim must be released even if the request context is gone.
		if relErr := s.ledger.Release(context.WithoutCancel(ctx), sess.ID, claim.Token); relErr != nil {
			log.Warn("Failed to release order sync claim", zap.Error(relErr))
		}
		aws_pkg.CountAsync(s.metrics, aws_pkg.MetricOrderSyncFailed, map[string]string{"Source": source})

		syncErr := &SyncError{Err: err}
		var se *clients.StatusError
		if errors.As(err, &se) {
			syncErr.Status = se.StatusCode
			syncErr.Body = se.Body
		}
		log.Error("ERP order creation failed", zap.Int("erp_status", syncErr.Status), zap.Error(err))
		return nil, apperr.New(apperr.KindSyncFailed, "order sync failed", syncErr)
	}

	orderID := extractOrderID(resp)
	if err := s.ledger.Complete(context.WithoutCancel(ctx), sess.ID, orderID); err != nil {
		// The order exists in the ERP; a later duplicate is caught by the Idempotency-Key header.
		log.Warn("Failed to record synced order", zap.String("order_id", orderID), zap.Error(err))
	}

	log.Info("Order synced to ERP", zap.String("order_id", orderID), zap.Int("items", len(payload.Items)))
	aws_pkg.CountAsync(s.metrics, aws_pkg.MetricOrdersSynced, map[string]string{"Source": source})
	s.publishSynced(ctx, log, sess, orderID, source)

	return &models.OrderSyncResult{OrderID: orderID}, nil
}

func (s *orderSyncService) publishSynced(ctx context.Context, log *zap.Logger, sess *stripe.CheckoutSession, orderID, source string) {
	if s.events == nil || s.eventsTopic == "" {
		return
	}
	event := models.OrderSyncedEvent{
		Type:            "order.synced",
		StripeSessionID: sess.ID,
		OrderID:         orderID,
		CustomerEmail:   customerEmail(sess),
		AmountTotal:     sess.AmountTotal,
		Currency:        string(sess.Currency),
		Source:          source,
		Timestamp:       time.Now().UTC(),
	}
	msg, err := json.Marshal(event)
	if err != nil {
		log.Error("Failed to marshal order.synced event", zap.Error(err))
		return
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), s.eventsTopic, msg); err != nil {
		log.Warn("Failed to publish order.synced event", zap.Error(err))
	}
}

// BuildOrderPayload maps a checkout session and its line items to the ERP order body.
func BuildOrderPayload(sess *stripe.CheckoutSession, lines []*stripe.LineItem) models.OrderSyncPayload {
	payload := models.OrderSyncPayload{
		StripeSessionID: sess.ID,
		Customer:        orderCustomer(sess),
		Items:           make([]models.OrderSyncItem, 0, len(lines)),
	}
	for _, li := range lines {
		if li == nil {
			continue
		}
		payload.Items = append(payload.Items, models.OrderSyncItem{
			ProductName: productName(li),
			Quantity:    li.Quantity,
			PriceUnit:   unitPrice(li),
			SKU:         productSKU(li),
		})
	}
	return payload
}

// unitPrice is the line's reported amount over its quantity in major units,
// so discounts are reflected. The list unit amount is used only when Stripe
// reported no amount at all.
func unitPrice(li *stripe.LineItem) float64 {
	var minor decimal.Decimal
	switch {
	case li.AmountTotal == 0 && li.AmountDiscount == 0 && li.Price != nil:
		minor = decimal.NewFromInt(li.Price.UnitAmount)
	case li.Quantity > 0:
		minor = decimal.NewFromInt(li.AmountTotal).Div(decimal.NewFromInt(li.Quantity))
	default:
		minor = decimal.NewFromInt(li.AmountTotal)
	}
	return minor.Shift(-2).Round(2).InexactFloat64()
}

func productName(li *stripe.LineItem) string {
	if li.Description != "" {
		return li.Description
	}
	if li.Price != nil && li.Price.Product != nil {
		return li.Price.Product.Name
	}
	return ""
}

func productSKU(li *stripe.LineItem) string {
	if li.Price == nil || li.Price.Product == nil {
		return ""
	}
	return li.Price.Product.Metadata["sku"]
}

func orderCustomer(sess *stripe.CheckoutSession) models.OrderCustomer {
	var c models.OrderCustomer
	c.Email = customerEmail(sess)

	var addr *stripe.Address
	if sess.CustomerDetails != nil {
		c.Name = sess.CustomerDetails.Name
		addr = sess.CustomerDetails.Address
	}
	if sess.ShippingDetails != nil {
		if sess.ShippingDetails.Name != "" && c.Name == "" {
			c.Name = sess.ShippingDetails.Name
		}
		if sess.ShippingDetails.Address != nil {
			addr = sess.ShippingDetails.Address
		}
	}
	if addr != nil {
		c.Address = models.OrderAddress{
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		}
	}
	return c
}

func customerEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	return sess.CustomerEmail
}

// extractOrderID reads the ERP order reference from order_id, name or id,
// looking inside a JSON-RPC "result" object when present. A body it cannot
// read yields "" since the order was already accepted.
func extractOrderID(raw []byte) string {
	var resp map[string]interface{}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ""
	}
	return orderIDFrom(resp)
}

func orderIDFrom(resp map[string]interface{}) string {
	if inner, ok := resp["result"].(map[string]interface{}); ok {
		if id := orderIDFrom(inner); id != "" {
			return id
		}
	}
	for _, key := range []string{"order_id", "name", "id"} {
		switch v := resp[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
