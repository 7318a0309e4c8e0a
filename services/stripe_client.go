package services

import (
	"context"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
)

// PaymentProvider is the slice of Stripe the checkout flow needs.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	ListLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error)
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type StripeService struct {
	api        *client.API
	webhookKey string
}

// NewStripeService builds a Stripe client whose HTTP calls are bounded by timeout.
func NewStripeService(secretKey, webhookKey string, timeout time.Duration) *StripeService {
	httpClient := &http.Client{Timeout: timeout}
	backends := &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripe.Int64(2),
		}),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, &stripe.BackendConfig{HTTPClient: httpClient}),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, &stripe.BackendConfig{HTTPClient: httpClient}),
	}

	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeService{api: api, webhookKey: webhookKey}
}

func (s *StripeService) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return s.api.CheckoutSessions.New(params)
}

func (s *StripeService) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return s.api.CheckoutSessions.Get(id, params)
}

// ListLineItems returns every line item of the session with price.product expanded,
// so product metadata (sku) is available.
func (s *StripeService) ListLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx
	params.AddExpand("data.price.product")

	var items []*stripe.LineItem
	iter := s.api.CheckoutSessions.ListLineItems(params)
	for iter.Next() {
		items = append(items, iter.LineItem())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ConstructEvent verifies the Stripe-Signature header against the raw payload.
// Events pinned to a different API version than the SDK are still accepted.
func (s *StripeService) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
