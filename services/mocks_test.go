package services_test

import (
	"context"
	"sync"

	"github.com/antonioqueb/ooak/models"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

const testWebhookSecret = "whsec_test_secret"

// ---- mock payment provider ----

type mockProvider struct {
	mu sync.Mutex

	created   *stripe.CheckoutSessionParams
	createRes *stripe.CheckoutSession
	createErr error
	creates   int

	session *stripe.CheckoutSession
	getErr  error

	lines    []*stripe.LineItem
	linesErr error
	listed   int
}

func (m *mockProvider) CreateCheckoutSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.created = params
	return m.createRes, m.createErr
}

func (m *mockProvider) GetCheckoutSession(_ context.Context, _ string) (*stripe.CheckoutSession, error) {
	return m.session, m.getErr
}

func (m *mockProvider) ListLineItems(_ context.Context, _ string) ([]*stripe.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed++
	return m.lines, m.linesErr
}

func (m *mockProvider) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, testWebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// ---- mock syncer ----

type mockSyncer struct {
	mu      sync.Mutex
	calls   int
	sources []string
	res     *models.OrderSyncResult
	err     error
}

func (m *mockSyncer) Sync(_ context.Context, _ *stripe.CheckoutSession, _ []*stripe.LineItem, source string) (*models.OrderSyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.sources = append(m.sources, source)
	return m.res, m.err
}
