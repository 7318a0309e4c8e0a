package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/cart"
	"github.com/antonioqueb/ooak/models"
	"github.com/antonioqueb/ooak/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

func testOptions() services.CheckoutOptions {
	return services.CheckoutOptions{
		Currency:          "mxn",
		ShippingCountries: []string{"MX", "US", "CA"},
		ReturnURL:         "https://shop.example.com/checkout/return?session_id={CHECKOUT_SESSION_ID}",
		AssetBaseURL:      "https://erp.example.com",
	}
}

func newCheckout(p *mockProvider, s *mockSyncer, carts services.CartLookup) services.CheckoutService {
	return services.NewCheckoutService(p, s, carts, testOptions(), nil, zap.NewNop())
}

func TestMinorUnits(t *testing.T) {
	cases := map[float64]int64{
		100:     10000,
		50:      5000,
		19.99:   1999,
		0.005:   1,
		1.005:   101,
		2999.95: 299995,
		0:       0,
	}
	for in, want := range cases {
		assert.Equal(t, want, services.MinorUnits(in), "price %v", in)
	}
}

func TestCreateSession_EmptyCartMakesNoCall(t *testing.T) {
	p := &mockProvider{}
	_, err := newCheckout(p, &mockSyncer{}, nil).CreateSession(context.Background(), nil, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Equal(t, 0, p.creates)
}

func TestCreateSession_LineItems(t *testing.T) {
	p := &mockProvider{createRes: &stripe.CheckoutSession{ID: "cs_test_new", ClientSecret: "cs_test_new_secret"}}
	items := []models.CartItem{
		{ID: "p1", Name: "Jarrón Talavera", Price: 100, Quantity: 2, Slug: "jarron-talavera", Image: "/web/image/1.jpg"},
		{ID: "p2", Name: "Cojín Lino", Price: 50, Quantity: 1, Image: "https://cdn.example.com/c.jpg"},
	}

	res, err := newCheckout(p, &mockSyncer{}, nil).CreateSession(context.Background(), items, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_new", res.SessionID)
	assert.Equal(t, "cs_test_new_secret", res.ClientSecret)

	params := p.created
	require.NotNil(t, params)
	assert.Equal(t, "embedded", *params.UIMode)
	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, testOptions().ReturnURL, *params.ReturnURL)
	assert.Equal(t, "cart-1", params.Metadata["cart_id"])

	var countries []string
	for _, c := range params.ShippingAddressCollection.AllowedCountries {
		countries = append(countries, *c)
	}
	assert.Equal(t, []string{"MX", "US", "CA"}, countries)

	require.Len(t, params.LineItems, 2)
	var total int64
	for _, li := range params.LineItems {
		assert.Equal(t, "mxn", *li.PriceData.Currency)
		total += *li.PriceData.UnitAmount * *li.Quantity
	}
	assert.Equal(t, int64(25000), total)

	first := params.LineItems[0].PriceData.ProductData
	assert.Equal(t, "jarron-talavera", first.Metadata["sku"])
	require.Len(t, first.Images, 1)
	assert.Equal(t, "https://erp.example.com/web/image/1.jpg", *first.Images[0])

	second := params.LineItems[1].PriceData.ProductData
	assert.Equal(t, "p2", second.Metadata["sku"])
	assert.Equal(t, "https://cdn.example.com/c.jpg", *second.Images[0])
}

func TestCreateSession_RoundsPerLine(t *testing.T) {
	p := &mockProvider{createRes: &stripe.CheckoutSession{ID: "cs"}}
	items := []models.CartItem{
		{ID: "a", Name: "A", Price: 10.005, Quantity: 3},
		{ID: "b", Name: "B", Price: 0.015, Quantity: 7},
	}
	_, err := newCheckout(p, &mockSyncer{}, nil).CreateSession(context.Background(), items, "")
	require.NoError(t, err)

	var total int64
	for i, li := range p.created.LineItems {
		assert.Equal(t, services.MinorUnits(items[i].Price), *li.PriceData.UnitAmount)
		total += *li.PriceData.UnitAmount * *li.Quantity
	}
	assert.Equal(t, services.MinorUnits(10.005)*3+services.MinorUnits(0.015)*7, total)
}

func TestCreateSession_ProviderRejection(t *testing.T) {
	p := &mockProvider{createErr: &stripe.Error{HTTPStatusCode: 400, Msg: "Invalid currency: xyz"}}
	items := []models.CartItem{{ID: "a", Name: "A", Price: 1, Quantity: 1}}

	_, err := newCheckout(p, &mockSyncer{}, nil).CreateSession(context.Background(), items, "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamUnavailable, apperr.KindOf(err))
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Invalid currency: xyz", ae.Message)
}

func TestConfirm_UnknownSession(t *testing.T) {
	p := &mockProvider{getErr: &stripe.Error{HTTPStatusCode: 404, Code: stripe.ErrorCodeResourceMissing}}
	s := &mockSyncer{}

	_, err := newCheckout(p, s, nil).Confirm(context.Background(), "cs_missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, 0, s.calls)
}

func TestConfirm_MissingSessionID(t *testing.T) {
	_, err := newCheckout(&mockProvider{}, &mockSyncer{}, nil).Confirm(context.Background(), "")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestConfirm_UnpaidNeverSyncs(t *testing.T) {
	for _, status := range []stripe.CheckoutSessionPaymentStatus{
		stripe.CheckoutSessionPaymentStatusUnpaid,
		stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
	} {
		sess := paidSession("cs_unpaid")
		sess.PaymentStatus = status
		p := &mockProvider{session: sess}
		s := &mockSyncer{}

		_, err := newCheckout(p, s, nil).Confirm(context.Background(), "cs_unpaid")
		assert.True(t, errors.Is(err, apperr.ErrPaymentIncomplete), "status %s", status)
		assert.Equal(t, 0, s.calls)
		assert.Equal(t, 0, p.listed)
	}
}

func TestConfirm_SyncsAndClearsCart(t *testing.T) {
	carts := cart.NewRegistry(time.Hour)
	defer carts.Close()
	cartID, store := carts.Get("")
	store.Add(models.CartItem{ID: "p1", Name: "Jarrón", Price: 100, Quantity: 2})

	sess := paidSession("cs_paid")
	sess.Metadata["cart_id"] = cartID
	p := &mockProvider{session: sess, lines: sampleLines()}
	s := &mockSyncer{res: &models.OrderSyncResult{OrderID: "S00042"}}

	res, err := newCheckout(p, s, carts).Confirm(context.Background(), "cs_paid")
	require.NoError(t, err)
	assert.Equal(t, models.ConfirmSynced, res.Status)
	assert.Equal(t, "S00042", res.OrderID)
	assert.Equal(t, []string{services.SourceConfirm}, s.sources)
	assert.Empty(t, store.Items())
}

func TestConfirm_InProgressReportsProcessing(t *testing.T) {
	p := &mockProvider{session: paidSession("cs_busy"), lines: sampleLines()}
	s := &mockSyncer{err: apperr.New(apperr.KindSyncInProgress, "order sync already in progress", nil)}

	res, err := newCheckout(p, s, nil).Confirm(context.Background(), "cs_busy")
	require.NoError(t, err)
	assert.Equal(t, models.ConfirmProcessing, res.Status)
	assert.Empty(t, res.OrderID)
}

func TestConfirm_SyncFailureSurfaces(t *testing.T) {
	p := &mockProvider{session: paidSession("cs_fail"), lines: sampleLines()}
	s := &mockSyncer{err: apperr.New(apperr.KindSyncFailed, "order sync failed", errors.New("erp 500"))}

	_, err := newCheckout(p, s, nil).Confirm(context.Background(), "cs_fail")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrSyncFailed))
	assert.Equal(t, 1, s.calls)
}

func TestSessionStatus(t *testing.T) {
	p := &mockProvider{session: paidSession("cs_status")}
	res, err := newCheckout(p, &mockSyncer{}, nil).SessionStatus(context.Background(), "cs_status")
	require.NoError(t, err)
	assert.Equal(t, "complete", res.Status)
	assert.Equal(t, "paid", res.PaymentStatus)
	assert.Equal(t, "ana@example.com", res.CustomerEmail)
}
