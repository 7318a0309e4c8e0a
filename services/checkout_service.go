package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/cart"
	"github.com/antonioqueb/ooak/logger"
	"github.com/antonioqueb/ooak/models"
	aws_pkg "github.com/antonioqueb/ooak/pkg/aws"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// CartLookup finds an existing cart without creating one.
type CartLookup interface {
	Lookup(id string) (*cart.Store, bool)
}

// CheckoutOptions are the fixed parameters of every checkout session.
type CheckoutOptions struct {
	Currency          string
	ShippingCountries []string
	ReturnURL         string
	// AssetBaseURL resolves relative product image paths. Empty drops them.
	AssetBaseURL string
}

type CheckoutService interface {
	CreateSession(ctx context.Context, items []models.CartItem, cartID string) (*models.CheckoutSessionResponse, error)
	Confirm(ctx context.Context, sessionID string) (*models.ConfirmResponse, error)
	SessionStatus(ctx context.Context, sessionID string) (*models.SessionStatusResponse, error)
}

type checkoutService struct {
	stripe  PaymentProvider
	syncer  OrderSyncer
	carts   CartLookup
	opts    CheckoutOptions
	metrics aws_pkg.Recorder
	logger  *zap.Logger
}

// NewCheckoutService creates a CheckoutService. carts and metrics may be nil.
func NewCheckoutService(
	provider PaymentProvider,
	syncer OrderSyncer,
	carts CartLookup,
	opts CheckoutOptions,
	metrics aws_pkg.Recorder,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		stripe:  provider,
		syncer:  syncer,
		carts:   carts,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateSession opens an embedded checkout session for items and returns its client secret.
func (s *checkoutService) CreateSession(ctx context.Context, items []models.CartItem, cartID string) (*models.CheckoutSessionResponse, error) {
	if len(items) == 0 {
		return nil, apperr.InvalidInput("cart is empty")
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, it := range items {
		if it.Quantity < 1 || it.Price < 0 || strings.TrimSpace(it.Name) == "" {
			return nil, apperr.InvalidInput("invalid cart item " + it.ID)
		}
		lineItems = append(lineItems, s.lineItem(it))
	}

	params := &stripe.CheckoutSessionParams{
		UIMode:    stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:      stripe.String(string(stripe.CheckoutSessionModePayment)),
		ReturnURL: stripe.String(s.opts.ReturnURL),
		LineItems: lineItems,
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(s.opts.ShippingCountries),
		},
	}
	if cartID != "" {
		params.AddMetadata("cart_id", cartID)
	}

	log := logger.For(ctx, s.logger)
	sess, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		log.Error("Stripe checkout session creation failed", zap.Error(err))
		return nil, providerError("checkout session creation failed", err)
	}

	log.Info("Checkout session created",
		zap.String("session_id", sess.ID),
		zap.Int("line_items", len(lineItems)),
		zap.String("cart_id", cartID),
	)
	aws_pkg.CountAsync(s.metrics, aws_pkg.MetricCheckoutSessions, nil)

	return &models.CheckoutSessionResponse{SessionID: sess.ID, ClientSecret: sess.ClientSecret}, nil
}

func (s *checkoutService) lineItem(it models.CartItem) *stripe.CheckoutSessionLineItemParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(it.Name),
	}
	if img := s.absoluteImage(it.Image); img != "" {
		product.Images = stripe.StringSlice([]string{img})
	}
	sku := it.Slug
	if sku == "" {
		sku = it.ID
	}
	if sku != "" {
		product.Metadata = map[string]string{"sku": sku}
	}

	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(s.opts.Currency),
			UnitAmount:  stripe.Int64(MinorUnits(it.Price)),
			ProductData: product,
		},
		Quantity: stripe.Int64(int64(it.Quantity)),
	}
}

func (s *checkoutService) absoluteImage(img string) string {
	img = strings.TrimSpace(img)
	if img == "" {
		return ""
	}
	if strings.HasPrefix(img, "https://") || strings.HasPrefix(img, "http://") {
		return img
	}
	if s.opts.AssetBaseURL == "" {
		return ""
	}
	base, err := url.Parse(s.opts.AssetBaseURL + "/")
	if err != nil {
		return ""
	}
	ref, err := url.Parse(img)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// MinorUnits converts a major-unit price to minor units, rounding half away from zero.
func MinorUnits(price float64) int64 {
	return decimal.NewFromFloat(price).Shift(2).Round(0).IntPart()
}

// Confirm re-validates a returned session and syncs the order when it is paid.
func (s *checkoutService) Confirm(ctx context.Context, sessionID string) (*models.ConfirmResponse, error) {
	if err := validSessionID(sessionID); err != nil {
		return nil, err
	}

	log := logger.For(ctx, s.logger).With(zap.String("session_id", sessionID))

	sess, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, providerError("checkout session lookup failed", err)
	}

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Info("Confirmation for unpaid session",
			zap.String("payment_status", string(sess.PaymentStatus)),
		)
		return nil, apperr.New(apperr.KindPaymentIncomplete, "payment not completed", nil)
	}

	lines, err := s.stripe.ListLineItems(ctx, sessionID)
	if err != nil {
		return nil, providerError("line item lookup failed", err)
	}

	res, err := s.syncer.Sync(ctx, sess, lines, SourceConfirm)
	if errors.Is(err, apperr.ErrSyncInProgress) {
		// The webhook is syncing this session right now.
		log.Info("Confirmation deferred to in-flight sync")
		return &models.ConfirmResponse{Status: models.ConfirmProcessing}, nil
	}
	if err != nil {
		return nil, err
	}

	clearCart(s.carts, sess, log)
	return &models.ConfirmResponse{Status: models.ConfirmSynced, OrderID: res.OrderID}, nil
}

func (s *checkoutService) SessionStatus(ctx context.Context, sessionID string) (*models.SessionStatusResponse, error) {
	if err := validSessionID(sessionID); err != nil {
		return nil, err
	}
	sess, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, providerError("checkout session lookup failed", err)
	}
	return &models.SessionStatusResponse{
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		CustomerEmail: customerEmail(sess),
	}, nil
}

// clearCart empties the cart recorded in the session metadata, if it still exists.
func clearCart(carts CartLookup, sess *stripe.CheckoutSession, log *zap.Logger) {
	if carts == nil || sess.Metadata == nil {
		return
	}
	cartID := sess.Metadata["cart_id"]
	if cartID == "" {
		return
	}
	if store, ok := carts.Lookup(cartID); ok {
		store.Clear()
		log.Debug("Cart cleared after payment", zap.String("cart_id", cartID), zap.String("session_id", sess.ID))
	}
}

func validSessionID(id string) error {
	if id == "" {
		return apperr.InvalidInput("session_id is required")
	}
	if len(id) > 255 || strings.ContainsAny(id, "/?# \t\n") {
		return apperr.InvalidInput("invalid session_id")
	}
	return nil
}

// providerError maps a Stripe failure onto the error taxonomy. Unknown
// sessions become NotFound; everything else carries the provider message.
func providerError(msg string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing {
			return apperr.New(apperr.KindNotFound, "checkout session not found", err)
		}
		if se.Msg != "" {
			return apperr.Upstream(se.Msg, err)
		}
	}
	return apperr.Upstream(msg, err)
}
