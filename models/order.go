package models

import "time"

// OrderSyncPayload is the body of the ERP order-creation call.
type OrderSyncPayload struct {
	StripeSessionID string          `json:"stripe_session_id"`
	Customer        OrderCustomer   `json:"customer"`
	Items           []OrderSyncItem `json:"items"`
}

type OrderCustomer struct {
	Name    string       `json:"name"`
	Email   string       `json:"email"`
	Address OrderAddress `json:"address"`
}

type OrderAddress struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type OrderSyncItem struct {
	ProductName string  `json:"product_name"`
	Quantity    int64   `json:"quantity"`
	PriceUnit   float64 `json:"price_unit"`
	SKU         string  `json:"sku,omitempty"`
}

// OrderSyncResult is what a sync reports back to its caller.
type OrderSyncResult struct {
	OrderID string
	// Deduplicated is true when the session had already been synced and no
	// ERP call was made.
	Deduplicated bool
}

// OrderSyncedEvent is published after the ERP accepted an order.
type OrderSyncedEvent struct {
	Type            string    `json:"type"`
	StripeSessionID string    `json:"stripe_session_id"`
	OrderID         string    `json:"order_id"`
	CustomerEmail   string    `json:"customer_email"`
	AmountTotal     int64     `json:"amount_total"`
	Currency        string    `json:"currency"`
	Source          string    `json:"source"`
	Timestamp       time.Time `json:"timestamp"`
}
