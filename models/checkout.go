package models

type CheckoutRequest struct {
	Items []CartItem `json:"items" binding:"omitempty,dive"`
}

type CheckoutSessionResponse struct {
	SessionID    string `json:"session_id"`
	ClientSecret string `json:"client_secret"`
}

// Confirmation statuses.
const (
	ConfirmSynced     = "synced"
	ConfirmProcessing = "processing"
)

type ConfirmResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id,omitempty"`
}

type SessionStatusResponse struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	CustomerEmail string `json:"customer_email,omitempty"`
}
