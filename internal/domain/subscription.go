package domain

import "time"

// Recurring subscription statuses.
const (
	SubActive        = "active"
	SubPaymentFailed = "payment_failed"
	SubCanceled      = "canceled"
)

// RecurringSubscription tracks an auto-renewing billing relationship tied to
// a saved card token. Created on the first successful recurring charge and
// advanced by the renewal job.
type RecurringSubscription struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	PackageID       string         `json:"packageId"`
	Status          string         `json:"status"`
	BillingPeriod   BillingPeriod  `json:"billingPeriod"`
	NextBillingDate time.Time      `json:"nextBillingDate"`
	ExpiresAt       time.Time      `json:"expiresAt"`
	CardToken       string         `json:"-"` // AES-GCM encrypted at rest
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// CreateCheckoutRequest is the input for initiating a checkout.
type CreateCheckoutRequest struct {
	PackageID string `json:"packageId" validate:"required"`
	GatewayID string `json:"gatewayId" validate:"required"`
}

// PaymentLinkResponse returns the URL to redirect the user to for payment.
type PaymentLinkResponse struct {
	PaymentURL string `json:"paymentUrl"`
	OrderID    string `json:"orderId"`
}
