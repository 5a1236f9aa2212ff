// Package payment wraps the hosted payment gateway API: payment links for
// checkout, token charges for renewals, and webhook signature verification.
package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Gateway transaction statuses as reported by the vendor.
const (
	StatusCapture    = "capture"
	StatusSettlement = "settlement"
	StatusPending    = "pending"
	StatusDeny       = "deny"
	StatusCancel     = "cancel"
	StatusExpire     = "expire"
	StatusFailure    = "failure"

	FraudAccept    = "accept"
	FraudChallenge = "challenge"
)

// Notification is the untrusted webhook body posted by the gateway.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
	PaymentType       string `json:"payment_type"`
	SavedTokenID      string `json:"saved_token_id"`
}

// Signature computes the expected webhook signature:
// sha512(order_id + status_code + gross_amount + serverKey).
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the signature from the notification fields and
// compares it against the supplied one. This is the only integrity check
// against a forged callback.
func (n Notification) VerifySignature(serverKey string) bool {
	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}

// InternalStatus maps the gateway status pair to the internal transaction
// status (completed, review, failed, pending).
func (n Notification) InternalStatus() string {
	switch n.TransactionStatus {
	case StatusCapture:
		switch n.FraudStatus {
		case FraudAccept:
			return "completed"
		case FraudChallenge:
			return "review"
		default:
			return "failed"
		}
	case StatusSettlement:
		return "completed"
	case StatusDeny, StatusCancel, StatusExpire, StatusFailure:
		return "failed"
	case StatusPending:
		return "pending"
	}
	return "pending"
}

// CreateLinkParams describes a checkout session to create.
type CreateLinkParams struct {
	OrderID  string
	UserID   string
	Amount   int64
	Currency string
	ItemName string
}

// ChargeParams describes a recurring charge against a saved card token.
type ChargeParams struct {
	OrderID   string
	CardToken string
	Amount    int64
	Currency  string
}

// ChargeResult is the gateway's response to a token charge.
type ChargeResult struct {
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
}

// Succeeded reports whether the charge settled or was captured and accepted.
func (r *ChargeResult) Succeeded() bool {
	if r == nil {
		return false
	}
	return r.TransactionStatus == StatusSettlement ||
		(r.TransactionStatus == StatusCapture && r.FraudStatus == FraudAccept)
}

// Gateway defines the payment provider operations the backend needs.
type Gateway interface {
	// CreatePaymentLink creates a hosted checkout session and returns its URL.
	CreatePaymentLink(ctx context.Context, p CreateLinkParams) (string, error)
	// ChargeToken charges a saved card token (recurring renewal).
	ChargeToken(ctx context.Context, p ChargeParams) (*ChargeResult, error)
	// VerifyNotification checks a webhook notification's signature.
	VerifyNotification(n Notification) bool
}

// ErrChargeDeclined is returned when the gateway declines a token charge.
var ErrChargeDeclined = fmt.Errorf("charge declined by gateway")
