package domain

import "time"

// TransactionStatus is the lifecycle state of a payment transaction.
type TransactionStatus string

const (
	TxPending       TransactionStatus = "pending"
	TxProofUploaded TransactionStatus = "proof_uploaded"
	TxCompleted     TransactionStatus = "completed"
	TxFailed        TransactionStatus = "failed"
	TxReview        TransactionStatus = "review"
)

// Terminal reports whether the status is final. Completed and failed
// transactions must never transition again.
func (s TransactionStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed
}

// CanTransitionTo reports whether a transaction in state s may move to next.
// Only pending and proof_uploaded transactions may advance.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case TxCompleted, TxFailed, TxReview, TxPending, TxProofUploaded:
		return true
	}
	return false
}

// Transaction records one payment attempt or settlement.
type Transaction struct {
	ID                   string            `json:"id"`
	UserID               string            `json:"userId"`
	PackageID            string            `json:"packageId"`
	GatewayID            string            `json:"gatewayId"`
	Status               TransactionStatus `json:"status"`
	Amount               int64             `json:"amount"`
	Currency             string            `json:"currency"`
	OrderID              string            `json:"orderId"`
	GatewayTransactionID *string           `json:"gatewayTransactionId,omitempty"`
	VerifiedBy           *string           `json:"verifiedBy,omitempty"`
	VerifiedAt           *time.Time        `json:"verifiedAt,omitempty"`
	ProcessedAt          *time.Time        `json:"processedAt,omitempty"`
	Notes                *string           `json:"notes,omitempty"`
	Metadata             map[string]any    `json:"metadata,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// UpdateOrderStatusRequest is the admin input for the order-status endpoint.
type UpdateOrderStatusRequest struct {
	Status TransactionStatus `json:"status" validate:"required,oneof=completed failed"`
	Notes  string            `json:"notes"`
}
