package handler

import (
	"net/http"

	"github.com/indexnow-studio/backend/internal/contextkeys"
	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/internal/service"
	"github.com/indexnow-studio/backend/pkg/payment"
)

// BillingHandler handles checkout, webhook, and subscription endpoints.
type BillingHandler struct {
	billing *service.BillingService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billing *service.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// Checkout handles POST /api/billing/checkout.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextkeys.UserID).(string)

	var req domain.CreateCheckoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.billing.CreateCheckout(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, resp)
}

// Webhook handles POST /api/billing/webhook. The gateway retries on non-2xx,
// so every accepted notification must be answered with 200.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var n payment.Notification
	if err := DecodeJSON(r, &n); err != nil {
		Error(w, err)
		return
	}

	if err := h.billing.HandleWebhook(r.Context(), n); err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Subscription handles GET /api/billing/subscription.
func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextkeys.UserID).(string)

	resp, err := h.billing.GetSubscription(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Transactions handles GET /api/billing/transactions.
func (h *BillingHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextkeys.UserID).(string)

	txs, err := h.billing.ListTransactions(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"transactions": txs})
}
