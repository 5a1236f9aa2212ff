package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/internal/service"
	"github.com/indexnow-studio/backend/pkg/payment"
)

type stubTxStore struct {
	tx *domain.Transaction
}

func (s *stubTxStore) Create(context.Context, *domain.Transaction) error { return nil }
func (s *stubTxStore) FindByID(context.Context, string) (*domain.Transaction, error) {
	return nil, nil
}
func (s *stubTxStore) FindByOrderID(_ context.Context, orderID string) (*domain.Transaction, error) {
	if s.tx != nil && s.tx.OrderID == orderID {
		return s.tx, nil
	}
	return nil, nil
}
func (s *stubTxStore) FindByMetadataOrderID(context.Context, string) (*domain.Transaction, error) {
	return nil, nil
}
func (s *stubTxStore) FindByGatewayTransactionID(context.Context, string) (*domain.Transaction, error) {
	return nil, nil
}
func (s *stubTxStore) UpdateStatus(context.Context, string, domain.TransactionStatus, *string, *time.Time) error {
	return nil
}
func (s *stubTxStore) SetVerification(context.Context, string, domain.TransactionStatus, string, string) error {
	return nil
}
func (s *stubTxStore) ListByUser(context.Context, string) ([]*domain.Transaction, error) {
	return nil, nil
}

type stubSubStore struct{}

func (s *stubSubStore) Create(context.Context, *domain.RecurringSubscription) error { return nil }
func (s *stubSubStore) FindActiveByUser(context.Context, string) (*domain.RecurringSubscription, error) {
	return nil, nil
}
func (s *stubSubStore) DueForBilling(context.Context, time.Time) ([]*domain.RecurringSubscription, error) {
	return nil, nil
}
func (s *stubSubStore) AdvanceBilling(context.Context, string, time.Time, time.Time) error {
	return nil
}
func (s *stubSubStore) Extend(context.Context, string, time.Time, time.Time, string) error {
	return nil
}
func (s *stubSubStore) MarkPaymentFailed(context.Context, string, string) error { return nil }

type stubUserStore struct{}

func (s *stubUserStore) FindByID(context.Context, string) (*domain.User, error) { return nil, nil }
func (s *stubUserStore) UpdateEntitlement(context.Context, string, string, time.Time, time.Time) error {
	return nil
}

type stubCatalog struct{}

func (s *stubCatalog) FindByID(context.Context, string) (*domain.Package, error) { return nil, nil }
func (s *stubCatalog) FindGatewayByID(context.Context, string) (*domain.PaymentGatewayConfig, error) {
	return nil, nil
}

func TestWebhookAcksWithDocumentedBody(t *testing.T) {
	const serverKey = "test-server-key"
	gw := payment.NewMockGateway(serverKey)
	svc := service.NewBillingService(
		&stubTxStore{tx: &domain.Transaction{ID: "tx-1", OrderID: "order-1", Status: domain.TxCompleted}},
		&stubSubStore{}, &stubUserStore{}, &stubCatalog{}, gw, nil, zap.NewNop(),
	)
	h := NewBillingHandler(svc)

	n := payment.Notification{
		OrderID:           "order-1",
		StatusCode:        "200",
		GrossAmount:       "100000.00",
		TransactionStatus: payment.StatusSettlement,
	}
	n.SignatureKey = payment.Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	body, err := json.Marshal(n)
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/api/billing/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Webhook(rec, r)

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	gw := payment.NewMockGateway("test-server-key")
	svc := service.NewBillingService(
		&stubTxStore{}, &stubSubStore{}, &stubUserStore{}, &stubCatalog{}, gw, nil, zap.NewNop(),
	)
	h := NewBillingHandler(svc)

	n := payment.Notification{
		OrderID:      "order-1",
		StatusCode:   "200",
		GrossAmount:  "100000.00",
		SignatureKey: "deadbeef",
	}
	body, err := json.Marshal(n)
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/api/billing/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Webhook(rec, r)

	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid signature")
}
