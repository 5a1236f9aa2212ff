package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/pkg/crypto"
	"github.com/indexnow-studio/backend/pkg/payment"
)

const testServerKey = "test-server-key"

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type billingFixture struct {
	svc     *BillingService
	txs     *fakeTxStore
	subs    *fakeSubStore
	users   *fakeUserStore
	catalog *fakeCatalog
	gateway *payment.MockGateway
	enc     *crypto.Encryptor
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()

	enc, err := crypto.NewEncryptor("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	f := &billingFixture{
		txs:     newFakeTxStore(),
		subs:    newFakeSubStore(),
		users:   newFakeUserStore(),
		catalog: newFakeCatalog(),
		gateway: payment.NewMockGateway(testServerKey),
		enc:     enc,
	}
	f.catalog.pkgs["pkg-pro"] = &domain.Package{
		ID: "pkg-pro", Name: "Pro", Slug: "pro", Price: 100000, Currency: "IDR",
		BillingPeriod: domain.PeriodMonthly, DailyURLQuota: 500, Active: true,
	}
	f.catalog.gws["gw-1"] = &domain.PaymentGatewayConfig{ID: "gw-1", Name: "Hosted Checkout", Active: true}
	f.users.users["user-1"] = &domain.User{ID: "user-1", Email: "u@example.com"}

	f.svc = NewBillingService(f.txs, f.subs, f.users, f.catalog, f.gateway, enc, zap.NewNop())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *billingFixture) seedPendingTx(id, orderID string) *domain.Transaction {
	tx := &domain.Transaction{
		ID: id, UserID: "user-1", PackageID: "pkg-pro", GatewayID: "gw-1",
		Status: domain.TxPending, Amount: 100000, Currency: "IDR", OrderID: orderID,
		Metadata:  map[string]any{"order_id": orderID, "billing_period": "monthly"},
		CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}
	f.txs.txs[id] = tx
	return tx
}

func signedNotification(orderID, txStatus, fraudStatus string) payment.Notification {
	n := payment.Notification{
		OrderID:           orderID,
		StatusCode:        "200",
		GrossAmount:       "100000.00",
		TransactionStatus: txStatus,
		FraudStatus:       fraudStatus,
		TransactionID:     "gw-tx-123",
	}
	n.SignatureKey = payment.Signature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	return n
}

func TestHandleWebhookRejectsInvalidSignature(t *testing.T) {
	f := newBillingFixture(t)
	f.seedPendingTx("tx-1", "order-1")

	n := signedNotification("order-1", payment.StatusSettlement, "")
	n.SignatureKey = "deadbeef"

	err := f.svc.HandleWebhook(context.Background(), n)
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)

	// A forged callback must never reach the database.
	assert.Zero(t, f.txs.reads)
	assert.Empty(t, f.users.entitlements)
}

func TestHandleWebhookSettlementCompletesAndGrantsPlan(t *testing.T) {
	f := newBillingFixture(t)
	f.seedPendingTx("tx-1", "order-1")

	err := f.svc.HandleWebhook(context.Background(), signedNotification("order-1", payment.StatusSettlement, ""))
	require.NoError(t, err)

	tx := f.txs.txs["tx-1"]
	assert.Equal(t, domain.TxCompleted, tx.Status)
	require.NotNil(t, tx.ProcessedAt)
	require.NotNil(t, tx.GatewayTransactionID)
	assert.Equal(t, "gw-tx-123", *tx.GatewayTransactionID)

	require.Len(t, f.users.entitlements, 1)
	grant := f.users.entitlements[0]
	assert.Equal(t, "user-1", grant.UserID)
	assert.Equal(t, "pkg-pro", grant.PackageID)
	assert.Equal(t, fixedNow.AddDate(0, 1, 0), grant.ExpiresAt)

	// No saved token, so no recurring subscription.
	assert.Empty(t, f.subs.subs)
}

func TestHandleWebhookSavedTokenCreatesSubscription(t *testing.T) {
	f := newBillingFixture(t)
	f.seedPendingTx("tx-1", "order-1")

	n := signedNotification("order-1", payment.StatusCapture, payment.FraudAccept)
	n.SavedTokenID = "card-token-abc"

	require.NoError(t, f.svc.HandleWebhook(context.Background(), n))

	require.Len(t, f.subs.subs, 1)
	for _, sub := range f.subs.subs {
		assert.Equal(t, domain.SubActive, sub.Status)
		assert.Equal(t, "user-1", sub.UserID)
		assert.Equal(t, fixedNow.AddDate(0, 1, 0), sub.NextBillingDate)

		// The stored token must be encrypted at rest.
		assert.NotEqual(t, "card-token-abc", sub.CardToken)
		plain, err := f.enc.Decrypt(sub.CardToken)
		require.NoError(t, err)
		assert.Equal(t, "card-token-abc", string(plain))
	}
}

func TestHandleWebhookCaptureChallengeGoesToReview(t *testing.T) {
	f := newBillingFixture(t)
	f.seedPendingTx("tx-1", "order-1")

	n := signedNotification("order-1", payment.StatusCapture, payment.FraudChallenge)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), n))

	assert.Equal(t, domain.TxReview, f.txs.txs["tx-1"].Status)
	assert.Empty(t, f.users.entitlements)
}

func TestHandleWebhookDenyFailsTransaction(t *testing.T) {
	f := newBillingFixture(t)
	f.seedPendingTx("tx-1", "order-1")

	n := signedNotification("order-1", payment.StatusDeny, "")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), n))

	assert.Equal(t, domain.TxFailed, f.txs.txs["tx-1"].Status)
	assert.Empty(t, f.users.entitlements)
}

func TestHandleWebhookTerminalTransactionIsIdempotent(t *testing.T) {
	f := newBillingFixture(t)
	tx := f.seedPendingTx("tx-1", "order-1")
	tx.Status = domain.TxCompleted

	err := f.svc.HandleWebhook(context.Background(), signedNotification("order-1", payment.StatusSettlement, ""))
	require.NoError(t, err)

	// Still completed, nothing re-granted.
	assert.Equal(t, domain.TxCompleted, tx.Status)
	assert.Empty(t, f.users.entitlements)
}

func TestHandleWebhookFallsBackToMetadataLookup(t *testing.T) {
	f := newBillingFixture(t)
	tx := f.seedPendingTx("tx-1", "internal-order-1")
	tx.Metadata["order_id"] = "gateway-order-9"

	err := f.svc.HandleWebhook(context.Background(), signedNotification("gateway-order-9", payment.StatusSettlement, ""))
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, f.txs.txs["tx-1"].Status)
}

func TestHandleWebhookUnknownOrderIsNotFound(t *testing.T) {
	f := newBillingFixture(t)

	err := f.svc.HandleWebhook(context.Background(), signedNotification("nope", payment.StatusSettlement, ""))
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Code)
}

func TestCreateCheckoutCreatesPendingTransactionAndLink(t *testing.T) {
	f := newBillingFixture(t)

	resp, err := f.svc.CreateCheckout(context.Background(), "user-1", &domain.CreateCheckoutRequest{
		PackageID: "pkg-pro", GatewayID: "gw-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)
	assert.Contains(t, resp.PaymentURL, resp.OrderID)

	require.Len(t, f.gateway.LinkCalls, 1)
	assert.Equal(t, int64(100000), f.gateway.LinkCalls[0].Amount)

	tx, err := f.txs.FindByOrderID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, domain.TxPending, tx.Status)
	assert.Equal(t, "monthly", tx.Metadata["billing_period"])
}

func TestCreateCheckoutRejectsUnknownPackage(t *testing.T) {
	f := newBillingFixture(t)

	_, err := f.svc.CreateCheckout(context.Background(), "user-1", &domain.CreateCheckoutRequest{
		PackageID: "missing", GatewayID: "gw-1",
	})
	require.Error(t, err)
	assert.Empty(t, f.gateway.LinkCalls)
}

func TestUpdateOrderStatusRejectsTerminalTransaction(t *testing.T) {
	f := newBillingFixture(t)
	tx := f.seedPendingTx("tx-1", "order-1")
	tx.Status = domain.TxFailed

	_, err := f.svc.UpdateOrderStatus(context.Background(), "admin-1", "tx-1", &domain.UpdateOrderStatusRequest{
		Status: domain.TxCompleted,
	})
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
	assert.Contains(t, appErr.Message, "already failed")
}

func TestUpdateOrderStatusApprovalGrantsPlan(t *testing.T) {
	f := newBillingFixture(t)
	tx := f.seedPendingTx("tx-1", "order-1")
	tx.Status = domain.TxProofUploaded

	updated, err := f.svc.UpdateOrderStatus(context.Background(), "admin-1", "tx-1", &domain.UpdateOrderStatusRequest{
		Status: domain.TxCompleted, Notes: "bank transfer verified",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, updated.Status)
	require.NotNil(t, updated.VerifiedBy)
	assert.Equal(t, "admin-1", *updated.VerifiedBy)

	require.Len(t, f.users.entitlements, 1)
	assert.Equal(t, fixedNow.AddDate(0, 1, 0), f.users.entitlements[0].ExpiresAt)
}

func TestUpdateOrderStatusRevertsWhenActivationFails(t *testing.T) {
	f := newBillingFixture(t)
	tx := f.seedPendingTx("tx-1", "order-1")
	tx.Status = domain.TxProofUploaded
	delete(f.catalog.pkgs, "pkg-pro") // activation cannot resolve the package

	_, err := f.svc.UpdateOrderStatus(context.Background(), "admin-1", "tx-1", &domain.UpdateOrderStatusRequest{
		Status: domain.TxCompleted,
	})
	require.Error(t, err)

	// The order is back to awaiting verification with the reason recorded.
	require.Len(t, f.txs.verifications, 2)
	revert := f.txs.verifications[1]
	assert.Equal(t, domain.TxProofUploaded, revert.Status)
	assert.Contains(t, revert.Notes, "plan activation failed")
	assert.Equal(t, domain.TxProofUploaded, f.txs.txs["tx-1"].Status)
}
