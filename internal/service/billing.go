package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/internal/metrics"
	"github.com/indexnow-studio/backend/pkg/crypto"
	"github.com/indexnow-studio/backend/pkg/payment"
)

// TransactionStore is the subset of the transaction repository billing needs.
type TransactionStore interface {
	Create(ctx context.Context, t *domain.Transaction) error
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)
	FindByMetadataOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)
	FindByGatewayTransactionID(ctx context.Context, fragment string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, gatewayTxID *string, processedAt *time.Time) error
	SetVerification(ctx context.Context, id string, status domain.TransactionStatus, verifiedBy, notes string) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Transaction, error)
}

// SubscriptionStore is the subset of the recurring-subscription repository
// billing needs.
type SubscriptionStore interface {
	Create(ctx context.Context, s *domain.RecurringSubscription) error
	FindActiveByUser(ctx context.Context, userID string) (*domain.RecurringSubscription, error)
	DueForBilling(ctx context.Context, now time.Time) ([]*domain.RecurringSubscription, error)
	AdvanceBilling(ctx context.Context, id string, nextBillingDate, expiresAt time.Time) error
	Extend(ctx context.Context, id string, nextBillingDate, expiresAt time.Time, cardToken string) error
	MarkPaymentFailed(ctx context.Context, id, reason string) error
}

// EntitlementStore is the subset of the user repository billing needs.
type EntitlementStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdateEntitlement(ctx context.Context, userID, packageID string, subscribedAt, expiresAt time.Time) error
}

// CatalogStore is the subset of the package repository billing needs.
type CatalogStore interface {
	FindByID(ctx context.Context, id string) (*domain.Package, error)
	FindGatewayByID(ctx context.Context, id string) (*domain.PaymentGatewayConfig, error)
}

// BillingService owns checkout, webhook reconciliation, and the admin order
// flow.
type BillingService struct {
	txs     TransactionStore
	subs    SubscriptionStore
	users   EntitlementStore
	catalog CatalogStore
	gateway payment.Gateway
	enc     *crypto.Encryptor
	logger  *zap.Logger
	now     func() time.Time
}

// NewBillingService creates a BillingService.
func NewBillingService(
	txs TransactionStore,
	subs SubscriptionStore,
	users EntitlementStore,
	catalog CatalogStore,
	gateway payment.Gateway,
	enc *crypto.Encryptor,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		txs:     txs,
		subs:    subs,
		users:   users,
		catalog: catalog,
		gateway: gateway,
		enc:     enc,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateCheckout creates a pending transaction and a hosted payment link.
func (s *BillingService) CreateCheckout(ctx context.Context, userID string, req *domain.CreateCheckoutRequest) (*domain.PaymentLinkResponse, error) {
	pkg, err := s.catalog.FindByID(ctx, req.PackageID)
	if err != nil {
		return nil, domain.ErrDatabase("failed to load package", err)
	}
	if pkg == nil || !pkg.Active {
		return nil, domain.ErrBadRequest("unknown or inactive package")
	}

	gw, err := s.catalog.FindGatewayByID(ctx, req.GatewayID)
	if err != nil {
		return nil, domain.ErrDatabase("failed to load gateway", err)
	}
	if gw == nil || !gw.Active {
		return nil, domain.ErrBadRequest("unknown or inactive payment gateway")
	}

	now := s.now()
	orderID := uuid.New().String()
	tx := &domain.Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		PackageID: pkg.ID,
		GatewayID: gw.ID,
		Status:    domain.TxPending,
		Amount:    pkg.Price,
		Currency:  pkg.Currency,
		OrderID:   orderID,
		Metadata: map[string]any{
			"order_id":       orderID,
			"billing_period": string(pkg.BillingPeriod),
			"package_slug":   pkg.Slug,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		return nil, domain.ErrDatabase("failed to create transaction", err)
	}

	paymentURL, err := s.gateway.CreatePaymentLink(ctx, payment.CreateLinkParams{
		OrderID:  orderID,
		UserID:   userID,
		Amount:   pkg.Price,
		Currency: pkg.Currency,
		ItemName: pkg.Name,
	})
	if err != nil {
		return nil, domain.ErrExternalAPI("failed to create payment link", err)
	}

	return &domain.PaymentLinkResponse{PaymentURL: paymentURL, OrderID: orderID}, nil
}

// HandleWebhook reconciles a gateway notification. The signature is the only
// integrity check against a forged callback: on mismatch the request is
// rejected before any database access.
func (s *BillingService) HandleWebhook(ctx context.Context, n payment.Notification) error {
	if !s.gateway.VerifyNotification(n) {
		metrics.WebhookCallback("invalid_signature")
		return domain.ErrBadRequest("invalid signature")
	}

	tx, err := s.locateTransaction(ctx, n)
	if err != nil {
		metrics.WebhookCallback("error")
		return err
	}
	if tx == nil {
		metrics.WebhookCallback("not_found")
		return domain.ErrNotFound("transaction not found for order " + n.OrderID)
	}

	if tx.Status.Terminal() {
		// Completed/failed are immutable; duplicate callbacks are acked.
		s.logger.Info("webhook for terminal transaction ignored",
			zap.String("transaction_id", tx.ID),
			zap.String("status", string(tx.Status)))
		metrics.WebhookCallback("duplicate")
		return nil
	}

	internal := domain.TransactionStatus(n.InternalStatus())
	s.logger.Info("webhook received",
		zap.String("order_id", n.OrderID),
		zap.String("transaction_status", n.TransactionStatus),
		zap.String("fraud_status", n.FraudStatus),
		zap.String("internal_status", string(internal)))

	switch internal {
	case domain.TxCompleted:
		s.settle(ctx, tx, n)
	case domain.TxReview, domain.TxFailed, domain.TxPending:
		gatewayTxID := optional(n.TransactionID)
		if err := s.txs.UpdateStatus(ctx, tx.ID, internal, gatewayTxID, nil); err != nil {
			metrics.WebhookCallback("error")
			return domain.ErrDatabase("failed to update transaction status", err)
		}
	}

	metrics.WebhookCallback("ok")
	return nil
}

// locateTransaction tries, in order: exact order-id match, metadata
// containment, then a fuzzy gateway-transaction-id match. Later tiers only
// run when earlier ones find nothing.
func (s *BillingService) locateTransaction(ctx context.Context, n payment.Notification) (*domain.Transaction, error) {
	tx, err := s.txs.FindByOrderID(ctx, n.OrderID)
	if err != nil {
		return nil, domain.ErrDatabase("transaction lookup failed", err)
	}
	if tx != nil {
		return tx, nil
	}

	tx, err = s.txs.FindByMetadataOrderID(ctx, n.OrderID)
	if err != nil {
		return nil, domain.ErrDatabase("transaction metadata lookup failed", err)
	}
	if tx != nil {
		return tx, nil
	}

	if n.TransactionID == "" {
		return nil, nil
	}
	tx, err = s.txs.FindByGatewayTransactionID(ctx, n.TransactionID)
	if err != nil {
		return nil, domain.ErrDatabase("gateway transaction lookup failed", err)
	}
	return tx, nil
}

// settle applies the success path: mark the transaction completed, create or
// extend the recurring subscription, and move the user's entitlement
// forward. The writes are independent; a failure partway through is logged
// and does not roll back earlier writes.
func (s *BillingService) settle(ctx context.Context, tx *domain.Transaction, n payment.Notification) {
	now := s.now()
	period := s.billingPeriod(ctx, tx)
	expiresAt := period.Advance(now)

	gatewayTxID := optional(n.TransactionID)
	if err := s.txs.UpdateStatus(ctx, tx.ID, domain.TxCompleted, gatewayTxID, &now); err != nil {
		s.logger.Error("settle: transaction update failed",
			zap.String("order_id", tx.OrderID), zap.Error(err))
	}

	if n.SavedTokenID != "" {
		if err := s.upsertRecurring(ctx, tx, n.SavedTokenID, period, now, expiresAt); err != nil {
			s.logger.Error("settle: recurring subscription write failed",
				zap.String("order_id", tx.OrderID), zap.Error(err))
		}
	}

	if err := s.users.UpdateEntitlement(ctx, tx.UserID, tx.PackageID, now, expiresAt); err != nil {
		s.logger.Error("settle: entitlement update failed",
			zap.String("order_id", tx.OrderID),
			zap.String("user_id", tx.UserID), zap.Error(err))
	}
}

func (s *BillingService) upsertRecurring(ctx context.Context, tx *domain.Transaction, cardToken string, period domain.BillingPeriod, now, expiresAt time.Time) error {
	encToken, err := s.enc.Encrypt([]byte(cardToken))
	if err != nil {
		return fmt.Errorf("encrypt card token: %w", err)
	}

	existing, err := s.subs.FindActiveByUser(ctx, tx.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return s.subs.Extend(ctx, existing.ID, expiresAt, expiresAt, encToken)
	}

	return s.subs.Create(ctx, &domain.RecurringSubscription{
		ID:              uuid.New().String(),
		UserID:          tx.UserID,
		PackageID:       tx.PackageID,
		Status:          domain.SubActive,
		BillingPeriod:   period,
		NextBillingDate: expiresAt,
		ExpiresAt:       expiresAt,
		CardToken:       encToken,
		Metadata:        map[string]any{"gateway_id": tx.GatewayID},
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

// billingPeriod resolves the period from transaction metadata, falling back
// to the package definition, then monthly.
func (s *BillingService) billingPeriod(ctx context.Context, tx *domain.Transaction) domain.BillingPeriod {
	if raw, ok := tx.Metadata["billing_period"].(string); ok {
		if p := domain.BillingPeriod(raw); p.Valid() {
			return p
		}
	}
	if pkg, err := s.catalog.FindByID(ctx, tx.PackageID); err == nil && pkg != nil && pkg.BillingPeriod.Valid() {
		return pkg.BillingPeriod
	}
	return domain.PeriodMonthly
}

// UpdateOrderStatus is the admin order decision: approve (completed) or
// reject (failed). Terminal transactions reject further changes. If plan
// activation fails after approval, the transaction is reverted to
// proof_uploaded with the failure reason in notes.
func (s *BillingService) UpdateOrderStatus(ctx context.Context, adminID, txID string, req *domain.UpdateOrderStatusRequest) (*domain.Transaction, error) {
	tx, err := s.txs.FindByID(ctx, txID)
	if err != nil {
		return nil, domain.ErrDatabase("failed to load transaction", err)
	}
	if tx == nil {
		return nil, domain.ErrNotFound("transaction not found")
	}
	if !tx.Status.CanTransitionTo(req.Status) {
		return nil, domain.ErrBadRequest("transaction is already " + string(tx.Status))
	}

	if err := s.txs.SetVerification(ctx, txID, req.Status, adminID, req.Notes); err != nil {
		return nil, domain.ErrDatabase("failed to update transaction", err)
	}

	if req.Status == domain.TxCompleted {
		if err := s.activatePlan(ctx, tx); err != nil {
			// Compensate: the order is back to awaiting verification.
			revertNotes := "plan activation failed: " + err.Error()
			if revertErr := s.txs.SetVerification(ctx, txID, domain.TxProofUploaded, adminID, revertNotes); revertErr != nil {
				s.logger.Error("failed to revert transaction after activation failure",
					zap.String("transaction_id", txID), zap.Error(revertErr))
			}
			return nil, domain.ErrInternal("plan activation failed", err)
		}
	}

	updated, err := s.txs.FindByID(ctx, txID)
	if err != nil {
		return nil, domain.ErrDatabase("failed to reload transaction", err)
	}
	return updated, nil
}

// activatePlan grants the entitlement for an admin-approved order. Unlike
// the webhook path, any failure here aborts so the caller can compensate.
func (s *BillingService) activatePlan(ctx context.Context, tx *domain.Transaction) error {
	pkg, err := s.catalog.FindByID(ctx, tx.PackageID)
	if err != nil {
		return fmt.Errorf("load package: %w", err)
	}
	if pkg == nil {
		return fmt.Errorf("package %s not found", tx.PackageID)
	}

	now := s.now()
	expiresAt := pkg.BillingPeriod.Advance(now)
	if err := s.users.UpdateEntitlement(ctx, tx.UserID, tx.PackageID, now, expiresAt); err != nil {
		return fmt.Errorf("update entitlement: %w", err)
	}
	return nil
}

// GetSubscription returns the user's entitlement and recurring subscription.
func (s *BillingService) GetSubscription(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.ErrDatabase("failed to load user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}

	sub, err := s.subs.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrDatabase("failed to load subscription", err)
	}

	resp := map[string]any{
		"packageId":      user.PackageID,
		"subscribedAt":   user.SubscribedAt,
		"expiresAt":      user.ExpiresAt,
		"dailyQuotaUsed": user.DailyQuotaUsed,
	}
	if sub != nil {
		resp["recurring"] = sub
	}
	return resp, nil
}

// ListTransactions returns the user's billing history.
func (s *BillingService) ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	txs, err := s.txs.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrDatabase("failed to list transactions", err)
	}
	return txs, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
