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

// RenewalResult summarizes one batch run. Processed and Failed always sum to
// the batch size.
type RenewalResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// RenewalService re-charges saved card tokens for due recurring
// subscriptions. Invoked on a cron schedule.
type RenewalService struct {
	subs    SubscriptionStore
	txs     TransactionStore
	users   EntitlementStore
	catalog CatalogStore
	gateway payment.Gateway
	enc     *crypto.Encryptor
	logger  *zap.Logger
	now     func() time.Time
}

// NewRenewalService creates a RenewalService.
func NewRenewalService(
	subs SubscriptionStore,
	txs TransactionStore,
	users EntitlementStore,
	catalog CatalogStore,
	gateway payment.Gateway,
	enc *crypto.Encryptor,
	logger *zap.Logger,
) *RenewalService {
	return &RenewalService{
		subs:    subs,
		txs:     txs,
		users:   users,
		catalog: catalog,
		gateway: gateway,
		enc:     enc,
		logger:  logger,
		now:     time.Now,
	}
}

// ProcessDue charges every active subscription whose billing date has
// passed. A failure on one subscription never aborts the rest of the batch.
func (s *RenewalService) ProcessDue(ctx context.Context) (RenewalResult, error) {
	var result RenewalResult

	due, err := s.subs.DueForBilling(ctx, s.now())
	if err != nil {
		return result, domain.ErrDatabase("failed to query due subscriptions", err)
	}
	if len(due) == 0 {
		return result, nil
	}

	s.logger.Info("renewal batch starting", zap.Int("due", len(due)))

	for _, sub := range due {
		if err := s.chargeOne(ctx, sub); err != nil {
			result.Failed++
			metrics.RenewalCharge("failed")
			s.logger.Error("renewal charge failed",
				zap.String("subscription_id", sub.ID),
				zap.String("user_id", sub.UserID),
				zap.Error(err))

			if markErr := s.subs.MarkPaymentFailed(ctx, sub.ID, err.Error()); markErr != nil {
				s.logger.Error("failed to mark subscription payment_failed",
					zap.String("subscription_id", sub.ID), zap.Error(markErr))
			}
			continue
		}
		result.Processed++
		metrics.RenewalCharge("success")
	}

	s.logger.Info("renewal batch finished",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *RenewalService) chargeOne(ctx context.Context, sub *domain.RecurringSubscription) error {
	pkg, err := s.catalog.FindByID(ctx, sub.PackageID)
	if err != nil {
		return fmt.Errorf("load package: %w", err)
	}
	if pkg == nil {
		return fmt.Errorf("package %s not found", sub.PackageID)
	}

	token, err := s.enc.Decrypt(sub.CardToken)
	if err != nil {
		return fmt.Errorf("decrypt card token: %w", err)
	}

	orderID := uuid.New().String()
	charge, err := s.gateway.ChargeToken(ctx, payment.ChargeParams{
		OrderID:   orderID,
		CardToken: string(token),
		Amount:    pkg.Price,
		Currency:  pkg.Currency,
	})
	if err != nil {
		return fmt.Errorf("gateway charge: %w", err)
	}
	if !charge.Succeeded() {
		return fmt.Errorf("charge not settled: status %s", charge.TransactionStatus)
	}

	now := s.now()
	period := sub.BillingPeriod
	if !period.Valid() {
		period = pkg.BillingPeriod
	}
	nextBilling := period.Advance(sub.NextBillingDate)
	newExpiry := period.Advance(sub.ExpiresAt)

	if err := s.subs.AdvanceBilling(ctx, sub.ID, nextBilling, newExpiry); err != nil {
		return fmt.Errorf("advance billing dates: %w", err)
	}

	gatewayID := "recurring"
	if v, ok := sub.Metadata["gateway_id"].(string); ok && v != "" {
		gatewayID = v
	}
	tx := &domain.Transaction{
		ID:                   uuid.New().String(),
		UserID:               sub.UserID,
		PackageID:            sub.PackageID,
		GatewayID:            gatewayID,
		Status:               domain.TxCompleted,
		Amount:               pkg.Price,
		Currency:             pkg.Currency,
		OrderID:              orderID,
		GatewayTransactionID: optional(charge.TransactionID),
		Metadata: map[string]any{
			"order_id":        orderID,
			"billing_period":  string(period),
			"renewal":         true,
			"subscription_id": sub.ID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		return fmt.Errorf("record renewal transaction: %w", err)
	}

	if err := s.users.UpdateEntitlement(ctx, sub.UserID, sub.PackageID, now, newExpiry); err != nil {
		return fmt.Errorf("update entitlement: %w", err)
	}
	return nil
}
