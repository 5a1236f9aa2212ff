package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

const recurringColumns = `id, user_id, package_id, status, billing_period,
	next_billing_date, expires_at, card_token, metadata, created_at, updated_at`

// SubscriptionRepository handles database operations for recurring
// subscriptions.
type SubscriptionRepository struct {
	db DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func scanRecurring(row pgx.Row) (*domain.RecurringSubscription, error) {
	var s domain.RecurringSubscription
	err := row.Scan(
		&s.ID, &s.UserID, &s.PackageID, &s.Status, &s.BillingPeriod,
		&s.NextBillingDate, &s.ExpiresAt, &s.CardToken, &s.Metadata,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan recurring subscription: %w", err)
	}
	return &s, nil
}

// Create inserts a new recurring subscription.
func (r *SubscriptionRepository) Create(ctx context.Context, s *domain.RecurringSubscription) error {
	query := `
		INSERT INTO recurring_subscriptions (id, user_id, package_id, status, billing_period,
			next_billing_date, expires_at, card_token, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		s.ID, s.UserID, s.PackageID, s.Status, s.BillingPeriod,
		s.NextBillingDate, s.ExpiresAt, s.CardToken, s.Metadata,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create recurring subscription: %w", err)
	}
	return nil
}

// FindActiveByUser returns the user's active recurring subscription, if any.
func (r *SubscriptionRepository) FindActiveByUser(ctx context.Context, userID string) (*domain.RecurringSubscription, error) {
	query := `
		SELECT ` + recurringColumns + ` FROM recurring_subscriptions
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC LIMIT 1
	`
	return scanRecurring(r.db.QueryRow(ctx, query, userID))
}

// DueForBilling returns active subscriptions whose next billing date has
// passed.
func (r *SubscriptionRepository) DueForBilling(ctx context.Context, now time.Time) ([]*domain.RecurringSubscription, error) {
	query := `
		SELECT ` + recurringColumns + ` FROM recurring_subscriptions
		WHERE status = 'active' AND next_billing_date <= $1
		ORDER BY next_billing_date ASC
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.RecurringSubscription
	for rows.Next() {
		var s domain.RecurringSubscription
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.PackageID, &s.Status, &s.BillingPeriod,
			&s.NextBillingDate, &s.ExpiresAt, &s.CardToken, &s.Metadata,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recurring subscription: %w", err)
		}
		subs = append(subs, &s)
	}
	return subs, nil
}

// AdvanceBilling moves a subscription's billing window forward after a
// successful charge.
func (r *SubscriptionRepository) AdvanceBilling(ctx context.Context, id string, nextBillingDate, expiresAt time.Time) error {
	query := `
		UPDATE recurring_subscriptions
		SET next_billing_date = $1, expires_at = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := r.db.Exec(ctx, query, nextBillingDate, expiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to advance billing for subscription %s: %w", id, err)
	}
	return nil
}

// Extend moves the expiry and billing dates forward and reactivates the
// subscription. Used when a webhook reconciles a payment for an existing
// subscription.
func (r *SubscriptionRepository) Extend(ctx context.Context, id string, nextBillingDate, expiresAt time.Time, cardToken string) error {
	query := `
		UPDATE recurring_subscriptions
		SET status = 'active', next_billing_date = $1, expires_at = $2,
		    card_token = CASE WHEN $3 <> '' THEN $3 ELSE card_token END,
		    updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, nextBillingDate, expiresAt, cardToken, id)
	if err != nil {
		return fmt.Errorf("failed to extend subscription %s: %w", id, err)
	}
	return nil
}

// MarkPaymentFailed flags a subscription after a declined charge, recording
// the failure reason in metadata.
func (r *SubscriptionRepository) MarkPaymentFailed(ctx context.Context, id, reason string) error {
	query := `
		UPDATE recurring_subscriptions
		SET status = 'payment_failed',
		    metadata = COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('failure_reason', $1::text),
		    updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark subscription %s payment_failed: %w", id, err)
	}
	return nil
}

// UpdateStatus sets a subscription's status.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE recurring_subscriptions SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("failed to update subscription %s status: %w", id, err)
	}
	return nil
}
