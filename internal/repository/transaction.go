package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

const txColumns = `id, user_id, package_id, gateway_id, status, amount, currency, order_id,
	gateway_transaction_id, verified_by, verified_at, processed_at, notes, metadata,
	created_at, updated_at`

// TransactionRepository handles database operations for payment transactions.
type TransactionRepository struct {
	db DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID, &t.UserID, &t.PackageID, &t.GatewayID, &t.Status,
		&t.Amount, &t.Currency, &t.OrderID,
		&t.GatewayTransactionID, &t.VerifiedBy, &t.VerifiedAt, &t.ProcessedAt,
		&t.Notes, &t.Metadata, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &t, nil
}

// Create inserts a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, package_id, gateway_id, status, amount, currency,
			order_id, gateway_transaction_id, notes, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.UserID, t.PackageID, t.GatewayID, t.Status, t.Amount, t.Currency,
		t.OrderID, t.GatewayTransactionID, t.Notes, t.Metadata, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// FindByID returns a transaction by ID.
func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, id))
}

// FindByOrderID returns the transaction with an exact order-id match.
func (r *TransactionRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE order_id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, orderID))
}

// FindByMetadataOrderID returns the most recent non-terminal transaction
// whose metadata contains the given order reference. Second lookup tier for
// webhook reconciliation.
func (r *TransactionRepository) FindByMetadataOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + ` FROM transactions
		WHERE metadata @> jsonb_build_object('order_id', $1::text)
		  AND status IN ('pending', 'proof_uploaded', 'review')
		ORDER BY created_at DESC LIMIT 1
	`
	return scanTransaction(r.db.QueryRow(ctx, query, orderID))
}

// FindByGatewayTransactionID returns the most recent non-terminal
// transaction whose gateway transaction id ends with the given fragment.
// Last lookup tier for webhook reconciliation.
func (r *TransactionRepository) FindByGatewayTransactionID(ctx context.Context, fragment string) (*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + ` FROM transactions
		WHERE gateway_transaction_id LIKE '%' || $1
		  AND status IN ('pending', 'proof_uploaded', 'review')
		ORDER BY created_at DESC LIMIT 1
	`
	return scanTransaction(r.db.QueryRow(ctx, query, fragment))
}

// UpdateStatus transitions a transaction, recording the gateway transaction
// id and processed timestamp when supplied.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, gatewayTxID *string, processedAt *time.Time) error {
	query := `
		UPDATE transactions
		SET status = $1,
		    gateway_transaction_id = COALESCE($2, gateway_transaction_id),
		    processed_at = COALESCE($3, processed_at),
		    updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, status, gatewayTxID, processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s status: %w", id, err)
	}
	return nil
}

// SetVerification records an admin decision on a transaction.
func (r *TransactionRepository) SetVerification(ctx context.Context, id string, status domain.TransactionStatus, verifiedBy, notes string) error {
	query := `
		UPDATE transactions
		SET status = $1, verified_by = $2, verified_at = NOW(), notes = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, status, verifiedBy, notes, id)
	if err != nil {
		return fmt.Errorf("failed to set verification on transaction %s: %w", id, err)
	}
	return nil
}

// ListByUser returns a user's transactions, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.PackageID, &t.GatewayID, &t.Status,
			&t.Amount, &t.Currency, &t.OrderID,
			&t.GatewayTransactionID, &t.VerifiedBy, &t.VerifiedAt, &t.ProcessedAt,
			&t.Notes, &t.Metadata, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, nil
}

// CountByStatus returns the number of transactions in the given status.
func (r *TransactionRepository) CountByStatus(ctx context.Context, status domain.TransactionStatus) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
