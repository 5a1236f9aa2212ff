package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password, role, package_id, subscribed_at, expires_at,
	daily_quota_used, daily_quota_reset_date, created_at, updated_at`

// UserRepository handles database operations for users and their
// subscription entitlement.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.Role,
		&u.PackageID, &u.SubscribedAt, &u.ExpiresAt,
		&u.DailyQuotaUsed, &u.DailyQuotaResetDate,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, password, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID, u.Email, u.Password, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// FindByID returns a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// Exists checks if a user with the given email already exists.
func (r *UserRepository) Exists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// ListAll returns all users ordered by creation date.
func (r *UserRepository) ListAll(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.Password, &u.Role,
			&u.PackageID, &u.SubscribedAt, &u.ExpiresAt,
			&u.DailyQuotaUsed, &u.DailyQuotaResetDate,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, nil
}

// Delete removes a user by ID.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// UpdateEntitlement sets the user's package and subscription window. Called
// on successful payment reconciliation and renewal.
func (r *UserRepository) UpdateEntitlement(ctx context.Context, userID, packageID string, subscribedAt, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET package_id = $1, subscribed_at = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, packageID, subscribedAt, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("failed to update entitlement for user %s: %w", userID, err)
	}
	return nil
}

// ExtendExpiry moves expires_at for a user (admin extension path).
func (r *UserRepository) ExtendExpiry(ctx context.Context, userID string, expiresAt time.Time) error {
	query := `UPDATE users SET expires_at = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("failed to extend expiry for user %s: %w", userID, err)
	}
	return nil
}

// IncrementDailyQuota adds n to the user's daily quota usage.
func (r *UserRepository) IncrementDailyQuota(ctx context.Context, userID string, n int) error {
	query := `
		UPDATE users SET daily_quota_used = daily_quota_used + $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, n, userID)
	if err != nil {
		return fmt.Errorf("failed to increment quota for user %s: %w", userID, err)
	}
	return nil
}

// ResetDailyQuotas clears usage for all users whose reset date has passed.
// Returns the number of users reset.
func (r *UserRepository) ResetDailyQuotas(ctx context.Context, today time.Time) (int64, error) {
	query := `
		UPDATE users
		SET daily_quota_used = 0, daily_quota_reset_date = $1, updated_at = NOW()
		WHERE daily_quota_reset_date < $1
	`
	tag, err := r.db.Exec(ctx, query, today)
	if err != nil {
		return 0, fmt.Errorf("failed to reset daily quotas: %w", err)
	}
	return tag.RowsAffected(), nil
}
