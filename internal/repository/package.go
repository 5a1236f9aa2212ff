package repository

import (
	"context"
	"fmt"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

// PackageRepository handles database operations for packages and payment
// gateway configurations.
type PackageRepository struct {
	db DB
}

// NewPackageRepository creates a new PackageRepository.
func NewPackageRepository(db DB) *PackageRepository {
	return &PackageRepository{db: db}
}

const packageColumns = `id, name, slug, description, price, currency, billing_period,
	daily_url_quota, popular, active, created_at`

func scanPackage(row pgx.Row) (*domain.Package, error) {
	var p domain.Package
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Currency,
		&p.BillingPeriod, &p.DailyURLQuota, &p.Popular, &p.Active, &p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan package: %w", err)
	}
	return &p, nil
}

// ListActive returns all active packages ordered by price.
func (r *PackageRepository) ListActive(ctx context.Context) ([]*domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE active ORDER BY price ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var pkgs []*domain.Package
	for rows.Next() {
		var p domain.Package
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Currency,
			&p.BillingPeriod, &p.DailyURLQuota, &p.Popular, &p.Active, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		pkgs = append(pkgs, &p)
	}
	return pkgs, nil
}

// FindByID returns a package by ID.
func (r *PackageRepository) FindByID(ctx context.Context, id string) (*domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE id = $1`
	return scanPackage(r.db.QueryRow(ctx, query, id))
}

// FindGatewayByID returns a payment gateway configuration by ID.
func (r *PackageRepository) FindGatewayByID(ctx context.Context, id string) (*domain.PaymentGatewayConfig, error) {
	query := `SELECT id, name, slug, is_default, active, created_at FROM payment_gateways WHERE id = $1`
	var g domain.PaymentGatewayConfig
	err := r.db.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.Slug, &g.IsDefault, &g.Active, &g.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan gateway: %w", err)
	}
	return &g, nil
}

// ListGateways returns all active payment gateway configurations.
func (r *PackageRepository) ListGateways(ctx context.Context) ([]*domain.PaymentGatewayConfig, error) {
	query := `SELECT id, name, slug, is_default, active, created_at FROM payment_gateways WHERE active ORDER BY is_default DESC, name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list gateways: %w", err)
	}
	defer rows.Close()

	var gws []*domain.PaymentGatewayConfig
	for rows.Next() {
		var g domain.PaymentGatewayConfig
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.IsDefault, &g.Active, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan gateway: %w", err)
		}
		gws = append(gws, &g)
	}
	return gws, nil
}
