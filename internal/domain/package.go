package domain

import "time"

// BillingPeriod is the renewal cadence of a package.
type BillingPeriod string

const (
	PeriodWeekly    BillingPeriod = "weekly"
	PeriodMonthly   BillingPeriod = "monthly"
	PeriodQuarterly BillingPeriod = "quarterly"
	PeriodAnnual    BillingPeriod = "annual"
)

// Valid reports whether p is a known billing period.
func (p BillingPeriod) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodAnnual:
		return true
	}
	return false
}

// Advance returns t moved forward by one billing period.
// weekly=+7d, monthly=+1mo, quarterly=+3mo, annual=+1y.
func (p BillingPeriod) Advance(t time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	case PeriodQuarterly:
		return t.AddDate(0, 3, 0)
	case PeriodAnnual:
		return t.AddDate(1, 0, 0)
	}
	return t
}

// Package represents a purchasable indexing plan.
type Package struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Description   string        `json:"description"`
	Price         int64         `json:"price"`    // minor units (e.g. cents)
	Currency      string        `json:"currency"` // ISO 4217
	BillingPeriod BillingPeriod `json:"billingPeriod"`
	DailyURLQuota int           `json:"dailyUrlQuota"` // URLs per day, -1 = unlimited
	Popular       bool          `json:"popular"`
	Active        bool          `json:"active"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// PaymentGatewayConfig is a configured payment gateway row (bank transfer,
// hosted checkout, ...) selectable at checkout.
type PaymentGatewayConfig struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsDefault bool      `json:"isDefault"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}
