package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account together with its subscription entitlement.
// The entitlement columns (PackageID, ExpiresAt, quota fields) are mutated
// by payment reconciliation and read by the quota checks on job creation.
type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Password            string     `json:"-"`
	Role                string     `json:"role"` // user, admin
	PackageID           *string    `json:"packageId,omitempty"`
	SubscribedAt        *time.Time `json:"subscribedAt,omitempty"`
	ExpiresAt           *time.Time `json:"expiresAt,omitempty"`
	DailyQuotaUsed      int        `json:"dailyQuotaUsed"`
	DailyQuotaResetDate time.Time  `json:"dailyQuotaResetDate"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// NewUserID generates a new unique user ID.
func NewUserID() string {
	return uuid.New().String()
}

// LoginRequest is the input for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginUser is the user info embedded in a login response.
type LoginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// JWTClaims are the verified claims extracted from a bearer token.
type JWTClaims struct {
	Sub   string
	Email string
	Role  string
}

// CreateUserRequest is the admin input for creating a user.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// UserResponse is the API representation of a user.
type UserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	PackageID *string    `json:"packageId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
