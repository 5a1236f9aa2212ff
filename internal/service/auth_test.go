package service

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/internal/repository"
)

var userCols = []string{
	"id", "email", "password", "role", "package_id", "subscribed_at", "expires_at",
	"daily_quota_used", "daily_quota_reset_date", "created_at", "updated_at",
}

func newAuthFixture(t *testing.T) (*AuthService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	svc := NewAuthService("test-jwt-secret", "admin@example.com", "admin-password",
		repository.NewUserRepository(mock), zap.NewNop())
	return svc, mock
}

func userRow(t *testing.T, id, email, password, role string) *pgxmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	return pgxmock.NewRows(userCols).AddRow(
		id, email, string(hash), role, nil, nil, nil, 0, nil, now, now,
	)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc, mock := newAuthFixture(t)

	mock.ExpectQuery(`SELECT [\s\S]+ FROM users WHERE email = \$1`).
		WithArgs("u@example.com").
		WillReturnRows(userRow(t, "user-1", "u@example.com", "hunter2!", "user"))

	resp, err := svc.Login(context.Background(), "u@example.com", "hunter2!")
	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.User.ID)
	require.NotEmpty(t, resp.Token)

	claims, err := svc.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Sub)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, mock := newAuthFixture(t)

	mock.ExpectQuery(`SELECT [\s\S]+ FROM users WHERE email = \$1`).
		WithArgs("u@example.com").
		WillReturnRows(userRow(t, "user-1", "u@example.com", "hunter2!", "user"))

	_, err := svc.Login(context.Background(), "u@example.com", "wrong")
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.Code)
}

func TestLoginUnknownUserSameErrorAsWrongPassword(t *testing.T) {
	svc, mock := newAuthFixture(t)

	mock.ExpectQuery(`SELECT [\s\S]+ FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows(userCols))

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.Code)
	assert.Equal(t, "invalid credentials", appErr.Message)
}

func TestVerifyTokenRejectsForgedToken(t *testing.T) {
	svc, mock := newAuthFixture(t)

	mock.ExpectQuery(`SELECT [\s\S]+ FROM users WHERE email = \$1`).
		WithArgs("u@example.com").
		WillReturnRows(userRow(t, "user-1", "u@example.com", "hunter2!", "user"))

	resp, err := svc.Login(context.Background(), "u@example.com", "hunter2!")
	require.NoError(t, err)

	other := NewAuthService("different-secret", "", "", nil, zap.NewNop())
	_, err = other.VerifyToken(resp.Token)
	require.Error(t, err)
}

func TestDeleteUserRefusesAdmin(t *testing.T) {
	svc, mock := newAuthFixture(t)

	mock.ExpectQuery(`SELECT [\s\S]+ FROM users WHERE id = \$1`).
		WithArgs("admin-1").
		WillReturnRows(userRow(t, "admin-1", "admin@example.com", "pw", "admin"))

	err := svc.DeleteUser(context.Background(), "admin-1")
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
}
