package services

import (
	"context"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/kegtrack/bracket-engine/models"
	"github.com/kegtrack/bracket-engine/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users map[string]*models.AdminUser
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	user, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func newAuthFixture(t *testing.T, secret string) AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeUserRepo{users: map[string]*models.AdminUser{
		"admin@example.com": {
			ID:           1,
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
		},
	}}
	return NewAuthService(repo, []byte(secret))
}

func TestLogin(t *testing.T) {
	svc := newAuthFixture(t, "test-secret")

	user, token, err := svc.Login(context.Background(), "admin@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Empty(t, user.PasswordHash)
	require.NotEmpty(t, token)

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(1), claims["user_id"])
	assert.Equal(t, string(models.RoleAdmin), claims["role"])
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthFixture(t, "test-secret")

	_, _, err := svc.Login(context.Background(), "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newAuthFixture(t, "test-secret")

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
