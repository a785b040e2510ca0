package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/travel-insurance-service/internal/auth"
	"github.com/spec-kit/travel-insurance-service/internal/config"
	"github.com/spec-kit/travel-insurance-service/internal/domain"
	apperrors "github.com/spec-kit/travel-insurance-service/pkg/util/errorutil"
)

type fakeUserRepo struct {
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	u.ID = fmt.Sprintf("user-%d", len(f.byEmail)+1)
	if f.byEmail == nil {
		f.byEmail = map[string]*domain.User{}
	}
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func testAuthConfig() config.Config {
	return config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}}
}

func TestRegisterUser_Success(t *testing.T) {
	repo := &fakeUserRepo{}
	s := NewAuthService(testAuthConfig(), repo)

	user, token, _, err := s.RegisterUser(context.Background(), "Ana", "ana@example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "supersecret", user.PasswordHash)
	assert.NotEmpty(t, token)
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	repo := &fakeUserRepo{byEmail: map[string]*domain.User{
		"ana@example.com": {ID: "user-1", Email: "ana@example.com"},
	}}
	s := NewAuthService(testAuthConfig(), repo)

	_, _, _, err := s.RegisterUser(context.Background(), "Ana", "ana@example.com", "supersecret")
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestLoginUser_Flows(t *testing.T) {
	hash, err := auth.HashPassword("supersecret", 4)
	require.NoError(t, err)
	repo := &fakeUserRepo{byEmail: map[string]*domain.User{
		"ana@example.com": {ID: "user-1", Email: "ana@example.com", Name: "Ana", PasswordHash: hash},
	}}
	s := NewAuthService(testAuthConfig(), repo)

	_, token, _, err := s.LoginUser(context.Background(), "ana@example.com", "supersecret")
	require.NoError(t, err)
	claims, err := s.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	var domainErr *apperrors.DomainError
	_, _, _, err = s.LoginUser(context.Background(), "ana@example.com", "wrong")
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)

	_, _, _, err = s.LoginUser(context.Background(), "ghost@example.com", "supersecret")
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
}
