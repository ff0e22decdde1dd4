package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleindex-backend/internal/common/auth"
	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/features/user/models"
	"teleindex-backend/internal/features/user/repository"
	"teleindex-backend/internal/platform/metrics"
)

type memoryUsers struct {
	mu    sync.Mutex
	users []*models.User
}

func (m *memoryUsers) CreateFirst(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.users) > 0 {
		return repository.ErrUsersExist
	}
	cp := *user
	m.users = append(m.users, &cp)
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == models.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryUsers) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func newTestService(t *testing.T) (UserService, *auth.JWTManager) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "user-service-test-secret"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.BcryptCost = 4

	jwtManager, err := auth.NewJWTManager(cfg)
	require.NoError(t, err)
	return NewUserService(&memoryUsers{}, jwtManager, cfg, metrics.Default()), jwtManager
}

func TestRegisterFirstUserOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &models.RegisterRequest{Email: " Admin@Example.com ", Password: "secret1", Name: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, user.Role)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.NotEmpty(t, user.ID)

	_, err = svc.Register(ctx, &models.RegisterRequest{Email: "other@example.com", Password: "secret2"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeForbidden))

	// закрытая регистрация не смотрит на тело запроса
	_, err = svc.Register(ctx, &models.RegisterRequest{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeForbidden))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "admin@example.com", Password: "123"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	_, err = svc.Register(ctx, &models.RegisterRequest{Email: "not-an-email", Password: "secret1"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	_, err = svc.Register(ctx, &models.RegisterRequest{Email: "admin@example.com", Password: "123456"})
	assert.NoError(t, err)
}

func TestLoginIssuesToken(t *testing.T) {
	svc, jwtManager := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, &models.RegisterRequest{Email: "admin@example.com", Password: "secret1"})
	require.NoError(t, err)

	success := metrics.Default().LoginAttemptsTotal.WithLabelValues("success")
	before := testutil.ToFloat64(success)

	resp, err := svc.Login(ctx, &models.LoginRequest{Email: "ADMIN@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, registered.ID, resp.User.ID)
	assert.Equal(t, before+1, testutil.ToFloat64(success))

	claims, err := jwtManager.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)

	me, err := svc.Me(ctx, claims.Subject)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", me.Email)
}

func TestLoginWrongCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "admin@example.com", Password: "secret1"})
	require.NoError(t, err)

	failure := metrics.Default().LoginAttemptsTotal.WithLabelValues("failure")
	before := testutil.ToFloat64(failure)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "admin@example.com", Password: "wrong-password"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))

	assert.Equal(t, before+2, testutil.ToFloat64(failure))
}

func TestMeUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Me(context.Background(), "missing")
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))
}
