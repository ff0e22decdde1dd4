package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"teleindex-backend/internal/common/auth"
	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/logger"
	"teleindex-backend/internal/common/validation"
	"teleindex-backend/internal/features/user/mapper"
	"teleindex-backend/internal/features/user/models"
	"teleindex-backend/internal/features/user/repository"
	"teleindex-backend/internal/platform/metrics"
	"teleindex-backend/internal/platform/postgres"
)

const tokenType = "bearer"

type UserService interface {
	// Register создаёт первого администратора; после этого регистрация закрыта
	Register(ctx context.Context, req *models.RegisterRequest) (*models.UserResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
	Me(ctx context.Context, userID string) (*models.UserResponse, error)
}

type userService struct {
	repo       repository.UserRepository
	jwtManager *auth.JWTManager
	bcryptCost int
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewUserService(repo repository.UserRepository, jwtManager *auth.JWTManager, cfg *config.Config, m *metrics.Metrics) UserService {
	cost := cfg.Auth.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &userService{
		repo:       repo,
		jwtManager: jwtManager,
		bcryptCost: cost,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) (*models.UserResponse, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("count users", err)
	}
	if count > 0 {
		return nil, registrationClosed()
	}

	email := models.NormalizeEmail(req.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, errors.NewValidationError("email", err.Error())
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return nil, errors.NewValidationError("password", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to hash password")
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Role:         auth.RoleAdmin,
		CreatedAt:    s.now(),
	}

	if err := s.repo.CreateFirst(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrUsersExist) {
			return nil, registrationClosed()
		}
		if postgres.IsUniqueViolation(err) {
			return nil, errors.NewConflictError("user", "email already registered")
		}
		return nil, errors.NewDatabaseError("create user", err)
	}

	logger.Info().Str("user_id", user.ID).Msg("First admin registered")
	return mapper.ToUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil {
		if stderrors.Is(err, repository.ErrUserNotFound) {
			s.countLogin("failure")
			return nil, invalidCredentials()
		}
		return nil, errors.NewDatabaseError("get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.countLogin("failure")
		return nil, invalidCredentials()
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to issue token")
	}

	s.countLogin("success")
	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   tokenType,
		User:        mapper.ToUserResponse(user),
	}, nil
}

func (s *userService) Me(ctx context.Context, userID string) (*models.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrUserNotFound) {
			// токен пережил удалённого пользователя
			return nil, errors.NewUnauthorizedError("user no longer exists")
		}
		return nil, errors.NewDatabaseError("get user", err)
	}
	return mapper.ToUserResponse(user), nil
}

func (s *userService) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()
	}
}

func registrationClosed() *errors.AppError {
	return errors.NewForbiddenError("registration is closed")
}

func invalidCredentials() *errors.AppError {
	return errors.NewUnauthorizedError("invalid email or password")
}
