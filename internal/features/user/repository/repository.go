package repository

import (
	"context"
	"errors"

	"teleindex-backend/internal/features/user/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrUsersExist возвращается CreateFirst, если в системе уже есть пользователь
	ErrUsersExist = errors.New("users already exist")
)

type UserRepository interface {
	// CreateFirst создаёт пользователя только в пустой таблице
	CreateFirst(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}
