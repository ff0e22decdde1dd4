package repository

import (
	"context"
	"errors"
	"time"

	"teleindex-backend/internal/common/patch"
	"teleindex-backend/internal/features/creator/models"
)

var (
	ErrCreatorNotFound = errors.New("creator not found")
	ErrLinkNotFound    = errors.New("creator channel link not found")
)

type CreatorRepository interface {
	Create(ctx context.Context, creator *models.Creator) error
	GetByID(ctx context.Context, id string) (*models.Creator, error)
	GetBySlug(ctx context.Context, slug string) (*models.Creator, error)
	// SlugExists проверяет занятость slug другим автором
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	// List выбирает только активных авторов
	List(ctx context.Context, filter models.ListFilter) ([]*models.Creator, int64, error)
	// ListActive кандидаты для подборки
	ListActive(ctx context.Context, category string, featuredOnly bool, limit int) ([]*models.Creator, error)
	CountActive(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, changes patch.Assignments) (*models.Creator, error)
	UpdateMetrics(ctx context.Context, id string, metrics models.Metrics, updatedAt time.Time) (slug string, err error)
	// Delete удаляет автора вместе со связями
	Delete(ctx context.Context, id string) error

	// AddLinks добавляет связи, уже существующие пары пропускаются
	AddLinks(ctx context.Context, links []*models.Link) (added int, err error)
	SetPrimary(ctx context.Context, creatorID, channelID string) error
	RemoveLink(ctx context.Context, creatorID, channelID string) error
	LinkedChannelIDs(ctx context.Context, creatorID string) ([]string, error)
	// CreatorIDsByChannels авторы, связанные хотя бы с одним из каналов
	CreatorIDsByChannels(ctx context.Context, channelIDs []string) ([]string, error)
}
