package repository

import (
	"context"
	"errors"

	"teleindex-backend/internal/common/patch"
	"teleindex-backend/internal/features/channel/models"
)

var ErrChannelNotFound = errors.New("channel not found")

type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	// GetByIDs возвращает найденные каналы; отсутствующие id пропускаются
	GetByIDs(ctx context.Context, ids []string) ([]*models.Channel, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Channel, int64, error)
	Top(ctx context.Context, limit int) ([]*models.Channel, error)
	Trending(ctx context.Context, limit int) ([]*models.Channel, error)
	Update(ctx context.Context, id string, changes patch.Assignments) (*models.Channel, error)
	CountByStatus(ctx context.Context) (*models.StatusCounts, error)
	// ListForLinkCheck возвращает каналы со ссылкой, давно не проверенные первыми
	ListForLinkCheck(ctx context.Context, limit int) ([]*models.Channel, error)
	// UpsertByLink вставляет канал или обновляет существующий с той же ссылкой.
	// id у обновлённого канала прежний, а не channel.ID
	UpsertByLink(ctx context.Context, channel *models.Channel) (id string, inserted bool, err error)
	RandomApprovedIDs(ctx context.Context, limit int) ([]string, error)
}
