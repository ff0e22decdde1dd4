package repository

import "context"

type CategoryRepository interface {
	Count(ctx context.Context) (int64, error)
	// Upsert добавляет отсутствующие названия, существующие не трогает
	Upsert(ctx context.Context, names []string) error
	// ListNames возвращает названия по алфавиту
	ListNames(ctx context.Context) ([]string, error)
}
