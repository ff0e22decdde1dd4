package service

import (
	"context"
	"time"

	"teleindex-backend/internal/common/cache"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/logger"
	"teleindex-backend/internal/features/category/repository"
)

const categoriesTTL = 10 * time.Minute

// DefaultCategories заполняют пустой справочник при первом обращении
var DefaultCategories = []string{
	"News", "Technology", "Crypto", "Business", "Entertainment",
	"Education", "Sports", "Lifestyle", "Finance", "Gaming",
}

type CategoryService interface {
	List(ctx context.Context) ([]string, error)
}

type categoryService struct {
	repo  repository.CategoryRepository
	cache cache.Cache
}

func NewCategoryService(repo repository.CategoryRepository, cacheService cache.Cache) CategoryService {
	return &categoryService{
		repo:  repo,
		cache: cacheService,
	}
}

// List возвращает отсортированные названия категорий
func (s *categoryService) List(ctx context.Context) ([]string, error) {
	var names []string
	err := s.cache.GetOrSet(ctx, cache.CategoriesKey, &names, categoriesTTL, func() (interface{}, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, errors.NewDatabaseError("list categories", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *categoryService) load(ctx context.Context) ([]string, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		if err := s.repo.Upsert(ctx, DefaultCategories); err != nil {
			return nil, err
		}
		logger.Info().Int("count", len(DefaultCategories)).Msg("Default categories seeded")
	}
	return s.repo.ListNames(ctx)
}
