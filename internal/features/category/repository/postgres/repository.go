package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"teleindex-backend/internal/features/category/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.CategoryRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) Upsert(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	query := `
		INSERT INTO categories (name)
		SELECT UNNEST($1::text[])
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(names)); err != nil {
		return fmt.Errorf("failed to upsert categories: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
