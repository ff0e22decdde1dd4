package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/fx"

	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/logger"
)

// Код ошибки Postgres для нарушения уникальности
const uniqueViolation = "23505"

var Module = fx.Module(
	"postgres",
	fx.Provide(
		NewClientWithLifecycle,
		func(c *Client) *sql.DB { return c.GetDB() },
	),
)

type Client struct {
	db *sql.DB
}

func NewClient(cfg *config.Config) (*Client, error) {
	db, err := sql.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Postgres.Host).
		Int("port", cfg.Postgres.Port).
		Str("database", cfg.Postgres.Database).
		Msg("PostgreSQL client initialized")

	return &Client{db: db}, nil
}

// NewClientWithLifecycle открывает пул, применяет миграции и закрывает пул при остановке
func NewClientWithLifecycle(lc fx.Lifecycle, cfg *config.Config) (*Client, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Postgres.AutoMigrate {
		if err := Migrate(client.db, cfg.Postgres.Database); err != nil {
			client.Close()
			return nil, err
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Closing PostgreSQL connection")
			return client.Close()
		},
	})

	return client, nil
}

// GetDB возвращает экземпляр базы данных
func (c *Client) GetDB() *sql.DB {
	return c.db
}

// Close закрывает соединение с базой данных
func (c *Client) Close() error {
	return c.db.Close()
}

// HealthCheck проверяет здоровье базы данных
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Stats возвращает статистику пула соединений
func (c *Client) Stats() sql.DBStats {
	return c.db.Stats()
}

// IsUniqueViolation сообщает, что запись нарушила уникальный индекс
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// ConstraintName возвращает имя нарушенного ограничения, если оно известно
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
