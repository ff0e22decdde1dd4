package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"teleindex-backend"`

	Server struct {
		Port            int           `env:"PORT" envDefault:"8080"`
		Origins         []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}

	Postgres PostgresConfig

	Redis struct {
		Enabled  bool          `env:"REDIS_ENABLED" envDefault:"true"`
		Host     string        `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int           `env:"REDIS_PORT" envDefault:"6379"`
		Password string        `env:"REDIS_PASSWORD" envDefault:""`
		DB       int           `env:"REDIS_DB" envDefault:"0"`
		CacheTTL time.Duration `env:"REDIS_CACHE_TTL" envDefault:"5m"`
	}

	Auth struct {
		JWTSecret          string        `env:"JWT_SECRET,required"`
		TokenTTL           time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
		BcryptCost         int           `env:"BCRYPT_COST" envDefault:"12"`
		LoginRatePerMinute int           `env:"LOGIN_RATE_PER_MIN" envDefault:"10"`
	}

	// LINK_CHECK_INTERVAL=0 выключает фоновую проверку ссылок
	LinkCheck struct {
		Timeout     time.Duration `env:"LINK_CHECK_TIMEOUT" envDefault:"5s"`
		UserAgent   string        `env:"LINK_CHECK_USER_AGENT" envDefault:"Mozilla/5.0 (compatible; TeleIndexBot/1.0)"`
		Interval    time.Duration `env:"LINK_CHECK_INTERVAL" envDefault:"0"`
		BatchSize   int           `env:"LINK_CHECK_BATCH_SIZE" envDefault:"50"`
		Concurrency int           `env:"LINK_CHECK_CONCURRENCY" envDefault:"4"`
	}

	Parser struct {
		FetchTimeout time.Duration `env:"PARSER_FETCH_TIMEOUT" envDefault:"10s"`
		MaxLinks     int           `env:"PARSER_MAX_LINKS" envDefault:"200"`
	}
}

type PostgresConfig struct {
	Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
	Password        string        `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Database        string        `env:"POSTGRES_DB" envDefault:"teleindex"`
	SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"POSTGRES_AUTO_MIGRATE" envDefault:"true"`
}

// GetDSN возвращает строку подключения для lib/pq
func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func Load() (*Config, error) {
	// .env необязателен: в production переменные задаются окружением
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет значения, которые env не умеет ограничить тегами
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if c.LinkCheck.Interval < 0 {
		return fmt.Errorf("LINK_CHECK_INTERVAL cannot be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	return nil
}
