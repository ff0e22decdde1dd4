package telegram

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/fx"

	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/logger"
)

// Максимальный размер загружаемой страницы каталога
const maxPageSize = 5 << 20

var Module = fx.Module(
	"telegram",
	fx.Provide(NewClient),
)

// ErrUnavailable возвращается, когда circuit breaker открыт и запрос не выполнялся
var ErrUnavailable = stderrors.New("link checker temporarily unavailable")

// Client ходит в публичный веб Telegram и на страницы каталогов-источников
type Client struct {
	httpClient   *http.Client
	fetchTimeout time.Duration
	userAgent    string
	breaker      *gobreaker.CircuitBreaker[*http.Response]
}

func NewClient(cfg *config.Config) *Client {
	settings := gobreaker.Settings{
		Name:        "telegram-web",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.LinkCheck.Timeout,
		},
		fetchTimeout: cfg.Parser.FetchTimeout,
		userAgent:    cfg.LinkCheck.UserAgent,
		breaker:      gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// CheckLink делает HEAD-запрос, при неудаче повторяет GET. Ссылка жива, если
// итоговый статус меньше 400. Ошибка возвращается только если проверку
// выполнить не удалось (отмена контекста или открытый breaker).
func (c *Client) CheckLink(ctx context.Context, link string) (bool, error) {
	target := NormalizeLink(link)
	if target == "" {
		return false, nil
	}

	status, err := c.probe(ctx, http.MethodHead, target)
	if err == nil && status < http.StatusBadRequest {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return false, ErrUnavailable
	}

	status, err = c.probe(ctx, http.MethodGet, target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			return false, ErrUnavailable
		}
		logger.Debug().Err(err).Str("link", target).Msg("Link check request failed")
		return false, nil
	}

	return status < http.StatusBadRequest, nil
}

func (c *Client) probe(ctx context.Context, method, target string) (int, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}

// FetchPage загружает HTML-страницу каталога для импорта
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("failed to fetch page: status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return body, nil
}

// NormalizeLink добавляет https:// к ссылкам вида t.me/name
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return "https://" + strings.TrimPrefix(link, "//")
}

// IsValidPageURL проверяет адрес страницы для импорта
func IsValidPageURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
