package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/logger"
)

// Ключи gin.Context
const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	UserRoleKey  = "user_role"
)

// ErrorHandler восстанавливает панику и отвечает внутренней ошибкой
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := GetRequestID(c)

		logger.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithDetail("panic", fmt.Sprintf("%v", recovered))

		sendErrorResponse(c, appErr)
		c.Abort()
	})
}

// RequestID добавляет ID запроса в контекст и заголовок ответа
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// HandleErrors отдаёт последнюю ошибку, добавленную обработчиком через c.Error
func HandleErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.Wrap(err, errors.ErrCodeInternal, "Handler error occurred")
		}

		sendErrorResponse(c, appErr)
	}
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
	Path      string           `json:"path,omitempty"`
	Method    string           `json:"method,omitempty"`
}

func sendErrorResponse(c *gin.Context, appErr *errors.AppError) {
	requestID := GetRequestID(c)

	appErr.WithRequestID(requestID).
		WithContext("path", c.Request.URL.Path).
		WithContext("method", c.Request.Method)
	if userID := GetUserID(c); userID != "" {
		appErr.WithUserID(userID)
	}

	logError(c, appErr)

	c.JSON(StatusCode(appErr), ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	})
}

// StatusCode возвращает HTTP статус для кода ошибки
func StatusCode(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest, errors.ErrCodeInvalidLink:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeChannelNotFound, errors.ErrCodeCreatorNotFound, errors.ErrCodeLinkNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case errors.ErrCodeExternalAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func logError(c *gin.Context, appErr *errors.AppError) {
	var event *zerolog.Event
	switch {
	case appErr.IsInternal():
		event = logger.Error()
	case appErr.IsUnauthorized():
		event = logger.Warn()
	default:
		event = logger.Info()
	}

	event = event.
		Str("request_id", appErr.RequestID).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code)).
		Str("error_message", appErr.Message)

	if appErr.UserID != "" {
		event = event.Str("user_id", appErr.UserID)
	}
	if len(appErr.Details) > 0 {
		event = event.Interface("details", appErr.Details)
	}
	if appErr.Cause != nil {
		event = event.Err(appErr.Cause)
	}

	event.Msg("Request failed")
}

// GetRequestID получает ID запроса из контекста
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return "unknown"
}

// GetUserID получает ID аутентифицированного пользователя
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUserRole получает роль аутентифицированного пользователя
func GetUserRole(c *gin.Context) string {
	return c.GetString(UserRoleKey)
}
