package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode машиночитаемый код, уходит клиенту в поле error.code
type ErrorCode string

const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"

	// Ошибки каталога
	ErrCodeChannelNotFound ErrorCode = "CHANNEL_NOT_FOUND"
	ErrCodeCreatorNotFound ErrorCode = "CREATOR_NOT_FOUND"
	ErrCodeLinkNotFound    ErrorCode = "LINK_NOT_FOUND"
	ErrCodeInvalidLink     ErrorCode = "INVALID_LINK"

	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// t.me и страницы каталогов-источников
	ErrCodeExternalAPI ErrorCode = "EXTERNAL_API_ERROR"
)

// AppError ошибка, которую HandleErrors превращает в JSON-ответ.
// Cause в ответ не попадает, только в лог.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Context   map[string]string      `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsNotFound любой из кодов "не найдено"
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound ||
		e.Code == ErrCodeChannelNotFound ||
		e.Code == ErrCodeCreatorNotFound ||
		e.Code == ErrCodeLinkNotFound
}

func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeUnauthorized || e.Code == ErrCodeForbidden
}

// IsInternal ошибки сервера, логируются уровнем error
func (e *AppError) IsInternal() bool {
	switch e.Code {
	case ErrCodeInternal, ErrCodeDatabaseError, ErrCodeExternalAPI:
		return true
	}
	return false
}

func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail поле для клиента, например имя невалидного параметра
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

func (e *AppError) WithUserID(userID string) *AppError {
	e.UserID = userID
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap сохраняет err как Cause
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// NewValidationError 400 с указанием поля
func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewBadRequestError(reason string) *AppError {
	return New(ErrCodeBadRequest, reason)
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

func NewChannelNotFoundError(channelID string) *AppError {
	return New(ErrCodeChannelNotFound, fmt.Sprintf("Channel not found: %s", channelID)).
		WithDetail("channel_id", channelID)
}

// NewCreatorNotFoundError idOrSlug как пришёл в пути запроса
func NewCreatorNotFoundError(idOrSlug string) *AppError {
	return New(ErrCodeCreatorNotFound, fmt.Sprintf("Creator not found: %s", idOrSlug)).
		WithDetail("creator", idOrSlug)
}

// NewInvalidLinkError ссылка канала не похожа на t.me или https
func NewInvalidLinkError(link, reason string) *AppError {
	return New(ErrCodeInvalidLink, fmt.Sprintf("Invalid channel link: %s", reason)).
		WithDetail("field", "link").
		WithDetail("reason", reason).
		WithDetail("link", link)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Forbidden: %s", reason)).
		WithDetail("reason", reason)
}

// NewDatabaseError клиент видит только operation, текст драйвера остаётся в Cause
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// NewExternalAPIError 502
func NewExternalAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeExternalAPI, fmt.Sprintf("External request failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewRateLimitError(scope string) *AppError {
	return New(ErrCodeTooManyRequests, fmt.Sprintf("Rate limit exceeded for %s", scope)).
		WithDetail("scope", scope)
}

// NewConflictError нарушение уникальности: slug, ссылка канала, email
func NewConflictError(resource, reason string) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf("Conflict with %s: %s", resource, reason)).
		WithDetail("resource", resource).
		WithDetail("reason", reason)
}

// AsAppError приводит ошибку к AppError, разворачивая цепочку обёрток
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err == nil {
		return nil, false
	}
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode сообщает, несёт ли ошибка указанный код
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsNotFound сообщает, является ли ошибка ошибкой "не найдено"
func IsNotFound(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.IsNotFound()
}
