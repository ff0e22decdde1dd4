package models

import (
	"strings"
	"time"
)

// User учётная запись сотрудника каталога
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserResponse публичное представление пользователя, без хэша пароля
// @Description Пользователь
type UserResponse struct {
	ID        string    `json:"id" example:"0b7f4e0a-61c4-4f4e-9d55-1d2a3b4c5d6e"`
	Email     string    `json:"email" example:"admin@example.com"`
	Name      string    `json:"name" example:"Admin"`
	Role      string    `json:"role" example:"admin" enums:"admin,editor,viewer"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest проверяется в сервисе: закрытая регистрация отвечает 403
// на любое тело запроса
type RegisterRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// TokenResponse ответ на успешный вход
type TokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type" example:"bearer"`
	User        *UserResponse `json:"user"`
}

// NormalizeEmail приводит адрес к виду, в котором он хранится
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
