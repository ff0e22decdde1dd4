package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"teleindex-backend/internal/common/auth"
	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/middleware"
	"teleindex-backend/internal/common/validation"
	"teleindex-backend/internal/features/user/models"
	"teleindex-backend/internal/features/user/service"
)

type UserHandler struct {
	service      service.UserService
	jwtManager   *auth.JWTManager
	loginLimiter *middleware.RateLimiter
}

func NewUserHandler(service service.UserService, jwtManager *auth.JWTManager, cfg *config.Config) *UserHandler {
	return &UserHandler{
		service:      service,
		jwtManager:   jwtManager,
		loginLimiter: middleware.NewRateLimiter(cfg.Auth.LoginRatePerMinute, time.Minute),
	}
}

// LoginLimiter нужен для периодической очистки старых записей
func (h *UserHandler) LoginLimiter() *middleware.RateLimiter {
	return h.loginLimiter
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/auth")
	{
		users.POST("/register", h.Register)
		users.POST("/login", middleware.RateLimit(h.loginLimiter, "login"), h.Login)
		users.GET("/me", middleware.RequireAuth(h.jwtManager), h.GetMe)
	}
}

// @Summary Register first admin
// @Description Works only while there are no users. Any later call returns 403.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.RegisterRequest true "Credentials"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse "Registration is closed"
// @Router /auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		// тело проверит сервис, сначала он отвечает 403 для закрытой регистрации
		req = models.RegisterRequest{}
	}

	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.TokenResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 429 {object} middleware.ErrorResponse
// @Router /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /auth/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		_ = c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	user, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}
