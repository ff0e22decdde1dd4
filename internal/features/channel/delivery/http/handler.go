package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"teleindex-backend/internal/common/auth"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/middleware"
	"teleindex-backend/internal/common/validation"
	"teleindex-backend/internal/features/channel/models"
	"teleindex-backend/internal/features/channel/service"
)

type ChannelHandler struct {
	service    service.ChannelService
	jwtManager *auth.JWTManager
}

func NewChannelHandler(service service.ChannelService, jwtManager *auth.JWTManager) *ChannelHandler {
	return &ChannelHandler{
		service:    service,
		jwtManager: jwtManager,
	}
}

func (h *ChannelHandler) RegisterRoutes(router *gin.RouterGroup) {
	channels := router.Group("/channels")
	{
		channels.GET("", h.List)
		channels.GET("/top", h.Top)
		channels.GET("/trending", h.Trending)
		channels.GET("/:id", h.Get)
		channels.POST("", h.Create)
		channels.PATCH("/:id", middleware.RequireAuth(h.jwtManager), middleware.RequireAdmin(), h.Update)
	}

	// Модерация
	admin := router.Group("/admin/channels")
	admin.Use(middleware.RequireAuth(h.jwtManager), middleware.RequireAdmin())
	{
		admin.GET("", h.AdminList)
		admin.POST("", h.AdminCreate)
		admin.PATCH("/:id", h.Update)
		admin.POST("/:id/approve", h.Approve)
		admin.POST("/:id/reject", h.Reject)
	}
}

// @Summary List channels
// @Description Public catalog of approved channels with filters, sorting and pagination
// @Tags channels
// @Produce json
// @Param q query string false "Search in name and descriptions"
// @Param category query string false "Category"
// @Param language query string false "Language"
// @Param country query string false "Country"
// @Param min_subscribers query int false "Minimum subscribers"
// @Param max_subscribers query int false "Maximum subscribers"
// @Param min_price query int false "Minimum price, RUB"
// @Param max_price query int false "Maximum price, RUB"
// @Param min_er query number false "Minimum ER, %"
// @Param max_er query number false "Maximum ER, %"
// @Param only_featured query bool false "Featured only"
// @Param only_alive query bool false "Skip channels with dead links"
// @Param sort query string false "Sort" Enums(popular, new, name, price, er, growth)
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} models.ListResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /channels [get]
func (h *ChannelHandler) List(c *gin.Context) {
	var filter models.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	resp, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Top channels
// @Tags channels
// @Produce json
// @Param limit query int false "Limit (1..50)" default(10)
// @Success 200 {array} models.Channel
// @Router /channels/top [get]
func (h *ChannelHandler) Top(c *gin.Context) {
	limit, err := showcaseLimit(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	channels, err := h.service.Top(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, channels)
}

// @Summary Trending channels
// @Tags channels
// @Produce json
// @Param limit query int false "Limit (1..50)" default(10)
// @Success 200 {array} models.Channel
// @Router /channels/trending [get]
func (h *ChannelHandler) Trending(c *gin.Context) {
	limit, err := showcaseLimit(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	channels, err := h.service.Trending(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, channels)
}

// @Summary Get channel
// @Tags channels
// @Produce json
// @Param id path string true "Channel ID"
// @Success 200 {object} models.Channel
// @Failure 404 {object} middleware.ErrorResponse
// @Router /channels/{id} [get]
func (h *ChannelHandler) Get(c *gin.Context) {
	ch, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ch)
}

// @Summary Submit channel
// @Description Public submission. Approved unless status=draft is requested.
// @Tags channels
// @Accept json
// @Produce json
// @Param channel body models.CreateChannelRequest true "Channel"
// @Success 200 {object} models.Channel
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /channels [post]
func (h *ChannelHandler) Create(c *gin.Context) {
	h.create(c, models.StatusApproved)
}

// @Summary Create channel (admin)
// @Description Created as draft unless another status is given
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param channel body models.CreateChannelRequest true "Channel"
// @Success 200 {object} models.Channel
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/channels [post]
func (h *ChannelHandler) AdminCreate(c *gin.Context) {
	h.create(c, models.StatusDraft)
}

func (h *ChannelHandler) create(c *gin.Context, defaultStatus string) {
	var req models.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	ch, err := h.service.Create(c.Request.Context(), &req, defaultStatus)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ch)
}

// @Summary List channels for moderation
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status" Enums(draft, approved, rejected)
// @Param q query string false "Search"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} models.ListResponse
// @Router /admin/channels [get]
func (h *ChannelHandler) AdminList(c *gin.Context) {
	var filter models.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	resp, err := h.service.ListAll(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update channel
// @Description Partial update: absent fields are kept, null clears optional fields
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Param patch body models.ChannelPatch true "Fields to change"
// @Success 200 {object} models.Channel
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /admin/channels/{id} [patch]
func (h *ChannelHandler) Update(c *gin.Context) {
	var p models.ChannelPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	ch, err := h.service.Update(c.Request.Context(), c.Param("id"), &p)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ch)
}

// @Summary Approve channel
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Success 200 {object} models.Channel
// @Failure 404 {object} middleware.ErrorResponse
// @Router /admin/channels/{id}/approve [post]
func (h *ChannelHandler) Approve(c *gin.Context) {
	ch, err := h.service.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ch)
}

// @Summary Reject channel
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Success 200 {object} models.Channel
// @Failure 404 {object} middleware.ErrorResponse
// @Router /admin/channels/{id}/reject [post]
func (h *ChannelHandler) Reject(c *gin.Context) {
	ch, err := h.service.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ch)
}

func showcaseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 10, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 50 {
		return 0, errors.NewValidationError("limit", "must be an integer between 1 and 50")
	}
	return limit, nil
}
