package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"teleindex-backend/internal/common/auth"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/middleware"
	"teleindex-backend/internal/common/validation"
	"teleindex-backend/internal/features/creator/models"
	"teleindex-backend/internal/features/creator/service"
)

type CreatorHandler struct {
	service    service.CreatorService
	jwtManager *auth.JWTManager
}

func NewCreatorHandler(service service.CreatorService, jwtManager *auth.JWTManager) *CreatorHandler {
	return &CreatorHandler{
		service:    service,
		jwtManager: jwtManager,
	}
}

func (h *CreatorHandler) RegisterRoutes(router *gin.RouterGroup) {
	creators := router.Group("/creators")
	{
		creators.GET("", h.List)
		creators.GET("/suggestions", h.Suggestions)
		creators.GET("/:id", h.Get)
	}

	editors := creators.Group("")
	editors.Use(middleware.RequireAuth(h.jwtManager), middleware.RequireRole(auth.RoleAdmin, auth.RoleEditor))
	{
		editors.POST("", h.Create)
		editors.PUT("/:id", h.Update)
		editors.PATCH("/:id", h.Update)
		editors.DELETE("/:id", h.Delete)
		editors.POST("/:id/channels", h.LinkChannels)
		editors.DELETE("/:id/channels/:channelId", h.UnlinkChannel)
	}

	admins := creators.Group("")
	admins.Use(middleware.RequireAuth(h.jwtManager), middleware.RequireAdmin())
	{
		admins.POST("/:id/verify", h.Verify)
		admins.POST("/:id/feature", h.Feature)
	}
}

// @Summary List creators
// @Description Active creators with filters over aggregated metrics
// @Tags creators
// @Produce json
// @Param q query string false "Search in name and tags"
// @Param category query string false "Category"
// @Param language query string false "Language"
// @Param country query string false "Country"
// @Param priority_level query string false "Priority" Enums(normal, featured, premium)
// @Param tags query []string false "Any of tags" collectionFormat(multi)
// @Param featured query bool false "Featured flag"
// @Param verified query bool false "Verified flag"
// @Param subscribers_min query int false "Minimum total subscribers"
// @Param subscribers_max query int false "Maximum total subscribers"
// @Param price_min query int false "Lower bound for the cheapest channel price, RUB"
// @Param price_max query int false "Upper bound for the cheapest channel price, RUB"
// @Param er_min query number false "Minimum average ER, %"
// @Param er_max query number false "Maximum average ER, %"
// @Param cpm_min query int false "Minimum average CPM, RUB"
// @Param cpm_max query int false "Maximum average CPM, RUB"
// @Param has_price query bool false "Has price"
// @Param last_post_days query int false "Posted within N days"
// @Param sort query string false "Sort field" Enums(name, created_at, subscribers_total, avg_price_rub, avg_er_percent, avg_cpm_rub, last_post_at)
// @Param order query string false "Order" Enums(asc, desc)
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} models.ListResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /creators [get]
func (h *CreatorHandler) List(c *gin.Context) {
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

// @Summary Creator suggestions
// @Tags creators
// @Produce json
// @Param limit query int false "Limit (1..20)" default(6)
// @Param featured_only query bool false "Featured only"
// @Param category query string false "Category"
// @Success 200 {object} models.SuggestionsResponse
// @Router /creators/suggestions [get]
func (h *CreatorHandler) Suggestions(c *gin.Context) {
	var filter models.SuggestionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	items, err := h.service.Suggestions(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.SuggestionsResponse{Items: items})
}

// @Summary Get creator
// @Description Lookup by id, then by slug. include=channels adds linked channels of any status.
// @Tags creators
// @Produce json
// @Param id path string true "Creator ID or slug"
// @Param include query string false "Set to channels to include linked channels"
// @Success 200 {object} models.CreatorWithChannels
// @Failure 404 {object} middleware.ErrorResponse
// @Router /creators/{id} [get]
func (h *CreatorHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	creator, err := h.service.Get(ctx, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	if !includesChannels(c.Query("include")) {
		c.JSON(http.StatusOK, creator)
		return
	}

	channels, err := h.service.Channels(ctx, creator.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.CreatorWithChannels{Creator: creator, Channels: channels})
}

// @Summary Create creator
// @Tags creators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param creator body models.CreateCreatorRequest true "Creator"
// @Success 200 {object} models.Creator
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /creators [post]
func (h *CreatorHandler) Create(c *gin.Context) {
	var req models.CreateCreatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	creator, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, creator)
}

// @Summary Update creator
// @Description Partial update. Renaming regenerates the slug unless slug is given.
// @Tags creators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Param patch body models.CreatorPatch true "Fields to change"
// @Success 200 {object} models.Creator
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /creators/{id} [put]
func (h *CreatorHandler) Update(c *gin.Context) {
	var p models.CreatorPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	creator, err := h.service.Update(c.Request.Context(), c.Param("id"), &p)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, creator)
}

// @Summary Delete creator
// @Description Soft delete by default, hard=true (admin only) removes the creator and its links
// @Tags creators
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Param hard query bool false "Hard delete"
// @Success 200 {object} models.DeleteResult
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /creators/{id} [delete]
func (h *CreatorHandler) Delete(c *gin.Context) {
	hard := false
	if raw := c.Query("hard"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			_ = c.Error(errors.NewValidationError("hard", "must be a boolean"))
			return
		}
		hard = v
	}
	if hard && middleware.GetUserRole(c) != auth.RoleAdmin {
		_ = c.Error(errors.NewForbiddenError("hard delete requires admin role"))
		return
	}

	res, err := h.service.Delete(c.Request.Context(), c.Param("id"), hard)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// @Summary Link channels to creator
// @Description Fails without changes if any channel does not exist. Already linked pairs are skipped.
// @Tags creators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Param body body models.LinkChannelsRequest true "Channels"
// @Success 200 {object} models.LinkResult
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /creators/{id}/channels [post]
func (h *CreatorHandler) LinkChannels(c *gin.Context) {
	var req models.LinkChannelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	added, err := h.service.LinkChannels(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.LinkResult{OK: true, Added: added})
}

// @Summary Unlink channel from creator
// @Tags creators
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Param channelId path string true "Channel ID"
// @Success 200 {object} models.UnlinkResult
// @Failure 404 {object} middleware.ErrorResponse
// @Router /creators/{id}/channels/{channelId} [delete]
func (h *CreatorHandler) UnlinkChannel(c *gin.Context) {
	if err := h.service.UnlinkChannel(c.Request.Context(), c.Param("id"), c.Param("channelId")); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.UnlinkResult{OK: true, Removed: 1})
}

// @Summary Verify creator
// @Tags creators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Param body body models.VerifyRequest true "Verification flag"
// @Success 200 {object} models.VerifyResult
// @Failure 404 {object} middleware.ErrorResponse
// @Router /creators/{id}/verify [post]
func (h *CreatorHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	creator, err := h.service.Verify(c.Request.Context(), c.Param("id"), *req.Verified)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.VerifyResult{OK: true, Verified: creator.Flags.Verified})
}

// @Summary Change creator priority
// @Tags creators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Param body body models.FeatureRequest true "Priority level"
// @Success 200 {object} models.FeatureResult
// @Failure 404 {object} middleware.ErrorResponse
// @Router /creators/{id}/feature [post]
func (h *CreatorHandler) Feature(c *gin.Context) {
	var req models.FeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	creator, err := h.service.Feature(c.Request.Context(), c.Param("id"), req.PriorityLevel)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, models.FeatureResult{OK: true, PriorityLevel: creator.PriorityLevel})
}

func includesChannels(include string) bool {
	for _, part := range strings.Split(include, ",") {
		if strings.TrimSpace(part) == "channels" {
			return true
		}
	}
	return false
}
