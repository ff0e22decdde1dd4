package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teleindex-backend/internal/common/auth"
	"teleindex-backend/internal/common/middleware"
	"teleindex-backend/internal/common/validation"
	"teleindex-backend/internal/features/admin/models"
	"teleindex-backend/internal/features/admin/service"
)

type AdminHandler struct {
	service    service.AdminService
	jwtManager *auth.JWTManager
}

func NewAdminHandler(service service.AdminService, jwtManager *auth.JWTManager) *AdminHandler {
	return &AdminHandler{
		service:    service,
		jwtManager: jwtManager,
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	admin.Use(middleware.RequireAuth(h.jwtManager), middleware.RequireAdmin())
	{
		admin.GET("/summary", h.Summary)
		admin.POST("/links/check", h.CheckLinks)
		admin.POST("/seed-demo", h.SeedDemo)
		admin.POST("/creators/seed", h.SeedCreators)
	}

	parser := router.Group("/parser")
	parser.Use(middleware.RequireAuth(h.jwtManager), middleware.RequireAdmin())
	{
		parser.POST("/import", h.Import)
		// старые адреса, поведение одинаковое
		parser.POST("/telemetr", h.Import)
		parser.POST("/tgstat", h.Import)
	}
}

// @Summary Moderation summary
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Summary
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/summary [get]
func (h *AdminHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Check channel links
// @Description Checks the least recently checked links. replace_dead blanks dead links.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Channels to check (1..500)" default(50)
// @Param replace_dead query bool false "Blank dead links"
// @Success 200 {object} models.LinkCheckResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /admin/links/check [post]
func (h *AdminHandler) CheckLinks(c *gin.Context) {
	var req models.LinkCheckRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	res, err := h.service.CheckLinks(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Seed demo channels
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SeedResult
// @Router /admin/seed-demo [post]
func (h *AdminHandler) SeedDemo(c *gin.Context) {
	res, err := h.service.SeedDemo(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Seed demo creators
// @Description Creates creators linked to random approved channels
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param count query int false "Creators to create (1..100)" default(10)
// @Success 200 {object} models.CreatorSeedResult
// @Failure 400 {object} middleware.ErrorResponse
// @Router /admin/creators/seed [post]
func (h *AdminHandler) SeedCreators(c *gin.Context) {
	var req models.CreatorSeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	res, err := h.service.SeedCreators(c.Request.Context(), req.Count)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Import channels from a listing page
// @Description Fetches the page, extracts t.me links and upserts them as drafts
// @Tags parser
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param body body models.ImportRequest true "Listing page"
// @Success 200 {object} models.ImportResult
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Router /parser/import [post]
func (h *AdminHandler) Import(c *gin.Context) {
	var req models.ImportRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(validation.BindError(err))
		return
	}

	res, err := h.service.Import(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
