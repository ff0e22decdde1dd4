package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teleindex-backend/internal/features/category/service"
)

type CategoryHandler struct {
	service service.CategoryService
}

func NewCategoryHandler(service service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

func (h *CategoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/categories", h.List)
}

// @Summary List categories
// @Description Sorted category names. An empty directory is filled with defaults.
// @Tags categories
// @Produce json
// @Success 200 {array} string
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	names, err := h.service.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, names)
}
