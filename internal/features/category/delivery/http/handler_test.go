package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/middleware"
)

type stubService struct {
	names []string
	err   error
}

func (s stubService) List(context.Context) ([]string, error) {
	return s.names, s.err
}

func serve(svc stubService) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.HandleErrors())
	NewCategoryHandler(svc).RegisterRoutes(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	return w
}

func TestListCategories(t *testing.T) {
	w := serve(stubService{names: []string{"Crypto", "News"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Crypto","News"]`, w.Body.String())
}

func TestListCategoriesError(t *testing.T) {
	w := serve(stubService{err: errors.NewDatabaseError("list categories", context.DeadlineExceeded)})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
