package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"teleindex-backend/internal/common/auth"
	"teleindex-backend/internal/common/errors"
)

// RequireAuth проверяет bearer-токен и кладёт данные пользователя в контекст
func RequireAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortWithError(c, errors.NewUnauthorizedError("missing bearer token"))
			return
		}

		claims, err := jwtManager.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, errors.Wrap(err, errors.ErrCodeUnauthorized, "Invalid or expired token"))
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с одной из перечисленных ролей.
// Ставится после RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetUserRole(c)
		if role == "" {
			abortWithError(c, errors.NewUnauthorizedError("authentication required"))
			return
		}

		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}

		abortWithError(c, errors.NewForbiddenError("insufficient role").
			WithDetail("required", roles))
	}
}

// RequireAdmin короткая запись для RequireRole(admin)
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(auth.RoleAdmin)
}

func abortWithError(c *gin.Context, appErr *errors.AppError) {
	sendErrorResponse(c, appErr)
	c.Abort()
}
