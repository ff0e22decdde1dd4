package mapper

import "teleindex-backend/internal/features/user/models"

// ToUserResponse maps User model to UserResponse DTO
func ToUserResponse(user *models.User) *models.UserResponse {
	return &models.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
