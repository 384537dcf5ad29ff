package repository

import (
	"time"

	authdomain "taskflow-backend/internal/auth/domain"
)

// UserRepository defines the interface for user and refresh token storage
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByEmail(email string) (*authdomain.User, error)
	FindByID(id string) (*authdomain.User, error)
	FindRefreshToken(token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(token string) error
	DeleteRefreshTokensByUser(userID string) error
	// ReplaceRefreshToken stores a new token and prunes the user's expired ones
	ReplaceRefreshToken(token *authdomain.RefreshToken) error
}

// FCMTokenRepository defines the interface for FCM token operations
type FCMTokenRepository interface {
	SaveToken(userID, token, deviceInfo string) error
	GetTokensByUserID(userID string) ([]authdomain.FCMToken, error)
	DeleteToken(token string) error
	DeleteUserToken(userID, token string) error
	DeleteTokensByUserID(userID string) error
	// MarkNotified stamps the tokens that accepted a push
	MarkNotified(tokens []string, at time.Time) error
}
