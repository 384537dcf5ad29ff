package usecase

import (
	authdomain "taskflow-backend/internal/auth/domain"
	authdto "taskflow-backend/internal/auth/dto"
)

// AuthUsecase defines identity operations. The user id it resolves is the
// owner id every task operation is scoped by.
type AuthUsecase interface {
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	// LogoutAll revokes every refresh token and push device of the user
	LogoutAll(userID string) error
	ValidateToken(tokenString string) (*authdomain.User, error)

	RegisterFCMToken(userID, token, deviceInfo string) error
	UnregisterFCMToken(userID, token string) error
}
