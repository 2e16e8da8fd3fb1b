package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/pkg/errors"
	"pingline/pkg/logger"
)

type AuthUseCase struct {
	userRepo   repository.UserRepository
	authClient AuthClient
}

func NewAuthUseCase(userRepo repository.UserRepository, authClient AuthClient) *AuthUseCase {
	return &AuthUseCase{
		userRepo:   userRepo,
		authClient: authClient,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	Name      string
	AvatarURL string
}

type AuthResult struct {
	User         *entity.User
	Token        string
	RefreshToken string
}

func (uc *AuthUseCase) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	existingUser, err := uc.userRepo.GetByEmail(ctx, input.Email)
	if err == nil && existingUser != nil {
		return nil, errors.BadRequest("Email already in use", nil)
	}

	uid, err := uc.authClient.CreateUser(ctx, input.Email, input.Password, input.Name)
	if err != nil {
		return nil, errors.Internal("Failed to create user in authentication provider", err)
	}

	avatarURL := input.AvatarURL
	if avatarURL == "" {
		avatarURL = randomAvatarURL()
	}

	user := &entity.User{
		ID:        uid,
		Email:     input.Email,
		Name:      input.Name,
		AvatarURL: avatarURL,
		Status:    "active",
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, errors.Internal("Failed to create user record", err)
	}

	token, refreshToken, err := uc.authClient.SignInWithEmailPassword(ctx, input.Email, input.Password)
	if err != nil {
		return nil, errors.Internal("Failed to generate authentication token", err)
	}

	return &AuthResult{
		User:         user,
		Token:        token,
		RefreshToken: refreshToken,
	}, nil
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	token, refreshToken, err := uc.authClient.SignInWithEmailPassword(ctx, email, password)
	if err != nil {
		logger.Warn("Login failed for %s: %v", email, err)
		return nil, errors.Unauthorized("Invalid credentials", err)
	}

	uid, err := uc.authClient.VerifyToken(ctx, token)
	if err != nil {
		return nil, errors.Internal("Failed to verify token", err)
	}

	user, err := uc.userRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, errors.NotFound("User", err)
	}

	return &AuthResult{
		User:         user,
		Token:        token,
		RefreshToken: refreshToken,
	}, nil
}

func (uc *AuthUseCase) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	token, newRefreshToken, err := uc.authClient.RefreshIDToken(ctx, refreshToken)
	if err != nil {
		return nil, errors.Unauthorized("Invalid refresh token", err)
	}

	uid, err := uc.authClient.VerifyToken(ctx, token)
	if err != nil {
		return nil, errors.Internal("Failed to verify refreshed token", err)
	}

	user, err := uc.userRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, errors.NotFound("User", err)
	}

	return &AuthResult{
		User:         user,
		Token:        token,
		RefreshToken: newRefreshToken,
	}, nil
}

func (uc *AuthUseCase) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NotFound("User", err)
	}
	return user, nil
}

// Logout is client-side token disposal; kept as an explicit endpoint so a
// token blacklist can be added later without an API change.
func (uc *AuthUseCase) Logout(ctx context.Context, token string) error {
	return nil
}

func randomAvatarURL() string {
	return fmt.Sprintf("https://api.dicebear.com/9.x/avataaars/svg?seed=%s", uuid.New().String())
}
