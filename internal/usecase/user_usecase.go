package usecase

import (
	"context"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/pkg/errors"
)

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
	}
}

type UpdateProfileInput struct {
	Name      string
	AvatarURL string
	Status    string
}

// ListUsers returns every registered user except the requester, for the
// browse-and-start-a-chat screen.
func (uc *UserUseCase) ListUsers(ctx context.Context, requesterID string) ([]*entity.User, error) {
	users, err := uc.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*entity.User, 0, len(users))
	for _, user := range users {
		if user.ID != requesterID {
			filtered = append(filtered, user)
		}
	}

	return filtered, nil
}

func (uc *UserUseCase) GetUserProfile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NotFound("User", err)
	}
	return user, nil
}

func (uc *UserUseCase) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NotFound("User", err)
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.AvatarURL != "" {
		user.AvatarURL = input.AvatarURL
	}
	if input.Status != "" {
		user.Status = input.Status
	}

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Internal("Failed to update user profile", err)
	}

	return user, nil
}
