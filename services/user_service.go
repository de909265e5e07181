package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/repositories"
	"github.com/ffarena/ff-arena/storage"
	"github.com/google/uuid"
)

type UpdateProfileInput struct {
	Nickname    *string `json:"nickname,omitempty"`
	FreeFireUID *string `json:"free_fire_uid,omitempty"`
	Division    *string `json:"division,omitempty"`
}

type UserService interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, userID int, contentType string, file io.Reader) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
}

func NewUserService(userRepo repositories.UserRepository, uploader storage.FileUploader) UserService {
	return &userService{
		userRepo: userRepo,
		uploader: uploader,
	}
}

func (s *userService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	s.populateAvatarURL(user)
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Nickname != nil {
		if *input.Nickname == "" {
			return nil, fmt.Errorf("%w: nickname must not be empty", ErrValidationFailed)
		}
		user.Nickname = *input.Nickname
	}
	if input.FreeFireUID != nil {
		if *input.FreeFireUID == "" {
			return nil, fmt.Errorf("%w: free fire uid must not be empty", ErrValidationFailed)
		}
		user.FreeFireUID = *input.FreeFireUID
	}
	if input.Division != nil {
		user.Division = input.Division
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID int, contentType string, file io.Reader) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previousKey := user.AvatarKey

	// Each upload gets a fresh key so cached copies of the old avatar
	// are never served under the new one.
	key := fmt.Sprintf("users/%d/avatar/%s", userID, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	if err := s.userRepo.UpdateAvatarKey(ctx, userID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to store avatar key: %w", err)
	}

	// Best effort; an orphaned object is not worth failing the request.
	if previousKey != nil && *previousKey != result.Key {
		if err := s.uploader.Delete(ctx, *previousKey); err != nil {
			slog.Warn("failed to delete previous avatar",
				slog.Int("user_id", userID),
				slog.String("key", *previousKey),
				slog.Any("error", err))
		}
	}

	user.AvatarKey = &result.Key
	s.populateAvatarURL(user)
	return user, nil
}

func (s *userService) populateAvatarURL(u *models.User) {
	if u.AvatarKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*u.AvatarKey)
		if url != "" {
			u.AvatarURL = &url
		}
	}
}
