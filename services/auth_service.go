package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/repositories"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Bangladeshi mobile numbers: 01 followed by 9 digits, optional +88 prefix.
var phonePattern = regexp.MustCompile(`^(\+88)?01[3-9][0-9]{8}$`)

type RegisterInput struct {
	PhoneNumber string `json:"phone_number"`
	Nickname    string `json:"nickname"`
	FreeFireUID string `json:"free_fire_uid"`
	Password    string `json:"password"`
}

type LoginInput struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if !phonePattern.MatchString(input.PhoneNumber) {
		return nil, fmt.Errorf("%w: invalid phone number", ErrValidationFailed)
	}
	if input.Nickname == "" || input.FreeFireUID == "" {
		return nil, fmt.Errorf("%w: nickname and free fire uid are required", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		PhoneNumber:  input.PhoneNumber,
		Nickname:     input.Nickname,
		FreeFireUID:  input.FreeFireUID,
		Role:         models.RolePlayer,
		PasswordHash: string(hashedPassword),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserPhoneConflict) {
			return nil, ErrPhoneTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByPhone(ctx, input.PhoneNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by phone: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	// Best effort; login does not fail because of it.
	_ = s.userRepo.TouchLastLogin(ctx, user.ID, time.Now())

	user.PasswordHash = ""
	return user, nil
}
