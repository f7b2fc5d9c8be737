package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/logger"
	"github.com/tomasagata/extra-api-sub001/model"
)

const resetTokenTTL = time.Hour

type UserService struct {
	users   contract.UserRepo
	tokens  contract.ResetTokenRepo
	devices *DeviceService
	now     contract.Clock
	cost    int
}

func NewUserService(users contract.UserRepo, tokens contract.ResetTokenRepo, devices *DeviceService, now contract.Clock) *UserService {
	return &UserService{users: users, tokens: tokens, devices: devices, now: now, cost: bcrypt.DefaultCost}
}

// WithHashCost lowers the bcrypt cost; tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) Register(ctx context.Context, req model.UserRegister) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, &model.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hash),
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, contract.ErrDuplicate) {
			return nil, fmt.Errorf("user %q: %w", req.Username, ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Authenticate checks the credentials. Unknown users and wrong passwords are
// the same ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return user, nil
}

// RequestPasswordReset issues a single-use token and pushes it to the user's
// devices. An unknown email is not an error.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	log := logger.FromContext(ctx)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			log.Debug().Msg("password reset for unknown email")
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	token := model.PasswordResetToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().UTC().Add(resetTokenTTL),
	}
	if err := s.tokens.Create(ctx, &token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	err = s.devices.Push(ctx, user.ID, "Password reset",
		"Use the code in this message to choose a new password.",
		map[string]string{"type": "password_reset", "token": token.Token})
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("password reset notification failed")
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	t, err := s.tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !s.now().Before(t.ExpiresAt) {
		return ErrInvalidToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, t.UserID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
