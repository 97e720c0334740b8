package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/splax/reportdesk/internal/domain"
	"github.com/splax/reportdesk/internal/repository"
	"github.com/splax/reportdesk/internal/service/auth"
	"github.com/splax/reportdesk/pkg/crypto"
)

// ErrUserNotFound reports an unknown user id.
var ErrUserNotFound = errors.New("user not found")

// ErrEmptyUpdate is returned when an update names no attributes.
var ErrEmptyUpdate = errors.New("nothing to update")

// UpdateInput lists the mutable user attributes. Nil fields are left alone.
type UpdateInput struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Validate checks provided fields.
func (in UpdateInput) Validate() error {
	if in.Email == nil && in.Password == nil {
		return ErrEmptyUpdate
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&in.Password, validation.NilOrNotEmpty),
	)
}

// Service manages user records outside the signup and signin flows.
type Service struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(repo repository.UserRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger}
}

// FindByEmail lists users stored under email.
func (s Service) FindByEmail(ctx context.Context, email string) ([]domain.User, error) {
	return s.repo.ListUsersByEmail(ctx, email)
}

// Get returns a user by id.
func (s Service) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Update changes email and/or password. A new password is stored as a fresh digest.
func (s Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Password != nil {
		digest, err := crypto.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.Password = digest
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, auth.ErrDuplicateEmail
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.logger.Info("user updated", "user_id", user.ID)
	return user, nil
}

// Remove deletes a user and returns the deleted record.
func (s Service) Remove(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("user removed", "user_id", id)
	return user, nil
}
