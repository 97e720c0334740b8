package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/splax/reportdesk/internal/domain"
	"github.com/splax/reportdesk/internal/repository"
	"github.com/splax/reportdesk/pkg/crypto"
)

var (
	ErrDuplicateEmail     = errors.New("email in use")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("bad password")
)

// Credentials is the signup and signin payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the payload shape, not whether the credentials are correct.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	)
}

// Service handles signup and signin.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger) Service {
	return Service{users: users, logger: logger, now: time.Now}
}

// Signup registers a new user with a salted scrypt digest of password.
//
// The email lookup rejects the common duplicate case early. Concurrent
// signups for one address are settled by the store's uniqueness constraint,
// which is reported as ErrDuplicateEmail too.
func (s Service) Signup(ctx context.Context, email, password string) (*domain.User, error) {
	if err := (Credentials{Email: email, Password: password}).Validate(); err != nil {
		return nil, err
	}
	existing, err := s.users.ListUsersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrDuplicateEmail
	}
	digest, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  digest,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Warn("signup lost uniqueness race", "email", email)
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Signin verifies password against the first user stored under email.
func (s Service) Signin(ctx context.Context, email, password string) (*domain.User, error) {
	if err := (Credentials{Email: email, Password: password}).Validate(); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	user := users[0]
	if !crypto.ComparePassword(user.Password, password) {
		s.logger.Warn("signin rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	s.logger.Info("user signed in", "user_id", user.ID)
	return &user, nil
}
