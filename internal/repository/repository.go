package repository

import (
	"context"

	"github.com/splax/reportdesk/internal/domain"
)

// UserRepository persists users. Implementations enforce email uniqueness and
// report violations as ErrConflict.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	ListUsersByEmail(ctx context.Context, email string) ([]domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error
}

// ReportRepository persists reports.
type ReportRepository interface {
	CreateReport(ctx context.Context, report *domain.Report) error
	GetReportByID(ctx context.Context, id string) (*domain.Report, error)
	UpdateReport(ctx context.Context, report *domain.Report) error
}
