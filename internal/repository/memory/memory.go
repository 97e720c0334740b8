// Package memory provides map-backed repositories for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/splax/reportdesk/internal/domain"
	"github.com/splax/reportdesk/internal/repository"
)

// Repository keeps users and reports in process memory. It is safe for
// concurrent use and enforces the same email uniqueness as the users table.
type Repository struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	reports map[string]domain.Report
}

var (
	_ repository.UserRepository   = (*Repository)(nil)
	_ repository.ReportRepository = (*Repository)(nil)
)

// New returns an empty Repository.
func New() *Repository {
	return &Repository{
		users:   make(map[string]domain.User),
		reports: make(map[string]domain.Report),
	}
}

// Ping always succeeds.
func (r *Repository) Ping(context.Context) error { return nil }

func (r *Repository) CreateUser(_ context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return repository.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return repository.ErrConflict
	}
	if r.emailTakenLocked(user.Email, "") {
		return repository.ErrConflict
	}
	r.users[user.ID] = *user
	return nil
}

func (r *Repository) ListUsersByEmail(_ context.Context, email string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]domain.User, 0)
	for _, u := range r.users {
		if u.Email == email {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *Repository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *Repository) UpdateUser(_ context.Context, user *domain.User) error {
	if user == nil {
		return repository.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.emailTakenLocked(user.Email, user.ID) {
		return repository.ErrConflict
	}
	r.users[user.ID] = *user
	return nil
}

// DeleteUser removes the user and the reports they created.
func (r *Repository) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	for reportID, report := range r.reports {
		if report.UserID == id {
			delete(r.reports, reportID)
		}
	}
	return nil
}

func (r *Repository) CreateReport(_ context.Context, report *domain.Report) error {
	if report == nil || report.ID == "" {
		return repository.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reports[report.ID]; ok {
		return repository.ErrConflict
	}
	r.reports[report.ID] = cloneReport(*report)
	return nil
}

func (r *Repository) GetReportByID(_ context.Context, id string) (*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneReport(report)
	return &out, nil
}

func (r *Repository) UpdateReport(_ context.Context, report *domain.Report) error {
	if report == nil {
		return repository.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reports[report.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Approved = cloneReport(*report).Approved
	stored.UpdatedAt = report.UpdatedAt
	r.reports[report.ID] = stored
	return nil
}

func (r *Repository) emailTakenLocked(email, exceptID string) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

// cloneReport copies the approval pointer so callers cannot mutate stored state.
func cloneReport(report domain.Report) domain.Report {
	if report.Approved != nil {
		approved := *report.Approved
		report.Approved = &approved
	}
	return report
}
