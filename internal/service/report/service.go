package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/splax/reportdesk/internal/domain"
	"github.com/splax/reportdesk/internal/repository"
)

var (
	// ErrReportNotFound reports an unknown report id.
	ErrReportNotFound = errors.New("report not found")
	// ErrOwnerRequired is returned when a report is created without a user.
	ErrOwnerRequired = errors.New("report owner required")
)

// CreateInput carries the submitted report fields.
type CreateInput struct {
	Price   int     `json:"price"`
	Make    string  `json:"make"`
	Model   string  `json:"model"`
	Year    int     `json:"year"`
	Mileage int     `json:"mileage"`
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
}

// Validate enforces field ranges.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Price, validation.Min(0), validation.Max(1000000)),
		validation.Field(&in.Make, validation.Required),
		validation.Field(&in.Model, validation.Required),
		validation.Field(&in.Year, validation.Required, validation.Min(1930), validation.Max(2050)),
		validation.Field(&in.Mileage, validation.Min(0), validation.Max(1000000)),
		validation.Field(&in.Lng, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&in.Lat, validation.Min(-90.0), validation.Max(90.0)),
	)
}

// Service handles report submission and the approval gate.
type Service struct {
	repo   repository.ReportRepository
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Service.
func New(repo repository.ReportRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger, now: time.Now}
}

// Create stores a pending report owned by owner.
func (s Service) Create(ctx context.Context, owner *domain.User, in CreateInput) (*domain.Report, error) {
	if owner == nil {
		return nil, ErrOwnerRequired
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	report := &domain.Report{
		ID:        uuid.NewString(),
		UserID:    owner.ID,
		Price:     in.Price,
		Make:      in.Make,
		Model:     in.Model,
		Year:      in.Year,
		Mileage:   in.Mileage,
		Lng:       in.Lng,
		Lat:       in.Lat,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.logger.Info("report created", "report_id", report.ID, "user_id", owner.ID)
	return report, nil
}

// Get returns a report by id.
func (s Service) Get(ctx context.Context, id string) (*domain.Report, error) {
	report, err := s.repo.GetReportByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

// ChangeApproval sets the report's approval flag. Any state may move to
// approved or rejected, including repeating or reversing a decision. Callers
// must have passed the auth guard; no further authorization happens here.
func (s Service) ChangeApproval(ctx context.Context, id string, approved bool) (*domain.Report, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := report.ApprovalState()
	report.SetApproval(approved, s.now().UTC())
	if err := s.repo.UpdateReport(ctx, report); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("update report: %w", err)
	}
	s.logger.Info("report approval changed", "report_id", report.ID, "from", previous, "to", report.ApprovalState())
	return report, nil
}
