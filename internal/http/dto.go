package httpx

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/splax/reportdesk/internal/domain"
)

// userResponse is the public shape of a user. The password digest is never
// serialized.
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email}
}

type reportResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Price     int       `json:"price"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Mileage   int       `json:"mileage"`
	Lng       float64   `json:"lng"`
	Lat       float64   `json:"lat"`
	Approved  *bool     `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newReportResponse(r *domain.Report) reportResponse {
	return reportResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		Price:     r.Price,
		Make:      r.Make,
		Model:     r.Model,
		Year:      r.Year,
		Mileage:   r.Mileage,
		Lng:       r.Lng,
		Lat:       r.Lat,
		Approved:  r.Approved,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type approveRequest struct {
	Approved *bool `json:"approved"`
}

func (a approveRequest) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Approved, validation.NotNil),
	)
}
