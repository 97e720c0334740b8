package domain

import "time"

// Report is a vehicle sale report submitted by a user and moderated through
// the approval gate.
type Report struct {
	ID        string
	UserID    string
	Price     int
	Make      string
	Model     string
	Year      int
	Mileage   int
	Lng       float64
	Lat       float64
	Approved  *bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Approval states exposed for logging and filtering.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// ApprovalState names the report's position in the pending/approved/rejected machine.
func (r Report) ApprovalState() string {
	switch {
	case r.Approved == nil:
		return ApprovalPending
	case *r.Approved:
		return ApprovalApproved
	default:
		return ApprovalRejected
	}
}

// SetApproval records a decision. Decided reports may be flipped again.
func (r *Report) SetApproval(approved bool, at time.Time) {
	value := approved
	r.Approved = &value
	r.UpdatedAt = at
}
