// README: Service request and assignment aggregates with their status enums.
package request

import (
	"time"

	"errandhub/internal/types"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "payment_failed"
)

func (p PaymentStatus) Valid() bool {
	return p == PaymentUnpaid || p == PaymentPaid || p == PaymentFailed
}

type ServiceType string

const (
	ServiceTransportation ServiceType = "transportation"
	ServiceErrands        ServiceType = "errands"
	ServiceOther          ServiceType = "other"
)

func (t ServiceType) Valid() bool {
	return t == ServiceTransportation || t == ServiceErrands || t == ServiceOther
}

type ServiceRequest struct {
	ID            types.ID      `json:"id"`
	RequesterID   types.ID      `json:"requester_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	ServiceType   ServiceType   `json:"service_type"`
	Pickup        types.Point   `json:"pickup"`
	Destination   *types.Point  `json:"destination,omitempty"`
	OfferedAmount *types.Money  `json:"offered_amount,omitempty"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	StatusVersion int           `json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (r *ServiceRequest) clone() *ServiceRequest {
	cp := *r
	if r.Destination != nil {
		d := *r.Destination
		cp.Destination = &d
	}
	if r.OfferedAmount != nil {
		m := *r.OfferedAmount
		cp.OfferedAmount = &m
	}
	return &cp
}

type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentAccepted   AssignmentStatus = "accepted"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentAccepted, AssignmentInProgress, AssignmentCompleted, AssignmentCancelled:
		return true
	}
	return false
}

func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentCompleted || s == AssignmentCancelled
}

// RequestStatus is the request phase equivalent to an assignment status.
func (s AssignmentStatus) RequestStatus() Status {
	switch s {
	case AssignmentAssigned, AssignmentAccepted:
		return StatusAccepted
	case AssignmentInProgress:
		return StatusInProgress
	case AssignmentCompleted:
		return StatusCompleted
	case AssignmentCancelled:
		return StatusCancelled
	}
	return ""
}

type Assignment struct {
	ID                  types.ID         `json:"id"`
	RequestID           types.ID         `json:"request_id"`
	ProviderID          types.ID         `json:"provider_id"`
	Status              AssignmentStatus `json:"status"`
	StatusVersion       int              `json:"-"`
	ProviderNotes       *string          `json:"provider_notes,omitempty"`
	CompletionNotes     *string          `json:"completion_notes,omitempty"`
	EstimatedCompletion *time.Time       `json:"estimated_completion,omitempty"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (a *Assignment) clone() *Assignment {
	cp := *a
	if a.ProviderNotes != nil {
		s := *a.ProviderNotes
		cp.ProviderNotes = &s
	}
	if a.CompletionNotes != nil {
		s := *a.CompletionNotes
		cp.CompletionNotes = &s
	}
	if a.EstimatedCompletion != nil {
		t := *a.EstimatedCompletion
		cp.EstimatedCompletion = &t
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Event is one row of the request audit trail.
type Event struct {
	ID           int64
	RequestID    types.ID
	AssignmentID *types.ID
	FromStatus   string
	ToStatus     string
	ActorID      *types.ID
	ActorRole    string
	CreatedAt    time.Time
}
