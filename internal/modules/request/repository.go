// README: Persistence contract shared by the Postgres store and the in-memory repository.
package request

import (
	"context"
	"time"

	"errandhub/internal/modules/location"
	"errandhub/internal/types"
)

// Repository persists requests and assignments. Every mutating method is a
// conditional write: it reports false when the expected state no longer holds
// and never overwrites a row it did not observe.
type Repository interface {
	CreateRequest(ctx context.Context, r *ServiceRequest) error
	GetRequest(ctx context.Context, id types.ID) (*ServiceRequest, error)
	ListByRequester(ctx context.Context, requesterID types.ID, page types.Page) ([]*ServiceRequest, error)
	ListOpen(ctx context.Context, q OpenQuery) ([]*ServiceRequest, error)
	UpdatePending(ctx context.Context, id types.ID, patch Patch, at time.Time) (*ServiceRequest, bool, error)
	DeletePending(ctx context.Context, id types.ID) (bool, error)
	CancelPending(ctx context.Context, id types.ID, version int, at time.Time) (bool, error)

	// CreateAssignment inserts a and moves its request from pending to accepted
	// in one write, conditioned on the request version.
	CreateAssignment(ctx context.Context, a *Assignment, requestVersion int) (bool, error)
	GetAssignment(ctx context.Context, id types.ID) (*Assignment, error)
	ActiveAssignment(ctx context.Context, requestID types.ID) (*Assignment, error)
	// LatestAssignment returns the most recent assignment of a request in any status.
	LatestAssignment(ctx context.Context, requestID types.ID) (*Assignment, error)
	TransitionAssignment(ctx context.Context, t Transition) (bool, error)

	SetPaymentStatus(ctx context.Context, requestID types.ID, from, to PaymentStatus, at time.Time) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
}

// OpenQuery selects pending requests oldest first. A zero Limit means no limit.
// After restricts the result to rows strictly past the cursor in that order.
type OpenQuery struct {
	Skip   int
	Limit  int
	Within *location.BoundingBox
	After  *OpenCursor
}

// OpenCursor is the (created_at, id) position of the last row of a batch.
type OpenCursor struct {
	CreatedAt time.Time
	ID        types.ID
}

// CursorAfter returns the cursor positioned on r.
func CursorAfter(r *ServiceRequest) *OpenCursor {
	return &OpenCursor{CreatedAt: r.CreatedAt, ID: r.ID}
}

func (c *OpenCursor) before(r *ServiceRequest) bool {
	if !r.CreatedAt.Equal(c.CreatedAt) {
		return c.CreatedAt.Before(r.CreatedAt)
	}
	return c.ID < r.ID
}

// Patch lists the mutable fields of a pending request; nil leaves a field unchanged.
type Patch struct {
	Title         *string
	Description   *string
	Destination   *types.Point
	OfferedAmount *types.Money
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Destination == nil && p.OfferedAmount == nil
}

// Transition moves an assignment and its request together.
type Transition struct {
	AssignmentID types.ID
	From         AssignmentStatus
	To           AssignmentStatus
	Version      int
	RequestID    types.ID
	RequestFrom  Status
	RequestTo    Status
	Notes        *string
	At           time.Time
}

func applyPatch(r *ServiceRequest, p Patch, at time.Time) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Destination != nil {
		d := *p.Destination
		r.Destination = &d
	}
	if p.OfferedAmount != nil {
		m := *p.OfferedAmount
		r.OfferedAmount = &m
	}
	r.StatusVersion++
	r.UpdatedAt = at
}

func applyTransition(a *Assignment, t Transition) {
	a.Status = t.To
	a.StatusVersion++
	a.UpdatedAt = t.At
	if t.Notes != nil {
		n := *t.Notes
		if t.To == AssignmentCompleted {
			a.CompletionNotes = &n
		} else {
			a.ProviderNotes = &n
		}
	}
	if t.To == AssignmentCompleted && a.CompletedAt == nil {
		at := t.At
		a.CompletedAt = &at
	}
}
