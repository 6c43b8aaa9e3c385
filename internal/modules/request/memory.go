// README: In-memory Repository with the same conditional write contract as Store.
package request

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"errandhub/internal/types"
)

type MemoryRepository struct {
	mu          sync.Mutex
	requests    map[types.ID]*ServiceRequest
	assignments map[types.ID]*Assignment
	events      []Event
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		requests:    make(map[types.ID]*ServiceRequest),
		assignments: make(map[types.ID]*Assignment),
	}
}

func (m *MemoryRepository) CreateRequest(_ context.Context, r *ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; ok {
		return fmt.Errorf("%w: request %s already exists", types.ErrConflict, r.ID)
	}
	m.requests[r.ID] = r.clone()
	return nil
}

func (m *MemoryRepository) GetRequest(_ context.Context, id types.ID) (*ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return r.clone(), nil
}

func (m *MemoryRepository) ListByRequester(_ context.Context, requesterID types.ID, page types.Page) ([]*ServiceRequest, error) {
	m.mu.Lock()
	out := make([]*ServiceRequest, 0)
	for _, r := range m.requests {
		if r.RequesterID == requesterID {
			out = append(out, r.clone())
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return types.Apply(out, page.Clamp()), nil
}

func (m *MemoryRepository) ListOpen(_ context.Context, q OpenQuery) ([]*ServiceRequest, error) {
	m.mu.Lock()
	out := make([]*ServiceRequest, 0)
	for _, r := range m.requests {
		if r.Status != StatusPending {
			continue
		}
		if q.Within != nil && !q.Within.Contains(r.Pickup) {
			continue
		}
		if q.After != nil && !q.After.before(r) {
			continue
		}
		out = append(out, r.clone())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if q.Skip > 0 {
		if q.Skip >= len(out) {
			return []*ServiceRequest{}, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) UpdatePending(_ context.Context, id types.ID, patch Patch, at time.Time) (*ServiceRequest, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, false, ErrRequestNotFound
	}
	if r.Status != StatusPending {
		return nil, false, nil
	}
	applyPatch(r, patch, at)
	return r.clone(), true, nil
}

func (m *MemoryRepository) DeletePending(_ context.Context, id types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != StatusPending {
		return false, nil
	}
	for _, a := range m.assignments {
		if a.RequestID == id {
			return false, nil
		}
	}
	delete(m.requests, id)
	return true, nil
}

func (m *MemoryRepository) CancelPending(_ context.Context, id types.ID, version int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != StatusPending || r.StatusVersion != version {
		return false, nil
	}
	r.Status = StatusCancelled
	r.StatusVersion++
	r.UpdatedAt = at
	return true, nil
}

func (m *MemoryRepository) CreateAssignment(_ context.Context, a *Assignment, requestVersion int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[a.RequestID]
	if !ok {
		return false, ErrRequestNotFound
	}
	if r.Status != StatusPending || r.StatusVersion != requestVersion {
		return false, nil
	}
	if m.activeLocked(a.RequestID) != nil {
		return false, nil
	}
	m.assignments[a.ID] = a.clone()
	r.Status = a.Status.RequestStatus()
	r.StatusVersion++
	r.UpdatedAt = a.CreatedAt
	return true, nil
}

func (m *MemoryRepository) GetAssignment(_ context.Context, id types.ID) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return a.clone(), nil
}

func (m *MemoryRepository) ActiveAssignment(_ context.Context, requestID types.ID) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a := m.activeLocked(requestID); a != nil {
		return a.clone(), nil
	}
	return nil, ErrAssignmentNotFound
}

func (m *MemoryRepository) LatestAssignment(_ context.Context, requestID types.ID) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *Assignment
	for _, a := range m.assignments {
		if a.RequestID != requestID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) ||
			(a.CreatedAt.Equal(latest.CreatedAt) && a.ID > latest.ID) {
			latest = a
		}
	}
	if latest == nil {
		return nil, ErrAssignmentNotFound
	}
	return latest.clone(), nil
}

func (m *MemoryRepository) activeLocked(requestID types.ID) *Assignment {
	for _, a := range m.assignments {
		if a.RequestID == requestID && a.Status != AssignmentCancelled {
			return a
		}
	}
	return nil
}

func (m *MemoryRepository) TransitionAssignment(_ context.Context, t Transition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[t.AssignmentID]
	if !ok || a.Status != t.From || a.StatusVersion != t.Version {
		return false, nil
	}
	r, ok := m.requests[t.RequestID]
	if !ok || r.Status != t.RequestFrom {
		return false, nil
	}
	applyTransition(a, t)
	if r.Status != t.RequestTo {
		r.Status = t.RequestTo
		r.StatusVersion++
	}
	r.UpdatedAt = t.At
	return true, nil
}

func (m *MemoryRepository) SetPaymentStatus(_ context.Context, requestID types.ID, from, to PaymentStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok || r.Status != StatusCompleted || r.PaymentStatus != from {
		return false, nil
	}
	r.PaymentStatus = to
	r.StatusVersion++
	r.UpdatedAt = at
	return true, nil
}

func (m *MemoryRepository) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := *e
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

// Events returns the audit trail of one request in append order.
func (m *MemoryRepository) Events(requestID types.ID) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out
}
