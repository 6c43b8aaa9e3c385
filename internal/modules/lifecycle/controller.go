// README: Lifecycle controller; the only writer of request and assignment status.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"errandhub/internal/access"
	"errandhub/internal/modules/request"
	"errandhub/internal/notify"
	"errandhub/internal/types"
)

const maxNotesLen = 2000

var (
	ErrNotPending      = fmt.Errorf("%w: request is not pending", types.ErrConflict)
	ErrAlreadyAssigned = fmt.Errorf("%w: request already has an active assignment", types.ErrConflict)
	ErrIllegal         = fmt.Errorf("%w: illegal status transition", types.ErrConflict)
	ErrLostRace        = fmt.Errorf("%w: state changed concurrently", types.ErrConflict)
)

// CompletionHook is told about every request that reaches completed.
type CompletionHook interface {
	OnCompleted(ctx context.Context, r *request.ServiceRequest)
}

type Controller struct {
	repo     request.Repository
	authz    access.Authorizer
	notifier notify.Notifier
	payments CompletionHook
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Controller)

func WithAuthorizer(a access.Authorizer) Option { return func(c *Controller) { c.authz = a } }
func WithNotifier(n notify.Notifier) Option     { return func(c *Controller) { c.notifier = n } }
func WithPayments(h CompletionHook) Option      { return func(c *Controller) { c.payments = h } }
func WithLogger(l logrus.FieldLogger) Option    { return func(c *Controller) { c.log = l } }
func WithClock(now func() time.Time) Option     { return func(c *Controller) { c.now = now } }

func NewController(repo request.Repository, opts ...Option) *Controller {
	c := &Controller{
		repo:     repo,
		authz:    access.Policy{},
		notifier: notify.Nop,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type AcceptCommand struct {
	RequestID           types.ID
	Provider            access.Caller
	Notes               string
	EstimatedCompletion *time.Time
}

type UpdateStatusCommand struct {
	AssignmentID types.ID
	NewStatus    request.AssignmentStatus
	Notes        string
	Actor        access.Caller
}

type CancelRequestCommand struct {
	RequestID types.ID
	Actor     access.Caller
}

// AcceptRequest binds the provider to a pending request. The assignment is
// created and the request moved to accepted in one conditional write.
func (c *Controller) AcceptRequest(ctx context.Context, cmd AcceptCommand) (*request.Assignment, error) {
	if cmd.RequestID == "" || cmd.Provider.UserID == "" {
		return nil, fmt.Errorf("%w: request id and provider id required", types.ErrValidation)
	}
	notes, err := cleanNotes(cmd.Notes)
	if err != nil {
		return nil, err
	}
	now := c.now()
	if cmd.EstimatedCompletion != nil && cmd.EstimatedCompletion.Before(now) {
		return nil, fmt.Errorf("%w: estimated completion is in the past", types.ErrValidation)
	}

	r, err := c.repo.GetRequest(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	if err := c.authz.Allow(ctx, cmd.Provider, access.ActionAccept, access.Resource{RequesterID: r.RequesterID, Open: true}); err != nil {
		return nil, err
	}
	if r.Status != request.StatusPending {
		return nil, ErrNotPending
	}
	if _, err := c.repo.ActiveAssignment(ctx, r.ID); err == nil {
		return nil, ErrAlreadyAssigned
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	a := &request.Assignment{
		ID:                  types.NewID(),
		RequestID:           r.ID,
		ProviderID:          cmd.Provider.UserID,
		Status:              request.AssignmentAssigned,
		ProviderNotes:       notes,
		EstimatedCompletion: cmd.EstimatedCompletion,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	ok, err := c.repo.CreateAssignment(ctx, a, r.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLostRace
	}

	c.record(ctx, r.ID, &a.ID, string(request.StatusPending), string(request.StatusAccepted), cmd.Provider, now)
	c.log.WithFields(logrus.Fields{
		"request_id":    r.ID,
		"assignment_id": a.ID,
		"provider_id":   a.ProviderID,
	}).Info("request accepted")
	c.emit(ctx, notify.Event{Type: notify.RequestAccepted, UserID: r.RequesterID, RelatedID: r.ID, Timestamp: now})
	return a, nil
}

// UpdateStatus advances or cancels an assignment and moves its request with
// it. Repeating the current status is a no-op.
func (c *Controller) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*request.Assignment, error) {
	if !cmd.NewStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown assignment status %q", types.ErrValidation, cmd.NewStatus)
	}
	notes, err := cleanNotes(cmd.Notes)
	if err != nil {
		return nil, err
	}
	a, err := c.repo.GetAssignment(ctx, cmd.AssignmentID)
	if err != nil {
		return nil, err
	}
	r, err := c.repo.GetRequest(ctx, a.RequestID)
	if err != nil {
		return nil, err
	}

	action := access.ActionAdvance
	if cmd.NewStatus == request.AssignmentCancelled {
		action = access.ActionCancel
	}
	res := access.Resource{RequesterID: r.RequesterID, ProviderID: a.ProviderID}
	if err := c.authz.Allow(ctx, cmd.Actor, action, res); err != nil {
		return nil, err
	}

	if a.Status == cmd.NewStatus {
		return a, nil
	}
	if !CanAdvance(a.Status, cmd.NewStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegal, a.Status, cmd.NewStatus)
	}
	return c.transition(ctx, a, r, cmd.NewStatus, notes, cmd.Actor)
}

// CancelRequest cancels a request on behalf of a party. A pending request
// without an assignment is cancelled directly; otherwise its assignment is
// cancelled, which carries the request along.
func (c *Controller) CancelRequest(ctx context.Context, cmd CancelRequestCommand) (*request.ServiceRequest, error) {
	r, err := c.repo.GetRequest(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	a, err := c.repo.ActiveAssignment(ctx, r.ID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	res := access.Resource{RequesterID: r.RequesterID}
	if a != nil {
		res.ProviderID = a.ProviderID
	}
	if err := c.authz.Allow(ctx, cmd.Actor, access.ActionCancel, res); err != nil {
		return nil, err
	}

	switch {
	case r.Status == request.StatusCancelled:
		return r, nil
	case r.Status.Terminal():
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegal, r.Status, request.StatusCancelled)
	case a != nil:
		if !CanAdvance(a.Status, request.AssignmentCancelled) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrIllegal, a.Status, request.AssignmentCancelled)
		}
		if _, err := c.transition(ctx, a, r, request.AssignmentCancelled, nil, cmd.Actor); err != nil {
			return nil, err
		}
		return c.repo.GetRequest(ctx, r.ID)
	case r.Status != request.StatusPending:
		// accepted without a live assignment should not exist
		return nil, ErrLostRace
	}

	now := c.now()
	ok, err := c.repo.CancelPending(ctx, r.ID, r.StatusVersion, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLostRace
	}
	c.record(ctx, r.ID, nil, string(r.Status), string(request.StatusCancelled), cmd.Actor, now)
	c.log.WithFields(logrus.Fields{"request_id": r.ID, "actor": cmd.Actor.UserID}).Info("request cancelled")

	r.Status = request.StatusCancelled
	r.StatusVersion++
	r.UpdatedAt = now
	return r, nil
}

// GetAssignment returns an assignment to one of its parties or an admin.
func (c *Controller) GetAssignment(ctx context.Context, caller access.Caller, id types.ID) (*request.Assignment, error) {
	a, err := c.repo.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := c.repo.GetRequest(ctx, a.RequestID)
	if err != nil {
		return nil, err
	}
	res := access.Resource{RequesterID: r.RequesterID, ProviderID: a.ProviderID}
	if err := c.authz.Allow(ctx, caller, access.ActionView, res); err != nil {
		return nil, err
	}
	return a, nil
}

func (c *Controller) transition(ctx context.Context, a *request.Assignment, r *request.ServiceRequest, to request.AssignmentStatus, notes *string, actor access.Caller) (*request.Assignment, error) {
	reqFrom := a.Status.RequestStatus()
	reqTo := to.RequestStatus()
	if reqFrom != reqTo && !CanTransition(reqFrom, reqTo) {
		return nil, fmt.Errorf("%w: request %s -> %s", ErrIllegal, reqFrom, reqTo)
	}
	now := c.now()
	t := request.Transition{
		AssignmentID: a.ID,
		From:         a.Status,
		To:           to,
		Version:      a.StatusVersion,
		RequestID:    r.ID,
		RequestFrom:  reqFrom,
		RequestTo:    reqTo,
		Notes:        notes,
		At:           now,
	}
	ok, err := c.repo.TransitionAssignment(ctx, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLostRace
	}

	from := a.Status
	updated, err := c.repo.GetAssignment(ctx, a.ID)
	if err != nil {
		// the write is committed; report what was written
		c.log.WithError(err).WithField("assignment_id", a.ID).Warn("re-read after transition failed")
		updated = a
		updated.Status = to
		updated.StatusVersion++
		if to == request.AssignmentCompleted {
			updated.CompletedAt = &now
		}
	}
	c.record(ctx, r.ID, &a.ID, string(from), string(to), actor, now)
	c.log.WithFields(logrus.Fields{
		"request_id":    r.ID,
		"assignment_id": a.ID,
		"from":          from,
		"to":            to,
		"actor":         actor.UserID,
	}).Info("assignment status changed")

	r.Status = reqTo
	r.UpdatedAt = now
	c.afterTransition(ctx, r, updated, actor, now)
	return updated, nil
}

// afterTransition runs the side effects of a committed transition. Failures
// are logged and never undo the status change.
func (c *Controller) afterTransition(ctx context.Context, r *request.ServiceRequest, a *request.Assignment, actor access.Caller, now time.Time) {
	counterpart := r.RequesterID
	if actor.UserID == r.RequesterID {
		counterpart = a.ProviderID
	}

	switch a.Status {
	case request.AssignmentCompleted:
		c.emit(ctx, notify.Event{Type: notify.RequestCompleted, UserID: r.RequesterID, RelatedID: r.ID, Timestamp: now})
		if c.payments != nil {
			c.payments.OnCompleted(ctx, r)
		}
		for _, uid := range []types.ID{r.RequesterID, a.ProviderID} {
			c.emit(ctx, notify.Event{Type: notify.RatingAvailable, UserID: uid, RelatedID: a.ID, Timestamp: now})
		}
	case request.AssignmentCancelled:
		for _, uid := range []types.ID{r.RequesterID, a.ProviderID} {
			if uid == actor.UserID {
				continue
			}
			c.emit(ctx, notify.Event{Type: notify.RequestCancelled, UserID: uid, RelatedID: r.ID, Timestamp: now})
		}
	default:
		c.emit(ctx, notify.Event{
			Type:      notify.AssignmentStatus,
			UserID:    counterpart,
			RelatedID: a.ID,
			Detail:    string(a.Status),
			Timestamp: now,
		})
	}
}

func (c *Controller) emit(ctx context.Context, e notify.Event) {
	if err := c.notifier.Emit(ctx, e); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"event": e.Type, "user_id": e.UserID}).Warn("notification failed")
	}
}

func (c *Controller) record(ctx context.Context, requestID types.ID, assignmentID *types.ID, from, to string, actor access.Caller, at time.Time) {
	actorID := actor.UserID
	_ = c.repo.AppendEvent(ctx, &request.Event{
		RequestID:    requestID,
		AssignmentID: assignmentID,
		FromStatus:   from,
		ToStatus:     to,
		ActorID:      &actorID,
		ActorRole:    string(actor.Role),
		CreatedAt:    at,
	})
}

func cleanNotes(s string) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if len(s) > maxNotesLen {
		return nil, fmt.Errorf("%w: notes longer than %d characters", types.ErrValidation, maxNotesLen)
	}
	return &s, nil
}
