// README: Request service validates input, enforces ownership and persists through Repository.
package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"errandhub/internal/access"
	"errandhub/internal/modules/location"
	"errandhub/internal/types"
)

var (
	ErrRequestNotFound    = fmt.Errorf("%w: service request not found", types.ErrNotFound)
	ErrAssignmentNotFound = fmt.Errorf("%w: assignment not found", types.ErrNotFound)
	ErrNotEditable        = fmt.Errorf("%w: request is no longer pending", types.ErrForbidden)
	ErrNotDeletable       = fmt.Errorf("%w: request cannot be deleted once accepted or cancelled", types.ErrConflict)
)

const maxTitleLen = 200

// AreaChecker reports whether a pickup lies outside every restricted zone.
type AreaChecker interface {
	Validate(lat, lng float64) (location.AreaCheck, error)
}

type Service struct {
	repo  Repository
	area  AreaChecker
	authz access.Authorizer
	log   logrus.FieldLogger
	now   func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

func WithAuthorizer(a access.Authorizer) Option {
	return func(s *Service) { s.authz = a }
}

// NewService builds the request store. area may be nil to accept any pickup.
func NewService(repo Repository, area AreaChecker, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		area:  area,
		authz: access.Policy{},
		log:   logrus.StandardLogger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateAttrs struct {
	Title         string
	Description   string
	ServiceType   ServiceType
	Pickup        *types.Point
	Destination   *types.Point
	OfferedAmount *types.Money
}

func (s *Service) Create(ctx context.Context, requesterID types.ID, attrs CreateAttrs) (*ServiceRequest, error) {
	if requesterID == "" {
		return nil, fmt.Errorf("%w: requester id required", types.ErrValidation)
	}
	title := strings.TrimSpace(attrs.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", types.ErrValidation)
	}
	if len(title) > maxTitleLen {
		return nil, fmt.Errorf("%w: title longer than %d characters", types.ErrValidation, maxTitleLen)
	}
	if !attrs.ServiceType.Valid() {
		return nil, fmt.Errorf("%w: unknown service type %q", types.ErrValidation, attrs.ServiceType)
	}
	if attrs.Pickup == nil {
		return nil, fmt.Errorf("%w: pickup location required", types.ErrValidation)
	}
	if err := location.ValidateCoordinate(attrs.Pickup.Lat, attrs.Pickup.Lng); err != nil {
		return nil, fmt.Errorf("pickup: %w", err)
	}
	if attrs.Destination != nil {
		if err := location.ValidateCoordinate(attrs.Destination.Lat, attrs.Destination.Lng); err != nil {
			return nil, fmt.Errorf("destination: %w", err)
		}
	}
	offered, err := normalizeMoney(attrs.OfferedAmount)
	if err != nil {
		return nil, err
	}
	if s.area != nil {
		check, err := s.area.Validate(attrs.Pickup.Lat, attrs.Pickup.Lng)
		if err != nil {
			return nil, err
		}
		if !check.IsValid {
			return nil, fmt.Errorf("%w: %s", types.ErrValidation, check.Message)
		}
	}

	now := s.now()
	r := &ServiceRequest{
		ID:            types.NewID(),
		RequesterID:   requesterID,
		Title:         title,
		Description:   attrs.Description,
		ServiceType:   attrs.ServiceType,
		Pickup:        *attrs.Pickup,
		Destination:   attrs.Destination,
		OfferedAmount: offered,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateRequest(ctx, r); err != nil {
		return nil, err
	}
	_ = s.repo.AppendEvent(ctx, &Event{
		RequestID:  r.ID,
		FromStatus: "",
		ToStatus:   string(StatusPending),
		ActorID:    &r.RequesterID,
		ActorRole:  string(access.RoleRequester),
		CreatedAt:  now,
	})
	s.log.WithFields(logrus.Fields{"request_id": r.ID, "requester_id": requesterID}).Info("service request created")
	return r, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*ServiceRequest, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: request id required", types.ErrValidation)
	}
	return s.repo.GetRequest(ctx, id)
}

// GetFor returns the request when caller may view it. Pending requests are
// visible to anyone; afterwards only to the parties and admins.
func (s *Service) GetFor(ctx context.Context, caller access.Caller, id types.ID) (*ServiceRequest, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.resource(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Allow(ctx, caller, access.ActionView, res); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ListByRequester(ctx context.Context, requesterID types.ID, page types.Page) ([]*ServiceRequest, error) {
	if requesterID == "" {
		return nil, fmt.Errorf("%w: requester id required", types.ErrValidation)
	}
	return s.repo.ListByRequester(ctx, requesterID, page.Clamp())
}

// ListOpen returns pending requests oldest first, optionally inside box.
func (s *Service) ListOpen(ctx context.Context, page types.Page, box *location.BoundingBox) ([]*ServiceRequest, error) {
	page = page.Clamp()
	return s.repo.ListOpen(ctx, OpenQuery{Skip: page.Skip, Limit: page.Limit, Within: box})
}

func (s *Service) Update(ctx context.Context, caller access.Caller, id types.ID, patch Patch) (*ServiceRequest, error) {
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", types.ErrValidation)
		}
		if len(t) > maxTitleLen {
			return nil, fmt.Errorf("%w: title longer than %d characters", types.ErrValidation, maxTitleLen)
		}
		patch.Title = &t
	}
	if patch.Destination != nil {
		if err := location.ValidateCoordinate(patch.Destination.Lat, patch.Destination.Lng); err != nil {
			return nil, fmt.Errorf("destination: %w", err)
		}
	}
	if patch.OfferedAmount != nil {
		m, err := normalizeMoney(patch.OfferedAmount)
		if err != nil {
			return nil, err
		}
		patch.OfferedAmount = m
	}

	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Allow(ctx, caller, access.ActionEdit, access.Resource{RequesterID: r.RequesterID}); err != nil {
		return nil, err
	}
	if r.Status != StatusPending {
		return nil, ErrNotEditable
	}
	if patch.Empty() {
		return r, nil
	}
	updated, ok, err := s.repo.UpdatePending(ctx, id, patch, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotEditable
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, caller access.Caller, id types.ID) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.Allow(ctx, caller, access.ActionDelete, access.Resource{RequesterID: r.RequesterID}); err != nil {
		return err
	}
	if r.Status != StatusPending {
		return ErrNotDeletable
	}
	ok, err := s.repo.DeletePending(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotDeletable
	}
	s.log.WithField("request_id", id).Info("service request deleted")
	return nil
}

// resource resolves the ownership facts of r, including the active provider.
func (s *Service) resource(ctx context.Context, r *ServiceRequest) (access.Resource, error) {
	res := access.Resource{RequesterID: r.RequesterID, Open: r.Status == StatusPending}
	if r.Status == StatusPending {
		return res, nil
	}
	a, err := s.repo.LatestAssignment(ctx, r.ID)
	if errors.Is(err, types.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.ProviderID = a.ProviderID
	return res, nil
}

func normalizeMoney(m *types.Money) (*types.Money, error) {
	if m == nil {
		return nil, nil
	}
	if m.Amount < 0 {
		return nil, fmt.Errorf("%w: offered amount must not be negative", types.ErrValidation)
	}
	out := *m
	if out.Currency == "" {
		out.Currency = types.DefaultCurrency
	}
	return &out, nil
}
