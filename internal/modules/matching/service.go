// README: Matching service lists open requests near a provider, nearest first.
package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"errandhub/internal/config"
	"errandhub/internal/modules/location"
	"errandhub/internal/modules/request"
	"errandhub/internal/types"
)

// OpenRequests is the read side of the request store used for matching.
type OpenRequests interface {
	ListOpen(ctx context.Context, q request.OpenQuery) ([]*request.ServiceRequest, error)
}

// Area reports whether a pickup is serviceable.
type Area interface {
	Allows(p types.Point) bool
}

// Positions resolves the last reported location of a provider.
type Positions interface {
	Last(ctx context.Context, providerID types.ID) (types.Point, error)
}

type Service struct {
	requests  OpenRequests
	area      Area
	positions Positions
	cfg       config.MatchingConfig
	log       logrus.FieldLogger
}

// NewService wires the matching engine. area and positions may be nil.
func NewService(requests OpenRequests, area Area, positions Positions, cfg config.MatchingConfig, log logrus.FieldLogger) *Service {
	if cfg.RadiusMiles <= 0 {
		cfg.RadiusMiles = DefaultRadiusMiles
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{requests: requests, area: area, positions: positions, cfg: cfg, log: log}
}

func (s *Service) RadiusMiles() float64 { return s.cfg.RadiusMiles }

// AvailableFor returns pending requests within the service radius of
// (lat, lng), excluding restricted pickups and the provider's own requests.
// Results are ordered by distance, then age, then id.
func (s *Service) AvailableFor(ctx context.Context, providerID types.ID, lat, lng float64, page types.Page) ([]Candidate, error) {
	if providerID == "" {
		return nil, fmt.Errorf("%w: provider id required", types.ErrValidation)
	}
	if err := location.ValidateCoordinate(lat, lng); err != nil {
		return nil, err
	}
	page = page.Clamp()
	center := types.Point{Lat: lat, Lng: lng}
	box := location.BoundingBoxFor(center, s.cfg.RadiusMiles)

	var out []Candidate
	q := request.OpenQuery{Limit: s.cfg.MaxCandidates, Within: &box}
	for {
		batch, err := s.requests.ListOpen(ctx, q)
		if err != nil {
			return nil, err
		}
		out = s.collect(out, batch, providerID, center)
		if len(batch) < q.Limit {
			break
		}
		q.After = request.CursorAfter(batch[len(batch)-1])
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DistanceMiles != b.DistanceMiles {
			return a.DistanceMiles < b.DistanceMiles
		}
		if !a.Request.CreatedAt.Equal(b.Request.CreatedAt) {
			return a.Request.CreatedAt.Before(b.Request.CreatedAt)
		}
		return a.Request.ID < b.Request.ID
	})
	return types.Apply(out, page), nil
}

// collect appends the legal in-radius requests of one batch to out.
func (s *Service) collect(out []Candidate, batch []*request.ServiceRequest, providerID types.ID, center types.Point) []Candidate {
	for _, r := range batch {
		if r.Status != request.StatusPending || r.RequesterID == providerID {
			continue
		}
		if s.area != nil && !s.area.Allows(r.Pickup) {
			continue
		}
		d, err := location.DistanceBetween(center, r.Pickup, location.Miles)
		if err != nil {
			// stored rows are validated on write; skip anything that is not
			s.log.WithError(err).WithField("request_id", r.ID).Warn("skipping request with bad pickup")
			continue
		}
		if d > s.cfg.RadiusMiles {
			continue
		}
		out = append(out, Candidate{Request: r, DistanceMiles: d})
	}
	return out
}

// AvailableNear is AvailableFor at the provider's last tracked position.
func (s *Service) AvailableNear(ctx context.Context, providerID types.ID, page types.Page) ([]Candidate, error) {
	if s.positions == nil {
		return nil, fmt.Errorf("%w: provider location required", types.ErrValidation)
	}
	pos, err := s.positions.Last(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return s.AvailableFor(ctx, providerID, pos.Lat, pos.Lng, page)
}
