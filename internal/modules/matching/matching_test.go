// README: Matching service tests covering radius, ordering and exclusions.
package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"errandhub/internal/config"
	"errandhub/internal/modules/location"
	"errandhub/internal/modules/request"
	"errandhub/internal/types"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

type fixedPositions map[types.ID]types.Point

func (f fixedPositions) Last(_ context.Context, id types.ID) (types.Point, error) {
	p, ok := f[id]
	if !ok {
		return types.Point{}, types.ErrNotFound
	}
	return p, nil
}

func seed(t *testing.T, repo *request.MemoryRepository, requester types.ID, p types.Point, age time.Duration) *request.ServiceRequest {
	t.Helper()
	r := &request.ServiceRequest{
		ID:            types.NewID(),
		RequesterID:   requester,
		Title:         "errand",
		ServiceType:   request.ServiceErrands,
		Pickup:        p,
		Status:        request.StatusPending,
		PaymentStatus: request.PaymentUnpaid,
		CreatedAt:     t0.Add(age),
		UpdatedAt:     t0.Add(age),
	}
	require.NoError(t, repo.CreateRequest(context.Background(), r))
	return r
}

func newService(repo *request.MemoryRepository, area Area, pos Positions) *Service {
	return NewService(repo, area, pos, config.MatchingConfig{RadiusMiles: 2.0, MaxCandidates: 100}, nil)
}

func ids(cs []Candidate) []types.ID {
	out := make([]types.ID, len(cs))
	for i, c := range cs {
		out[i] = c.Request.ID
	}
	return out
}

func TestAvailableFor_RadiusAndOrder(t *testing.T) {
	repo := request.NewMemoryRepository()
	svc := newService(repo, nil, nil)

	near := seed(t, repo, "u1", types.Point{Lat: 37.005, Lng: -122.0}, 2*time.Minute)
	mid := seed(t, repo, "u2", types.Point{Lat: 37.01, Lng: -122.0}, 0)
	tieOlder := seed(t, repo, "u3", types.Point{Lat: 37.01, Lng: -122.0}, -time.Minute)
	seed(t, repo, "u4", types.Point{Lat: 37.1, Lng: -122.0}, 0) // ~6.9 mi

	got, err := svc.AvailableFor(context.Background(), "p1", 37.0, -122.0, types.Page{Limit: 10})
	require.NoError(t, err)
	// same pickup for mid and tieOlder; the older one wins the tie
	assert.Equal(t, []types.ID{near.ID, tieOlder.ID, mid.ID}, ids(got))
	for _, c := range got {
		assert.LessOrEqual(t, c.DistanceMiles, 2.0)
	}
	assert.InDelta(t, 0.69, got[2].DistanceMiles, 0.01)
}

func TestAvailableFor_Exclusions(t *testing.T) {
	repo := request.NewMemoryRepository()
	area := location.NewServiceArea([]location.RestrictedZone{
		{Name: "Metro", Center: types.Point{Lat: 37.02, Lng: -122.0}, RadiusMiles: 0.5, Population: 5_000_000},
	}, location.DefaultPopulationThreshold)
	svc := newService(repo, area, nil)

	own := seed(t, repo, "p1", types.Point{Lat: 37.001, Lng: -122.0}, 0)
	restricted := seed(t, repo, "u2", types.Point{Lat: 37.02, Lng: -122.0}, 0)
	taken := seed(t, repo, "u3", types.Point{Lat: 37.002, Lng: -122.0}, 0)
	ok := seed(t, repo, "u4", types.Point{Lat: 37.003, Lng: -122.0}, 0)

	accepted, err := repo.CreateAssignment(context.Background(), &request.Assignment{
		ID: types.NewID(), RequestID: taken.ID, ProviderID: "p9",
		Status: request.AssignmentAssigned, CreatedAt: t0, UpdatedAt: t0,
	}, taken.StatusVersion)
	require.NoError(t, err)
	require.True(t, accepted)

	got, err := svc.AvailableFor(context.Background(), "p1", 37.0, -122.0, types.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []types.ID{ok.ID}, ids(got))
	assert.NotContains(t, ids(got), own.ID)
	assert.NotContains(t, ids(got), restricted.ID)
}

func TestAvailableFor_Pagination(t *testing.T) {
	repo := request.NewMemoryRepository()
	svc := newService(repo, nil, nil)
	for i := 0; i < 5; i++ {
		seed(t, repo, "u1", types.Point{Lat: 37.0 + float64(i+1)*0.001, Lng: -122.0}, 0)
	}
	all, err := svc.AvailableFor(context.Background(), "p1", 37.0, -122.0, types.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 5)

	page, err := svc.AvailableFor(context.Background(), "p1", 37.0, -122.0, types.Page{Skip: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, ids(all[2:4]), ids(page))

	page, err = svc.AvailableFor(context.Background(), "p1", 37.0, -122.0, types.Page{Skip: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestAvailableFor_EmptyAndInvalid(t *testing.T) {
	svc := newService(request.NewMemoryRepository(), nil, nil)

	got, err := svc.AvailableFor(context.Background(), "p1", 37.0, -122.0, types.Page{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.AvailableFor(context.Background(), "p1", 91, 0, types.Page{})
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = svc.AvailableFor(context.Background(), "", 0, 0, types.Page{})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestAvailableNear(t *testing.T) {
	repo := request.NewMemoryRepository()
	r := seed(t, repo, "u1", types.Point{Lat: 37.01, Lng: -122.0}, 0)
	svc := newService(repo, nil, fixedPositions{"p1": {Lat: 37.0, Lng: -122.0}})

	got, err := svc.AvailableNear(context.Background(), "p1", types.Page{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []types.ID{r.ID}, ids(got))

	_, err = svc.AvailableNear(context.Background(), "p2", types.Page{Limit: 5})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = newService(repo, nil, nil).AvailableNear(context.Background(), "p1", types.Page{})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(request.NewMemoryRepository(), nil, nil, config.MatchingConfig{}, nil)
	assert.Equal(t, DefaultRadiusMiles, svc.RadiusMiles())
}

func TestAvailableFor_ReadsPastFullBatches(t *testing.T) {
	repo := request.NewMemoryRepository()
	svc := NewService(repo, nil, nil, config.MatchingConfig{RadiusMiles: 2.0, MaxCandidates: 5}, nil)

	// box corner: inside the bounding box, 2.7 miles out
	corner := types.Point{Lat: 37.028, Lng: -122.035}
	for i := 0; i < 12; i++ {
		seed(t, repo, "u2", corner, time.Duration(i)*time.Second)
	}
	near := seed(t, repo, "u3", types.Point{Lat: 37.001, Lng: -122.0}, time.Hour)

	got, err := svc.AvailableFor(context.Background(), "p1", 37.0, -122.0, types.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []types.ID{near.ID}, ids(got))
}

func TestAvailableFor_ExactBatchBoundary(t *testing.T) {
	repo := request.NewMemoryRepository()
	svc := NewService(repo, nil, nil, config.MatchingConfig{RadiusMiles: 2.0, MaxCandidates: 3}, nil)

	var want []types.ID
	for i := 0; i < 6; i++ {
		r := seed(t, repo, "u2", types.Point{Lat: 37.0 + float64(i)*0.001, Lng: -122.0}, time.Duration(-i)*time.Minute)
		want = append(want, r.ID)
	}

	got, err := svc.AvailableFor(context.Background(), "p1", 37.0, -122.0, types.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, want, ids(got), "every row is read once, nearest first")
}
