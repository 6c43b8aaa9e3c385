package location

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"errandhub/internal/types"
)

type memPositions struct {
	mu  sync.Mutex
	pos map[types.ID]types.Point
}

func newMemPositions() *memPositions {
	return &memPositions{pos: make(map[types.ID]types.Point)}
}

func (m *memPositions) SetGeo(_ context.Context, id types.ID, p types.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos[id] = p
	return nil
}

func (m *memPositions) GetGeo(_ context.Context, id types.ID) (types.Point, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pos[id]
	return p, ok, nil
}

func (m *memPositions) RemoveGeo(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pos, id)
	return nil
}

func TestTracker_UpdateAndLast(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(newMemPositions())

	_, err := tr.Last(ctx, "prov1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, tr.UpdateProvider(ctx, "prov1", types.Point{Lat: 37.01, Lng: -122.0}))
	pos, err := tr.Last(ctx, "prov1")
	require.NoError(t, err)
	assert.Equal(t, types.Point{Lat: 37.01, Lng: -122.0}, pos)

	require.NoError(t, tr.Forget(ctx, "prov1"))
	_, err = tr.Last(ctx, "prov1")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestTracker_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(newMemPositions())

	assert.ErrorIs(t, tr.UpdateProvider(ctx, "", types.Point{}), types.ErrValidation)
	assert.ErrorIs(t, tr.UpdateProvider(ctx, "prov1", types.Point{Lat: 95, Lng: 0}), ErrInvalidCoordinate)

	// valid coordinates the GEO index cannot hold
	for _, lat := range []float64{88, -85.06} {
		err := tr.UpdateProvider(ctx, "prov1", types.Point{Lat: lat, Lng: 10})
		assert.ErrorIs(t, err, types.ErrValidation, "lat %v", lat)
	}
	require.NoError(t, tr.UpdateProvider(ctx, "prov1", types.Point{Lat: 85.05, Lng: 10}))
}

func TestStore_RedisRoundTrip(t *testing.T) {
	redisAddr := os.Getenv("EH_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("EH_REDIS_ADDR not set; skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	ctx := context.Background()
	tr := NewTracker(NewStore(rdb))

	uid := types.ID(fmt.Sprintf("provider_test_%d", time.Now().UnixNano()))
	require.NoError(t, tr.UpdateProvider(ctx, uid, types.Point{Lat: 40.7128, Lng: -74.0060}))
	t.Cleanup(func() { _ = tr.Forget(context.Background(), uid) })

	pos, err := tr.Last(ctx, uid)
	require.NoError(t, err)
	// Redis GEO stores a 52-bit geohash; allow a small error.
	assert.InDelta(t, 40.7128, pos.Lat, 1e-4)
	assert.InDelta(t, -74.0060, pos.Lng, 1e-4)
}
