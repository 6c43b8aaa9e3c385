// README: Provider position store backed by Redis GEO.
package location

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"errandhub/internal/types"
)

const providerGeoKey = "location:providers"

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) SetGeo(ctx context.Context, id types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, providerGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

// GetGeo returns the stored position and false when the provider has none.
func (s *Store) GetGeo(ctx context.Context, id types.ID) (types.Point, bool, error) {
	res, err := s.redis.GeoPos(ctx, providerGeoKey, string(id)).Result()
	if err != nil {
		return types.Point{}, false, fmt.Errorf("geopos %s: %w", id, err)
	}
	if len(res) == 0 || res[0] == nil {
		return types.Point{}, false, nil
	}
	return types.Point{Lat: res[0].Latitude, Lng: res[0].Longitude}, true, nil
}

func (s *Store) RemoveGeo(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, providerGeoKey, string(id)).Err()
}
