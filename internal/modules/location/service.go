// README: Tracker records the last reported position of each provider.
package location

import (
	"context"
	"fmt"
	"math"

	"errandhub/internal/types"
)

// PositionStore is implemented by Store; tests substitute an in-memory map.
type PositionStore interface {
	SetGeo(ctx context.Context, id types.ID, pos types.Point) error
	GetGeo(ctx context.Context, id types.ID) (types.Point, bool, error)
	RemoveGeo(ctx context.Context, id types.ID) error
}

// MaxTrackedLat is the polar limit of the Redis GEO index (web mercator).
const MaxTrackedLat = 85.05112878

type Tracker struct {
	store PositionStore
}

func NewTracker(store PositionStore) *Tracker {
	return &Tracker{store: store}
}

func (t *Tracker) UpdateProvider(ctx context.Context, providerID types.ID, pos types.Point) error {
	if providerID == "" {
		return fmt.Errorf("%w: missing provider id", types.ErrValidation)
	}
	if err := ValidateCoordinate(pos.Lat, pos.Lng); err != nil {
		return err
	}
	if math.Abs(pos.Lat) > MaxTrackedLat {
		return fmt.Errorf("%w: latitude %.6f outside trackable range ±%.8f", types.ErrValidation, pos.Lat, MaxTrackedLat)
	}
	return t.store.SetGeo(ctx, providerID, pos)
}

// Last returns the last reported position or an error wrapping types.ErrNotFound.
func (t *Tracker) Last(ctx context.Context, providerID types.ID) (types.Point, error) {
	pos, ok, err := t.store.GetGeo(ctx, providerID)
	if err != nil {
		return types.Point{}, err
	}
	if !ok {
		return types.Point{}, fmt.Errorf("%w: no known position for provider %s", types.ErrNotFound, providerID)
	}
	return pos, nil
}

func (t *Tracker) Forget(ctx context.Context, providerID types.ID) error {
	return t.store.RemoveGeo(ctx, providerID)
}
