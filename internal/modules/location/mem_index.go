// README: In-memory driver index; local fallback and test double.
package location

import (
	"context"
	"sync"
	"time"

	"ryde/internal/types"
)

type MemIndex struct {
	mu      sync.RWMutex
	drivers map[types.ID]*DriverRecord
}

func NewMemIndex() *MemIndex {
	return &MemIndex{drivers: make(map[types.ID]*DriverRecord)}
}

func (x *MemIndex) Upsert(_ context.Context, rec DriverRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	cp := rec
	x.drivers[rec.ID] = &cp
	return nil
}

func (x *MemIndex) SetPosition(_ context.Context, id types.ID, pos types.Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	rec, ok := x.drivers[id]
	if !ok {
		rec = &DriverRecord{ID: id}
		x.drivers[id] = rec
	}
	rec.Position = pos
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (x *MemIndex) SetAvailability(_ context.Context, id types.ID, av Availability) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	rec, ok := x.drivers[id]
	if !ok {
		rec = &DriverRecord{ID: id}
		x.drivers[id] = rec
	}
	rec.Availability = av
	return nil
}

func (x *MemIndex) Get(_ context.Context, id types.ID) (*DriverRecord, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	rec, ok := x.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (x *MemIndex) Nearby(_ context.Context, origin types.Point, radiusKm float64, limit int) ([]DriverDistance, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]DriverDistance, 0, len(x.drivers))
	for _, rec := range x.drivers {
		d := haversineKm(origin.Lat, origin.Lng, rec.Position.Lat, rec.Position.Lng)
		if d > radiusKm {
			continue
		}
		out = append(out, DriverDistance{DriverRecord: *rec, DistanceKm: d})
	}
	sortByDistance(out, func(dd DriverDistance) float64 { return dd.DistanceKm })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
