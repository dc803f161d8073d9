// README: Driver geo index backed by Redis GEO plus per-driver meta hashes.
package location

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ryde/internal/types"
)

const geoKey = "geo:drivers"

func metaKey(id types.ID) string {
	return "driver:meta:" + string(id)
}

type RedisIndex struct {
	rdb *redis.Client
}

func NewRedisIndex(rdb *redis.Client) *RedisIndex {
	return &RedisIndex{rdb: rdb}
}

func (x *RedisIndex) Upsert(ctx context.Context, rec DriverRecord) error {
	pipe := x.rdb.TxPipeline()
	pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      string(rec.ID),
		Longitude: rec.Position.Lng,
		Latitude:  rec.Position.Lat,
	})
	pipe.HSet(ctx, metaKey(rec.ID),
		"availability", string(rec.Availability),
		"seats", rec.Vehicle.Seats,
		"wheelchair", strconv.FormatBool(rec.Vehicle.Wheelchair),
		"active", strconv.FormatBool(rec.Active),
		"updated_at", rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	_, err := pipe.Exec(ctx)
	return err
}

func (x *RedisIndex) SetPosition(ctx context.Context, id types.ID, pos types.Point) error {
	pipe := x.rdb.TxPipeline()
	pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	})
	pipe.HSet(ctx, metaKey(id), "updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	_, err := pipe.Exec(ctx)
	return err
}

func (x *RedisIndex) SetAvailability(ctx context.Context, id types.ID, av Availability) error {
	return x.rdb.HSet(ctx, metaKey(id), "availability", string(av)).Err()
}

func (x *RedisIndex) Get(ctx context.Context, id types.ID) (*DriverRecord, error) {
	meta, err := x.rdb.HGetAll(ctx, metaKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, ErrNotFound
	}
	rec := recordFromMeta(id, meta)
	pos, err := x.rdb.GeoPos(ctx, geoKey, string(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(pos) == 1 && pos[0] != nil {
		rec.Position = types.Point{Lat: pos[0].Latitude, Lng: pos[0].Longitude}
	}
	return &rec, nil
}

func (x *RedisIndex) Nearby(ctx context.Context, origin types.Point, radiusKm float64, limit int) ([]DriverDistance, error) {
	locs, err := x.rdb.GeoSearchLocation(ctx, geoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  origin.Lng,
			Latitude:   origin.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]DriverDistance, 0, len(locs))
	for _, loc := range locs {
		id := types.ID(loc.Name)
		meta, err := x.rdb.HGetAll(ctx, metaKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if len(meta) == 0 {
			// position without meta; skip until the driver reports in fully
			continue
		}
		rec := recordFromMeta(id, meta)
		rec.Position = types.Point{Lat: loc.Latitude, Lng: loc.Longitude}
		out = append(out, DriverDistance{DriverRecord: rec, DistanceKm: loc.Dist})
	}
	return out, nil
}

func recordFromMeta(id types.ID, meta map[string]string) DriverRecord {
	seats, _ := strconv.Atoi(meta["seats"])
	wheelchair, _ := strconv.ParseBool(meta["wheelchair"])
	active, _ := strconv.ParseBool(meta["active"])
	updated, _ := time.Parse(time.RFC3339Nano, meta["updated_at"])
	return DriverRecord{
		ID:           id,
		Availability: Availability(meta["availability"]),
		Vehicle:      Vehicle{Seats: seats, Wheelchair: wheelchair},
		Active:       active,
		UpdatedAt:    updated,
	}
}
