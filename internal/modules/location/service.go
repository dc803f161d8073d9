// README: Location service validates driver reports and fans them out.
package location

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ryde/internal/types"
)

var ErrBadPosition = errors.New("position out of bounds")

// Publisher hands validated updates to the stream pipeline.
type Publisher interface {
	PublishUpdate(ctx context.Context, u Update) error
}

// Broadcaster pushes live positions to ride rooms. RideForDriver resolves the
// driver's active ride; an empty ID means nothing to broadcast.
type Broadcaster interface {
	RideForDriver(ctx context.Context, driverID types.ID) (types.ID, error)
	EmitToRoom(roomID types.ID, event string, data any)
}

type Service struct {
	index    Index
	producer Publisher
	bcast    Broadcaster
	log      *slog.Logger
}

func NewService(index Index, producer Publisher, bcast Broadcaster, log *slog.Logger) *Service {
	return &Service{index: index, producer: producer, bcast: bcast, log: log}
}

// Report records a driver position. The write to the index is authoritative;
// stream publish and room broadcast are best effort.
func (s *Service) Report(ctx context.Context, driverID types.ID, pos types.Point) error {
	if !pos.Valid() {
		return ErrBadPosition
	}
	if err := s.index.SetPosition(ctx, driverID, pos); err != nil {
		return err
	}

	u := Update{DriverID: driverID, Position: pos, RecordedAt: time.Now().UTC()}
	if s.producer != nil {
		if err := s.producer.PublishUpdate(ctx, u); err != nil {
			s.log.Warn("location publish failed", "driver_id", driverID, "err", err)
		}
	}
	if s.bcast != nil {
		rideID, err := s.bcast.RideForDriver(ctx, driverID)
		if err == nil && rideID != "" {
			s.bcast.EmitToRoom(rideID, "driver_location", u)
		}
	}
	return nil
}

func (s *Service) SetAvailability(ctx context.Context, driverID types.ID, av Availability) error {
	switch av {
	case AvailabilityOnline, AvailabilityOffline, AvailabilityOnTrip, AvailabilityAway:
	default:
		return errors.New("unknown availability")
	}
	return s.index.SetAvailability(ctx, driverID, av)
}

func (s *Service) Register(ctx context.Context, rec DriverRecord) error {
	if !rec.Position.Zero() && !rec.Position.Valid() {
		return ErrBadPosition
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	return s.index.Upsert(ctx, rec)
}
