// README: Matching service queries the driver index and filters eligibility.
package matching

import (
	"context"
	"log/slog"

	"ryde/internal/config"
	"ryde/internal/modules/location"
	"ryde/internal/observability"
	"ryde/internal/types"
)

type Service struct {
	index location.Index
	cfg   config.MatchingConfig
	log   *slog.Logger
}

func NewService(index location.Index, cfg config.MatchingConfig, log *slog.Logger) *Service {
	return &Service{index: index, cfg: cfg, log: log}
}

// FindCandidates returns drivers eligible for the given pickup, nearest
// first, capped at limit (the configured invite limit when limit <= 0).
// An empty result is not an error; the caller decides how to react.
func (s *Service) FindCandidates(ctx context.Context, origin types.Point, c Constraints, exclude []types.ID, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = s.cfg.InviteLimit
	}
	excluded := make(map[types.ID]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	nearby, err := s.index.Nearby(ctx, origin, s.cfg.RadiusKm, limit*oversampleFactor)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, limit)
	for _, d := range nearby {
		if !eligible(d.DriverRecord, c) {
			continue
		}
		if _, skip := excluded[d.ID]; skip {
			continue
		}
		out = append(out, Candidate{
			DriverID:   d.ID,
			Position:   d.Position,
			DistanceKm: d.DistanceKm,
		})
		if len(out) == limit {
			break
		}
	}

	observability.MatchesTotal.Inc()
	if len(out) == 0 {
		observability.MatchesEmptyTotal.Inc()
		s.log.Info("no candidates in range", "radius_km", s.cfg.RadiusKm)
	}
	return out, nil
}

func eligible(d location.DriverRecord, c Constraints) bool {
	if d.Availability != location.AvailabilityOnline || !d.Active {
		return false
	}
	if d.Vehicle.Seats < c.MinSeats {
		return false
	}
	if c.Wheelchair && !d.Vehicle.Wheelchair {
		return false
	}
	return true
}
