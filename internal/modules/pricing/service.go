// README: Pricing service computes fare estimates from route estimates.
package pricing

import "math"

type Service struct {
	rate Rate
}

func NewService(rate Rate) *Service {
	if rate == (Rate{}) {
		rate = DefaultRate
	}
	return &Service{rate: rate}
}

// Estimate prices a route. Extra seats beyond the first are surcharged;
// the wheelchair supplement covers ramp-equipped vehicles.
func (s *Service) Estimate(distanceM, durationS int64, seats int, wheelchair bool) int64 {
	fare := s.rate.BaseFare
	fare += int64(math.Ceil(float64(distanceM)/1000.0)) * s.rate.PerKm
	fare += int64(math.Ceil(float64(durationS)/60.0)) * s.rate.PerMinute
	if seats > 1 {
		fare += int64(seats-1) * s.rate.PerSeat
	}
	if wheelchair {
		fare += s.rate.Wheelchair
	}
	if fare < s.rate.MinimumFare {
		fare = s.rate.MinimumFare
	}
	return fare
}
