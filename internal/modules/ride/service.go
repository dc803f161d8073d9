// README: Ride service implements dispatch, the accept race and lifecycle
// transitions with role-gated authorization.
package ride

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ryde/internal/config"
	"ryde/internal/maps"
	"ryde/internal/modules/location"
	"ryde/internal/modules/matching"
	"ryde/internal/modules/user"
	"ryde/internal/observability"
	"ryde/internal/types"
)

var (
	ErrNotFound       = errors.New("ride not found")
	ErrBadRequest     = errors.New("bad request")
	ErrActiveRide     = errors.New("rider has active ride")
	ErrRideNotPending = errors.New("ride no longer pending")
	ErrNotInvited     = errors.New("driver not invited")
	ErrAlreadyClaimed = errors.New("ride already claimed")
	ErrUnauthorized   = errors.New("actor not authorized for this ride")
	ErrConflict       = errors.New("ride state conflict")
)

// Notifier fans events out to personal and ride channels. Delivery is best
// effort; the implementation never fails the calling operation.
type Notifier interface {
	NotifyUser(ctx context.Context, userID types.ID, event string, payload any)
	NotifyRide(ctx context.Context, rideID types.ID, event string, payload any)
}

// Geocoder resolves a free-form address to a coordinate.
type Geocoder interface {
	ResolveAddress(ctx context.Context, text string) (*types.Point, error)
}

// RouteEstimator is the external ETA oracle.
type RouteEstimator interface {
	EstimateRoute(ctx context.Context, origin, dest types.Point) (*maps.Estimate, error)
}

// CandidateFinder produces the ordered invite list for a pickup.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, origin types.Point, c matching.Constraints, exclude []types.ID, limit int) ([]matching.Candidate, error)
}

// FareEstimator prices a route from its estimated distance and duration.
type FareEstimator interface {
	Estimate(distanceM, durationS int64, seats int, wheelchair bool) int64
}

type Service struct {
	store    Store
	users    user.Store
	index    location.Index
	matcher  CandidateFinder
	notifier Notifier
	geocoder Geocoder
	router   RouteEstimator
	fares    FareEstimator
	cfg      config.DispatchConfig
	log      *slog.Logger
}

func NewService(
	store Store,
	users user.Store,
	index location.Index,
	matcher CandidateFinder,
	notifier Notifier,
	geocoder Geocoder,
	router RouteEstimator,
	fares FareEstimator,
	cfg config.DispatchConfig,
	log *slog.Logger,
) *Service {
	return &Service{
		store:    store,
		users:    users,
		index:    index,
		matcher:  matcher,
		notifier: notifier,
		geocoder: geocoder,
		router:   router,
		fares:    fares,
		cfg:      cfg,
		log:      log,
	}
}

type RequestCommand struct {
	RiderID    types.ID
	Pickup     types.Place
	Dropoff    types.Place
	Stops      []types.Place
	Seats      int
	Wheelchair bool
}

type AcceptCommand struct {
	RideID   types.ID
	DriverID types.ID
}

type DeclineCommand struct {
	RideID types.ID
	Actor  types.Actor
}

type TransitionCommand struct {
	RideID types.ID
	Actor  types.Actor
}

type CancelCommand struct {
	RideID types.ID
	Actor  types.Actor
	Reason string
}

// Request creates a ride in pending state, or reuses the rider's existing
// pending ride with a fresh invite set. Any other active ride blocks a new
// request.
func (s *Service) Request(ctx context.Context, cmd RequestCommand) (*Ride, error) {
	if cmd.RiderID == "" {
		return nil, ErrBadRequest
	}
	if cmd.Seats <= 0 {
		cmd.Seats = 1
	}

	pickup, err := s.resolvePlace(ctx, cmd.Pickup)
	if err != nil {
		return nil, err
	}
	dropoff, err := s.resolvePlace(ctx, cmd.Dropoff)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ActiveByRider(ctx, cmd.RiderID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status != StatusPending {
			return nil, ErrActiveRide
		}
		return s.reinvite(ctx, existing, cmd)
	}

	now := time.Now()
	r := &Ride{
		ID:            types.ID(uuid.NewString()),
		RiderID:       cmd.RiderID,
		Status:        StatusPending,
		Pickup:        pickup,
		Dropoff:       dropoff,
		Stops:         cmd.Stops,
		Seats:         cmd.Seats,
		Wheelchair:    cmd.Wheelchair,
		PaymentStatus: PaymentPending,
		RequestedAt:   now,
		UpdatedAt:     now,
	}
	if est := s.estimate(ctx, pickup.Point, dropoff.Point); est != nil {
		r.EstimatedDistanceM = int64(est.DistanceMeters)
		r.EstimatedDurationS = int64(est.DurationSeconds)
	}
	if s.fares != nil {
		r.Fare = s.fares.Estimate(r.EstimatedDistanceM, r.EstimatedDurationS, r.Seats, r.Wheelchair)
	}

	candidates, err := s.findCandidates(ctx, r, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		r.InvitedDrivers = append(r.InvitedDrivers, c.DriverID)
	}

	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.sendInvites(ctx, r, candidates)
	return r, nil
}

// reinvite recomputes candidates for an existing pending ride, excluding
// drivers that already declined, and replaces the stale invite set.
func (s *Service) reinvite(ctx context.Context, r *Ride, cmd RequestCommand) (*Ride, error) {
	candidates, err := s.findCandidates(ctx, r, r.ExcludedDrivers)
	if err != nil {
		return nil, err
	}
	invited := make([]types.ID, 0, len(candidates))
	for _, c := range candidates {
		invited = append(invited, c.DriverID)
	}

	ok, err := s.store.SetInvited(ctx, r.ID, invited)
	if err != nil {
		return nil, err
	}
	if !ok {
		// claimed or cancelled between the lookup and the write
		return nil, ErrRideNotPending
	}
	r.InvitedDrivers = invited
	s.sendInvites(ctx, r, candidates)
	return r, nil
}

// Accept arbitrates the claim race. The store predicate checks pending
// status, the empty driver slot and invitee membership in one conditional
// write, so exactly one invited driver can ever win.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Ride, error) {
	before, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.Claim(ctx, cmd.RideID, cmd.DriverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.ClaimsLostTotal.Inc()
		return nil, s.classifyClaimFailure(ctx, cmd)
	}
	observability.ClaimsWonTotal.Inc()
	observability.LifecycleTransitionsTotal.WithLabelValues(string(StatusAccepted)).Inc()

	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}

	if err := s.index.SetAvailability(ctx, cmd.DriverID, location.AvailabilityOnTrip); err != nil {
		s.log.Warn("availability update failed", "driver_id", cmd.DriverID, "err", err)
	}

	eta := s.driverETA(ctx, cmd.DriverID, r.Pickup.Point)
	s.notify(func() {
		s.notifier.NotifyUser(ctx, r.RiderID, "ride_accepted", map[string]any{
			"ride_id":     r.ID,
			"driver_id":   cmd.DriverID,
			"eta_seconds": eta,
		})
		for _, loser := range before.InvitedDrivers {
			if loser == cmd.DriverID {
				continue
			}
			s.notifier.NotifyUser(ctx, loser, "invite_revoked", map[string]any{
				"ride_id": r.ID,
			})
		}
	})
	return r, nil
}

func (s *Service) classifyClaimFailure(ctx context.Context, cmd AcceptCommand) error {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return err
	}
	switch {
	case r.Status == StatusAccepted:
		return ErrAlreadyClaimed
	case r.Status != StatusPending:
		return ErrRideNotPending
	case !invited(r, cmd.DriverID):
		return ErrNotInvited
	default:
		return ErrConflict
	}
}

// Decline is asymmetric: a driver decline moves that driver to the excluded
// set and leaves the ride pending; a rider decline cancels the whole ride.
func (s *Service) Decline(ctx context.Context, cmd DeclineCommand) (*Ride, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}

	if cmd.Actor.Role == types.RoleRider {
		if r.RiderID != cmd.Actor.ID {
			return nil, ErrUnauthorized
		}
		return s.cancelPending(ctx, r)
	}

	ok, err := s.store.Decline(ctx, cmd.RideID, cmd.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		fresh, err := s.store.Get(ctx, cmd.RideID)
		if err != nil {
			return nil, err
		}
		if fresh.Status != StatusPending {
			return nil, ErrRideNotPending
		}
		return nil, ErrNotInvited
	}
	s.log.Info("invite declined", "ride_id", cmd.RideID, "driver_id", cmd.Actor.ID)
	return s.store.Get(ctx, cmd.RideID)
}

func (s *Service) cancelPending(ctx context.Context, r *Ride) (*Ride, error) {
	ok, err := s.store.UpdateStatus(ctx, r.ID, StatusPending, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRideNotPending
	}
	observability.LifecycleTransitionsTotal.WithLabelValues(string(StatusCancelled)).Inc()
	_ = s.store.SetPayment(ctx, r.ID, PaymentCancelled)
	s.notify(func() {
		for _, d := range r.InvitedDrivers {
			s.notifier.NotifyUser(ctx, d, "invite_revoked", map[string]any{"ride_id": r.ID})
		}
	})
	return s.store.Get(ctx, r.ID)
}

// Arrive marks the bound driver at the pickup point.
func (s *Service) Arrive(ctx context.Context, cmd TransitionCommand) (*Ride, error) {
	return s.driverTransition(ctx, cmd, StatusAccepted, StatusArrived, "driver_arrived", nil)
}

// Start begins the trip; the driver's tracked position snaps to the pickup.
func (s *Service) Start(ctx context.Context, cmd TransitionCommand) (*Ride, error) {
	return s.driverTransition(ctx, cmd, StatusArrived, StatusProgress, "trip_started",
		func(ctx context.Context, r *Ride) {
			if err := s.index.SetAvailability(ctx, cmd.Actor.ID, location.AvailabilityOnTrip); err != nil {
				s.log.Warn("availability update failed", "driver_id", cmd.Actor.ID, "err", err)
			}
			if err := s.index.SetPosition(ctx, cmd.Actor.ID, r.Pickup.Point); err != nil {
				s.log.Warn("position snap failed", "driver_id", cmd.Actor.ID, "err", err)
			}
		})
}

// Pause suspends a trip in progress.
func (s *Service) Pause(ctx context.Context, cmd TransitionCommand) (*Ride, error) {
	return s.driverTransition(ctx, cmd, StatusProgress, StatusPaused, "trip_paused", nil)
}

// Resume continues a paused trip.
func (s *Service) Resume(ctx context.Context, cmd TransitionCommand) (*Ride, error) {
	return s.driverTransition(ctx, cmd, StatusPaused, StatusProgress, "trip_resumed", nil)
}

// Panic flags an operational emergency; either bound party may raise it.
func (s *Service) Panic(ctx context.Context, cmd TransitionCommand) (*Ride, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if !boundRider(r, cmd.Actor) && !boundDriver(r, cmd.Actor) {
		return nil, ErrUnauthorized
	}
	if !CanTransition(r.Status, StatusPanic) {
		return nil, ErrConflict
	}
	ok, err := s.store.UpdateStatus(ctx, r.ID, r.Status, StatusPanic)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	observability.LifecycleTransitionsTotal.WithLabelValues(string(StatusPanic)).Inc()
	s.log.Error("panic raised", "ride_id", r.ID, "actor_id", cmd.Actor.ID, "role", cmd.Actor.Role)
	s.notify(func() {
		s.notifier.NotifyRide(ctx, r.ID, "panic", map[string]any{
			"ride_id":  r.ID,
			"actor_id": cmd.Actor.ID,
		})
	})
	return s.store.Get(ctx, cmd.RideID)
}

// Complete finishes the trip. The driver returns to the online pool, the
// tracked position snaps to the dropoff and the trip counter increments.
func (s *Service) Complete(ctx context.Context, cmd TransitionCommand) (*Ride, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if !boundDriver(r, cmd.Actor) {
		return nil, ErrUnauthorized
	}
	if !CanTransition(r.Status, StatusCompleted) {
		return nil, ErrConflict
	}
	ok, err := s.store.UpdateStatus(ctx, r.ID, r.Status, StatusCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	observability.LifecycleTransitionsTotal.WithLabelValues(string(StatusCompleted)).Inc()

	if err := s.index.SetAvailability(ctx, cmd.Actor.ID, location.AvailabilityOnline); err != nil {
		s.log.Warn("availability update failed", "driver_id", cmd.Actor.ID, "err", err)
	}
	if err := s.index.SetPosition(ctx, cmd.Actor.ID, r.Dropoff.Point); err != nil {
		s.log.Warn("position snap failed", "driver_id", cmd.Actor.ID, "err", err)
	}
	if err := s.users.IncrementTrips(ctx, cmd.Actor.ID); err != nil {
		s.log.Warn("trip counter update failed", "driver_id", cmd.Actor.ID, "err", err)
	}

	s.notify(func() {
		s.notifier.NotifyRide(ctx, r.ID, "trip_completed", map[string]any{"ride_id": r.ID})
	})
	return s.store.Get(ctx, cmd.RideID)
}

// Cancel is legal from pending, accepted and arrived, for the bound rider
// or, once a driver is bound, for that driver. A rider cancellation after a
// driver is bound adds the configured fine to the rider's account; the
// arrived state fines only when so configured. Driver cancellations never
// fine anyone.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Ride, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	byRider := boundRider(r, cmd.Actor)
	if !byRider && !boundDriver(r, cmd.Actor) {
		return nil, ErrUnauthorized
	}
	if !CanTransition(r.Status, StatusCancelled) {
		return nil, ErrConflict
	}
	from := r.Status
	ok, err := s.store.UpdateStatus(ctx, r.ID, from, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	observability.LifecycleTransitionsTotal.WithLabelValues(string(StatusCancelled)).Inc()
	_ = s.store.SetPayment(ctx, r.ID, PaymentCancelled)

	fined := byRider && (from == StatusAccepted || (from == StatusArrived && s.cfg.FineOnArrived))
	if fined {
		if err := s.users.IncrementFine(ctx, r.RiderID, s.cfg.CancelFine); err != nil {
			s.log.Warn("fine update failed", "rider_id", r.RiderID, "err", err)
		}
	}

	if r.DriverID != nil {
		if err := s.index.SetAvailability(ctx, *r.DriverID, location.AvailabilityOnline); err != nil {
			s.log.Warn("availability update failed", "driver_id", *r.DriverID, "err", err)
		}
	}

	s.notify(func() {
		payload := map[string]any{"ride_id": r.ID, "reason": cmd.Reason}
		if !byRider {
			s.notifier.NotifyUser(ctx, r.RiderID, "ride_cancelled", payload)
		} else if r.DriverID != nil {
			s.notifier.NotifyUser(ctx, *r.DriverID, "ride_cancelled", payload)
		}
		for _, d := range r.InvitedDrivers {
			if r.DriverID != nil && d == *r.DriverID {
				continue
			}
			s.notifier.NotifyUser(ctx, d, "invite_revoked", map[string]any{"ride_id": r.ID})
		}
	})
	return s.store.Get(ctx, cmd.RideID)
}

// Get returns the ride to one of its parties: the rider, the bound driver
// or a currently invited driver.
func (s *Service) Get(ctx context.Context, id types.ID, actor types.Actor) (*Ride, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !partyToRide(r, actor) {
		return nil, ErrUnauthorized
	}
	return r, nil
}

// RideForDriver resolves a driver's active ride identity for live-channel
// broadcasting; empty when the driver has none.
func (s *Service) RideForDriver(ctx context.Context, driverID types.ID) (types.ID, error) {
	r, err := s.store.ActiveByDriver(ctx, driverID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// ActiveRideIDs lists the non-terminal rides the actor belongs to, used to
// rejoin ride channels on reconnect.
func (s *Service) ActiveRideIDs(ctx context.Context, actor types.Actor) ([]types.ID, error) {
	var (
		r   *Ride
		err error
	)
	if actor.Role == types.RoleDriver {
		r, err = s.store.ActiveByDriver(ctx, actor.ID)
	} else {
		r, err = s.store.ActiveByRider(ctx, actor.ID)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []types.ID{r.ID}, nil
}

// AuthorizeChannel reports whether the actor may join the ride's channel.
func (s *Service) AuthorizeChannel(ctx context.Context, rideID types.ID, actor types.Actor) error {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return err
	}
	if !partyToRide(r, actor) {
		return ErrUnauthorized
	}
	return nil
}

// RunDispatchMonitor periodically rejects rides stuck in pending longer
// than the configured timeout and tells the rider nothing was found.
func (s *Service) RunDispatchMonitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expireOnce(ctx)
		}
	}
}

func (s *Service) expireOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.PendingTimeout)
	expired, err := s.store.ExpirePending(ctx, cutoff)
	if err != nil {
		s.log.Error("expire pending rides failed", "err", err)
		return
	}
	for _, r := range expired {
		observability.LifecycleTransitionsTotal.WithLabelValues(string(StatusRejected)).Inc()
		s.log.Info("ride rejected on timeout", "ride_id", r.ID, "rider_id", r.RiderID)
		s.notify(func() {
			s.notifier.NotifyUser(ctx, r.RiderID, "no_drivers_available", map[string]any{"ride_id": r.ID})
			for _, d := range r.InvitedDrivers {
				s.notifier.NotifyUser(ctx, d, "invite_revoked", map[string]any{"ride_id": r.ID})
			}
		})
	}
}

func (s *Service) driverTransition(
	ctx context.Context,
	cmd TransitionCommand,
	from, to Status,
	event string,
	after func(context.Context, *Ride),
) (*Ride, error) {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}
	if !boundDriver(r, cmd.Actor) {
		return nil, ErrUnauthorized
	}
	if r.Status != from || !CanTransition(from, to) {
		return nil, ErrConflict
	}
	ok, err := s.store.UpdateStatus(ctx, r.ID, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	observability.LifecycleTransitionsTotal.WithLabelValues(string(to)).Inc()
	if after != nil {
		after(ctx, r)
	}
	s.notify(func() {
		s.notifier.NotifyRide(ctx, r.ID, event, map[string]any{"ride_id": r.ID})
	})
	return s.store.Get(ctx, cmd.RideID)
}

// resolvePlace fills a missing coordinate from the address. The coordinate
// is required for matching, so a geocoder miss here is a hard error.
func (s *Service) resolvePlace(ctx context.Context, p types.Place) (types.Place, error) {
	if !p.Point.Zero() {
		if !p.Point.Valid() {
			return types.Place{}, ErrBadRequest
		}
		return p, nil
	}
	if p.Address == "" {
		return types.Place{}, ErrBadRequest
	}
	if s.geocoder == nil {
		return types.Place{}, ErrBadRequest
	}
	pt, err := s.geocoder.ResolveAddress(ctx, p.Address)
	if err != nil {
		return types.Place{}, err
	}
	if pt == nil {
		return types.Place{}, ErrBadRequest
	}
	p.Point = *pt
	return p, nil
}

func (s *Service) findCandidates(ctx context.Context, r *Ride, exclude []types.ID) ([]matching.Candidate, error) {
	return s.matcher.FindCandidates(ctx, r.Pickup.Point, matching.Constraints{
		MinSeats:   r.Seats,
		Wheelchair: r.Wheelchair,
	}, exclude, 0)
}

func (s *Service) sendInvites(ctx context.Context, r *Ride, candidates []matching.Candidate) {
	if len(candidates) == 0 {
		s.notify(func() {
			s.notifier.NotifyUser(ctx, r.RiderID, "no_drivers_available", map[string]any{"ride_id": r.ID})
		})
		return
	}
	observability.InvitesSentTotal.Add(float64(len(candidates)))
	s.notify(func() {
		for _, c := range candidates {
			s.notifier.NotifyUser(ctx, c.DriverID, "ride_invite", map[string]any{
				"ride_id":     r.ID,
				"pickup":      r.Pickup,
				"dropoff":     r.Dropoff,
				"distance_km": c.DistanceKm,
			})
		}
	})
}

// estimate queries the route oracle under its own deadline; nil on any
// failure, the request proceeds without it.
func (s *Service) estimate(ctx context.Context, origin, dest types.Point) *maps.Estimate {
	if s.router == nil {
		return nil
	}
	ectx, cancel := context.WithTimeout(ctx, s.cfg.ETATimeout)
	defer cancel()
	est, err := s.router.EstimateRoute(ectx, origin, dest)
	if err != nil {
		s.log.Warn("route estimate failed", "err", err)
		return nil
	}
	return est
}

func (s *Service) driverETA(ctx context.Context, driverID types.ID, pickup types.Point) int64 {
	rec, err := s.index.Get(ctx, driverID)
	if err != nil {
		return 0
	}
	est := s.estimate(ctx, rec.Position, pickup)
	if est == nil {
		return 0
	}
	return int64(est.DurationSeconds)
}

func (s *Service) notify(fn func()) {
	if s.notifier == nil {
		return
	}
	fn()
}

func boundDriver(r *Ride, a types.Actor) bool {
	return a.Role == types.RoleDriver && r.DriverID != nil && *r.DriverID == a.ID
}

func boundRider(r *Ride, a types.Actor) bool {
	return a.Role == types.RoleRider && r.RiderID == a.ID
}

func partyToRide(r *Ride, a types.Actor) bool {
	if boundRider(r, a) || boundDriver(r, a) {
		return true
	}
	return a.Role == types.RoleDriver && invited(r, a.ID)
}
