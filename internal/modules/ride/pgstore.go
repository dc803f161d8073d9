// README: Ride store backed by PostgreSQL; claims are single-statement CAS.
package ride

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ryde/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const rideColumns = `
	id, rider_id, driver_id, status,
	pickup_lat, pickup_lng, pickup_addr,
	dropoff_lat, dropoff_lng, dropoff_addr,
	stops, seats, wheelchair,
	invited_drivers, excluded_drivers,
	fare, payment_status,
	est_distance_m, est_duration_s,
	rated_by_rider, rated_by_driver,
	requested_at, updated_at`

func (s *PGStore) Create(ctx context.Context, r *Ride) error {
	stops, err := json.Marshal(r.Stops)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO rides (
			id, rider_id, driver_id, status,
			pickup_lat, pickup_lng, pickup_addr,
			dropoff_lat, dropoff_lng, dropoff_addr,
			stops, seats, wheelchair,
			invited_drivers, excluded_drivers,
			fare, payment_status,
			est_distance_m, est_duration_s,
			rated_by_rider, rated_by_driver,
			requested_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12, $13,
			$14, $15,
			$16, $17,
			$18, $19,
			$20, $21,
			$22, $23
		)`,
		string(r.ID),
		string(r.RiderID),
		toStringPtr(r.DriverID),
		string(r.Status),
		r.Pickup.Point.Lat, r.Pickup.Point.Lng, r.Pickup.Address,
		r.Dropoff.Point.Lat, r.Dropoff.Point.Lng, r.Dropoff.Address,
		stops,
		r.Seats,
		r.Wheelchair,
		toStrings(r.InvitedDrivers),
		toStrings(r.ExcludedDrivers),
		r.Fare,
		string(r.PaymentStatus),
		r.EstimatedDistanceM,
		r.EstimatedDurationS,
		r.RatedByRider,
		r.RatedByDriver,
		r.RequestedAt,
		r.UpdatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE id = $1`, string(id))
	return scanRide(row)
}

func (s *PGStore) ActiveByRider(ctx context.Context, riderID types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+rideColumns+`
		FROM rides
		WHERE rider_id = $1
		  AND status IN ('pending','accepted','arrived','progress','paused','panic')
		ORDER BY requested_at DESC
		LIMIT 1`, string(riderID),
	)
	return scanRide(row)
}

func (s *PGStore) ActiveByDriver(ctx context.Context, driverID types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+rideColumns+`
		FROM rides
		WHERE driver_id = $1
		  AND status IN ('accepted','arrived','progress','paused','panic')
		ORDER BY requested_at DESC
		LIMIT 1`, string(driverID),
	)
	return scanRide(row)
}

func (s *PGStore) SetInvited(ctx context.Context, id types.ID, drivers []types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET invited_drivers = $2,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		string(id), toStrings(drivers),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Claim validates invitee membership inside the same predicate that checks
// status and the unbound driver slot; losers are folded into the excluded
// set by the same statement.
func (s *PGStore) Claim(ctx context.Context, id types.ID, driverID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET status = 'accepted',
		    driver_id = $2,
		    excluded_drivers = excluded_drivers || array_remove(invited_drivers, $2),
		    invited_drivers = ARRAY[$2],
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'pending'
		  AND driver_id IS NULL
		  AND $2 = ANY(invited_drivers)`,
		string(id), string(driverID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) Decline(ctx context.Context, id types.ID, driverID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET invited_drivers = array_remove(invited_drivers, $2),
		    excluded_drivers = array_append(excluded_drivers, $2),
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'pending'
		  AND $2 = ANY(invited_drivers)`,
		string(id), string(driverID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET status = $1,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) SetPayment(ctx context.Context, id types.ID, ps PaymentStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET payment_status = $1,
		    updated_at = NOW()
		WHERE id = $2`,
		string(ps), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) MarkRated(ctx context.Context, id types.ID, side types.Role) (bool, error) {
	col := "rated_by_rider"
	if side == types.RoleDriver {
		col = "rated_by_driver"
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET `+col+` = TRUE,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'completed'
		  AND `+col+` = FALSE`,
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ExpirePending(ctx context.Context, cutoff time.Time) ([]*Ride, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE rides
		SET status = 'rejected',
		    updated_at = NOW()
		WHERE status = 'pending' AND requested_at < $1
		RETURNING `+rideColumns, cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*Ride, error) {
	var r Ride
	var driverID sql.NullString
	var stops []byte
	var invitedRaw, excludedRaw []string

	err := row.Scan(
		&r.ID, &r.RiderID, &driverID, &r.Status,
		&r.Pickup.Point.Lat, &r.Pickup.Point.Lng, &r.Pickup.Address,
		&r.Dropoff.Point.Lat, &r.Dropoff.Point.Lng, &r.Dropoff.Address,
		&stops, &r.Seats, &r.Wheelchair,
		&invitedRaw, &excludedRaw,
		&r.Fare, &r.PaymentStatus,
		&r.EstimatedDistanceM, &r.EstimatedDurationS,
		&r.RatedByRider, &r.RatedByDriver,
		&r.RequestedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		d := types.ID(driverID.String)
		r.DriverID = &d
	}
	if len(stops) > 0 {
		if err := json.Unmarshal(stops, &r.Stops); err != nil {
			return nil, err
		}
	}
	r.InvitedDrivers = toIDs(invitedRaw)
	r.ExcludedDrivers = toIDs(excludedRaw)
	return &r, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toStrings(ids []types.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toIDs(ss []string) []types.ID {
	if len(ss) == 0 {
		return nil
	}
	out := make([]types.ID, len(ss))
	for i, s := range ss {
		out[i] = types.ID(s)
	}
	return out
}
