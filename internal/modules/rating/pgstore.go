// README: Rating store backed by PostgreSQL.
package rating

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"ryde/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, r *Rating) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ratings (id, ride_id, rater_id, ratee_id, side, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(r.ID), string(r.RideID), string(r.RaterID), string(r.RateeID),
		string(r.Side), r.Score, r.Comment, r.CreatedAt,
	)
	return err
}

func (s *PGStore) ByRide(ctx context.Context, rideID types.ID) ([]*Rating, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, ride_id, rater_id, ratee_id, side, score, comment, created_at
		FROM ratings
		WHERE ride_id = $1
		ORDER BY created_at`, string(rideID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.ID, &r.RideID, &r.RaterID, &r.RateeID,
			&r.Side, &r.Score, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
