// README: Profile store backed by PostgreSQL.
package user

import (
	"context"
	"errors"

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

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, role, account_status, rating_total, rating_avg,
		       payment_fine, trips, push_token
		FROM users
		WHERE id = $1`, string(id),
	)
	var p Profile
	err := row.Scan(&p.ID, &p.Role, &p.AccountStatus, &p.RatingTotal,
		&p.RatingAvg, &p.PaymentFine, &p.Trips, &p.PushToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) Put(ctx context.Context, p *Profile) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, role, account_status, rating_total, rating_avg,
		                   payment_fine, trips, push_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			account_status = EXCLUDED.account_status,
			push_token = EXCLUDED.push_token`,
		string(p.ID), string(p.Role), string(p.AccountStatus),
		p.RatingTotal, p.RatingAvg, p.PaymentFine, p.Trips, p.PushToken,
	)
	return err
}

// ApplyRating performs the incremental mean in one statement so concurrent
// submissions never read a stale pair.
func (s *PGStore) ApplyRating(ctx context.Context, id types.ID, score int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET rating_avg = (rating_avg * rating_total + $2) / (rating_total + 1),
		    rating_total = rating_total + 1
		WHERE id = $1`, string(id), score,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) IncrementFine(ctx context.Context, id types.ID, amount int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET payment_fine = payment_fine + $2 WHERE id = $1`,
		string(id), amount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) IncrementTrips(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET trips = trips + 1 WHERE id = $1`, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
