// README: Notification store backed by PostgreSQL.
package notify

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

func (s *PGStore) Create(ctx context.Context, n *Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, event, payload, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(n.ID), string(n.UserID), n.Event, n.Payload, n.Read, n.CreatedAt,
	)
	return err
}

func (s *PGStore) MarkRead(ctx context.Context, userID, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1 AND user_id = $2 AND read = FALSE`,
		string(id), string(userID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ListByUser(ctx context.Context, userID types.ID, limit int) ([]*Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, event, payload, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(userID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Event, &n.Payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}
