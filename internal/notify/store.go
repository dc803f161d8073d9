package notify

import (
	"context"

	"ryde/internal/types"
)

type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID types.ID, limit int) ([]*Notification, error)
	// MarkRead flips the read flag; false when the record does not exist,
	// belongs to another user or was already read.
	MarkRead(ctx context.Context, userID, id types.ID) (bool, error)
}
