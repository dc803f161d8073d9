// README: Persisted notification records for offline catch-up.
package notify

import (
	"time"

	"ryde/internal/types"
)

// Notification is stored whenever delivery falls back to push, so a client
// reconnecting later can fetch what it missed.
type Notification struct {
	ID        types.ID
	UserID    types.ID
	Event     string
	Payload   []byte
	Read      bool
	CreatedAt time.Time
}
