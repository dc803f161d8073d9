// README: Notification fanout; live channel first, push gateway fallback.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ryde/internal/modules/user"
	"ryde/internal/observability"
	"ryde/internal/push"
	"ryde/internal/types"
)

// Emitter is the live-channel side of delivery, satisfied by the ws hub.
type Emitter interface {
	EmitToUser(userID types.ID, event string, payload any) error
	EmitToRoom(roomID types.ID, event string, payload any)
}

// Pusher is the offline gateway, satisfied by the OneSignal client.
type Pusher interface {
	Push(ctx context.Context, token, message string, data map[string]any, buttons []push.Button) error
}

// Service fans events out. Personal events prefer the live channel; when
// the user has no session the event goes through push and is persisted for
// catch-up. Delivery never fails the calling operation.
type Service struct {
	emitter Emitter
	pusher  Pusher
	store   Store
	users   user.Store
	log     *slog.Logger
}

func NewService(emitter Emitter, pusher Pusher, store Store, users user.Store, log *slog.Logger) *Service {
	return &Service{emitter: emitter, pusher: pusher, store: store, users: users, log: log}
}

func (s *Service) NotifyUser(ctx context.Context, userID types.ID, event string, payload any) {
	if s.emitter != nil {
		if err := s.emitter.EmitToUser(userID, event, payload); err == nil {
			observability.NotificationsTotal.WithLabelValues("ws").Inc()
			return
		}
	}
	s.deliverOffline(ctx, userID, event, payload)
}

func (s *Service) NotifyRide(ctx context.Context, rideID types.ID, event string, payload any) {
	if s.emitter == nil {
		return
	}
	s.emitter.EmitToRoom(rideID, event, payload)
	observability.NotificationsTotal.WithLabelValues("room").Inc()
}

func (s *Service) deliverOffline(ctx context.Context, userID types.ID, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("notification payload marshal failed", "event", event, "err", err)
		return
	}

	if s.store != nil {
		n := &Notification{
			ID:        types.ID(uuid.NewString()),
			UserID:    userID,
			Event:     event,
			Payload:   raw,
			CreatedAt: time.Now(),
		}
		if err := s.store.Create(ctx, n); err != nil {
			s.log.Error("notification persist failed", "user_id", userID, "event", event, "err", err)
		}
	}

	if s.pusher == nil {
		return
	}
	prof, err := s.users.Get(ctx, userID)
	if err != nil || prof.PushToken == "" {
		s.log.Info("no push token, notification stored only", "user_id", userID, "event", event)
		return
	}

	data := map[string]any{"event": event}
	if err := s.pusher.Push(ctx, prof.PushToken, messageFor(event), data, buttonsFor(event)); err != nil {
		observability.NotificationFailures.Inc()
		s.log.Warn("push delivery failed", "user_id", userID, "event", event, "err", err)
		return
	}
	observability.NotificationsTotal.WithLabelValues("push").Inc()
}

func messageFor(event string) string {
	switch event {
	case "ride_invite":
		return "New ride request nearby"
	case "ride_accepted":
		return "A driver accepted your ride"
	case "invite_revoked":
		return "The ride is no longer available"
	case "driver_arrived":
		return "Your driver has arrived"
	case "trip_started":
		return "Your trip has started"
	case "trip_completed":
		return "Your trip is complete"
	case "ride_cancelled":
		return "The ride was cancelled"
	case "no_drivers_available":
		return "No drivers available right now"
	case "panic":
		return "Emergency reported on your ride"
	default:
		return "Ride update"
	}
}

func buttonsFor(event string) []push.Button {
	if event != "ride_invite" {
		return nil
	}
	return []push.Button{
		{ID: "accept", Text: "Accept"},
		{ID: "decline", Text: "Decline"},
	}
}
