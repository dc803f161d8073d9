package ws

import (
	"io"
	"log/slog"
	"testing"

	"ryde/internal/presence"
	"ryde/internal/types"
)

func testClient(userID, connID string) *client {
	return &client{
		id:      connID,
		actor:   types.Actor{ID: types.ID(userID), Role: types.RoleDriver},
		send:    make(chan envelope, sendBuffer),
		roomIDs: make(map[types.ID]struct{}),
	}
}

func TestEnqueueAfterClose_Dropped(t *testing.T) {
	c := testClient("d1", "c1")
	c.close()
	c.enqueue(envelope{Event: "ride_invite"})
	c.close()

	if _, ok := <-c.send; ok {
		t.Fatalf("closed session accepted a frame")
	}
}

func TestSupersededSessionStillInRoomIsSafe(t *testing.T) {
	h := NewHub(presence.NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	old := testClient("d1", "c1")
	h.add(old)
	h.JoinRoom("d1", "ride-1")

	// a second connection closes the first, but the first stays a room
	// member until its pumps exit
	fresh := testClient("d1", "c2")
	h.add(fresh)

	h.EmitToRoom("ride-1", "trip_started", nil)
	if err := h.EmitToUser("d1", "ride_accepted", nil); err != nil {
		t.Fatalf("emit to user: %v", err)
	}

	select {
	case ev := <-fresh.send:
		if ev.Event != "ride_accepted" {
			t.Fatalf("event = %s, want ride_accepted", ev.Event)
		}
	default:
		t.Fatalf("fresh session received nothing")
	}
}
