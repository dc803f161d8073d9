package rating

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"ryde/internal/modules/ride"
	"ryde/internal/modules/user"
	"ryde/internal/types"
)

type env struct {
	svc   *Service
	store *MemStore
	rides *ride.MemStore
	users *user.MemStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := NewMemStore()
	rides := ride.NewMemStore()
	users := user.NewMemStore()
	svc := NewService(store, rides, users, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx := context.Background()
	if err := users.Put(ctx, &user.Profile{ID: "r1", Role: types.RoleRider}); err != nil {
		t.Fatalf("seed rider: %v", err)
	}
	if err := users.Put(ctx, &user.Profile{ID: "d1", Role: types.RoleDriver}); err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	return &env{svc: svc, store: store, rides: rides, users: users}
}

func (e *env) completedRide(t *testing.T) types.ID {
	t.Helper()
	return e.rideWithStatus(t, ride.StatusCompleted)
}

func (e *env) rideWithStatus(t *testing.T, status ride.Status) types.ID {
	t.Helper()
	driver := types.ID("d1")
	r := &ride.Ride{
		ID:          types.ID(uuid.NewString()),
		RiderID:     "r1",
		DriverID:    &driver,
		Status:      status,
		RequestedAt: time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := e.rides.Create(context.Background(), r); err != nil {
		t.Fatalf("seed ride: %v", err)
	}
	return r.ID
}

func TestSubmit_RiderRatesDriver(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rideID := e.completedRide(t)

	rec, err := e.svc.Submit(ctx, SubmitCommand{
		RideID:  rideID,
		Actor:   types.Actor{ID: "r1", Role: types.RoleRider},
		Score:   5,
		Comment: "smooth trip",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.RateeID != "d1" || rec.Side != types.RoleRider {
		t.Errorf("record = %+v, want ratee d1 from rider side", rec)
	}

	p, err := e.users.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("get driver: %v", err)
	}
	if p.RatingTotal != 1 || p.RatingAvg != 5 {
		t.Errorf("aggregate = (%d, %f), want (1, 5)", p.RatingTotal, p.RatingAvg)
	}

	stored, err := e.store.ByRide(ctx, rideID)
	if err != nil {
		t.Fatalf("by ride: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("stored %d records, want 1", len(stored))
	}
}

func TestSubmit_ExactlyOncePerSide(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rideID := e.completedRide(t)
	actor := types.Actor{ID: "r1", Role: types.RoleRider}

	if _, err := e.svc.Submit(ctx, SubmitCommand{RideID: rideID, Actor: actor, Score: 5}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := e.svc.Submit(ctx, SubmitCommand{RideID: rideID, Actor: actor, Score: 1}); err != ErrAlreadyRated {
		t.Fatalf("second submit err = %v, want ErrAlreadyRated", err)
	}

	p, _ := e.users.Get(ctx, "d1")
	if p.RatingTotal != 1 || p.RatingAvg != 5 {
		t.Errorf("aggregate = (%d, %f), re-submission must not count", p.RatingTotal, p.RatingAvg)
	}
}

func TestSubmit_SidesAreIndependent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rideID := e.completedRide(t)

	if _, err := e.svc.Submit(ctx, SubmitCommand{
		RideID: rideID, Actor: types.Actor{ID: "r1", Role: types.RoleRider}, Score: 5,
	}); err != nil {
		t.Fatalf("rider submit: %v", err)
	}
	if _, err := e.svc.Submit(ctx, SubmitCommand{
		RideID: rideID, Actor: types.Actor{ID: "d1", Role: types.RoleDriver}, Score: 4,
	}); err != nil {
		t.Fatalf("driver submit: %v", err)
	}

	rp, _ := e.users.Get(ctx, "r1")
	if rp.RatingTotal != 1 || rp.RatingAvg != 4 {
		t.Errorf("rider aggregate = (%d, %f), want (1, 4)", rp.RatingTotal, rp.RatingAvg)
	}
}

func TestSubmit_NotCompleted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, status := range []ride.Status{ride.StatusAccepted, ride.StatusProgress, ride.StatusCancelled} {
		rideID := e.rideWithStatus(t, status)
		_, err := e.svc.Submit(ctx, SubmitCommand{
			RideID: rideID, Actor: types.Actor{ID: "r1", Role: types.RoleRider}, Score: 5,
		})
		if err != ErrRideNotEligible {
			t.Errorf("status %s: err = %v, want ErrRideNotEligible", status, err)
		}
	}
}

func TestSubmit_ScoreBounds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rideID := e.completedRide(t)

	for _, score := range []int{0, -1, 6} {
		_, err := e.svc.Submit(ctx, SubmitCommand{
			RideID: rideID, Actor: types.Actor{ID: "r1", Role: types.RoleRider}, Score: score,
		})
		if err != ErrBadScore {
			t.Errorf("score %d: err = %v, want ErrBadScore", score, err)
		}
	}
}

func TestSubmit_Unauthorized(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rideID := e.completedRide(t)

	tests := []types.Actor{
		{ID: "stranger", Role: types.RoleRider},
		{ID: "other-driver", Role: types.RoleDriver},
	}
	for _, actor := range tests {
		_, err := e.svc.Submit(ctx, SubmitCommand{RideID: rideID, Actor: actor, Score: 5})
		if err != ErrUnauthorized {
			t.Errorf("actor %v: err = %v, want ErrUnauthorized", actor, err)
		}
	}
}

func TestSubmit_AggregateMean(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for i, score := range []int{5, 4, 4} {
		rideID := e.completedRide(t)
		_, err := e.svc.Submit(ctx, SubmitCommand{
			RideID: rideID, Actor: types.Actor{ID: "r1", Role: types.RoleRider}, Score: score,
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	p, _ := e.users.Get(ctx, "d1")
	if p.RatingTotal != 3 {
		t.Fatalf("total = %d, want 3", p.RatingTotal)
	}
	if math.Abs(p.RatingAvg-13.0/3.0) > 1e-9 {
		t.Errorf("avg = %f, want %f", p.RatingAvg, 13.0/3.0)
	}
}

func TestSubmit_ConcurrentSameSide(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rideID := e.completedRide(t)

	const attempts = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.svc.Submit(ctx, SubmitCommand{
				RideID: rideID, Actor: types.Actor{ID: "r1", Role: types.RoleRider}, Score: 5,
			})
			errs <- err
		}()
	}

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrAlreadyRated {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}

	p, _ := e.users.Get(ctx, "d1")
	if p.RatingTotal != 1 {
		t.Errorf("total = %d, concurrent retries must count once", p.RatingTotal)
	}
	if fmt.Sprintf("%.1f", p.RatingAvg) != "5.0" {
		t.Errorf("avg = %f, want 5.0", p.RatingAvg)
	}
}
