// README: DB-backed claim semantics tests; skipped unless RYDE_TEST_DSN is set.
package ride

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"ryde/internal/types"
)

func TestPGClaim_MembershipInsidePredicate(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	r := newTestRide("rider-1", []types.ID{"d1", "d2"})
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := store.Claim(ctx, r.ID, "uninvited")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if ok {
		t.Fatalf("uninvited driver won the claim")
	}

	fresh, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fresh.Status != StatusPending || fresh.DriverID != nil {
		t.Fatalf("rejected claim left side effects: status=%s driver=%v", fresh.Status, fresh.DriverID)
	}

	ok, err = store.Claim(ctx, r.ID, "d2")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !ok {
		t.Fatalf("invited driver failed to claim")
	}

	fresh, err = store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fresh.Status != StatusAccepted || fresh.DriverID == nil || *fresh.DriverID != "d2" {
		t.Fatalf("claim result: status=%s driver=%v", fresh.Status, fresh.DriverID)
	}
	if len(fresh.InvitedDrivers) != 1 || fresh.InvitedDrivers[0] != "d2" {
		t.Fatalf("invited = %v, want [d2]", fresh.InvitedDrivers)
	}
	if len(fresh.ExcludedDrivers) != 1 || fresh.ExcludedDrivers[0] != "d1" {
		t.Fatalf("excluded = %v, want [d1]", fresh.ExcludedDrivers)
	}

	ok, err = store.Claim(ctx, r.ID, "d1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if ok {
		t.Fatalf("second claim succeeded on an accepted ride")
	}
}

func TestPGDecline_MovesBetweenSets(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	r := newTestRide("rider-2", []types.ID{"d1", "d2"})
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := store.Decline(ctx, r.ID, "d1")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if !ok {
		t.Fatalf("invited driver failed to decline")
	}

	ok, err = store.Decline(ctx, r.ID, "d1")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if ok {
		t.Fatalf("second decline landed")
	}

	fresh, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(fresh.InvitedDrivers) != 1 || fresh.InvitedDrivers[0] != "d2" {
		t.Fatalf("invited = %v, want [d2]", fresh.InvitedDrivers)
	}
	if len(fresh.ExcludedDrivers) != 1 || fresh.ExcludedDrivers[0] != "d1" {
		t.Fatalf("excluded = %v, want [d1]", fresh.ExcludedDrivers)
	}
}

func TestPGMarkRated_OncePerSide(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	r := newTestRide("rider-3", []types.ID{"d1"})
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := store.MarkRated(ctx, r.ID, types.RoleRider)
	if err != nil {
		t.Fatalf("mark rated: %v", err)
	}
	if ok {
		t.Fatalf("rating flag set on a pending ride")
	}

	mustTransition(t, store, r.ID, StatusPending, StatusAccepted)
	mustTransition(t, store, r.ID, StatusAccepted, StatusArrived)
	mustTransition(t, store, r.ID, StatusArrived, StatusProgress)
	mustTransition(t, store, r.ID, StatusProgress, StatusCompleted)

	ok, err = store.MarkRated(ctx, r.ID, types.RoleRider)
	if err != nil {
		t.Fatalf("mark rated: %v", err)
	}
	if !ok {
		t.Fatalf("first rating flag did not land")
	}

	ok, err = store.MarkRated(ctx, r.ID, types.RoleRider)
	if err != nil {
		t.Fatalf("mark rated: %v", err)
	}
	if ok {
		t.Fatalf("second rating flag landed for the same side")
	}

	ok, err = store.MarkRated(ctx, r.ID, types.RoleDriver)
	if err != nil {
		t.Fatalf("mark rated: %v", err)
	}
	if !ok {
		t.Fatalf("driver side flag blocked by rider side")
	}
}

func TestPGExpirePending(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	stale := newTestRide("rider-4", []types.ID{"d1"})
	stale.RequestedAt = time.Now().Add(-10 * time.Minute)
	if err := store.Create(ctx, stale); err != nil {
		t.Fatalf("create: %v", err)
	}
	fresh := newTestRide("rider-5", nil)
	if err := store.Create(ctx, fresh); err != nil {
		t.Fatalf("create: %v", err)
	}

	expired, err := store.ExpirePending(ctx, time.Now().Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != stale.ID {
		t.Fatalf("expired = %v, want only the stale ride", expired)
	}
	if expired[0].Status != StatusRejected {
		t.Fatalf("status = %s, want rejected", expired[0].Status)
	}

	untouched, err := store.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if untouched.Status != StatusPending {
		t.Fatalf("fresh ride status = %s, want pending", untouched.Status)
	}
}

func mustTransition(t *testing.T, store Store, id types.ID, from, to Status) {
	t.Helper()
	ok, err := store.UpdateStatus(context.Background(), id, from, to)
	if err != nil {
		t.Fatalf("transition %s -> %s: %v", from, to, err)
	}
	if !ok {
		t.Fatalf("transition %s -> %s did not land", from, to)
	}
}

func newTestRide(riderID string, invited []types.ID) *Ride {
	now := time.Now()
	return &Ride{
		ID:             types.ID(uuid.NewString()),
		RiderID:        types.ID(riderID),
		Status:         StatusPending,
		Pickup:         types.Place{Point: types.Point{Lat: 25.033, Lng: 121.565}, Address: "origin"},
		Dropoff:        types.Place{Point: types.Point{Lat: 25.047, Lng: 121.531}, Address: "destination"},
		Seats:          1,
		InvitedDrivers: invited,
		PaymentStatus:  PaymentPending,
		RequestedAt:    now,
		UpdatedAt:      now,
	}
}

func setupTestStore(t *testing.T) *PGStore {
	t.Helper()

	dsn := os.Getenv("RYDE_TEST_DSN")
	if dsn == "" {
		t.Skip("RYDE_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE notifications, ratings, rides, users"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewPGStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	path := filepath.Join(root, "migrations", "0001_init.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
