// README: Entry point; loads config, wires services, starts HTTP server and
// the dispatch monitor.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ryde/internal/config"
	httptransport "ryde/internal/http"
	"ryde/internal/infra"
	"ryde/internal/logging"
	"ryde/internal/maps"
	"ryde/internal/modules/location"
	"ryde/internal/modules/matching"
	"ryde/internal/modules/pricing"
	"ryde/internal/modules/rating"
	"ryde/internal/modules/ride"
	"ryde/internal/modules/user"
	"ryde/internal/notify"
	"ryde/internal/observability"
	"ryde/internal/presence"
	"ryde/internal/push"
	"ryde/internal/types"
	"ryde/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistent stores; in-memory fallbacks keep local development working
	// without Postgres or Redis.
	var (
		rideStore   ride.Store     = ride.NewMemStore()
		userStore   user.Store     = user.NewMemStore()
		ratingStore rating.Store   = rating.NewMemStore()
		notifyStore notify.Store   = notify.NewMemStore()
		index       location.Index = location.NewMemIndex()
	)
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		rideStore = ride.NewPGStore(pool)
		userStore = user.NewPGStore(pool)
		ratingStore = rating.NewPGStore(pool)
		notifyStore = notify.NewPGStore(pool)
	} else {
		logger.Warn("RYDE_DB_DSN not set, using in-memory stores")
	}
	if cfg.Redis.Addr != "" {
		index = location.NewRedisIndex(infra.NewRedis(cfg.Redis.Addr))
	} else {
		logger.Warn("RYDE_REDIS_ADDR not set, using in-memory driver index")
	}

	var verifier infra.TokenVerifier
	if cfg.Firebase.ProjectID != "" {
		verifier, err = infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatalf("firebase init: %v", err)
		}
	} else {
		logger.Warn("RYDE_FIREBASE_PROJECT_ID not set, trusting identity headers")
	}

	var pusher notify.Pusher
	if cfg.Push.AppID != "" {
		pusher = push.NewClient(cfg.Push.AppID, cfg.Push.APIKey)
	}

	var geocoder ride.Geocoder
	var router ride.RouteEstimator
	if cfg.Maps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		geocoder = mapsClient
		router = mapsClient
	}

	var producer location.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := location.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		producer = kp
	}

	hub := ws.NewHub(presence.NewRegistry(), logger)
	notifySvc := notify.NewService(hub, pusher, notifyStore, userStore, logger)
	matcher := matching.NewService(index, cfg.Matching, logger)
	fares := pricing.NewService(pricing.DefaultRate)
	rideSvc := ride.NewService(rideStore, userStore, index, matcher, notifySvc,
		geocoder, router, fares, cfg.Dispatch, logger)
	ratingSvc := rating.NewService(ratingStore, rideStore, userStore, logger)
	locationSvc := location.NewService(index, producer,
		liveBroadcaster{rides: rideSvc, hub: hub}, logger)

	wireHub(hub, index, rideSvc, locationSvc, logger)

	server := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httptransport.NewServer(httptransport.ServerDeps{
			Rides:         rideSvc,
			Ratings:       ratingSvc,
			Locations:     locationSvc,
			Notifications: notifyStore,
			Hub:           hub,
			Verifier:      verifier,
			Logger:        logger,
		}).Router(),
	}

	go rideSvc.RunDispatchMonitor(ctx, 30*time.Second)

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}

// liveBroadcaster routes validated driver positions into the bound ride's
// live channel.
type liveBroadcaster struct {
	rides *ride.Service
	hub   *ws.Hub
}

func (b liveBroadcaster) RideForDriver(ctx context.Context, driverID types.ID) (types.ID, error) {
	return b.rides.RideForDriver(ctx, driverID)
}

func (b liveBroadcaster) EmitToRoom(roomID types.ID, event string, data any) {
	b.hub.EmitToRoom(roomID, event, data)
}

// wireHub attaches connection hooks and inbound event handlers: presence
// drives driver availability, and clients push locations and join ride
// rooms over the live channel.
func wireHub(hub *ws.Hub, index location.Index, rides *ride.Service, locations *location.Service, logger *slog.Logger) {
	hub.OnConnect = func(ctx context.Context, actor types.Actor) []types.ID {
		ids, err := rides.ActiveRideIDs(ctx, actor)
		if err != nil {
			logger.Warn("active ride lookup failed", "user_id", actor.ID, "err", err)
		}
		if actor.Role == types.RoleDriver {
			// a driver reconnecting mid-trip stays on_trip, not matchable
			avail := location.AvailabilityOnline
			if len(ids) > 0 {
				avail = location.AvailabilityOnTrip
			}
			if err := index.SetAvailability(ctx, actor.ID, avail); err != nil {
				logger.Warn("availability update failed", "driver_id", actor.ID, "err", err)
			}
			observability.DriversOnline.Inc()
		}
		return ids
	}
	hub.OnDisconnect = func(ctx context.Context, actor types.Actor) {
		if actor.Role == types.RoleDriver {
			if err := index.SetAvailability(ctx, actor.ID, location.AvailabilityOffline); err != nil {
				logger.Warn("availability update failed", "driver_id", actor.ID, "err", err)
			}
			observability.DriversOnline.Dec()
		}
	}

	hub.Handle("update_location", func(ctx context.Context, actor types.Actor, data json.RawMessage) {
		if actor.Role != types.RoleDriver {
			return
		}
		var msg struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("bad location payload", "driver_id", actor.ID, "err", err)
			return
		}
		if err := locations.Report(ctx, actor.ID, types.Point{Lat: msg.Lat, Lng: msg.Lng}); err != nil {
			logger.Warn("location report rejected", "driver_id", actor.ID, "err", err)
		}
	})

	hub.Handle("join_room", func(ctx context.Context, actor types.Actor, data json.RawMessage) {
		var msg struct {
			RideID string `json:"ride_id"`
		}
		if err := json.Unmarshal(data, &msg); err != nil || msg.RideID == "" {
			return
		}
		rideID := types.ID(msg.RideID)
		if err := rides.AuthorizeChannel(ctx, rideID, actor); err != nil {
			logger.Warn("room join denied", "user_id", actor.ID, "ride_id", rideID, "err", err)
			return
		}
		hub.JoinRoom(actor.ID, rideID)
	})
}
