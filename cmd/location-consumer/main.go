// README: Kafka consumer; folds the driver location stream into the index.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"ryde/internal/config"
	"ryde/internal/infra"
	"ryde/internal/logging"
	"ryde/internal/modules/location"
)

var (
	updatesConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ryde", Name: "location_updates_consumed_total",
		Help: "Driver location updates applied to the index",
	})
	updatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ryde", Name: "location_updates_dropped_total",
		Help: "Driver location updates dropped as malformed or stale",
	})
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.LogLevel)

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("RYDE_KAFKA_BROKERS is required")
	}
	if cfg.Redis.Addr == "" {
		log.Fatal("RYDE_REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	index := location.NewRedisIndex(infra.NewRedis(cfg.Redis.Addr))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		GroupID:  "ryde-location-consumer",
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	defer reader.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	srv := &http.Server{Addr: ":9101", Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	logger.Info("location consumer started",
		"brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			logger.Error("read message failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		var u location.Update
		if err := json.Unmarshal(msg.Value, &u); err != nil {
			updatesDropped.Inc()
			logger.Warn("malformed update", "offset", msg.Offset, "err", err)
			continue
		}
		if u.DriverID == "" || !u.Position.Valid() {
			updatesDropped.Inc()
			continue
		}

		if err := index.SetPosition(ctx, u.DriverID, u.Position); err != nil {
			logger.Error("index write failed", "driver_id", u.DriverID, "err", err)
			continue
		}
		updatesConsumed.Inc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
