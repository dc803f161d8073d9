// README: Config loader with env defaults for HTTP, DB, Redis, Kafka, maps,
// push and dispatch policy settings.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type MatchingConfig struct {
	RadiusKm    float64
	InviteLimit int
}

type DispatchConfig struct {
	// PendingTimeout is how long a ride may sit in pending before the
	// monitor flips it to rejected.
	PendingTimeout time.Duration
	// CancelFine is added to the rider's payment fine when they cancel
	// after a driver is bound.
	CancelFine int64
	// FineOnArrived extends the cancellation fine to the arrived state.
	FineOnArrived bool
	// ETATimeout bounds the best-effort route estimate on accept.
	ETATimeout time.Duration
}

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	Maps struct {
		APIKey string
	}
	Push struct {
		AppID  string
		APIKey string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
	}
	Matching MatchingConfig
	Dispatch DispatchConfig
	LogLevel string
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("RYDE_HTTP_ADDR", ":8080")
	cfg.DB.DSN = os.Getenv("RYDE_DB_DSN")
	cfg.Redis.Addr = os.Getenv("RYDE_REDIS_ADDR")
	if brokers := os.Getenv("RYDE_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitAndTrim(brokers)
	}
	cfg.Kafka.Topic = envOrDefault("RYDE_KAFKA_TOPIC", "driver-locations")
	cfg.Maps.APIKey = os.Getenv("RYDE_MAPS_API_KEY")
	cfg.Push.AppID = os.Getenv("RYDE_ONESIGNAL_APP_ID")
	cfg.Push.APIKey = os.Getenv("RYDE_ONESIGNAL_API_KEY")
	cfg.Firebase.ProjectID = os.Getenv("RYDE_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("RYDE_FIREBASE_CREDENTIALS")
	cfg.Matching.RadiusKm = envOrDefaultFloat("RYDE_MATCH_RADIUS_KM", 5.0)
	cfg.Matching.InviteLimit = envOrDefaultInt("RYDE_MATCH_INVITE_LIMIT", 10)
	cfg.Dispatch.PendingTimeout = envOrDefaultDuration("RYDE_DISPATCH_PENDING_TIMEOUT", 3*time.Minute)
	cfg.Dispatch.CancelFine = int64(envOrDefaultInt("RYDE_DISPATCH_CANCEL_FINE", 5))
	cfg.Dispatch.FineOnArrived = envOrDefaultBool("RYDE_DISPATCH_FINE_ON_ARRIVED", true)
	cfg.Dispatch.ETATimeout = envOrDefaultDuration("RYDE_DISPATCH_ETA_TIMEOUT", 2*time.Second)
	cfg.LogLevel = envOrDefault("RYDE_LOG_LEVEL", "info")
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
