package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	stationsim "github.com/ritheshan/agri/internal/station-simulator"
	"github.com/ritheshan/agri/internal/services/gateway/app"
	"github.com/ritheshan/agri/internal/services/geo"
	"github.com/ritheshan/agri/pkg/logging"
	"github.com/ritheshan/agri/pkg/rabbitmq"
)

func main() {
	stationID := flag.String("station-id", "", "station identifier (random when empty)")
	clientID := flag.String("client-id", "", "MQTT client ID (defaults to station-<id>)")
	interval := flag.Duration("interval", 30*time.Second, "publish interval")
	lat := flag.Float64("lat", geo.DefaultCoordinates.Latitude, "latitude")
	lon := flag.Float64("lon", geo.DefaultCoordinates.Longitude, "longitude")
	broker := flag.String("mqtt-host", "localhost", "MQTT host")
	port := flag.Int("mqtt-port", 1883, "MQTT port")
	backend := flag.String("backend-url", os.Getenv("BACKEND_URL"), "weather backend used to seed the baseline")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	log, err := logging.New("station-simulator", os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *stationID == "" {
		*stationID = uuid.NewString()
	}
	if *clientID == "" {
		*clientID = "station-" + *stationID
	}
	coords := geo.Coordinates{Latitude: *lat, Longitude: *lon}
	if !coords.Valid() {
		log.Fatal("coordinates out of range", zap.Float64("lat", *lat), zap.Float64("lon", *lon))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := stationsim.NewGenerator(*stationID, coords, *seed)
	if *backend != "" {
		weather := app.NewUpstream(app.UpstreamConfig{
			Name:    "weather",
			BaseURL: *backend,
			Timeout: 8 * time.Second,
			Retry:   app.RetryPolicy{MaxAttempts: 2, Initial: 600 * time.Millisecond},
		}, nil, log)
		if err := gen.SeedFromBackend(ctx, weather); err != nil {
			log.Warn("seed from backend failed, using defaults", zap.Error(err))
		} else {
			log.Info("seeded from backend", zap.Any("baseline", gen.Baseline()))
		}
	}

	client, err := rabbitmq.Connect(ctx, rabbitmq.Config{
		Host:     *broker,
		Port:     *port,
		User:     getenv("RABBITMQ_USER", "guest"),
		Password: getenv("RABBITMQ_PASSWORD", "guest"),
		ClientID: *clientID,
	}, log)
	if err != nil {
		log.Fatal("mqtt connect", zap.Error(err))
	}

	log.Info("station simulator started", zap.String("station", *stationID), zap.Duration("interval", *interval))
	sim := stationsim.NewSimulator(gen, rabbitmq.NewPublisher(client, 1), log)
	sim.Run(ctx, *interval)
	log.Info("station simulator stopped")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
