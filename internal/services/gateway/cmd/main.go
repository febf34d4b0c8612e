package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ritheshan/agri/internal/services/gateway/app"
	"github.com/ritheshan/agri/internal/services/session"
	"github.com/ritheshan/agri/internal/services/telemetry"
	"github.com/ritheshan/agri/internal/services/weatherfeed"
	"github.com/ritheshan/agri/pkg/logging"
	"github.com/ritheshan/agri/pkg/rabbitmq"
)

const grpcService = "agri.gateway"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}
	log, err := logging.New("gateway", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewMetrics()
	var (
		recorder telemetry.Recorder = telemetry.Nop{}
		writer   *telemetry.Writer
		history  *telemetry.History
		probes   []telemetry.Probe
	)

	// === InfluxDB ===
	if cfg.InfluxURL != "" {
		influx := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken,
			influxdb2.DefaultOptions().SetBatchSize(20).SetFlushInterval(1000))
		defer influx.Close()
		writer = telemetry.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket), log)
		recorder = writer
		history = telemetry.NewHistory(influx.QueryAPI(cfg.InfluxOrg), cfg.InfluxBucket, log)
		probes = append(probes, telemetry.Probe{
			Name:     "influx",
			Required: true,
			Check: func(ctx context.Context) error {
				ok, err := influx.Ping(ctx)
				if err == nil && !ok {
					err = errors.New("ping failed")
				}
				return err
			},
		})
	} else {
		log.Info("INFLUX_URL not set, advisory events are not persisted")
	}

	// === Station feed over MQTT ===
	feed := weatherfeed.New(cfg.StationMaxAge, log, recorder, metrics)
	if cfg.Rabbit.Host != "" {
		client, err := rabbitmq.Connect(ctx, cfg.Rabbit, log)
		if err != nil {
			log.Fatal("mqtt connect", zap.Error(err))
		}
		probes = append(probes, telemetry.Probe{
			Name: "mqtt",
			Check: func(context.Context) error {
				if !client.IsConnectionOpen() {
					return errors.New("not connected")
				}
				return nil
			},
		})
		consumer := rabbitmq.NewConsumer(client, weatherfeed.Subscriptions(), feed.HandleMessage, log)
		go func() {
			if err := consumer.Consume(ctx); err != nil {
				log.Error("station feed stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("RABBITMQ_HOST not set, station fallback disabled")
	}

	// === Sessions and gateway ===
	auth := session.NewAuthClient(cfg.AuthURL, cfg.HTTPTimeout)
	sessions := session.NewManager(session.Options{
		HashKey:   []byte(cfg.SessionHashKey),
		BlockKey:  []byte(cfg.SessionBlockKey),
		Secure:    cfg.SessionSecure,
		Verifier:  auth,
		VerifyTTL: cfg.BearerTTL,
	}, log)
	gw := app.NewGateway(app.Config{
		BackendURL:      cfg.BackendURL,
		HTTPTimeout:     cfg.HTTPTimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerOpenFor:  cfg.BreakerOpenFor,
		Retry:           cfg.Retry,
		StationMaxKm:    cfg.StationMaxKm,
		Logger:          log,
		Metrics:         metrics,
		Recorder:        recorder,
	}, feed, sessions)
	probes = append(probes, gw.Probe())

	srv := &server{
		log:      log,
		metrics:  metrics,
		recorder: recorder,
		writer:   writer,
		probes:   probes,
		origins:  cfg.CORSOrigins,
		history:  history,
		feed:     feed,
		sessions: sessions,
		auth:     auth,
		gateway:  gw,
	}

	// === HTTP ===
	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("HTTP listening", zap.String("addr", hs.Addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	// === gRPC health ===
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("grpc listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	grpcServer := grpc.NewServer()
	hsrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hsrv)
	go func() {
		log.Info("gRPC health listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc server error", zap.Error(err))
		}
	}()
	go watchReadiness(ctx, hsrv, probes, writer, log)

	<-ctx.Done()
	log.Info("shutting down")

	hsrv.Shutdown()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
}

// watchReadiness mirrors /readyz into the gRPC health service.
func watchReadiness(ctx context.Context, hsrv *health.Server, probes []telemetry.Probe, w *telemetry.Writer, log *zap.Logger) {
	set := func() {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if telemetry.Ready(cctx, probes, w, 2*time.Second) {
			status = healthpb.HealthCheckResponse_SERVING
		}
		hsrv.SetServingStatus("", status)
		hsrv.SetServingStatus(grpcService, status)
		log.Debug("grpc health", zap.String("status", status.String()))
	}
	set()
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			set()
		}
	}
}
