// Weather Station Core
//
// Entry point for the weather station telemetry service. It accepts ASCII
// telemetry frames from an LSST/Vaisala station, decodes them into topic
// messages and fans them out to MQTT, NATS, InfluxDB and WebSocket clients
// while recording cycle history in SQLite.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/weatherstation-core/migrations"

	"github.com/nerrad567/weatherstation-core/internal/api"
	"github.com/nerrad567/weatherstation-core/internal/history"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/config"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/database"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/logging"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/metrics"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/nats"
	"github.com/nerrad567/weatherstation-core/internal/station"
	"github.com/nerrad567/weatherstation-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service together and blocks until ctx is cancelled.
// Resources are released in reverse order of acquisition by the deferred
// closers.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting weather station core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"station", cfg.Station.Type,
		"simulation", cfg.Station.Simulation,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	historyRepo := history.NewRepository(db.DB)
	promMetrics := metrics.New()
	var sinks []telemetry.Sink

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		sinks = append(sinks, telemetry.NewMQTTSink(mqttClient, mqttClient.Topics()))
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.NATS.Enabled {
		natsClient, natsErr := nats.Connect(ctx, cfg.NATS, cfg.Site.ID, log.Component("nats"))
		if natsErr != nil {
			return fmt.Errorf("connecting to NATS: %w", natsErr)
		}
		defer func() {
			log.Info("closing NATS connection")
			if closeErr := natsClient.Close(); closeErr != nil {
				log.Error("error closing NATS", "error", closeErr)
			}
		}()
		log.Info("NATS connected", "url", cfg.NATS.URL)
		sinks = append(sinks, telemetry.NewNATSSink(natsClient, natsClient.Subjects()))
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
			promMetrics.SinkError(telemetry.SinkInfluxDB)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		sinks = append(sinks, telemetry.NewInfluxSink(influxClient, cfg.Site.ID))
	}

	controller, err := newController(cfg, log)
	if err != nil {
		return err
	}

	// The service is built before the API server but broadcasts through the
	// server's hub, so the hub is created first and handed to both.
	apiLog := log.Component("api")
	hub := api.NewHub(cfg.WebSocket, apiLog)
	sinks = append(sinks, telemetry.NewBroadcastSink(hub))

	opts := telemetry.Options{
		Sinks:          sinks,
		History:        historyRepo,
		Metrics:        promMetrics,
		Logger:         log.Component("telemetry"),
		LoopDieTimeout: cfg.GetLoopDieTimeout(),
		Retention:      time.Duration(cfg.Telemetry.HistoryRetention) * 24 * time.Hour,
	}
	if cfg.Station.Simulation {
		opts.Interval = cfg.GetSimulationInterval()
	}
	svc := telemetry.New(controller, opts)

	if mqttClient != nil {
		reporter := telemetry.NewHealthReporter(telemetry.HealthReporterConfig{
			Topic:     mqttClient.Topics().Health(),
			Version:   version,
			Interval:  cfg.GetHealthInterval(),
			Publisher: mqttClient,
			Source:    svc,
			Logger:    log.Component("health"),
		})
		reporter.Start(ctx)
		defer reporter.Stop()

		commander := telemetry.NewCommander(ctx, svc, log.Component("commands"))
		defer commander.Wait()
		qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0-2
		if subErr := mqttClient.Subscribe(mqttClient.Topics().AllCommands(), qos, commander.Handle); subErr != nil {
			return fmt.Errorf("subscribing to commands: %w", subErr)
		}
	}

	deps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  apiLog,
		Service: svc,
		History: historyRepo,
		Metrics: promMetrics,
		Hub:     hub,
		DB:      db,
		Version: version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}

	if err := healthCheck(ctx, db, mqttClient); err != nil {
		server.Close() //nolint:errcheck // startup already failed
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete", "api", server.Addr().String())

	// Both goroutines wind down on the same signal: the service disables
	// itself and the API server drains in-flight requests.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx, cfg.Telemetry.AutoEnable)
	})
	g.Go(func() error {
		<-gctx.Done()
		return server.Close()
	})
	err = g.Wait()

	log.Info("shutdown signal received, cleaning up")
	controller.Unset()
	log.Info("weather station core stopped")
	return err
}

// newController creates the configured station controller and applies its
// settings.
func newController(cfg *config.Config, log *logging.Logger) (station.Controller, error) {
	controller, err := station.New(cfg.Station.Type, log.Component("station"))
	if err != nil {
		return nil, fmt.Errorf("creating station controller: %w", err)
	}
	if err := controller.Setup(station.SettingsFromConfig(cfg.Station), cfg.Station.Simulation); err != nil {
		return nil, fmt.Errorf("configuring station controller: %w", err)
	}
	return controller, nil
}

// getConfigPath returns the configuration file path.
// Uses WEATHERSTATION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WEATHERSTATION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the required connections before the loop starts.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}
