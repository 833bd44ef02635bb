// AgroLink Core - Irrigation Telemetry & Command Relay
//
// This is the main entry point for the AgroLink Core service. It ingests
// periodic telemetry from field-deployed irrigation units (soil moisture,
// water volume), reconciles reported pump state, and relays pump commands
// back to devices that cannot accept inbound connections and must poll
// for work.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/agrolink-core/migrations"

	"github.com/nerrad567/agrolink-core/internal/api"
	"github.com/nerrad567/agrolink-core/internal/command"
	"github.com/nerrad567/agrolink-core/internal/events"
	"github.com/nerrad567/agrolink-core/internal/infrastructure/config"
	"github.com/nerrad567/agrolink-core/internal/infrastructure/database"
	"github.com/nerrad567/agrolink-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/agrolink-core/internal/infrastructure/logging"
	"github.com/nerrad567/agrolink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/agrolink-core/internal/registry"
	"github.com/nerrad567/agrolink-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting AgroLink Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
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
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Device registry
	reg := registry.NewRegistry(registry.NewSQLiteRepository(db.DB))
	reg.SetLogger(log)
	if refreshErr := reg.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", reg.DeviceCount())

	// Telemetry pipeline
	readings := telemetry.NewSQLiteReadingsRepository(db.DB)
	ingestor := telemetry.NewIngestor(reg, readings)
	ingestor.SetLogger(log)
	reconciler := telemetry.NewReconciler(reg)
	reconciler.SetLogger(log)

	// Command queue and expiry sweeper
	queue := command.NewQueue(command.NewSQLiteRepository(db.DB), reg)
	queue.SetLogger(log)

	sweeper := command.NewSweeper(queue, cfg.DispatchDeadline(), cfg.SweepInterval())
	sweeper.SetLogger(log)
	sweeper.Start(ctx)
	defer sweeper.Stop()
	log.Info("expiry sweeper started",
		"deadline", cfg.DispatchDeadline(),
		"interval", cfg.SweepInterval(),
	)

	// MQTT dashboard event bus (optional). Devices never connect to the
	// broker; they poll over HTTP.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		publisher := events.NewPublisher(mqttClient)
		publisher.SetLogger(log)
		ingestor.SetEvents(publisher)
		reconciler.SetEvents(publisher)
		queue.SetEvents(publisher)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB readings mirror (optional, best-effort)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil && !errors.Is(err, influxdb.ErrDisabled) {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		if influxClient != nil {
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			log.Info("InfluxDB connected",
				"url", cfg.InfluxDB.URL,
				"org", cfg.InfluxDB.Org,
				"bucket", cfg.InfluxDB.Bucket,
			)

			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			ingestor.SetMirror(influxClient)
			reconciler.SetMirror(influxClient)
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// HTTP gateway
	server, err := api.New(api.Deps{
		Config:         cfg.API,
		Security:       cfg.Security,
		Logger:         log,
		Registry:       reg,
		Ingestor:       ingestor,
		Reconciler:     reconciler,
		Queue:          queue,
		LogRepo:        command.NewSQLiteLogRepository(db.DB),
		Readings:       readings,
		DB:             db,
		StorageTimeout: cfg.StorageTimeout(),
		Version:        version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB (if enabled), MQTT (if enabled), sweeper, database.

	log.Info("AgroLink Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AGROLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AGROLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
