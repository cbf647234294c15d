// Taller Core - multi-tenant workshop management API.
//
// This is the main entry point for the Taller Core server. It loads
// configuration, opens and migrates the database, creates the bootstrap
// admin on first boot, wires the optional MQTT and InfluxDB event sinks and
// serves the REST and WebSocket API until it receives SIGINT or SIGTERM.
//
// Usage:
//
//	taller                          serve the API (applies pending migrations first)
//	taller migrate [up|down|status] manage the schema without serving
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	_ "github.com/nerrad567/taller-core/migrations"

	"github.com/nerrad567/taller-core/internal/api"
	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/auth"
	"github.com/nerrad567/taller-core/internal/catalog"
	"github.com/nerrad567/taller-core/internal/customer"
	"github.com/nerrad567/taller-core/internal/events"
	"github.com/nerrad567/taller-core/internal/infrastructure/config"
	"github.com/nerrad567/taller-core/internal/infrastructure/database"
	"github.com/nerrad567/taller-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/taller-core/internal/infrastructure/logging"
	"github.com/nerrad567/taller-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/taller-core/internal/inventory"
	"github.com/nerrad567/taller-core/internal/job"
	"github.com/nerrad567/taller-core/internal/worker"
	"github.com/nerrad567/taller-core/internal/workshop"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default file locations, overridable with TALLER_CONFIG and TALLER_ENV_FILE.
const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvFile    = ".env"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		err = runMigrate(ctx, os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Taller Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"environment", cfg.Service.Environment,
		"level", cfg.Logging.Level,
	)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "driver", db.Driver())

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:    cfg.Security.JWT.Secret,
		Algorithm: cfg.Security.JWT.Algorithm,
		TTL:       cfg.GetAccessTokenTTL(),
	})
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}
	users := auth.NewUserRepository(db)
	authService := auth.NewService(users, issuer, log.Logger)

	if cfg.Security.BootstrapAdmin.Enabled {
		admin := cfg.Security.BootstrapAdmin
		if _, seedErr := auth.SeedAdmin(ctx, authService, users, auth.BootstrapAdmin{
			Email:     admin.Email,
			Password:  admin.Password,
			FirstName: admin.FirstName,
			LastName:  admin.LastName,
		}, log.Logger); seedErr != nil {
			return fmt.Errorf("seeding admin: %w", seedErr)
		}
	}

	bus := events.NewBus(log.Logger)
	health := map[string]api.HealthChecker{"database": db}

	if mqttClient := connectMQTT(cfg.MQTT, log); mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		bus.Register("mqtt", mqttClient)
		health["mqtt"] = mqttClient
	}

	if influxClient := connectInfluxDB(cfg.InfluxDB, log); influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		bus.Register("influxdb", influxClient)
		health["influxdb"] = influxClient
	}

	if err := healthCheck(ctx, health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Auth:      authService,
		Resolver:  auth.NewResolver(issuer, users),
		Users:     users,
		Workshops: workshop.NewRepository(db),
		Customers: customer.NewRepository(db),
		Catalog:   catalog.NewRepository(db),
		Workers:   worker.NewRepository(db),
		Inventory: inventory.NewRepository(db),
		Jobs:      job.NewRepository(db),
		Audit:     audit.NewRepository(db),
		Events:    bus,
		Health:    health,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API server (flushing the
	// audit queue), InfluxDB, MQTT, database.
	return nil
}

// runMigrate applies, reverts or reports schema migrations and exits.
// With no action it applies pending migrations, like server startup does.
func runMigrate(ctx context.Context, args []string, out io.Writer) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}
	if len(args) > 1 || (action != "up" && action != "down" && action != "status") {
		return errors.New("usage: taller migrate [up|down|status]")
	}

	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exits next

	switch action {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	case "down":
		undone, err := db.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}
		if undone == nil {
			fmt.Fprintln(out, "nothing to roll back")
			return nil
		}
		fmt.Fprintf(out, "rolled back %s %s\n", undone.Version, undone.Name)
		return nil
	}

	status, err := db.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	for _, m := range status.Applied {
		fmt.Fprintf(out, "applied  %s  %s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range status.Pending {
		fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}

// loadConfig reads the dotenv file and then the configuration file.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadEnvFile(getEnvFilePath()); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openDatabase connects using the database section of cfg.
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Driver:       cfg.Database.Driver,
		Path:         cfg.Database.Path,
		DSN:          cfg.Database.DSN,
		WALMode:      cfg.Database.WALMode,
		BusyTimeout:  cfg.Database.BusyTimeout,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// connectMQTT connects the optional event publisher. A broker that cannot
// be reached is logged and skipped; the API works without it.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) *mqtt.Client {
	client, err := mqtt.Connect(cfg)
	if errors.Is(err, mqtt.ErrDisabled) {
		log.Info("MQTT disabled")
		return nil
	}
	if err != nil {
		log.Warn("MQTT unavailable, events will not be published", "error", err)
		return nil
	}

	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	return client
}

// connectInfluxDB connects the optional metrics sink.
func connectInfluxDB(cfg config.InfluxDBConfig, log *logging.Logger) *influxdb.Client {
	client, err := influxdb.Connect(cfg)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil
	}
	if err != nil {
		log.Warn("InfluxDB unavailable, activity metrics will not be recorded", "error", err)
		return nil
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)
	return client
}

// getConfigPath returns the configuration file path.
// Uses TALLER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TALLER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// getEnvFilePath returns the dotenv file loaded before the configuration.
func getEnvFilePath() string {
	if path := os.Getenv("TALLER_ENV_FILE"); path != "" {
		return path
	}
	return defaultEnvFile
}

// healthCheck verifies every connected component, in name order.
// It returns the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := checks[name].HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
