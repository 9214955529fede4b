package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nestwire/nestwire-core/internal/automation"
	"github.com/nestwire/nestwire-core/internal/bridge"
	"github.com/nestwire/nestwire-core/internal/codec"
	"github.com/nestwire/nestwire-core/internal/device"
	"github.com/nestwire/nestwire-core/internal/infrastructure/config"
	"github.com/nestwire/nestwire-core/internal/infrastructure/database"
	"github.com/nestwire/nestwire-core/internal/infrastructure/influxdb"
	"github.com/nestwire/nestwire-core/internal/infrastructure/logging"
	"github.com/nestwire/nestwire-core/internal/infrastructure/mqtt"
)

const healthCheckInterval = 30 * time.Second

// run starts the daemon and blocks until ctx is cancelled.
//
// Shutdown order: bridge unsubscribe and MQTT close (offline status is
// published), automation engine cancel and wait, InfluxDB flush and close,
// database close.
func run(ctx context.Context, configPath string) error { //nolint:gocognit,gocyclo // sequential startup
	log := logging.Default()
	log.Info("starting nestwire", "version", version, "commit", commit, "build_date", date)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // last deferred call; nowhere left to report
	log.Info("configuration loaded", "path", configPath, "site", cfg.Site.ID)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	influxClient, err := connectInflux(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("flushing and closing InfluxDB")
			influxClient.Flush()
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("registry"))

	wireCodec, err := codec.New(cfg.Topology.Slots, cfg.Topology.SensorEndpoint)
	if err != nil {
		return fmt.Errorf("building codec: %w", err)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", logging.Err(err)) })
	log.Info("MQTT connected", "broker", cfg.MQTT.BrokerURL(), "client_id", cfg.MQTT.Broker.ClientID)

	var (
		wg         sync.WaitGroup
		stopEngine = func() {}
		pubsub     *bridge.Bridge
	)
	defer func() {
		if pubsub != nil {
			pubsub.Stop()
		}
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
		stopEngine()
		wg.Wait()
	}()

	pubsub, err = bridge.New(bridge.Options{
		Client:   mqttClient,
		Registry: registry,
		Codec:    wireCodec,
		Topology: cfg.Topology.Scope,
		QoS:      byte(cfg.MQTT.QoS), // #nosec G115 -- validated 0-2
		Logger:   log.Component("bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := pubsub.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}

	var metrics automation.Metrics
	if influxClient != nil {
		metrics = influxClient
	}

	if cfg.Automation.Enabled {
		engine, err := automation.NewEngine(automation.EngineConfig{
			Repo:     automation.NewSQLiteRepository(db.DB),
			Devices:  registry,
			Sender:   pubsub,
			Metrics:  metrics,
			Interval: cfg.Automation.Interval,
			Logger:   log.Component("automation"),
		})
		if err != nil {
			return fmt.Errorf("creating automation engine: %w", err)
		}
		// The engine outlives ctx so the MQTT session closes first.
		engineCtx, cancel := context.WithCancel(context.Background())
		stopEngine = cancel
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Run(engineCtx)
		}()
	} else {
		log.Info("automation disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	wg.Add(1)
	go func() {
		defer wg.Done()
		healthLoop(ctx, db, mqttClient, influxClient, log)
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up",
		"bridge", fmt.Sprintf("%+v", pubsub.Stats()),
		"registry", fmt.Sprintf("%+v", registry.GetStats()))
	return nil
}

// connectInflux returns nil without error when InfluxDB is disabled.
func connectInflux(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", logging.Err(err))
	})
	log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "org", cfg.InfluxDB.Org, "bucket", cfg.InfluxDB.Bucket)
	return client, nil
}

// healthCheck returns the first failing dependency. influxClient may be nil.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

func healthLoop(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil && ctx.Err() == nil {
				log.Warn("health check failed", logging.Err(err))
			}
		}
	}
}
