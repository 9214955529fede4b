package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // schedules resolve zones on hosts without zoneinfo

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Topology scopes select how pub/sub topics identify the target of a message.
const (
	ScopeRoom      = "room"
	ScopeDevice    = "device"
	ScopeHouseRoom = "house_room"
)

// DefaultTimezone is applied to schedules created without an explicit zone.
const DefaultTimezone = "Asia/Ho_Chi_Minh"

// Config is the root configuration structure for nestwire.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Topology   TopologyConfig   `yaml:"topology"`
	Automation AutomationConfig `yaml:"automation"`
	Commands   CommandsConfig   `yaml:"commands"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig identifies this installation.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"` // seconds
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// TopologyConfig describes the deployment's topic scheme and composite layout.
type TopologyConfig struct {
	// Scope is one of "room", "device" or "house_room".
	Scope string `yaml:"scope"`

	// Slots lists the endpoint ids carried by every composite payload.
	Slots []int `yaml:"slots"`

	// SensorEndpoint receives opaque status payloads.
	SensorEndpoint int `yaml:"sensor_endpoint"`
}

// AutomationConfig controls the polling engine.
type AutomationConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Interval        time.Duration `yaml:"interval"`
	DefaultTimezone string        `yaml:"default_timezone"`
}

// CommandsConfig bounds the command log.
type CommandsConfig struct {
	// HistoryLimit is the number of commands kept per device. 0 keeps all.
	HistoryLimit int `yaml:"history_limit"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment overrides.
//
// A .env file in the working directory is loaded into the process
// environment first when present. Variables already set are not replaced.
//
// Environment variables follow the pattern NESTWIRE_SECTION_KEY, for example
// NESTWIRE_DATABASE_PATH or NESTWIRE_MQTT_HOST.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the reference deployment's defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "nestwire",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/nestwire.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "nestwire-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Topology: TopologyConfig{
			Scope:          ScopeRoom,
			Slots:          []int{1, 2, 3},
			SensorEndpoint: 4,
		},
		Automation: AutomationConfig{
			Enabled:         true,
			Interval:        10 * time.Second,
			DefaultTimezone: DefaultTimezone,
		},
		Commands: CommandsConfig{
			HistoryLimit: 500,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies NESTWIRE_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("NESTWIRE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("NESTWIRE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("NESTWIRE_MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NESTWIRE_MQTT_PORT: %w", err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("NESTWIRE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("NESTWIRE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("NESTWIRE_TOPOLOGY_SCOPE"); v != "" {
		cfg.Topology.Scope = v
	}

	if v := os.Getenv("NESTWIRE_AUTOMATION_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NESTWIRE_AUTOMATION_INTERVAL: %w", err)
		}
		cfg.Automation.Interval = d
	}

	if v := os.Getenv("NESTWIRE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("NESTWIRE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	switch c.Topology.Scope {
	case ScopeRoom, ScopeDevice, ScopeHouseRoom:
	default:
		errs = append(errs, fmt.Sprintf("topology.scope %q must be room, device, or house_room", c.Topology.Scope))
	}
	if len(c.Topology.Slots) == 0 {
		errs = append(errs, "topology.slots must list at least one endpoint id")
	}
	seen := make(map[int]bool, len(c.Topology.Slots))
	for _, s := range c.Topology.Slots {
		if s < 1 {
			errs = append(errs, fmt.Sprintf("topology.slots: endpoint id %d must be positive", s))
		}
		if seen[s] {
			errs = append(errs, fmt.Sprintf("topology.slots: endpoint id %d listed twice", s))
		}
		seen[s] = true
	}
	if c.Topology.SensorEndpoint < 1 {
		errs = append(errs, "topology.sensor_endpoint must be positive")
	}

	if c.Automation.Enabled && c.Automation.Interval <= 0 {
		errs = append(errs, "automation.interval must be positive")
	}
	if c.Automation.DefaultTimezone != "" {
		if _, err := time.LoadLocation(c.Automation.DefaultTimezone); err != nil {
			errs = append(errs, fmt.Sprintf("automation.default_timezone: %v", err))
		}
	}

	if c.Commands.HistoryLimit < 0 {
		errs = append(errs, "commands.history_limit must not be negative")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BrokerURL returns the broker address in paho's scheme://host:port form.
func (c *MQTTConfig) BrokerURL() string {
	scheme := "tcp"
	if c.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Broker.Host, c.Broker.Port)
}
