package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
topology:
  scope: "house_room"
  slots: [1, 2, 3, 5]
automation:
  enabled: true
  interval: "30s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.Topology.Scope != ScopeHouseRoom {
		t.Errorf("Topology.Scope = %q, want %q", cfg.Topology.Scope, ScopeHouseRoom)
	}
	if len(cfg.Topology.Slots) != 4 || cfg.Topology.Slots[3] != 5 {
		t.Errorf("Topology.Slots = %v, want [1 2 3 5]", cfg.Topology.Slots)
	}
	if cfg.Automation.Interval != 30*time.Second {
		t.Errorf("Automation.Interval = %v, want 30s", cfg.Automation.Interval)
	}
	// Unset sections keep their defaults.
	if cfg.Topology.SensorEndpoint != 4 {
		t.Errorf("Topology.SensorEndpoint = %d, want 4", cfg.Topology.SensorEndpoint)
	}
	if cfg.Commands.HistoryLimit != 500 {
		t.Errorf("Commands.HistoryLimit = %d, want 500", cfg.Commands.HistoryLimit)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "site:\n  id: \"env-site\"\n")

	t.Setenv("NESTWIRE_DATABASE_PATH", "/var/lib/nestwire/env.db")
	t.Setenv("NESTWIRE_MQTT_HOST", "mqtt.example")
	t.Setenv("NESTWIRE_MQTT_PORT", "8883")
	t.Setenv("NESTWIRE_TOPOLOGY_SCOPE", "device")
	t.Setenv("NESTWIRE_AUTOMATION_INTERVAL", "2s")
	t.Setenv("NESTWIRE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/nestwire/env.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example" || cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}
	if cfg.Topology.Scope != ScopeDevice {
		t.Errorf("Topology.Scope = %q, want device", cfg.Topology.Scope)
	}
	if cfg.Automation.Interval != 2*time.Second {
		t.Errorf("Automation.Interval = %v, want 2s", cfg.Automation.Interval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	path := writeConfig(t, "site:\n  id: \"x\"\n")
	t.Setenv("NESTWIRE_MQTT_PORT", "not-a-port")

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for non-numeric NESTWIRE_MQTT_PORT, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
site:
  id: ""
topology:
  scope: "street"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	// Every problem is reported in one error.
	for _, want := range []string{"site.id", "topology.scope"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "missing site ID", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid broker port", mutate: func(c *Config) { c.MQTT.Broker.Port = 0 }, wantErr: true},
		{name: "unknown scope", mutate: func(c *Config) { c.Topology.Scope = "floor" }, wantErr: true},
		{name: "no slots", mutate: func(c *Config) { c.Topology.Slots = nil }, wantErr: true},
		{name: "duplicate slot", mutate: func(c *Config) { c.Topology.Slots = []int{1, 1} }, wantErr: true},
		{name: "zero slot", mutate: func(c *Config) { c.Topology.Slots = []int{0, 1} }, wantErr: true},
		{name: "zero sensor endpoint", mutate: func(c *Config) { c.Topology.SensorEndpoint = 0 }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.Automation.Interval = 0 }, wantErr: true},
		{name: "zero interval with automation disabled", mutate: func(c *Config) {
			c.Automation.Enabled = false
			c.Automation.Interval = 0
		}},
		{name: "bad timezone", mutate: func(c *Config) { c.Automation.DefaultTimezone = "Mars/Olympus" }, wantErr: true},
		{name: "negative history limit", mutate: func(c *Config) { c.Commands.HistoryLimit = -1 }, wantErr: true},
		{name: "influx enabled without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: true},
		{name: "house_room scope", mutate: func(c *Config) { c.Topology.Scope = ScopeHouseRoom }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMQTTConfig_BrokerURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  MQTTConfig
		want string
	}{
		{
			name: "plain tcp",
			cfg:  MQTTConfig{Broker: MQTTBrokerConfig{Host: "localhost", Port: 1883}},
			want: "tcp://localhost:1883",
		},
		{
			name: "tls",
			cfg:  MQTTConfig{Broker: MQTTBrokerConfig{Host: "broker", Port: 8883, TLS: true}},
			want: "ssl://broker:8883",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.BrokerURL(); got != tt.want {
				t.Errorf("BrokerURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
