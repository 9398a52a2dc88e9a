package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the weather station service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Station   StationConfig   `yaml:"station"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	NATS      NATSConfig      `yaml:"nats"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// StationConfig selects and configures the station controller.
//
// The json tags mirror the yaml tags so the section can be checked against
// the embedded JSON Schema (see schema.go).
type StationConfig struct {
	// Type is the controller discriminator (e.g. "lsst").
	Type       string  `yaml:"type" json:"type"`
	Host       string  `yaml:"host" json:"host"`
	Port       int     `yaml:"port" json:"port"`
	BufferSize int     `yaml:"buffer_size" json:"buffer_size"`
	Timeout    float64 `yaml:"timeout" json:"timeout"` // seconds
	Simulation bool    `yaml:"simulation" json:"simulation"`
	// Transport is "tcp" (the station connects to us) or "serial".
	Transport string       `yaml:"transport" json:"transport"`
	Serial    SerialConfig `yaml:"serial" json:"serial"`
}

// SerialConfig contains serial line settings for directly wired stations.
type SerialConfig struct {
	Device   string `yaml:"device" json:"device"`
	BaudRate int    `yaml:"baud_rate" json:"baud_rate"`
}

// TelemetryConfig controls the telemetry loop that drives the station.
type TelemetryConfig struct {
	// AutoEnable starts the telemetry loop at boot.
	AutoEnable     bool `yaml:"auto_enable"`
	LoopDieTimeout int  `yaml:"loop_die_timeout"` // seconds
	HealthInterval int  `yaml:"health_interval"`  // seconds
	// HistoryRetention is how many days of cycle history to keep. 0 keeps everything.
	HistoryRetention int `yaml:"history_retention"`
	// SimulationInterval paces cycles in simulation mode, where frames
	// are available immediately.
	SimulationInterval int `yaml:"simulation_interval"` // seconds
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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

// String returns a representation with the password redacted.
func (a MQTTAuthConfig) String() string {
	if a.Password == "" {
		return fmt.Sprintf("{Username:%s}", a.Username)
	}
	return fmt.Sprintf("{Username:%s Password:[REDACTED]}", a.Username)
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// NATSConfig contains settings for the optional NATS telemetry sink.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Name          string `yaml:"name"`
	Token         string `yaml:"token"`
	MaxReconnects int    `yaml:"max_reconnects"`
	ReconnectWait int    `yaml:"reconnect_wait"` // seconds
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	// DashboardDir serves the dashboard from disk instead of the embedded copy.
	DashboardDir string `yaml:"dashboard_dir"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: WEATHERSTATION_SECTION_KEY
// For example: WEATHERSTATION_STATION_PORT, WEATHERSTATION_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Weather Station",
			Timezone: "UTC",
		},
		Station: StationConfig{
			Type:       "lsst",
			Host:       "0.0.0.0",
			Port:       5000,
			BufferSize: 4096,
			Timeout:    120,
			Transport:  "tcp",
			Serial: SerialConfig{
				BaudRate: 9600,
			},
		},
		Telemetry: TelemetryConfig{
			AutoEnable:         true,
			LoopDieTimeout:     5,
			HealthInterval:     30,
			HistoryRetention:   30,
			SimulationInterval: 1,
		},
		Database: DatabaseConfig{
			Path:        "./data/weatherstation.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "weatherstation-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Name:          "weatherstation-core",
			MaxReconnects: -1,
			ReconnectWait: 2,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: WEATHERSTATION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Station
	if v := os.Getenv("WEATHERSTATION_STATION_HOST"); v != "" {
		cfg.Station.Host = v
	}
	if v := os.Getenv("WEATHERSTATION_STATION_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Station.Port = port
		}
	}
	if v := os.Getenv("WEATHERSTATION_STATION_SIMULATION"); v != "" {
		if sim, err := strconv.ParseBool(v); err == nil {
			cfg.Station.Simulation = sim
		}
	}
	if v := os.Getenv("WEATHERSTATION_STATION_SERIAL_DEVICE"); v != "" {
		cfg.Station.Serial.Device = v
	}

	// Database
	if v := os.Getenv("WEATHERSTATION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("WEATHERSTATION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WEATHERSTATION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WEATHERSTATION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// NATS
	if v := os.Getenv("WEATHERSTATION_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("WEATHERSTATION_NATS_TOKEN"); v != "" {
		cfg.NATS.Token = v
	}

	// API
	if v := os.Getenv("WEATHERSTATION_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("WEATHERSTATION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// The station section has its own JSON Schema.
	errs = append(errs, ValidateStation(c.Station)...)
	if c.Station.Transport == "serial" && c.Station.Serial.Device == "" && !c.Station.Simulation {
		errs = append(errs, "station.serial.device is required when station.transport is serial")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Telemetry.LoopDieTimeout < 0 || c.Telemetry.HealthInterval < 0 || c.Telemetry.SimulationInterval < 0 {
		errs = append(errs, "telemetry intervals must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetStationTimeout returns the frame read timeout as a Duration.
func (c *Config) GetStationTimeout() time.Duration {
	return time.Duration(c.Station.Timeout * float64(time.Second))
}

// GetLoopDieTimeout returns how long Disable waits for the telemetry loop.
func (c *Config) GetLoopDieTimeout() time.Duration {
	return time.Duration(c.Telemetry.LoopDieTimeout) * time.Second
}

// GetHealthInterval returns the health publish interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Telemetry.HealthInterval) * time.Second
}

// GetSimulationInterval returns the pause between simulated cycles.
func (c *Config) GetSimulationInterval() time.Duration {
	return time.Duration(c.Telemetry.SimulationInterval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
