package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for streamdeckx.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Render    RenderConfig    `yaml:"render"`
	Input     InputConfig     `yaml:"input"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// MQTT is optional; when disabled no events are published and remote
// triggers are not accepted.
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP configuration server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DiscoveryConfig controls the device scan loop.
type DiscoveryConfig struct {
	// ScanInterval is how often attached hardware is enumerated.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// HIDEnabled turns on USB HID enumeration of physical decks.
	HIDEnabled bool `yaml:"hid_enabled"`

	// VirtualDecks are in-memory decks that behave like attached hardware.
	VirtualDecks []VirtualDeckConfig `yaml:"virtual_decks"`
}

// VirtualDeckConfig describes one virtual deck.
type VirtualDeckConfig struct {
	Serial  string `yaml:"serial"`
	Name    string `yaml:"name"`
	Columns int    `yaml:"columns"`
	Rows    int    `yaml:"rows"`
	KeySize int    `yaml:"key_size"`
}

// RenderConfig contains button face rendering settings.
type RenderConfig struct {
	// Font is the default font: a built-in name (goregular, gobold, goitalic,
	// gomono) or a path to a TTF/OTF file.
	Font string `yaml:"font"`

	// TopOffset is the vertical pixel offset of the first text line.
	TopOffset int `yaml:"top_offset"`

	// FaceCacheSize bounds the number of cached font faces.
	FaceCacheSize int `yaml:"face_cache_size"`
}

// InputConfig selects the keystroke injector.
type InputConfig struct {
	// Mode is "log" (dry run, keystrokes are logged) or "mqtt" (keystrokes
	// are published for a remote input agent).
	Mode string `yaml:"mode"`

	// Host names the remote agent topic when Mode is "mqtt".
	Host string `yaml:"host"`
}

// Input modes.
const (
	InputModeLog  = "log"
	InputModeMQTT = "mqtt"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: STREAMDECKX_SECTION_KEY
// For example: STREAMDECKX_DATABASE_PATH, STREAMDECKX_API_PORT
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

// Default returns the built-in configuration with environment overrides
// applied. It is used when no config file exists.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/streamdeckx.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "streamdeckx",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 5050,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
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
		Discovery: DiscoveryConfig{
			ScanInterval: 2 * time.Second,
			HIDEnabled:   true,
		},
		Render: RenderConfig{
			Font:          "goregular",
			TopOffset:     10,
			FaceCacheSize: 32,
		},
		Input: InputConfig{
			Mode: InputModeLog,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: STREAMDECKX_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("STREAMDECKX_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("STREAMDECKX_MQTT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MQTT.Enabled = b
		}
	}
	if v := os.Getenv("STREAMDECKX_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("STREAMDECKX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("STREAMDECKX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("STREAMDECKX_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("STREAMDECKX_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("STREAMDECKX_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("STREAMDECKX_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Input
	if v := os.Getenv("STREAMDECKX_INPUT_MODE"); v != "" {
		cfg.Input.Mode = v
	}
}

// Validate checks the configuration for errors.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Discovery.ScanInterval <= 0 {
		errs = append(errs, "discovery.scan_interval must be positive")
	}
	seen := make(map[string]bool, len(c.Discovery.VirtualDecks))
	for i, v := range c.Discovery.VirtualDecks {
		if v.Serial == "" {
			errs = append(errs, fmt.Sprintf("discovery.virtual_decks[%d].serial is required", i))
			continue
		}
		if seen[v.Serial] {
			errs = append(errs, fmt.Sprintf("discovery.virtual_decks[%d].serial %q is duplicated", i, v.Serial))
		}
		seen[v.Serial] = true
		if v.Columns < 0 || v.Rows < 0 {
			errs = append(errs, fmt.Sprintf("discovery.virtual_decks[%d] grid must not be negative", i))
		}
	}

	if c.Render.FaceCacheSize < 1 {
		errs = append(errs, "render.face_cache_size must be at least 1")
	}

	switch c.Input.Mode {
	case InputModeLog:
	case InputModeMQTT:
		if !c.MQTT.Enabled {
			errs = append(errs, "input.mode mqtt requires mqtt.enabled")
		}
		if c.Input.Host == "" {
			errs = append(errs, "input.host is required when input.mode is mqtt")
		}
	default:
		errs = append(errs, fmt.Sprintf("input.mode %q must be log or mqtt", c.Input.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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
