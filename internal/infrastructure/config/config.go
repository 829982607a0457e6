package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Windlass.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Vessel      VesselConfig      `yaml:"vessel"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Database    DatabaseConfig    `yaml:"database"`
	Journal     JournalConfig     `yaml:"journal"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Uplink      UplinkConfig      `yaml:"uplink"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Instruments InstrumentsConfig `yaml:"instruments"`
}

// VesselConfig identifies the simulated vessel.
type VesselConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// SimulationConfig contains the scheduler settings.
type SimulationConfig struct {
	// TickInterval is the period of the main scheduling loop.
	TickInterval time.Duration `yaml:"tick_interval"`

	// ProcessBudget is the wall-time allowance for one device Process call.
	ProcessBudget time.Duration `yaml:"process_budget"`

	// DegradedThreshold is the number of consecutive process errors
	// that mark a device Degraded.
	DegradedThreshold int `yaml:"degraded_threshold"`
}

// DiscoveryConfig contains the discovery protocol timing.
type DiscoveryConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	DeviceTimeout     time.Duration `yaml:"device_timeout"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxTrackedDevices int           `yaml:"max_tracked_devices"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// JournalConfig contains bus journal settings.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetentionHours is how long journalled traffic is kept before
	// pruning. Zero disables pruning.
	RetentionHours int `yaml:"retention_hours"`
}

// MQTTConfig contains MQTT broker connection settings for the uplink.
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// UplinkConfig contains the shore uplink bridge settings.
type UplinkConfig struct {
	Enabled bool `yaml:"enabled"`

	// TopicPrefix is prepended to every published topic.
	// Default: "windlass"
	TopicPrefix string `yaml:"topic_prefix"`
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

// InstrumentsConfig contains the simulated instrument fleet settings.
type InstrumentsConfig struct {
	GPS   GPSInstrumentConfig   `yaml:"gps"`
	Radar RadarInstrumentConfig `yaml:"radar"`
	AIS   AISInstrumentConfig   `yaml:"ais"`
}

// GPSInstrumentConfig contains the GNSS receiver settings.
type GPSInstrumentConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Address        string        `yaml:"address"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	StartLatitude  float64       `yaml:"start_latitude"`
	StartLongitude float64       `yaml:"start_longitude"`
	SpeedKnots     float64       `yaml:"speed_knots"`
	CourseDegrees  float64       `yaml:"course_deg"`

	// Sentences switches the receiver into NMEA replay mode.
	Sentences []string `yaml:"sentences"`
}

// RadarInstrumentConfig contains the radar settings.
type RadarInstrumentConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Address        string        `yaml:"address"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	RangeScaleNM   float64       `yaml:"range_scale_nm"`
	RPM            float64       `yaml:"rpm"`
}

// AISInstrumentConfig contains the AIS receiver settings.
type AISInstrumentConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Address        string        `yaml:"address"`
	UpdateInterval time.Duration `yaml:"update_interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: WINDLASS_SECTION_KEY
// For example: WINDLASS_DATABASE_PATH, WINDLASS_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults for a local simulation.
func Default() *Config {
	return &Config{
		Vessel: VesselConfig{
			ID:   "vessel-001",
			Name: "Windlass",
		},
		Simulation: SimulationConfig{
			TickInterval:      100 * time.Millisecond,
			ProcessBudget:     100 * time.Millisecond,
			DegradedThreshold: 3,
		},
		Discovery: DiscoveryConfig{
			HeartbeatInterval: 30 * time.Second,
			DeviceTimeout:     90 * time.Second,
			CleanupInterval:   60 * time.Second,
			MaxTrackedDevices: 1000,
		},
		Database: DatabaseConfig{
			Path:        "./data/windlass.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Journal: JournalConfig{
			Enabled:        true,
			RetentionHours: 24,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "windlass-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Uplink: UplinkConfig{
			TopicPrefix: "windlass",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Instruments: InstrumentsConfig{
			GPS: GPSInstrumentConfig{
				Enabled:        true,
				Address:        "gps-1",
				UpdateInterval: time.Second,
				StartLatitude:  50.7989,
				StartLongitude: -1.1100,
				SpeedKnots:     6,
				CourseDegrees:  180,
			},
			Radar: RadarInstrumentConfig{
				Enabled:        true,
				Address:        "radar-1",
				UpdateInterval: time.Second,
				RangeScaleNM:   12,
				RPM:            24,
			},
			AIS: AISInstrumentConfig{
				Enabled:        true,
				Address:        "ais-1",
				UpdateInterval: 2 * time.Second,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: WINDLASS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("WINDLASS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("WINDLASS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WINDLASS_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("WINDLASS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WINDLASS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("WINDLASS_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("WINDLASS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("WINDLASS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Vessel validation
	if c.Vessel.ID == "" {
		errs = append(errs, "vessel.id is required")
	}

	// Simulation validation
	if c.Simulation.TickInterval <= 0 {
		errs = append(errs, "simulation.tick_interval must be positive")
	}
	if c.Simulation.ProcessBudget <= 0 {
		errs = append(errs, "simulation.process_budget must be positive")
	}
	if c.Simulation.DegradedThreshold < 1 {
		errs = append(errs, "simulation.degraded_threshold must be at least 1")
	}

	// Discovery validation
	if c.Discovery.HeartbeatInterval <= 0 {
		errs = append(errs, "discovery.heartbeat_interval must be positive")
	}
	if c.Discovery.DeviceTimeout <= c.Discovery.HeartbeatInterval {
		errs = append(errs, "discovery.device_timeout must exceed discovery.heartbeat_interval")
	}
	if c.Discovery.MaxTrackedDevices < 1 {
		errs = append(errs, "discovery.max_tracked_devices must be at least 1")
	}

	// Database validation
	if c.Journal.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the journal is enabled")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Uplink.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when the uplink is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set WINDLASS_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// JournalRetention returns the journal retention window as a Duration.
func (c *Config) JournalRetention() time.Duration {
	return time.Duration(c.Journal.RetentionHours) * time.Hour
}
