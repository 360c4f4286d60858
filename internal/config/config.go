// Package config loads server configuration from a JSON file via viper and
// provides typed accessors for the sections the rest of the code consumes.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// StorageConfig selects and configures the round storage backend.
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"` // "memory", "sqlite", "postgres", "relay"
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	Sqlite   SqliteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
	Relay    RelayConfig    `json:"relay" mapstructure:"relay"`
}

// MemoryConfig holds in-memory/JSON storage backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SqliteConfig holds SQLite storage backend settings.
type SqliteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// PostgresConfig holds Postgres storage backend settings.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// RelayConfig holds collector streaming backend settings.
type RelayConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from a JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName("lander.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// SetDefaults registers default values for every config key. Split out from
// Load so tests and callers without a config file still get a full config.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("server.listenAddr", ":8765")

	viper.SetDefault("sim.tickMillis", 33)
	viper.SetDefault("sim.joystickDeadZone", 0.10)

	viper.SetDefault("gamepad.axisStrafeX", 0)
	viper.SetDefault("gamepad.axisStrafeY", 1)
	viper.SetDefault("gamepad.axisRoll", 2)
	viper.SetDefault("gamepad.axisPitch", 3)
	viper.SetDefault("gamepad.buttonYawLeft", 4)
	viper.SetDefault("gamepad.buttonYawRight", 5)
	viper.SetDefault("gamepad.buttonRodUp", 6)
	viper.SetDefault("gamepad.buttonRodDown", 7)
	viper.SetDefault("gamepad.buttonStart", 9)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./recordings/rounds.db")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "lander")
	viper.SetDefault("storage.relay.url", "")
	viper.SetDefault("storage.relay.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "lander-metrics")

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "lander-server")
	viper.SetDefault("otel.batchTimeoutSeconds", 5)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", false)
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() (StorageConfig, error) {
	var cfg StorageConfig
	if err := viper.UnmarshalKey("storage", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling storage config: %w", err)
	}
	return cfg, nil
}

// GetOTelConfig returns the OpenTelemetry section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: time.Duration(viper.GetInt("otel.batchTimeoutSeconds")) * time.Second,
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
