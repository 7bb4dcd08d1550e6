package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/openhive/hivecore/hive"

	"github.com/spf13/viper"
)

// Config stores all configuration of the service.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Fleet    FleetConfig    `mapstructure:"fleet"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig stores embedded database details.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // Path to .db file
}

// FleetConfig stores device cache settings.
type FleetConfig struct {
	DefaultSchedule string `mapstructure:"default_schedule"` // well-known fallback schedule name
}

// ChatConfig stores conversation router settings.
type ChatConfig struct {
	Workers       int    `mapstructure:"workers"`        // bounded reply-generation concurrency
	FallbackLine  string `mapstructure:"fallback_line"`  // spoken for unroutable requests
	EnableGlobals bool   `mapstructure:"enable_globals"` // global command interception
	LogNotify     bool   `mapstructure:"log_notify"`     // log context notifications
	LogRequests   bool   `mapstructure:"log_requests"`   // log every inbound request (verbose)
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // zerolog level name
	Pretty bool   `mapstructure:"pretty"` // console writer instead of JSON
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Set default values
	v.SetDefault("database.path", internal.DefaultDatabasePath)

	v.SetDefault("fleet.default_schedule", internal.DefaultScheduleName)

	v.SetDefault("chat.workers", internal.DefaultWorkerCount)
	v.SetDefault("chat.fallback_line", internal.FallbackLine)
	v.SetDefault("chat.enable_globals", true)
	v.SetDefault("chat.log_notify", true)
	v.SetDefault("chat.log_requests", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. chat.workers becomes CHAT_WORKERS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment are enough.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}
