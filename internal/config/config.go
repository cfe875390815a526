// Package config loads collector configuration. Precedence, lowest to
// highest: built-in defaults, YAML config file, LEDGERLOG_* environment
// variables, command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Syslog   ReceiverConfig `mapstructure:"syslog" yaml:"syslog"`
	REST     ReceiverConfig `mapstructure:"rest" yaml:"rest"`
	SNMP     ReceiverConfig `mapstructure:"snmp" yaml:"snmp"`
	Queue    QueueConfig    `mapstructure:"queue" yaml:"queue"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type ReceiverConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

type QueueConfig struct {
	BatchSize     int           `mapstructure:"batch_size" yaml:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load reads configuration. flags may be nil; when present, changed
// flags take precedence over file and environment values.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("database.path", "logs.db")
	v.SetDefault("syslog.enabled", true)
	v.SetDefault("syslog.port", 514)
	v.SetDefault("rest.enabled", true)
	v.SetDefault("rest.port", 8080)
	v.SetDefault("snmp.enabled", true)
	v.SetDefault("snmp.port", 162)
	v.SetDefault("queue.batch_size", 100)
	v.SetDefault("queue.flush_interval", "1s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ledgerlog")
	}

	// Environment variables override
	v.SetEnvPrefix("LEDGERLOG")
	v.AutomaticEnv()

	// Flag bindings
	if flags != nil {
		bindings := map[string]string{
			"database.path":        "database",
			"syslog.port":          "syslog-port",
			"rest.port":            "rest-port",
			"snmp.port":            "snmp-port",
			"queue.batch_size":     "batch-size",
			"queue.flush_interval": "flush-interval",
			"logging.level":        "log-level",
			"logging.format":       "log-format",
		}
		for key, name := range bindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file; defaults apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
