// Package config defines and loads the application configuration.
package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig selects and configures the storage backend.
//
// "local" keeps the catalogue on disk next to the process: a bbolt index
// database plus a pebble blob database under DataDir. "postgres" stores both
// tiers server-side using DatabaseURL.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"      validate:"required,oneof=local postgres"`
	DataDir     string `mapstructure:"data_dir"     validate:"required_if=Backend local"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Backend postgres,omitempty,url"`

	// WriteWorkers and WriteQueueSize tune the background note-body write
	// queue. Zero values fall back to the queue's defaults.
	WriteWorkers   int `mapstructure:"write_workers"`
	WriteQueueSize int `mapstructure:"write_queue_size"`
}
