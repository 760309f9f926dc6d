// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
}

// ServiceConfig identifies the service in logs.
type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string
	MaxConns       int32
	MinConns       int32
	MaxConnTime    time.Duration
	MaxIdleTime    time.Duration
	MigrationsPath string
}

// NATSConfig holds notification bus settings. An empty URL disables
// notifications.
type NATSConfig struct {
	URL string
}

// Load reads configuration from environment variables and an optional .env
// file in the working directory.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// A missing .env is fine; the environment is authoritative anyway.
	_ = viper.ReadInConfig()

	setDefaults()

	return &Config{
		Service: ServiceConfig{
			Name:        viper.GetString("SERVICE_NAME"),
			Version:     viper.GetString("SERVICE_VERSION"),
			Environment: viper.GetString("ENVIRONMENT"),
		},
		Server: ServerConfig{
			Port:            viper.GetInt("HTTP_PORT"),
			ReadTimeout:     viper.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout:    viper.GetDuration("HTTP_WRITE_TIMEOUT"),
			IdleTimeout:     viper.GetDuration("HTTP_IDLE_TIMEOUT"),
			RequestTimeout:  viper.GetDuration("HTTP_REQUEST_TIMEOUT"),
			ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:           viper.GetString("DB_HOST"),
			Port:           viper.GetInt("DB_PORT"),
			User:           viper.GetString("DB_USER"),
			Password:       viper.GetString("DB_PASSWORD"),
			Database:       viper.GetString("DB_NAME"),
			SSLMode:        viper.GetString("DB_SSLMODE"),
			MaxConns:       viper.GetInt32("DB_MAX_CONNS"),
			MinConns:       viper.GetInt32("DB_MIN_CONNS"),
			MaxConnTime:    viper.GetDuration("DB_MAX_CONN_LIFETIME"),
			MaxIdleTime:    viper.GetDuration("DB_MAX_CONN_IDLE_TIME"),
			MigrationsPath: viper.GetString("DB_MIGRATIONS_PATH"),
		},
		NATS: NATSConfig{
			URL: viper.GetString("NATS_URL"),
		},
	}, nil
}

func setDefaults() {
	viper.SetDefault("SERVICE_NAME", "be-pf-requests")
	viper.SetDefault("SERVICE_VERSION", "dev")
	viper.SetDefault("ENVIRONMENT", "development")

	viper.SetDefault("HTTP_PORT", 8086)
	viper.SetDefault("HTTP_READ_TIMEOUT", 15*time.Second)
	viper.SetDefault("HTTP_WRITE_TIMEOUT", 15*time.Second)
	viper.SetDefault("HTTP_IDLE_TIMEOUT", 60*time.Second)
	viper.SetDefault("HTTP_REQUEST_TIMEOUT", 30*time.Second)
	viper.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "pf_requests")
	viper.SetDefault("DB_NAME", "pf_requests")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 25)
	viper.SetDefault("DB_MIN_CONNS", 2)
	viper.SetDefault("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	viper.SetDefault("DB_MAX_CONN_IDLE_TIME", 5*time.Minute)
	viper.SetDefault("DB_MIGRATIONS_PATH", "migrations")

	viper.SetDefault("NATS_URL", "")
}
