// Package container provides dependency injection and lifecycle management
// for the routine operations service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Server configuration
	Server ServerConfig

	// Scheduler configuration for the daily generate and close jobs
	Scheduler SchedulerConfig

	// Auth configuration for the HTTP API
	Auth AuthConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits on a locked database
	BusyTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration
}

// SchedulerConfig holds background job settings.
type SchedulerConfig struct {
	// Location is the operating timezone. Civil dates and deadlines are
	// computed in it.
	Location *time.Location

	// GenerateAt is the local time the materializer runs for today
	GenerateAt entity.TimeOfDay

	// CloseAt is the local time overdue tasks are marked missed
	CloseAt entity.TimeOfDay

	// Enabled starts the daily jobs. The CLI runs with it off.
	Enabled bool

	// JobTimeout bounds a single job run
	JobTimeout time.Duration
}

// AuthConfig holds API credentials.
type AuthConfig struct {
	// SchedulerSecret authenticates external schedulers
	SchedulerSecret string

	// OperatorTokens maps bearer tokens to operator actor IDs
	OperatorTokens map[string]int64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/routines.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Location:   time.UTC,
			GenerateAt: entity.MustParseTimeOfDay("00:05"),
			CloseAt:    entity.MustParseTimeOfDay("00:01"),
			Enabled:    true,
			JobTimeout: 10 * time.Minute,
		},
		Auth: AuthConfig{
			OperatorTokens: make(map[string]int64),
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Scheduler.Location == nil {
		return fmt.Errorf("scheduler.location is required")
	}
	if c.Scheduler.JobTimeout < 0 {
		return fmt.Errorf("scheduler.job_timeout must not be negative")
	}
	return nil
}
