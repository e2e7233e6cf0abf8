package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // operating timezones must resolve on minimal images

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// SchedulerConfig holds the daily job configuration
type SchedulerConfig struct {
	Timezone   string        `mapstructure:"timezone"`
	GenerateAt string        `mapstructure:"generate_at"`
	CloseAt    string        `mapstructure:"close_at"`
	Enabled    bool          `mapstructure:"enabled"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// AuthConfig holds API credentials
type AuthConfig struct {
	SchedulerSecret string          `mapstructure:"scheduler_secret"`
	OperatorTokens  []OperatorToken `mapstructure:"operator_tokens"`
}

// OperatorToken maps a bearer token to the operator it authenticates
type OperatorToken struct {
	Token   string `mapstructure:"token"`
	ActorID int64  `mapstructure:"actor_id"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configuration from configPath, an optional .env file in the
// working directory and ROUTINE_* environment variables.
func Load(configPath string) (*Config, error) {
	return LoadWithEnvFile(configPath, ".env")
}

// LoadWithEnvFile is Load with an explicit .env path. A missing .env file is
// not an error; variables already set in the environment win over it.
func LoadWithEnvFile(configPath, envPath string) (*Config, error) {
	if envPath != "" {
		if err := gotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("ROUTINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	tokens, err := parseOperatorTokens(os.Getenv("ROUTINE_OPERATOR_TOKENS"))
	if err != nil {
		return nil, err
	}
	cfg.Auth.OperatorTokens = append(cfg.Auth.OperatorTokens, tokens...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "data/routines.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.generate_at", "00:05")
	v.SetDefault("scheduler.close_at", "00:01")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.job_timeout", 10*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the short secret names deployments already use
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("auth.scheduler_secret", "ROUTINE_SCHEDULER_SECRET")
	_ = v.BindEnv("database.path", "ROUTINE_DB_PATH")
	_ = v.BindEnv("scheduler.timezone", "ROUTINE_TIMEZONE")
}

// parseOperatorTokens reads "token:actorID" pairs separated by commas
func parseOperatorTokens(raw string) ([]OperatorToken, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var tokens []OperatorToken
	for _, pair := range strings.Split(raw, ",") {
		token, id, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("ROUTINE_OPERATOR_TOKENS: expected token:actor_id, got %q", pair)
		}
		actorID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ROUTINE_OPERATOR_TOKENS: invalid actor id %q", id)
		}
		tokens = append(tokens, OperatorToken{Token: token, ActorID: actorID})
	}
	return tokens, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if _, err := c.Scheduler.Location(); err != nil {
		return err
	}
	if _, err := entity.ParseTimeOfDay(c.Scheduler.GenerateAt); err != nil {
		return fmt.Errorf("scheduler.generate_at: %w", err)
	}
	if _, err := entity.ParseTimeOfDay(c.Scheduler.CloseAt); err != nil {
		return fmt.Errorf("scheduler.close_at: %w", err)
	}

	if c.Auth.SchedulerSecret == "" && len(c.Auth.OperatorTokens) == 0 {
		return fmt.Errorf("auth.scheduler_secret or auth.operator_tokens is required")
	}
	seen := make(map[string]bool, len(c.Auth.OperatorTokens))
	for i, t := range c.Auth.OperatorTokens {
		if t.Token == "" || t.ActorID <= 0 {
			return fmt.Errorf("auth.operator_tokens[%d]: token and a positive actor_id are required", i)
		}
		if seen[t.Token] {
			return fmt.Errorf("auth.operator_tokens[%d]: duplicate token", i)
		}
		seen[t.Token] = true
	}

	return nil
}

// Location loads the operating timezone
func (s SchedulerConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}
