package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalYAML = `
auth:
  scheduler_secret: from-file
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithEnvFile(writeFile(t, "config.yaml", minimalYAML), "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "data/routines.db", cfg.Database.Path)
	assert.Equal(t, "UTC", cfg.Scheduler.Timezone)
	assert.Equal(t, "00:05", cfg.Scheduler.GenerateAt)
	assert.Equal(t, "00:01", cfg.Scheduler.CloseAt)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.JobTimeout)
	assert.Equal(t, "from-file", cfg.Auth.SchedulerSecret)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: 9090
scheduler:
  timezone: America/Mexico_City
  generate_at: "01:30"
  job_timeout: 2m
auth:
  operator_tokens:
    - token: OpsToken
      actor_id: 77
`)
	cfg, err := LoadWithEnvFile(path, "")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "01:30", cfg.Scheduler.GenerateAt)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.JobTimeout)
	require.Len(t, cfg.Auth.OperatorTokens, 1)
	assert.Equal(t, OperatorToken{Token: "OpsToken", ActorID: 77}, cfg.Auth.OperatorTokens[0])

	loc, err := cfg.Scheduler.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Mexico_City", loc.String())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ROUTINE_SCHEDULER_SECRET", "from-env")
	t.Setenv("ROUTINE_DB_PATH", "/var/lib/routines.db")
	t.Setenv("ROUTINE_SERVER_PORT", "7070")
	t.Setenv("ROUTINE_OPERATOR_TOKENS", "alpha:1, beta:2")

	cfg, err := LoadWithEnvFile(writeFile(t, "config.yaml", minimalYAML), "")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.SchedulerSecret)
	assert.Equal(t, "/var/lib/routines.db", cfg.Database.Path)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []OperatorToken{{Token: "alpha", ActorID: 1}, {Token: "beta", ActorID: 2}}, cfg.Auth.OperatorTokens)
}

func TestLoad_DotEnvFile(t *testing.T) {
	envPath := writeFile(t, ".env", "ROUTINE_TIMEZONE=Europe/Madrid\n")
	t.Cleanup(func() { os.Unsetenv("ROUTINE_TIMEZONE") })

	cfg, err := LoadWithEnvFile(writeFile(t, "config.yaml", minimalYAML), envPath)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", cfg.Scheduler.Timezone)

	_, err = LoadWithEnvFile(writeFile(t, "config.yaml", minimalYAML), filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadWithEnvFile(filepath.Join(t.TempDir(), "absent.yaml"), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Path: "x.db"},
			Scheduler: SchedulerConfig{Timezone: "UTC", GenerateAt: "00:05", CloseAt: "00:01"},
			Auth:      AuthConfig{SchedulerSecret: "s"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"unknown timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, "scheduler.timezone"},
		{"bad generate time", func(c *Config) { c.Scheduler.GenerateAt = "25:00" }, "scheduler.generate_at"},
		{"bad close time", func(c *Config) { c.Scheduler.CloseAt = "noon" }, "scheduler.close_at"},
		{"no credentials", func(c *Config) { c.Auth.SchedulerSecret = "" }, "auth.scheduler_secret"},
		{"token without actor", func(c *Config) {
			c.Auth.OperatorTokens = []OperatorToken{{Token: "t"}}
		}, "auth.operator_tokens[0]"},
		{"duplicate token", func(c *Config) {
			c.Auth.OperatorTokens = []OperatorToken{{Token: "t", ActorID: 1}, {Token: "t", ActorID: 2}}
		}, "duplicate token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8080},
		Database:  DatabaseConfig{Path: "x.db", BusyTimeout: time.Second},
		Scheduler: SchedulerConfig{Timezone: "America/Mexico_City", GenerateAt: "00:05", CloseAt: "00:01", Enabled: true},
		Auth:      AuthConfig{SchedulerSecret: "s", OperatorTokens: []OperatorToken{{Token: "t", ActorID: 5}}},
	}

	out, err := cfg.ToContainerConfig()
	require.NoError(t, err)
	assert.Equal(t, "America/Mexico_City", out.Scheduler.Location.String())
	assert.Equal(t, "00:05:00", out.Scheduler.GenerateAt.String())
	assert.Equal(t, map[string]int64{"t": 5}, out.Auth.OperatorTokens)
	assert.Equal(t, time.Second, out.Database.BusyTimeout)
	assert.NoError(t, out.Validate())
}
