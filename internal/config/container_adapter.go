package config

import (
	"github.com/garyjia/routine-ops/internal/container"
	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// ToContainerConfig converts the file-based configuration into the
// container's typed configuration. It assumes Validate has passed.
func (c *Config) ToContainerConfig() (*container.Config, error) {
	location, err := c.Scheduler.Location()
	if err != nil {
		return nil, err
	}
	generateAt, err := entity.ParseTimeOfDay(c.Scheduler.GenerateAt)
	if err != nil {
		return nil, err
	}
	closeAt, err := entity.ParseTimeOfDay(c.Scheduler.CloseAt)
	if err != nil {
		return nil, err
	}

	tokens := make(map[string]int64, len(c.Auth.OperatorTokens))
	for _, t := range c.Auth.OperatorTokens {
		tokens[t.Token] = t.ActorID
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Scheduler: container.SchedulerConfig{
			Location:   location,
			GenerateAt: generateAt,
			CloseAt:    closeAt,
			Enabled:    c.Scheduler.Enabled,
			JobTimeout: c.Scheduler.JobTimeout,
		},
		Auth: container.AuthConfig{
			SchedulerSecret: c.Auth.SchedulerSecret,
			OperatorTokens:  tokens,
		},
	}, nil
}
