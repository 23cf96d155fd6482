package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	var errs []error

	switch c.Server.Store {
	case StorePostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("server.store must be %s or %s (got %q)", StorePostgres, StoreMemory, c.Server.Store))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range (got %d)", c.Server.Port))
	}

	if err := c.Log.validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if err := c.Notes.validate(); err != nil {
		errs = append(errs, fmt.Errorf("notes: %w", err))
	}

	if c.RateLimit.LeasePerMinute <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.lease_per_minute must be > 0 (got %d)", c.RateLimit.LeasePerMinute))
	}

	return errors.Join(errs...)
}

func (l LogConfig) validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	return nil
}

func (n NotesConfig) validate() error {
	if n.LeaseTTL <= 0 {
		return fmt.Errorf("lease_ttl must be > 0 (got %s)", n.LeaseTTL)
	}
	if n.MaxVersions <= 0 {
		return fmt.Errorf("max_versions must be > 0 (got %d)", n.MaxVersions)
	}
	return nil
}
