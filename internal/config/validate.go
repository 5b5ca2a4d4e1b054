package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/pulse/internal/domain/tier"
)

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Rating.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Rating.Timezone, err)
	}
	return loc, nil
}

// Validate reports every problem at once, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Addr) == "" {
		add("addr must not be empty")
	}
	if c.MaxHistoryLimit <= 0 {
		add("max_history_limit must be positive")
	}

	switch c.Storage.Driver {
	case "postgres", "sqlite":
	default:
		add("storage.driver must be postgres or sqlite, got %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.DSN) == "" {
		add("storage.dsn must not be empty")
	}

	r := c.Rating
	if r.Floor >= r.Ceiling {
		add("rating.floor %d must be below rating.ceiling %d", r.Floor, r.Ceiling)
	}
	if r.Base < r.Floor || r.Base > r.Ceiling {
		add("rating.base %d must lie in [%d, %d]", r.Base, r.Floor, r.Ceiling)
	}
	if r.MaxDailyChange <= 0 {
		add("rating.max_daily_change must be positive")
	}
	if r.ScalingFactor <= 0 {
		add("rating.scaling_factor must be positive")
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		add("rating.timezone %q: %v", r.Timezone, err)
	}
	if r.CutoffHour < 0 || r.CutoffHour > 23 {
		add("rating.cutoff_hour must be within 0-23, got %d", r.CutoffHour)
	}
	if r.MaxBackfillDays <= 0 {
		add("rating.max_backfill_days must be positive")
	}
	if _, ok := tier.Default.Lookup(r.ReferenceTier); !ok {
		add("rating.reference_tier %q is not a known tier", r.ReferenceTier)
	}
	if r.DampeningPerTier < 0 || r.MaxDampening < 0 || r.MaxDampening >= 1 {
		add("rating dampening must be non-negative and below 1")
	}
	if c.Scoring.ComponentCap <= 0 {
		add("scoring.component_cap must be positive")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
}
