package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures deep inside a run.
func (c *Config) Validate() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must not be empty")
	}
	if c.Segments.DurationSeconds <= 0 {
		return fmt.Errorf("segments.duration_seconds must be positive, got %d", c.Segments.DurationSeconds)
	}
	if c.Segments.MinTailSeconds < 0 {
		return fmt.Errorf("segments.min_tail_seconds must not be negative, got %d", c.Segments.MinTailSeconds)
	}
	if c.Segments.MaxPerItem <= 0 {
		return fmt.Errorf("segments.max_per_item must be positive, got %d", c.Segments.MaxPerItem)
	}
	if c.Publish.CostUnits <= 0 {
		return fmt.Errorf("publish.cost_units must be positive, got %d", c.Publish.CostUnits)
	}
	if c.Quota.DailyBudget <= 0 {
		return fmt.Errorf("quota.daily_budget must be positive, got %d", c.Quota.DailyBudget)
	}
	if c.Quota.DailyBudget < c.Publish.CostUnits {
		return fmt.Errorf("quota.daily_budget (%d) is smaller than publish.cost_units (%d); no publish could ever be granted",
			c.Quota.DailyBudget, c.Publish.CostUnits)
	}
	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		return fmt.Errorf("quota.timezone: %w", err)
	}
	if c.Scheduler.MaxItemsPerRun <= 0 {
		return fmt.Errorf("scheduler.max_items_per_run must be positive, got %d", c.Scheduler.MaxItemsPerRun)
	}
	if c.Scheduler.RetryCeiling < 0 {
		return fmt.Errorf("scheduler.retry_ceiling must not be negative, got %d", c.Scheduler.RetryCeiling)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// QuotaLocation returns the parsed reference timezone. Validate guarantees it
// parses, so failures here indicate the config was mutated after load.
func (c *Config) QuotaLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load quota timezone: %w", err)
	}
	return loc, nil
}
