package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/pulse/pkg/logger"
)

// Run submits the configured load, verifies every touched user and
// returns the statistics. Violations are reported as ErrViolations.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	log := logger.Get().Named("probe")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting rating probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("events", cfg.NumEvents),
		logger.Int("users", cfg.Users),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
	)

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, err
	}

	users := generateUsers(cfg.Users)
	events := generateEvents(cfg.NumEvents, users)
	if err := submitEvents(ctx, cfg, client, events, stats); err != nil {
		return stats, fmt.Errorf("event submission failed: %w", err)
	}
	if err := verifyUsers(ctx, cfg, client, users, stats); err != nil {
		return stats, fmt.Errorf("verification failed: %w", err)
	}

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, stats)

	if len(stats.Violations) > 0 {
		return stats, fmt.Errorf("%w: %d found", ErrViolations, len(stats.Violations))
	}
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg == nil:
		return fmt.Errorf("%w: nil config", ErrBadConfig)
	case cfg.BaseURL == "":
		return fmt.Errorf("%w: empty base url", ErrBadConfig)
	case cfg.NumEvents <= 0, cfg.Users <= 0, cfg.Workers <= 0:
		return fmt.Errorf("%w: events, users and workers must be positive", ErrBadConfig)
	case cfg.Floor >= cfg.Ceiling:
		return fmt.Errorf("%w: floor %d must be below ceiling %d", ErrBadConfig, cfg.Floor, cfg.Ceiling)
	}
	return nil
}

func checkServiceHealth(ctx context.Context, client *httpClient) error {
	status, _, err := client.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}
	logger.Get().Named("probe").Info(ctx, "final statistics",
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsRejected", stats.EventsRejected),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("usersChecked", stats.UsersChecked),
		logger.Int("entriesChecked", stats.EntriesChecked),
		logger.Int("violations", len(stats.Violations)),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("eventsPerSecond", eventsPerSecond),
	)
}
