package probe

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/okian/pulse/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// submitEvents posts every event with at most cfg.Workers in flight.
// Individual failures are counted, not returned.
func submitEvents(ctx context.Context, cfg *Config, client *httpClient, events []Event, stats *Stats) error {
	log := logger.Get().Named("probe")
	log.Info(ctx, "submitting events",
		logger.Int("events", len(events)),
		logger.Int("workers", cfg.Workers),
	)

	var successful, rejected, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, ev := range events {
		g.Go(func() error {
			status, body, err := client.post(gctx, "/events", ev)
			switch {
			case err != nil:
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "event failed", logger.String("userID", ev.UserID), logger.Error(err))
				}
			case status == http.StatusOK:
				successful.Add(1)
			case status == http.StatusBadRequest:
				rejected.Add(1)
			default:
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "event failed",
						logger.String("userID", ev.UserID),
						logger.Int("status", status),
						logger.String("body", string(body)),
					)
				}
			}
			return gctx.Err()
		})
	}
	err := g.Wait()

	stats.EventsSubmitted = int(successful.Load() + rejected.Load() + failed.Load())
	stats.EventsSuccessful = int(successful.Load())
	stats.EventsRejected = int(rejected.Load())
	stats.EventsFailed = int(failed.Load())
	return err
}
