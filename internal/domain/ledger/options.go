package ledger

import (
	"github.com/okian/pulse/internal/domain/calendar"
	"github.com/okian/pulse/internal/domain/dedupe"
	"github.com/okian/pulse/internal/domain/dps"
	"github.com/okian/pulse/internal/domain/tier"
	"github.com/okian/pulse/pkg/logger"
)

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Ledger) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCalendar sets the calendar used for day boundaries.
func WithCalendar(c *calendar.Calendar) Option {
	return func(s *Ledger) {
		if c != nil {
			s.cal = c
		}
	}
}

// WithAggregator replaces the default aggregator.
func WithAggregator(a *dps.Aggregator) Option {
	return func(s *Ledger) {
		if a != nil {
			s.agg = a
		}
	}
}

// WithCache sets the finalized-day cache.
func WithCache(c dedupe.Cache) Option {
	return func(s *Ledger) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithTiers replaces the rank table.
func WithTiers(t tier.Table) Option {
	return func(s *Ledger) {
		if len(t) > 0 {
			s.tiers = t
		}
	}
}

// WithBaseRating sets the rating new users start at.
func WithBaseRating(r int) Option {
	return func(s *Ledger) {
		s.baseRating = r
	}
}

// WithMaxBackfillDays bounds how many elapsed days one call may finalize.
func WithMaxBackfillDays(n int) Option {
	return func(s *Ledger) {
		if n > 0 {
			s.maxBackfillDays = n
		}
	}
}
