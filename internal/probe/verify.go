package probe

import (
	"context"
	"fmt"
	"net/url"

	"github.com/okian/pulse/pkg/logger"
)

// Rule names reported in violations.
const (
	RuleOneEntryPerDay = "one_entry_per_day"
	RuleBounds         = "bounds"
	RuleContinuity     = "continuity"
	RuleChange         = "change"
	RuleCurrent        = "current_matches_latest"
)

// verifyUsers fetches history and state for every user and checks them.
func verifyUsers(ctx context.Context, cfg *Config, client *httpClient, users []string, stats *Stats) error {
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		var (
			hist []historyEntry
			st   ratingState
		)
		path := url.PathEscape(u)
		if err := client.getJSON(ctx, "/history/"+path, &hist); err != nil {
			return fmt.Errorf("history %s: %w", u, err)
		}
		if err := client.getJSON(ctx, "/state/"+path, &st); err != nil {
			return fmt.Errorf("state %s: %w", u, err)
		}
		found := checkLedger(u, hist, st, cfg.Floor, cfg.Ceiling)
		if cfg.Verbose {
			for _, v := range found {
				logger.Get().Named("probe").Warn(ctx, "violation",
					logger.String("userID", v.UserID),
					logger.String("rule", v.Rule),
					logger.String("detail", v.Detail),
				)
			}
		}
		stats.Violations = append(stats.Violations, found...)
		stats.UsersChecked++
		stats.EntriesChecked += len(hist)
	}
	return nil
}

// checkLedger returns every invariant broken by one user's history, listed
// newest first, and their current state.
func checkLedger(userID string, hist []historyEntry, st ratingState, floor, ceiling int) []Violation {
	var out []Violation
	add := func(rule, format string, args ...any) {
		out = append(out, Violation{UserID: userID, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}
	inBounds := func(r int) bool { return r >= floor && r <= ceiling }

	seen := make(map[string]int, len(hist))
	for i, e := range hist {
		if n := seen[e.Date]; n > 0 {
			add(RuleOneEntryPerDay, "date %s appears %d times", e.Date, n+1)
		}
		seen[e.Date]++

		if !inBounds(e.OldRating) || !inBounds(e.NewRating) {
			add(RuleBounds, "date %s: %d -> %d outside [%d, %d]", e.Date, e.OldRating, e.NewRating, floor, ceiling)
		}
		if e.NewRating-e.OldRating != e.Change {
			add(RuleChange, "date %s: %d -> %d recorded as %+d", e.Date, e.OldRating, e.NewRating, e.Change)
		}
		if i+1 < len(hist) && hist[i+1].NewRating != e.OldRating {
			add(RuleContinuity, "date %s starts at %d but %s ended at %d",
				e.Date, e.OldRating, hist[i+1].Date, hist[i+1].NewRating)
		}
	}

	if !inBounds(st.CurrentRating) {
		add(RuleBounds, "current %d outside [%d, %d]", st.CurrentRating, floor, ceiling)
	}
	if len(hist) > 0 && st.LiveEntry.OldRating != hist[0].NewRating {
		add(RuleCurrent, "live starts at %d but %s ended at %d",
			st.LiveEntry.OldRating, hist[0].Date, hist[0].NewRating)
	}
	return out
}
