// Package dps folds component scores into a day's performance score and
// the resulting rating change.
package dps

import (
	"math"

	"github.com/okian/pulse/internal/domain/scoring"
	"github.com/okian/pulse/internal/domain/tier"
)

// Weights scales each component before summing.
type Weights struct {
	Study    float64
	Plan     float64
	Budget   float64
	Activity float64
}

// Params bounds and tunes the aggregation.
type Params struct {
	Weights          Weights
	ScalingFactor    float64
	MaxDailyChange   int
	Floor            int
	Ceiling          int
	ReferenceTier    string
	DampeningPerTier float64
	MaxDampening     float64
}

// DefaultParams returns the built-in tuning.
func DefaultParams() Params {
	return Params{
		Weights:          Weights{Study: 1, Plan: 1, Budget: 1, Activity: 1},
		ScalingFactor:    1,
		MaxDailyChange:   100,
		Floor:            0,
		Ceiling:          4000,
		ReferenceTier:    "Pupil",
		DampeningPerTier: 0.1,
		MaxDampening:     0.5,
	}
}

// Result is the outcome of aggregating one day.
type Result struct {
	RawDPS             float64
	RelativeAdjustment float64
	TotalDPS           float64
	Change             int
	NewRating          int
}

// Aggregator is pure: the same components and rating always give the same
// Result.
type Aggregator struct {
	params Params
	tiers  tier.Table
	ref    int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithParams replaces the default tuning.
func WithParams(p Params) Option {
	return func(a *Aggregator) {
		a.params = p
	}
}

// WithTiers replaces the default tier table.
func WithTiers(t tier.Table) Option {
	return func(a *Aggregator) {
		if len(t) > 0 {
			a.tiers = t
		}
	}
}

// New creates an Aggregator. An unknown reference tier disables dampening.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		params: DefaultParams(),
		tiers:  tier.Default,
	}
	for _, opt := range opts {
		opt(a)
	}
	if idx, ok := a.tiers.Lookup(a.params.ReferenceTier); ok {
		a.ref = idx
	} else {
		a.ref = -1
	}
	return a
}

// Params returns the active tuning.
func (a *Aggregator) Params() Params { return a.params }

// Aggregate computes the day's DPS and applies it to oldRating.
func (a *Aggregator) Aggregate(c scoring.Components, oldRating int) Result {
	w := a.params.Weights
	raw := w.Study*c.Study +
		w.Plan*c.Plan +
		w.Budget*c.Budget +
		w.Activity*c.Activity -
		c.DisciplinePenalty

	adj := -raw * a.dampening(raw, oldRating)
	total := raw + adj

	change := int(math.Round(total * a.params.ScalingFactor))
	if m := a.params.MaxDailyChange; m > 0 {
		change = clampInt(change, -m, m)
	}
	newRating := clampInt(oldRating+change, a.params.Floor, a.params.Ceiling)

	return Result{
		RawDPS:             raw,
		RelativeAdjustment: adj,
		TotalDPS:           total,
		Change:             newRating - oldRating,
		NewRating:          newRating,
	}
}

// dampening shrinks gains for users above the reference tier and losses for
// users below it.
func (a *Aggregator) dampening(raw float64, rating int) float64 {
	if a.ref < 0 || raw == 0 {
		return 0
	}
	steps := a.tiers.Steps(a.ref, rating)
	switch {
	case raw > 0 && steps > 0:
	case raw < 0 && steps < 0:
		steps = -steps
	default:
		return 0
	}
	return math.Min(float64(steps)*a.params.DampeningPerTier, a.params.MaxDampening)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
