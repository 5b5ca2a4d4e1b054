// Package config defines service configuration structures and loading hooks.
package config

import (
	"github.com/okian/pulse/internal/domain/dps"
	"github.com/okian/pulse/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, also writes logs to a size-rotated file.
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb"`
	LogMaxBackups int    `koanf:"log_max_backups"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MaxHistoryLimit caps GET /history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	Storage StorageConfig `koanf:"storage"`
	Rating  RatingConfig  `koanf:"rating"`
	Scoring ScoringConfig `koanf:"scoring"`
	Weights WeightsConfig `koanf:"weights"`
}

// StorageConfig selects the database.
type StorageConfig struct {
	// Driver is postgres or sqlite.
	Driver       string `koanf:"driver"`
	DSN          string `koanf:"dsn"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// RatingConfig bounds the rating and fixes the calendar.
type RatingConfig struct {
	Base           int     `koanf:"base"`
	Floor          int     `koanf:"floor"`
	Ceiling        int     `koanf:"ceiling"`
	MaxDailyChange int     `koanf:"max_daily_change"`
	ScalingFactor  float64 `koanf:"scaling_factor"`

	// Timezone is the IANA name every day boundary is evaluated in.
	Timezone   string `koanf:"timezone"`
	CutoffHour int    `koanf:"cutoff_hour"`

	MaxBackfillDays int `koanf:"max_backfill_days"`

	ReferenceTier    string  `koanf:"reference_tier"`
	DampeningPerTier float64 `koanf:"dampening_per_tier"`
	MaxDampening     float64 `koanf:"max_dampening"`

	FinalizedCacheSize int `koanf:"finalized_cache_size"`
}

// ScoringConfig tunes the component calculators.
type ScoringConfig struct {
	ComponentCap          float64 `koanf:"component_cap"`
	StudyPointsPerHour    float64 `koanf:"study_points_per_hour"`
	ActivityPointsPerHour float64 `koanf:"activity_points_per_hour"`
	PlanCompletionPoints  float64 `koanf:"plan_completion_points"`
	PlanMissPoints        float64 `koanf:"plan_miss_points"`
	BudgetRewardPoints    float64 `koanf:"budget_reward_points"`
	BudgetOverspendPoints float64 `koanf:"budget_overspend_points"`
	SameDayDeletePenalty  float64 `koanf:"same_day_delete_penalty"`
	LateEditPenalty       float64 `koanf:"late_edit_penalty"`
}

// WeightsConfig scales each component in the DPS sum.
type WeightsConfig struct {
	Study    float64 `koanf:"study"`
	Plan     float64 `koanf:"plan"`
	Budget   float64 `koanf:"budget"`
	Activity float64 `koanf:"activity"`
}

// New creates a Config with defaults.
func New() *Config {
	sp := scoring.DefaultParams()
	dp := dps.DefaultParams()
	return &Config{
		LogLevel:        "info",
		LogMaxSizeMB:    50,
		LogMaxBackups:   5,
		Addr:            ":9080",
		MaxHistoryLimit: 365,
		Storage: StorageConfig{
			Driver:       "sqlite",
			DSN:          "file:pulse.db?cache=shared",
			AutoMigrate:  true,
			MaxOpenConns: 10,
		},
		Rating: RatingConfig{
			Base:               1000,
			Floor:              dp.Floor,
			Ceiling:            dp.Ceiling,
			MaxDailyChange:     dp.MaxDailyChange,
			ScalingFactor:      dp.ScalingFactor,
			Timezone:           "UTC",
			CutoffHour:         6,
			MaxBackfillDays:    366,
			ReferenceTier:      dp.ReferenceTier,
			DampeningPerTier:   dp.DampeningPerTier,
			MaxDampening:       dp.MaxDampening,
			FinalizedCacheSize: 10000,
		},
		Scoring: ScoringConfig{
			ComponentCap:          sp.ComponentCap,
			StudyPointsPerHour:    sp.StudyPointsPerHour,
			ActivityPointsPerHour: sp.ActivityPointsPerHour,
			PlanCompletionPoints:  sp.PlanCompletionPoints,
			PlanMissPoints:        sp.PlanMissPoints,
			BudgetRewardPoints:    sp.BudgetRewardPoints,
			BudgetOverspendPoints: sp.BudgetOverspendPoints,
			SameDayDeletePenalty:  sp.SameDayDeletePenalty,
			LateEditPenalty:       sp.LateEditPenalty,
		},
		Weights: WeightsConfig{
			Study:    dp.Weights.Study,
			Plan:     dp.Weights.Plan,
			Budget:   dp.Weights.Budget,
			Activity: dp.Weights.Activity,
		},
	}
}

// ScoringParams converts the scoring section for the calculators.
func (c *Config) ScoringParams() scoring.Params {
	s := c.Scoring
	return scoring.Params{
		ComponentCap:          s.ComponentCap,
		StudyPointsPerHour:    s.StudyPointsPerHour,
		ActivityPointsPerHour: s.ActivityPointsPerHour,
		PlanCompletionPoints:  s.PlanCompletionPoints,
		PlanMissPoints:        s.PlanMissPoints,
		BudgetRewardPoints:    s.BudgetRewardPoints,
		BudgetOverspendPoints: s.BudgetOverspendPoints,
		SameDayDeletePenalty:  s.SameDayDeletePenalty,
		LateEditPenalty:       s.LateEditPenalty,
	}
}

// DPSParams converts the rating and weights sections for the aggregator.
func (c *Config) DPSParams() dps.Params {
	r := c.Rating
	return dps.Params{
		Weights: dps.Weights{
			Study:    c.Weights.Study,
			Plan:     c.Weights.Plan,
			Budget:   c.Weights.Budget,
			Activity: c.Weights.Activity,
		},
		ScalingFactor:    r.ScalingFactor,
		MaxDailyChange:   r.MaxDailyChange,
		Floor:            r.Floor,
		Ceiling:          r.Ceiling,
		ReferenceTier:    r.ReferenceTier,
		DampeningPerTier: r.DampeningPerTier,
		MaxDampening:     r.MaxDampening,
	}
}
