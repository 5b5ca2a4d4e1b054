// Package scoring turns a user's raw daily signals into bounded component
// scores and a discipline penalty.
package scoring

import (
	"context"
	"errors"
	"time"

	"github.com/okian/pulse/internal/domain/calendar"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Component names, used in logs, metrics and Breakdown.Degraded.
const (
	ComponentStudy      = "study"
	ComponentPlan       = "plan"
	ComponentBudget     = "budget"
	ComponentActivity   = "activity"
	ComponentDiscipline = "discipline"
)

// TaskDeletion is a task removed by the user inside the window.
type TaskDeletion struct {
	DueDate     string
	Completed   bool
	CompletedAt *time.Time
	DeletedAt   time.Time
}

// TaskStats summarises a user's tasks for one day.
type TaskStats struct {
	// Completed counts tasks whose completion falls in the window.
	Completed int
	// MissedDue counts tasks due that day and still open.
	MissedDue int
	Deletions []TaskDeletion
}

// BudgetStats summarises spending for one day.
type BudgetStats struct {
	HasBudget    bool
	MonthlyLimit decimal.Decimal
	Spent        decimal.Decimal
	Expenses     int
}

// StudySource reports minutes studied in a window.
type StudySource interface {
	StudyMinutes(ctx context.Context, userID string, w calendar.Window) (int, error)
}

// TaskSource reports task planning and completion in a window.
type TaskSource interface {
	TaskStats(ctx context.Context, userID string, w calendar.Window) (TaskStats, error)
}

// BudgetSource reports spending against the user's budget in a window.
type BudgetSource interface {
	BudgetStats(ctx context.Context, userID string, w calendar.Window) (BudgetStats, error)
}

// ActivitySource reports logged activity minutes in a window.
type ActivitySource interface {
	ActivityMinutes(ctx context.Context, userID string, w calendar.Window) (int, error)
}

// Sources bundles the data sources the calculators read. A nil source makes
// its component degrade to neutral.
type Sources struct {
	Study    StudySource
	Tasks    TaskSource
	Budget   BudgetSource
	Activity ActivitySource
}

// Calculator computes one component for a user and window. Implementations
// only read; they never write.
type Calculator interface {
	Name() string
	Score(ctx context.Context, userID string, w calendar.Window) (float64, error)
}

// Components is the output of one scoring pass.
type Components struct {
	Study             float64
	Plan              float64
	Budget            float64
	Activity          float64
	DisciplinePenalty float64
	// Degraded lists components that fell back to neutral, in fixed order.
	Degraded []string
}

// Params tunes the calculators.
type Params struct {
	ComponentCap          float64
	StudyPointsPerHour    float64
	ActivityPointsPerHour float64
	PlanCompletionPoints  float64
	PlanMissPoints        float64
	BudgetRewardPoints    float64
	BudgetOverspendPoints float64
	SameDayDeletePenalty  float64
	LateEditPenalty       float64
}

// DefaultParams returns the built-in tuning.
func DefaultParams() Params {
	return Params{
		ComponentCap:          50,
		StudyPointsPerHour:    20,
		ActivityPointsPerHour: 10,
		PlanCompletionPoints:  10,
		PlanMissPoints:        5,
		BudgetRewardPoints:    10,
		BudgetOverspendPoints: 20,
		SameDayDeletePenalty:  5,
		LateEditPenalty:       3,
	}
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithParams replaces the default tuning.
func WithParams(p Params) Option {
	return func(s *Scorer) {
		s.params = p
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCalendar sets the calendar used for cutoff-hour checks.
func WithCalendar(c *calendar.Calendar) Option {
	return func(s *Scorer) {
		if c != nil {
			s.cal = c
		}
	}
}

// Scorer runs every calculator for a user and window.
type Scorer struct {
	params  Params
	cal     *calendar.Calendar
	logger  logger.Logger
	sources Sources

	calculators []Calculator
}

// NewScorer builds a Scorer over the given sources.
func NewScorer(sources Sources, opts ...Option) *Scorer {
	s := &Scorer{
		params:  DefaultParams(),
		cal:     calendar.New(),
		sources: sources,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scoring")
	}

	s.calculators = []Calculator{
		&StudyCalculator{source: sources.Study, params: s.params},
		&PlanCalculator{source: sources.Tasks, params: s.params},
		&BudgetCalculator{source: sources.Budget, params: s.params},
		&ActivityCalculator{source: sources.Activity, params: s.params},
		&DisciplineCalculator{source: sources.Tasks, params: s.params, cal: s.cal},
	}
	return s
}

// Calculate runs the calculators concurrently. A failing data source
// degrades its component to zero; only context cancellation aborts.
func (s *Scorer) Calculate(ctx context.Context, userID string, w calendar.Window) (Components, error) {
	scores := make([]float64, len(s.calculators))
	failed := make([]bool, len(s.calculators))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range s.calculators {
		g.Go(func() error {
			v, err := c.Score(gctx, userID, w)
			if err == nil {
				scores[i] = v
				return nil
			}
			if ctxErr := gctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return err
			}
			failed[i] = true
			s.logger.Warn(gctx, "score component degraded to neutral",
				logger.String("component", c.Name()),
				logger.String("userID", userID),
				logger.String("day", w.Day.String()),
				logger.Error(err),
			)
			metrics.RecordComponentDegraded(c.Name())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Components{}, err
	}
	if err := ctx.Err(); err != nil {
		return Components{}, err
	}

	var out Components
	for i, c := range s.calculators {
		if failed[i] {
			out.Degraded = append(out.Degraded, c.Name())
			continue
		}
		switch c.Name() {
		case ComponentStudy:
			out.Study = scores[i]
		case ComponentPlan:
			out.Plan = scores[i]
		case ComponentBudget:
			out.Budget = scores[i]
		case ComponentActivity:
			out.Activity = scores[i]
		case ComponentDiscipline:
			out.DisciplinePenalty = scores[i]
		}
	}
	return out, nil
}

// clamp bounds v to [-limit, limit]. A non-positive limit disables it.
func clamp(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
