package scoring

import (
	"context"
	"fmt"

	"github.com/okian/pulse/internal/domain/calendar"
	"github.com/shopspring/decimal"
)

// sourceErr tags err with the component and ErrSourceUnavailable, leaving
// context errors matchable for the caller.
func sourceErr(component string, err error) error {
	return fmt.Errorf("%s: %w: %w", component, ErrSourceUnavailable, err)
}

func missingSource(component string) error {
	return fmt.Errorf("%s: %w: no source configured", component, ErrSourceUnavailable)
}

// StudyCalculator rewards logged study time.
type StudyCalculator struct {
	source StudySource
	params Params
}

// Name implements Calculator.
func (c *StudyCalculator) Name() string { return ComponentStudy }

// Score implements Calculator.
func (c *StudyCalculator) Score(ctx context.Context, userID string, w calendar.Window) (float64, error) {
	if c.source == nil {
		return 0, missingSource(c.Name())
	}
	minutes, err := c.source.StudyMinutes(ctx, userID, w)
	if err != nil {
		return 0, sourceErr(c.Name(), err)
	}
	return clamp(float64(minutes)*c.params.StudyPointsPerHour/60, c.params.ComponentCap), nil
}

// PlanCalculator rewards completed tasks and, once the day has closed,
// punishes tasks left open past their due date.
type PlanCalculator struct {
	source TaskSource
	params Params
}

// Name implements Calculator.
func (c *PlanCalculator) Name() string { return ComponentPlan }

// Score implements Calculator.
func (c *PlanCalculator) Score(ctx context.Context, userID string, w calendar.Window) (float64, error) {
	if c.source == nil {
		return 0, missingSource(c.Name())
	}
	st, err := c.source.TaskStats(ctx, userID, w)
	if err != nil {
		return 0, sourceErr(c.Name(), err)
	}
	score := float64(st.Completed) * c.params.PlanCompletionPoints
	// today's open tasks can still be completed
	if w.Closed {
		score -= float64(st.MissedDue) * c.params.PlanMissPoints
	}
	return clamp(score, c.params.ComponentCap), nil
}

// BudgetCalculator scores spending against a daily share of the monthly
// budget. Users without a budget score zero.
type BudgetCalculator struct {
	source BudgetSource
	params Params
}

// Name implements Calculator.
func (c *BudgetCalculator) Name() string { return ComponentBudget }

// Score implements Calculator.
func (c *BudgetCalculator) Score(ctx context.Context, userID string, w calendar.Window) (float64, error) {
	if c.source == nil {
		return 0, missingSource(c.Name())
	}
	st, err := c.source.BudgetStats(ctx, userID, w)
	if err != nil {
		return 0, sourceErr(c.Name(), err)
	}
	return clamp(c.score(st, w), c.params.ComponentCap), nil
}

func (c *BudgetCalculator) score(st BudgetStats, w calendar.Window) float64 {
	if !st.HasBudget || !st.MonthlyLimit.IsPositive() {
		return 0
	}
	reward := c.params.BudgetRewardPoints
	if st.Expenses == 0 {
		if w.Closed {
			return reward / 2
		}
		return 0
	}

	allowance := st.MonthlyLimit.Div(decimal.NewFromInt(int64(w.Day.DaysInMonth())))
	ratio := st.Spent.Div(allowance).InexactFloat64()
	if ratio <= 1 {
		s := reward * (1 - ratio)
		if s < reward/2 {
			s = reward / 2
		}
		return s
	}
	return -c.params.BudgetOverspendPoints * (ratio - 1)
}

// ActivityCalculator rewards logged activity minutes.
type ActivityCalculator struct {
	source ActivitySource
	params Params
}

// Name implements Calculator.
func (c *ActivityCalculator) Name() string { return ComponentActivity }

// Score implements Calculator.
func (c *ActivityCalculator) Score(ctx context.Context, userID string, w calendar.Window) (float64, error) {
	if c.source == nil {
		return 0, missingSource(c.Name())
	}
	minutes, err := c.source.ActivityMinutes(ctx, userID, w)
	if err != nil {
		return 0, sourceErr(c.Name(), err)
	}
	return clamp(float64(minutes)*c.params.ActivityPointsPerHour/60, c.params.ComponentCap), nil
}

// DisciplineCalculator returns a non-negative penalty for gaming the plan:
// deleting a task on its due day, and deleting a completed task on the day
// of completion after the cutoff hour. Both can apply to one task. Penalties
// add up across the day; only the daily rating clamp bounds them.
type DisciplineCalculator struct {
	source TaskSource
	params Params
	cal    *calendar.Calendar
}

// Name implements Calculator.
func (c *DisciplineCalculator) Name() string { return ComponentDiscipline }

// Score implements Calculator.
func (c *DisciplineCalculator) Score(ctx context.Context, userID string, w calendar.Window) (float64, error) {
	if c.source == nil {
		return 0, missingSource(c.Name())
	}
	st, err := c.source.TaskStats(ctx, userID, w)
	if err != nil {
		return 0, sourceErr(c.Name(), err)
	}

	cutoff := c.cal.Cutoff(w.Day)
	var penalty float64
	for _, del := range st.Deletions {
		deletedOn := c.cal.DayOf(del.DeletedAt)
		if !deletedOn.Equal(w.Day) {
			continue
		}
		if del.DueDate == w.Day.String() {
			penalty += c.params.SameDayDeletePenalty
		}
		if del.Completed && del.CompletedAt != nil &&
			c.cal.DayOf(*del.CompletedAt).Equal(deletedOn) &&
			!del.DeletedAt.Before(cutoff) {
			penalty += c.params.LateEditPenalty
		}
	}
	return penalty, nil
}
