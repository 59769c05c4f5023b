// Package churn derives churn verdicts, corrected progress and bucketed
// durations from ingested session records.
package churn

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/retention-cli/internal/model"
)

// Params holds the business constants of the churn rules.
type Params struct {
	TerminalStates   []model.TutoringState
	CutoffWindowDays int
	MonthDays        int
	ShrinkFactor     float64
	WeeklyWeights    map[string]float64
	HorizonMonths    float64
	PlanGroups       []int
	Workers          int
}

// DefaultParams returns the standard constants: a 30-day staleness window,
// 28-day months, 0.8 shrink and a 36-month horizon.
func DefaultParams() Params {
	return Params{
		TerminalStates:   model.DefaultTerminalStates,
		CutoffWindowDays: 30,
		MonthDays:        28,
		ShrinkFactor:     0.8,
		WeeklyWeights: map[string]float64{
			"W1": 0.25,
			"W2": 0.125,
			"W3": 0.0833,
		},
		HorizonMonths: 36,
		PlanGroups:    []int{1, 3, 6, 12},
		Workers:       4,
	}
}

// Validate checks that the constants are usable.
func (p Params) Validate() error {
	if len(p.TerminalStates) == 0 {
		return eris.New("churn: at least one terminal state is required")
	}
	for _, s := range p.TerminalStates {
		if s == model.StateActive || s == model.StateUnknown {
			return eris.Errorf("churn: %q cannot be a terminal state", s)
		}
	}
	if p.MonthDays <= 0 {
		return eris.Errorf("churn: month_days must be positive, got %d", p.MonthDays)
	}
	if p.CutoffWindowDays < 0 {
		return eris.Errorf("churn: cutoff_window_days must not be negative, got %d", p.CutoffWindowDays)
	}
	if p.ShrinkFactor <= 0 || p.ShrinkFactor > 1 {
		return eris.Errorf("churn: shrink_factor must be in (0,1], got %v", p.ShrinkFactor)
	}
	if p.HorizonMonths <= 0 {
		return eris.Errorf("churn: horizon_months must be positive, got %v", p.HorizonMonths)
	}
	for prefix, w := range p.WeeklyWeights {
		if prefix == "" || weeklyPrefix.FindString(prefix) != prefix {
			return eris.Errorf("churn: weekly weight key %q must look like W<digit>", prefix)
		}
		if w <= 0 {
			return eris.Errorf("churn: weekly weight for %s must be positive", prefix)
		}
	}
	return nil
}
