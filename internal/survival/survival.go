// Package survival implements the Kaplan-Meier product-limit estimator and
// the summaries read off its step curve.
package survival

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/integrate"
)

// Curve is a right-continuous survival step function. Times are strictly
// increasing and start at 0; Survival is non-increasing.
type Curve struct {
	Times    []float64 `json:"times" yaml:"times"`
	Survival []float64 `json:"survival" yaml:"survival"`
}

// Fit estimates the survival function of durations, where events[i] reports
// whether duration i ended in an observed event (false means censored). The
// timeline is 0 followed by every distinct duration.
func Fit(durations []float64, events []bool) (Curve, error) {
	if len(durations) != len(events) {
		return Curve{}, eris.Errorf("survival: %d durations but %d event flags", len(durations), len(events))
	}
	if len(durations) == 0 {
		return Curve{}, eris.New("survival: no observations")
	}

	type obs struct {
		t     float64
		event bool
	}
	data := make([]obs, len(durations))
	for i, d := range durations {
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return Curve{}, eris.Errorf("survival: invalid duration %v at %d", d, i)
		}
		data[i] = obs{t: d, event: events[i]}
	}
	sort.Slice(data, func(i, j int) bool { return data[i].t < data[j].t })

	c := Curve{Times: []float64{0}, Survival: []float64{1}}
	s := 1.0
	atRisk := len(data)
	for i := 0; i < len(data); {
		t := data[i].t
		var deaths, removed int
		for ; i < len(data) && data[i].t == t; i++ {
			if data[i].event {
				deaths++
			}
			removed++
		}
		s *= 1 - float64(deaths)/float64(atRisk)
		atRisk -= removed

		if t == 0 {
			c.Survival[0] = s
			continue
		}
		c.Times = append(c.Times, t)
		c.Survival = append(c.Survival, s)
	}
	return c, nil
}

// Len returns the number of points.
func (c Curve) Len() int { return len(c.Times) }

// Truncate keeps the points with 0 <= t <= horizon.
func (c Curve) Truncate(horizon float64) Curve {
	var out Curve
	for i, t := range c.Times {
		if t < 0 || t > horizon {
			continue
		}
		out.Times = append(out.Times, t)
		out.Survival = append(out.Survival, c.Survival[i])
	}
	return out
}

// Scale multiplies every time by f, converting between units.
func (c Curve) Scale(f float64) Curve {
	out := Curve{Times: make([]float64, len(c.Times)), Survival: slices.Clone(c.Survival)}
	for i, t := range c.Times {
		out.Times[i] = t * f
	}
	return out
}

// AUC integrates the truncated points with the trapezoidal rule. Fewer than
// two points integrate to 0.
func (c Curve) AUC(horizon float64) float64 {
	tr := c.Truncate(horizon)
	if tr.Len() < 2 {
		return 0
	}
	return integrate.Trapezoidal(tr.Times, tr.Survival)
}

// At returns the survival probability at t: the value of the last point at
// or before t, or 1 before the first point.
func (c Curve) At(t float64) float64 {
	i := sort.SearchFloat64s(c.Times, t)
	if i < len(c.Times) && c.Times[i] == t {
		return c.Survival[i]
	}
	if i == 0 {
		return 1
	}
	return c.Survival[i-1]
}

// Median is the median survival time. Reached is false when survival never
// falls to 0.5 over the observed timeline.
type Median struct {
	Time    float64
	Reached bool
}

// NotReached is the Median of a curve that stays above 0.5.
var NotReached = Median{}

// Median returns the first time at which survival is at most 0.5.
func (c Curve) Median() Median {
	for i, s := range c.Survival {
		if s <= 0.5 {
			return Median{Time: c.Times[i], Reached: true}
		}
	}
	return NotReached
}

// Ptr returns the median time, or nil when not reached.
func (m Median) Ptr() *float64 {
	if !m.Reached {
		return nil
	}
	v := m.Time
	return &v
}

func (m Median) String() string {
	if !m.Reached {
		return "not reached"
	}
	return fmt.Sprintf("%.1f", m.Time)
}
