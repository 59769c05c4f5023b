package churn

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/retention-cli/internal/model"
)

// Deriver applies the status rules with a fixed cutoff.
type Deriver struct {
	states model.StateSet
	params Params
	cutoff time.Time
}

// NewDeriver creates a Deriver for the given cutoff.
func NewDeriver(p Params, cutoff time.Time) *Deriver {
	return &Deriver{
		states: model.NewStateSet(p.TerminalStates, nil),
		params: p,
		cutoff: cutoff,
	}
}

// Derive computes the status of one record:
//  1. a terminal state is churned with the raw done_month kept;
//  2. an ACTIVE record last tutored before the cutoff is churned, and an
//     over-reported done_month is shrunk toward the elapsed months;
//  3. anything else is not churned.
//
// A missing done_month counts as 0 in every branch.
func (d *Deriver) Derive(r model.SessionRecord) model.DerivedStatus {
	raw := 0.0
	if r.DoneMonth != nil {
		raw = *r.DoneMonth
	}
	st := model.DerivedStatus{CorrectedDoneMonth: raw}

	switch {
	case d.states.IsTerminal(r.State):
		st.Churned = true
	case r.State == model.StateActive && r.LastTutoringAt != nil && r.LastTutoringAt.Before(d.cutoff):
		st.Churned = true
		if r.CreatedAt != nil {
			actual := float64(elapsedDays(*r.CreatedAt, *r.LastTutoringAt)) / float64(d.params.MonthDays)
			if r.DoneMonth != nil && *r.DoneMonth > actual {
				st.CorrectedDoneMonth = actual * d.params.ShrinkFactor
			}
		}
	}

	st.Corrected = st.CorrectedDoneMonth != raw
	return st
}

// elapsedDays is the whole number of days from a to b, floored.
func elapsedDays(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}

// DeriveAll derives every record in parallel partitions. The output is in
// input order.
func DeriveAll(ctx context.Context, recs []model.SessionRecord, cutoff time.Time, p Params) ([]model.Session, error) {
	d := NewDeriver(p, cutoff)
	out := make([]model.Session, len(recs))

	workers := max(p.Workers, 1)
	size := (len(recs) + workers - 1) / workers
	if size == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(recs); lo += size {
		hi := min(lo+size, len(recs))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%1024 == 0 && gctx.Err() != nil {
					return gctx.Err()
				}
				out[i] = model.Session{SessionRecord: recs[i], DerivedStatus: d.Derive(recs[i])}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "churn: derive status")
	}
	return out, nil
}

// CorrectionSummary counts derivation outcomes.
type CorrectionSummary struct {
	Total     int `json:"total" yaml:"total"`
	Churned   int `json:"churned" yaml:"churned"`
	Active    int `json:"active" yaml:"active"`
	Corrected int `json:"corrected" yaml:"corrected"`
}

// Summarize counts churned, active and corrected sessions.
func Summarize(sessions []model.Session) CorrectionSummary {
	s := CorrectionSummary{Total: len(sessions)}
	for _, ss := range sessions {
		if ss.Churned {
			s.Churned++
		}
		if ss.Corrected {
			s.Corrected++
		}
	}
	s.Active = s.Total - s.Churned
	return s
}
