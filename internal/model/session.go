package model

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// TutoringState is the upstream lifecycle state of a tutoring engagement.
type TutoringState string

const (
	StateUnknown    TutoringState = ""
	StateActive     TutoringState = "ACTIVE"
	StateFinish     TutoringState = "FINISH"
	StateAutoFinish TutoringState = "AUTO_FINISH"
	StateDone       TutoringState = "DONE"
	StateNoCard     TutoringState = "NOCARD"
	StateNoPay      TutoringState = "NOPAY"
)

// DefaultTerminalStates are the explicit end states of an engagement.
var DefaultTerminalStates = []TutoringState{
	StateFinish,
	StateAutoFinish,
	StateDone,
	StateNoCard,
	StateNoPay,
}

// StateSet is the closed set of tutoring states accepted at ingestion.
type StateSet struct {
	terminal []TutoringState
	extra    []TutoringState
}

// NewStateSet builds a StateSet from the terminal states and any extra
// non-terminal states that should be accepted alongside ACTIVE.
func NewStateSet(terminal []TutoringState, extra []TutoringState) StateSet {
	return StateSet{
		terminal: slices.Clone(terminal),
		extra:    slices.Clone(extra),
	}
}

// IsTerminal reports whether s ends an engagement.
func (ss StateSet) IsTerminal(s TutoringState) bool {
	return slices.Contains(ss.terminal, s)
}

// Terminal returns a copy of the terminal states.
func (ss StateSet) Terminal() []TutoringState {
	return slices.Clone(ss.terminal)
}

// Parse maps a raw cell to a recognised state. Matching is case-sensitive
// after trimming, so "active" is not ACTIVE. Blank cells map to
// StateUnknown; anything else outside the set is an error.
func (ss StateSet) Parse(raw string) (TutoringState, error) {
	v := TutoringState(strings.TrimSpace(raw))
	switch {
	case v == StateUnknown:
		return StateUnknown, nil
	case v == StateActive:
		return v, nil
	case slices.Contains(ss.terminal, v), slices.Contains(ss.extra, v):
		return v, nil
	}
	return StateUnknown, eris.Errorf("unrecognized tutoring state %q", raw)
}

// SessionRecord is one uploaded tutoring engagement after type coercion.
type SessionRecord struct {
	LectureNo      string        `json:"lecture_vt_no" csv:"lecture_vt_No"`
	Seq            string        `json:"p_rn" csv:"p_rn"`
	LessonID       string        `json:"lesson_id" csv:"lesson_id"`
	CreatedAt      *time.Time    `json:"crda,omitempty" csv:"crda,omitempty"`
	ReactivatedAt  *time.Time    `json:"reactive_datetime,omitempty" csv:"reactive_datetime,omitempty"`
	FirstPaidAt    *time.Time    `json:"fst_pay_date,omitempty" csv:"fst_pay_date,omitempty"`
	LastDoneAt     *time.Time    `json:"lst_done_at,omitempty" csv:"lst_done_at,omitempty"`
	LastTutoringAt *time.Time    `json:"lst_tutoring_datetime,omitempty" csv:"lst_tutoring_datetime,omitempty"`
	State          TutoringState `json:"tutoring_state" csv:"tutoring_state"`
	DoneMonth      *float64      `json:"done_month,omitempty" csv:"done_month,omitempty"`
	PlanMonths     *int          `json:"fst_months,omitempty" csv:"fst_months,omitempty"`
}

// DerivedStatus is the churn verdict and corrected progress for a record.
type DerivedStatus struct {
	Churned            bool    `json:"churn" csv:"churn"`
	CorrectedDoneMonth float64 `json:"done_month_corrected" csv:"done_month_corrected"`
	Corrected          bool    `json:"corrected" csv:"corrected"`
}

// Session pairs a record with its derived status.
type Session struct {
	SessionRecord
	DerivedStatus
}
