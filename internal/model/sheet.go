package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ChurnFlag is the spreadsheet's categorical churn column (이탈여부).
type ChurnFlag int

const (
	FlagActive  ChurnFlag = 0 // "A"
	FlagStopped ChurnFlag = 1 // "P"
)

// TestFlag marks test rows that are dropped before remapping.
const TestFlag = "T"

// ParseChurnFlag maps "A"/"P" to a ChurnFlag. Any other value, including
// blank, is an error.
func ParseChurnFlag(raw string) (ChurnFlag, error) {
	switch strings.TrimSpace(raw) {
	case "A":
		return FlagActive, nil
	case "P":
		return FlagStopped, nil
	}
	return FlagActive, eris.Errorf("unrecognized churn flag %q", raw)
}

// Churned reports whether the flag is an observed stop event.
func (f ChurnFlag) Churned() bool { return f == FlagStopped }

// SheetRecord is one worksheet row after type coercion.
type SheetRecord struct {
	PaymentDate          *time.Time `json:"payment_regdate,omitempty" csv:"payment_regdate,omitempty"`
	LVT                  *int64     `json:"lvt,omitempty" csv:"lvt,omitempty"`
	UserNo               *int64     `json:"user_no,omitempty" csv:"user_No,omitempty"`
	Stage                int        `json:"stage" csv:"stage"`
	Flag                 ChurnFlag  `json:"churn_flag" csv:"churn_flag"`
	DoneMonth            *float64   `json:"done_month,omitempty" csv:"done_month,omitempty"`
	Option               string     `json:"option" csv:"option"`
	StageCount           int        `json:"stage_count" csv:"stage_count"`
	CycleCount           int        `json:"cycle_count" csv:"cycle_count"`
	PlanMonths           string     `json:"plan_months" csv:"plan_months"`
	Grade                string     `json:"grade,omitempty" csv:"grade,omitempty"`
	Subject              string     `json:"subject,omitempty" csv:"subject,omitempty"`
	TutorState           string     `json:"tutor_state,omitempty" csv:"tutor_state,omitempty"`
	LessonState          string     `json:"lesson_state,omitempty" csv:"lesson_state,omitempty"`
	PlannedStopAt        *time.Time `json:"planned_stop_at,omitempty" csv:"planned_stop_at,omitempty"`
	PlannedStopDoneMonth *float64   `json:"planned_stop_done_month,omitempty" csv:"planned_stop_done_month,omitempty"`
}

// SheetSession is a worksheet row with its recovered done_month and bucketed
// duration.
type SheetSession struct {
	SheetRecord
	RecoveredDoneMonth *float64 `json:"done_month_recovered,omitempty" csv:"done_month_recovered,omitempty"`
	DurationDays       int      `json:"duration_days" csv:"duration_days"`
}
