package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// SourceKind identifies which pipeline produced a run.
type SourceKind string

const (
	SourceUpload SourceKind = "upload"
	SourceSheet  SourceKind = "sheet"
)

// RunSource describes the input of a run.
type RunSource struct {
	Kind SourceKind `json:"kind" yaml:"kind"`
	Name string     `json:"name" yaml:"name"`
}

// Run is one recorded analysis pass.
type Run struct {
	ID        string      `json:"id"`
	Source    RunSource   `json:"source"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the headline numbers of a completed run.
type RunSummary struct {
	Total             int         `json:"total" yaml:"total"`
	Churned           int         `json:"churned" yaml:"churned"`
	Active            int         `json:"active" yaml:"active"`
	Corrected         int         `json:"corrected" yaml:"corrected"`
	AUC               float64     `json:"auc" yaml:"auc"`
	HorizonMonths     float64     `json:"horizon_months" yaml:"horizon_months"`
	SurvivalAtHorizon float64     `json:"survival_at_horizon" yaml:"survival_at_horizon"`
	Groups            []GroupStat `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// GroupStat is one row of the grouped comparison table. A nil Median means
// survival never fell to one half within the observed range.
type GroupStat struct {
	Label      string   `json:"label" yaml:"label"`
	SampleSize int      `json:"sample_size" yaml:"sample_size"`
	ChurnRate  float64  `json:"churn_rate" yaml:"churn_rate"`
	AUC        float64  `json:"auc" yaml:"auc"`
	Median     *float64 `json:"median" yaml:"median"`
}
