package export

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retention-cli/internal/db"
	"github.com/sells-group/retention-cli/internal/model"
)

// DefaultTable is created by the Postgres store migration.
const DefaultTable = "session_exports"

// SessionColumns is the column order written by ToPostgres.
var SessionColumns = []string{
	"run_id",
	"row_no",
	"lesson_id",
	"lecture_vt_no",
	"p_rn",
	"tutoring_state",
	"fst_pay_date",
	"lst_tutoring_at",
	"done_month",
	"fst_months",
	"churn",
	"done_month_corrected",
	"corrected",
}

// PostgresOptions configures ToPostgres.
type PostgresOptions struct {
	Table string
	// Upsert replaces rows already exported for the same run and row number.
	// Lesson ids are not unique within a run, so rows are keyed by position.
	// Otherwise rows are appended with COPY.
	Upsert bool
}

// ToPostgres writes sessions under runID and returns the number of rows written.
func ToPostgres(ctx context.Context, pool db.Pool, runID string, sessions []model.Session, opts PostgresOptions) (int64, error) {
	if runID == "" {
		return 0, eris.New("export: run id required")
	}
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}

	rows := sessionRows(runID, sessions)

	start := time.Now()
	var (
		n   int64
		err error
	)
	if opts.Upsert {
		n, err = db.BulkUpsert(ctx, pool, db.UpsertConfig{
			Table:        table,
			Columns:      SessionColumns,
			ConflictKeys: []string{"run_id", "row_no"},
		}, rows)
	} else {
		n, err = db.CopyFrom(ctx, pool, table, SessionColumns, rows)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "export: write %s", table)
	}

	zap.L().Info("export: sessions written",
		zap.String("table", table),
		zap.String("run_id", runID),
		zap.Int64("rows", n),
		zap.Bool("upsert", opts.Upsert),
		zap.Duration("elapsed", time.Since(start)),
	)
	return n, nil
}

// sessionRows numbers rows from 1 in input order.
func sessionRows(runID string, sessions []model.Session) [][]any {
	rows := make([][]any, len(sessions))
	for i, s := range sessions {
		rows[i] = sessionRow(runID, i+1, s)
	}
	return rows
}

func sessionRow(runID string, rowNo int, s model.Session) []any {
	return []any{
		runID,
		rowNo,
		s.LessonID,
		s.LectureNo,
		s.Seq,
		string(s.State),
		s.FirstPaidAt,
		s.LastTutoringAt,
		s.DoneMonth,
		s.PlanMonths,
		s.Churned,
		s.CorrectedDoneMonth,
		s.Corrected,
	}
}
