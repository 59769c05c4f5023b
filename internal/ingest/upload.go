// Package ingest coerces raw tables into typed session records.
package ingest

import (
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retention-cli/internal/frame"
	"github.com/sells-group/retention-cli/internal/model"
)

// Upload columns.
const (
	ColCreatedAt      = "crda"
	ColReactivatedAt  = "reactive_datetime"
	ColFirstPaidAt    = "fst_pay_date"
	ColLastDoneAt     = "lst_done_at"
	ColLastTutoringAt = "lst_tutoring_datetime"
	ColState          = "tutoring_state"
	ColDoneMonth      = "done_month"
	ColLectureNo      = "lecture_vt_No"
	ColSeq            = "p_rn"
	ColPlanMonths     = "fst_months"
	ColStudentName    = "student_name"
)

// RequiredUploadColumns must be present in every upload.
var RequiredUploadColumns = []string{
	ColCreatedAt,
	ColFirstPaidAt,
	ColLastTutoringAt,
	ColState,
	ColDoneMonth,
	ColLectureNo,
	ColSeq,
}

// UploadRecords converts an uploaded frame into session records. The
// student_name column is dropped and rows with no values are skipped. Date
// and number cells that fail to parse become missing; an unrecognised
// tutoring state is an error naming the data row. An empty frame yields no
// records and no error.
func UploadRecords(f *frame.Frame, states model.StateSet) ([]model.SessionRecord, error) {
	if f == nil || (f.IsEmpty() && len(f.Columns) == 0) {
		return nil, nil
	}

	if missing := f.MissingColumns(RequiredUploadColumns...); len(missing) > 0 {
		return nil, eris.Errorf("ingest: upload is missing columns %v", missing)
	}

	f.DropColumns(ColStudentName)
	if dropped := f.DropEmptyRows(); dropped > 0 {
		zap.L().Debug("ingest: dropped empty rows", zap.Int("rows", dropped))
	}

	out := make([]model.SessionRecord, 0, f.Len())
	for i := range f.Len() {
		state, err := states.Parse(f.Get(i, ColState).Value)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: row %d", f.SourceRow(i)+2)
		}

		rec := model.SessionRecord{
			LectureNo:      idString(f.Get(i, ColLectureNo)),
			Seq:            idString(f.Get(i, ColSeq)),
			CreatedAt:      f.Get(i, ColCreatedAt).Date(),
			ReactivatedAt:  f.Get(i, ColReactivatedAt).Date(),
			FirstPaidAt:    f.Get(i, ColFirstPaidAt).Date(),
			LastDoneAt:     f.Get(i, ColLastDoneAt).Date(),
			LastTutoringAt: f.Get(i, ColLastTutoringAt).Date(),
			State:          state,
			DoneMonth:      f.Get(i, ColDoneMonth).Float(),
		}
		if n := f.Get(i, ColPlanMonths).Int(); n != nil {
			v := int(*n)
			rec.PlanMonths = &v
		}
		out = append(out, rec)
	}
	return out, nil
}

// idString normalises an identifier cell so "1024.0" and "1024" compose the
// same lesson id. Non-numeric ids are kept verbatim; missing ids read "nan".
func idString(c frame.Cell) string {
	if !c.Valid {
		return "nan"
	}
	if n := c.Int(); n != nil {
		return strconv.FormatInt(*n, 10)
	}
	return c.Value
}
