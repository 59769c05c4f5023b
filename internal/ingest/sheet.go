package ingest

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retention-cli/internal/frame"
	"github.com/sells-group/retention-cli/internal/model"
)

// Worksheet columns.
const (
	ColPaymentDate          = "payment_regdate"
	ColLVT                  = "lvt"
	ColUserNo               = "user_No"
	ColStage                = "단계"
	ColFlag                 = "이탈여부"
	ColSheetDoneMonth       = "done_month"
	ColOption               = "option"
	ColStageCount           = "stage_count"
	ColCycleCount           = "cycle_count"
	ColFirstPlanMonths      = "최초 개월 수"
	ColGrade                = "학년"
	ColSubject              = "교과/탐구"
	ColTutorState           = "과외상태"
	ColLessonState          = "수업상태"
	ColPlannedStopAt        = "중단예정일"
	ColPlannedStopDoneMonth = "중단 예정 DONEMONTH"
)

// RequiredSheetColumns must be present in every worksheet.
var RequiredSheetColumns = []string{
	ColPaymentDate,
	ColLVT,
	ColUserNo,
	ColStage,
	ColFlag,
	ColSheetDoneMonth,
	ColOption,
	ColCycleCount,
	ColFirstPlanMonths,
}

const (
	headerRow        = 1
	unnamedColPrefix = "unnamed_column_"
)

// RepairHeaders replaces empty and repeated header names with
// unnamed_column_<i>, where i is the column position.
func RepairHeaders(header []string) []string {
	seen := make(map[string]bool, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			out[i] = fmt.Sprintf("%s%d", unnamedColPrefix, i)
			continue
		}
		seen[h] = true
		out[i] = h
	}
	return out
}

// SheetFrame builds a frame from raw worksheet values. Row 0 is a title
// and row 1 the header. Rows with no values are dropped, then any repaired
// column with no values at all. Fewer than two rows yields an empty frame.
func SheetFrame(values [][]string) *frame.Frame {
	if len(values) <= headerRow {
		return frame.Empty()
	}

	header := RepairHeaders(values[headerRow])
	f := frame.New(header, values[headerRow+1:])
	f.DropEmptyRows()

	var drop []string
	for _, c := range f.Columns {
		if strings.HasPrefix(c, unnamedColPrefix) && f.AllMissing(c) {
			drop = append(drop, c)
		}
	}
	f.DropColumns(drop...)

	zap.L().Debug("ingest: worksheet frame built",
		zap.Int("rows", f.Len()),
		zap.Int("columns", len(f.Columns)),
		zap.Int("dropped_columns", len(drop)),
	)
	return f
}

// SheetRecords converts a worksheet frame into records. Test rows (flag T)
// are dropped; any other flag outside A/P is an error naming the data row.
func SheetRecords(f *frame.Frame) ([]model.SheetRecord, error) {
	if f == nil || f.IsEmpty() {
		return nil, nil
	}

	if missing := f.MissingColumns(RequiredSheetColumns...); len(missing) > 0 {
		return nil, eris.Errorf("ingest: worksheet is missing columns %v", missing)
	}

	out := make([]model.SheetRecord, 0, f.Len())
	var tests int
	for i := range f.Len() {
		rawFlag := f.Get(i, ColFlag).Value
		if strings.TrimSpace(rawFlag) == model.TestFlag {
			tests++
			continue
		}
		flag, err := model.ParseChurnFlag(rawFlag)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: worksheet row %d", f.SourceRow(i)+headerRow+2)
		}

		out = append(out, model.SheetRecord{
			PaymentDate:          f.Get(i, ColPaymentDate).Date(),
			LVT:                  f.Get(i, ColLVT).Int(),
			UserNo:               f.Get(i, ColUserNo).Int(),
			Stage:                f.Get(i, ColStage).IntOr(0),
			Flag:                 flag,
			DoneMonth:            f.Get(i, ColSheetDoneMonth).Float(),
			Option:               f.Get(i, ColOption).String(),
			StageCount:           f.Get(i, ColStageCount).IntOr(0),
			CycleCount:           f.Get(i, ColCycleCount).IntOr(0),
			PlanMonths:           f.Get(i, ColFirstPlanMonths).String(),
			Grade:                f.Get(i, ColGrade).String(),
			Subject:              f.Get(i, ColSubject).String(),
			TutorState:           f.Get(i, ColTutorState).String(),
			LessonState:          f.Get(i, ColLessonState).String(),
			PlannedStopAt:        f.Get(i, ColPlannedStopAt).Date(),
			PlannedStopDoneMonth: f.Get(i, ColPlannedStopDoneMonth).Float(),
		})
	}

	if tests > 0 {
		zap.L().Debug("ingest: dropped test rows", zap.Int("rows", tests))
	}
	return out, nil
}
