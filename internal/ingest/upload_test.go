package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retention-cli/internal/frame"
	"github.com/sells-group/retention-cli/internal/model"
)

var uploadHeader = []string{
	"crda", "reactive_datetime", "fst_pay_date", "lst_done_at", "lst_tutoring_datetime",
	"tutoring_state", "done_month", "lecture_vt_No", "p_rn", "fst_months", "student_name",
}

func defaultStates() model.StateSet {
	return model.NewStateSet(model.DefaultTerminalStates, nil)
}

func TestUploadRecords_Coercion(t *testing.T) {
	f := frame.New(uploadHeader, [][]string{
		{"2024-01-01 10:00:00", "", "2024-01-03", "", "2024-02-15", " ACTIVE ", "3", "1024.0", "1", "3", "홍길동"},
		{"2024-01-05", "", "", "", "not a date", "FINISH", "abc", "1025", "2", "", "김철수"},
		{"", "", "", "", "", "", "", "", "", "", ""},
	})

	recs, err := UploadRecords(f, defaultStates())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	r := recs[0]
	assert.Equal(t, "1024", r.LectureNo)
	assert.Equal(t, "1", r.Seq)
	require.NotNil(t, r.CreatedAt)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), *r.CreatedAt)
	assert.Nil(t, r.ReactivatedAt)
	require.NotNil(t, r.LastTutoringAt)
	assert.Equal(t, model.StateActive, r.State)
	require.NotNil(t, r.DoneMonth)
	assert.InDelta(t, 3.0, *r.DoneMonth, 1e-9)
	require.NotNil(t, r.PlanMonths)
	assert.Equal(t, 3, *r.PlanMonths)

	r = recs[1]
	assert.Nil(t, r.FirstPaidAt)
	assert.Nil(t, r.LastTutoringAt)
	assert.Nil(t, r.DoneMonth)
	assert.Nil(t, r.PlanMonths)
	assert.Equal(t, model.StateFinish, r.State)

	assert.False(t, f.Has("student_name"))
}

func TestUploadRecords_UnknownState(t *testing.T) {
	f := frame.New(uploadHeader, [][]string{
		{"2024-01-01", "", "2024-01-03", "", "", "ACTIVE", "1", "1", "1", "1", ""},
		{"2024-01-01", "", "2024-01-03", "", "", "PAUSED", "1", "1", "2", "1", ""},
	})

	_, err := UploadRecords(f, defaultStates())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
	assert.Contains(t, err.Error(), "PAUSED")
}

func TestUploadRecords_UnknownStateAfterBlankRows(t *testing.T) {
	f := frame.New(uploadHeader, [][]string{
		{"2024-01-01", "", "2024-01-03", "", "", "ACTIVE", "1", "1", "1", "1", ""},
		{"", "", "", "", "", "", "", "", "", "", ""},
		{" ", "", "", "", "", "", "", "", "", "", ""},
		{"2024-01-01", "", "2024-01-03", "", "", "PAUSED", "1", "1", "2", "1", ""},
	})

	_, err := UploadRecords(f, defaultStates())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 5")
}

func TestUploadRecords_ExtraStatesAccepted(t *testing.T) {
	f := frame.New(uploadHeader, [][]string{
		{"2024-01-01", "", "2024-01-03", "", "", "PAUSED", "1", "1", "1", "1", ""},
	})

	recs, err := UploadRecords(f, model.NewStateSet(model.DefaultTerminalStates, []model.TutoringState{"PAUSED"}))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.TutoringState("PAUSED"), recs[0].State)
}

func TestUploadRecords_MissingColumns(t *testing.T) {
	f := frame.New([]string{"crda", "done_month"}, [][]string{{"2024-01-01", "1"}})

	_, err := UploadRecords(f, defaultStates())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fst_pay_date")
	assert.Contains(t, err.Error(), "p_rn")
}

func TestUploadRecords_Empty(t *testing.T) {
	recs, err := UploadRecords(frame.Empty(), defaultStates())
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = UploadRecords(nil, defaultStates())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "nan", idString(frame.Missing))
	assert.Equal(t, "7", idString(frame.Str("7.0")))
	assert.Equal(t, "L-7", idString(frame.Str("L-7")))
}
