package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retention-cli/internal/analysis"
	"github.com/sells-group/retention-cli/internal/chart"
	"github.com/sells-group/retention-cli/internal/churn"
	"github.com/sells-group/retention-cli/internal/frame"
	"github.com/sells-group/retention-cli/internal/ingest"
	"github.com/sells-group/retention-cli/internal/model"
	"github.com/sells-group/retention-cli/internal/store"
)

type stubSheets struct {
	byName map[string][][]string
	loaded []string
}

func (s *stubSheets) Load(_ context.Context, worksheet string) *frame.Frame {
	s.loaded = append(s.loaded, worksheet)
	return ingest.SheetFrame(s.byName[worksheet])
}

type stubInvalidator struct {
	names []string
	err   error
}

func (s *stubInvalidator) Invalidate(_ context.Context, worksheet string) error {
	s.names = append(s.names, worksheet)
	return s.err
}

type stubRuns struct {
	runs   []model.Run
	filter store.RunFilter
}

func (s *stubRuns) GetRun(_ context.Context, id string) (*model.Run, error) {
	for i := range s.runs {
		if s.runs[i].ID == id {
			return &s.runs[i], nil
		}
	}
	return nil, eris.Wrapf(store.ErrRunNotFound, "run %s", id)
}

func (s *stubRuns) ListRuns(_ context.Context, f store.RunFilter) ([]model.Run, error) {
	s.filter = f
	return s.runs, nil
}

var worksheet = [][]string{
	{"title"},
	{"payment_regdate", "lvt", "user_No", "단계", "이탈여부", "done_month", "option", "stage_count", "cycle_count", "최초 개월 수"},
	{"2024-03-02", "101", "5001", "1", "A", "1.25", "M3", "1", "2", "3"},
	{"2024-03-05", "102", "5002", "1", "P", "0", "W2", "1", "4", "1"},
	{"2024-04-01", "103", "5003", "2", "P", "2", "M3", "1", "6", "3"},
}

const uploadCSV = `crda,reactive_datetime,fst_pay_date,lst_done_at,lst_tutoring_datetime,tutoring_state,done_month,lecture_vt_No,p_rn,fst_months
2024-01-01,,2024-01-02,,2024-01-20,FINISH,2,1,1,3
2024-01-10,,2024-01-11,,2024-03-01,ACTIVE,1,2,1,1
2024-02-01,,2024-02-02,,2024-02-15,ACTIVE,5,3,1,3
2024-03-31,,,,,ACTIVE,1,4,1,1
`

type fixture struct {
	srv    *httptest.Server
	sheets *stubSheets
	inv    *stubInvalidator
	runs   *stubRuns
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sheets := &stubSheets{byName: map[string][][]string{"2024-03": worksheet, "현황": worksheet}}
	a, err := analysis.New(analysis.Config{Params: churn.DefaultParams(), Sheets: sheets})
	require.NoError(t, err)

	fx := &fixture{
		sheets: sheets,
		inv:    &stubInvalidator{},
		runs: &stubRuns{runs: []model.Run{
			{ID: "run-1", Source: model.RunSource{Kind: model.SourceSheet, Name: "2024-03"}, Status: model.RunStatusComplete},
		}},
	}
	s := New(Config{
		Analyzer:    a,
		Invalidator: fx.inv,
		Runs:        fx.runs,
		Chart:       chart.Options{Width: 320, Height: 200},
	})
	fx.srv = httptest.NewServer(s.Handler())
	t.Cleanup(fx.srv.Close)
	return fx
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func multipartUpload(t *testing.T, filename, body string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestUpload(t *testing.T) {
	fx := newFixture(t)
	body, ct := multipartUpload(t, "sessions.csv", uploadCSV)

	resp, err := http.Post(fx.srv.URL+"/v1/upload?target_auc=2", ct, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rep struct {
		NoData  bool             `json:"no_data"`
		Source  model.RunSource  `json:"source"`
		Summary model.RunSummary `json:"summary"`
		Period  struct {
			Cutoff string `json:"cutoff"`
		} `json:"period"`
		Improvement *struct {
			Improved float64 `json:"improved"`
		} `json:"improvement"`
	}
	decode(t, resp, &rep)
	assert.False(t, rep.NoData)
	assert.Equal(t, "sessions.csv", rep.Source.Name)
	assert.Equal(t, 3, rep.Summary.Total)
	assert.Equal(t, 2, rep.Summary.Churned)
	assert.True(t, strings.HasPrefix(rep.Period.Cutoff, "2024-03-01"))
	require.NotNil(t, rep.Improvement)
	assert.InDelta(t, 2, rep.Improvement.Improved, 1e-9)
}

func TestUpload_CutoffOverride(t *testing.T) {
	fx := newFixture(t)
	body, ct := multipartUpload(t, "sessions.csv", uploadCSV)

	resp, err := http.Post(fx.srv.URL+"/v1/upload?cutoff=2024-01-01&start=2024-01-05&end=2024-02-28", ct, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rep struct {
		Summary model.RunSummary `json:"summary"`
	}
	decode(t, resp, &rep)
	assert.Equal(t, 2, rep.Summary.Total)
	assert.Equal(t, 0, rep.Summary.Churned)
}

func TestUpload_BadDate(t *testing.T) {
	fx := newFixture(t)
	body, ct := multipartUpload(t, "sessions.csv", uploadCSV)

	resp, err := http.Post(fx.srv.URL+"/v1/upload?start=yesterday", ct, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e map[string]string
	decode(t, resp, &e)
	assert.Contains(t, e["error"], "invalid start date")
}

func TestUpload_MissingFile(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Post(fx.srv.URL+"/v1/upload", "text/csv", strings.NewReader(uploadCSV))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpload_UnknownState(t *testing.T) {
	fx := newFixture(t)
	csv := strings.Replace(uploadCSV, "FINISH", "PAUSED", 1)
	body, ct := multipartUpload(t, "sessions.csv", csv)

	resp, err := http.Post(fx.srv.URL+"/v1/upload", ct, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var e map[string]string
	decode(t, resp, &e)
	assert.Contains(t, e["error"], "PAUSED")
}

func TestSheet(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.srv.URL + "/v1/sheets/2024-03")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rep struct {
		NoData  bool             `json:"no_data"`
		Summary model.RunSummary `json:"summary"`
	}
	decode(t, resp, &rep)
	assert.False(t, rep.NoData)
	assert.Equal(t, 3, rep.Summary.Total)
	assert.Equal(t, []string{"2024-03"}, fx.sheets.loaded)
}

func TestSheet_UnicodeName(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.srv.URL + "/v1/sheets/%ED%98%84%ED%99%A9")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"현황"}, fx.sheets.loaded)
}

func TestSheet_UnknownIsNoData(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.srv.URL + "/v1/sheets/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rep struct {
		NoData bool `json:"no_data"`
	}
	decode(t, resp, &rep)
	assert.True(t, rep.NoData)
}

func TestSheetChart(t *testing.T) {
	fx := newFixture(t)
	for _, kind := range []string{"", chart.KindGroups, chart.KindStarts} {
		resp, err := http.Get(fx.srv.URL + "/v1/sheets/2024-03/chart.png?kind=" + kind)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, kind)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		img, err := png.Decode(resp.Body)
		resp.Body.Close() //nolint:errcheck
		require.NoError(t, err)
		assert.Equal(t, 320, img.Bounds().Dx())
	}
}

func TestSheetChart_NoData(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.srv.URL + "/v1/sheets/missing/chart.png")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSheetChart_UnknownKind(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.srv.URL + "/v1/sheets/2024-03/chart.png?kind=pie")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidate(t *testing.T) {
	fx := newFixture(t)
	req, err := http.NewRequest(http.MethodDelete, fx.srv.URL+"/v1/sheets/2024-03/cache", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"2024-03"}, fx.inv.names)
}

func TestInvalidate_Error(t *testing.T) {
	fx := newFixture(t)
	fx.inv.err = eris.New("cache: redis down")
	req, err := http.NewRequest(http.MethodDelete, fx.srv.URL+"/v1/sheets/2024-03/cache", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestListRuns(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.srv.URL + "/v1/runs?status=complete&source=sheet&limit=5&offset=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []model.Run
	decode(t, resp, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, store.RunFilter{
		Status:     model.RunStatusComplete,
		SourceKind: model.SourceSheet,
		Limit:      5,
		Offset:     1,
	}, fx.runs.filter)
}

func TestListRuns_BadLimit(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.srv.URL + "/v1/runs?limit=-1")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRun(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.srv.URL + "/v1/runs/run-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var run model.Run
	decode(t, resp, &run)
	assert.Equal(t, model.RunStatusComplete, run.Status)

	resp, err = http.Get(fx.srv.URL + "/v1/runs/nope")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunsDisabled(t *testing.T) {
	a, err := analysis.New(analysis.Config{Params: churn.DefaultParams()})
	require.NoError(t, err)
	srv := httptest.NewServer(New(Config{Analyzer: a}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/runs")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	fx := newFixture(t)
	req, err := http.NewRequest(http.MethodOptions, fx.srv.URL+"/v1/upload", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
