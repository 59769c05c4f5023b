package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retention-cli/internal/analysis"
	"github.com/sells-group/retention-cli/internal/chart"
	"github.com/sells-group/retention-cli/internal/frame"
	"github.com/sells-group/retention-cli/internal/ingest"
	"github.com/sells-group/retention-cli/internal/model"
	"github.com/sells-group/retention-cli/internal/store"
)

var errRunsDisabled = eris.New("run history is not configured")

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "multipart field \"file\" is required"))
		return
	}
	defer file.Close() //nolint:errcheck

	q := r.URL.Query()
	var opts analysis.UploadOptions
	for name, dst := range map[string]**time.Time{"start": &opts.Start, "end": &opts.End, "cutoff": &opts.Cutoff} {
		if raw := q.Get(name); raw != "" {
			d := frame.ParseDate(raw)
			if d == nil {
				writeError(w, http.StatusBadRequest, eris.Errorf("invalid %s date %q", name, raw))
				return
			}
			*dst = d
		}
	}
	if opts.TargetAUC, err = floatParam(r, "target_auc"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	f, err := ingest.ParseUpload(r.Context(), file, ingest.UploadFormat(hdr.Filename), s.cfg.Read)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rep, err := s.cfg.Analyzer.Upload(r.Context(), f, hdr.Filename, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) sheet(w http.ResponseWriter, r *http.Request) {
	target, err := floatParam(r, "target_auc")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rep, err := s.cfg.Analyzer.Sheet(r.Context(), worksheetParam(r), analysis.SheetOptions{TargetAUC: target})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) sheetChart(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	rep, err := s.cfg.Analyzer.Sheet(r.Context(), worksheetParam(r), analysis.SheetOptions{})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	var buf bytes.Buffer
	if err := chart.Report(&buf, rep, kind, s.cfg.Chart); err != nil {
		switch {
		case errors.Is(err, chart.ErrNoData):
			writeError(w, http.StatusNotFound, err)
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		zap.L().Warn("api: write chart", zap.Error(err))
	}
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Invalidator == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.cfg.Invalidator.Invalidate(r.Context(), worksheetParam(r)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runs == nil {
		writeError(w, http.StatusNotFound, errRunsDisabled)
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		Status:     model.RunStatus(q.Get("status")),
		SourceKind: model.SourceKind(q.Get("source")),
	}
	var err error
	if filter.Limit, err = intParam(r, "limit"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Offset, err = intParam(r, "offset"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	runs, err := s.cfg.Runs.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runs == nil {
		writeError(w, http.StatusNotFound, errRunsDisabled)
		return
	}
	run, err := s.cfg.Runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, eris.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

// worksheetParam returns the unescaped worksheet name, which may be
// non-ASCII.
func worksheetParam(r *http.Request) string {
	raw := chi.URLParam(r, "worksheet")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
