package web

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetdedup/internal/config"
	"github.com/JonMunkholm/sheetdedup/internal/dedup"
	"github.com/JonMunkholm/sheetdedup/internal/logging"
	"github.com/JonMunkholm/sheetdedup/internal/tabular"
)

// Response headers carrying the run summary on /api/dedup.
const (
	HeaderRunID          = "X-Dedup-Run-Id"
	HeaderInputRows      = "X-Dedup-Input-Rows"
	HeaderOutputRows     = "X-Dedup-Output-Rows"
	HeaderRemovedRows    = "X-Dedup-Removed-Rows"
	HeaderRemovedPercent = "X-Dedup-Removed-Percent"
	HeaderWarnings       = "X-Dedup-Warnings"
	HeaderStoredRows     = "X-Dedup-Stored-Rows"
)

var exposedHeaders = []string{
	HeaderRunID, HeaderInputRows, HeaderOutputRows, HeaderRemovedRows,
	HeaderRemovedPercent, HeaderWarnings, HeaderStoredRows, "Content-Disposition",
}

// maxMemory is the multipart form size kept in memory; the rest spills to disk.
const maxMemory = 32 << 20

// DefaultMaxGroups caps the duplicate groups listed by /api/analyze.
const DefaultMaxGroups = 50

// job is a parsed dedup request.
type job struct {
	fileName     string
	outFormat    tabular.Format
	dataset      *dedup.Dataset
	keyColumns   []string
	policy       dedup.KeepPolicy
	includeIndex bool
}

// parseJob reads the multipart form: the "file" upload plus optional
// columns, all_columns, keep, include_index, format and sheet fields.
// Unset fields fall back to the server configuration.
//
// Repeated "columns" fields are taken verbatim; a single field is split on commas.
func (s *Server) parseJob(w http.ResponseWriter, r *http.Request) (*job, error) {
	limit := s.cfg.Upload.MaxFileSize
	if r.ContentLength > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var mb *http.MaxBytesError
		if errors.As(err, &mb) {
			return nil, err
		}
		return nil, fmt.Errorf("no file provided: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("no file provided: %w", err)
	}
	defer file.Close()

	inFormat, err := tabular.DetectFormat(header.Filename)
	if err != nil {
		return nil, err
	}

	j := &job{fileName: header.Filename, outFormat: inFormat}

	if v := r.FormValue("format"); v != "" {
		if j.outFormat, err = tabular.ParseFormat(v); err != nil {
			return nil, err
		}
	}

	keep := s.cfg.Dedup.Keep
	if v := r.FormValue("keep"); v != "" {
		keep = v
	}
	if j.policy, err = dedup.ParsePolicy(keep); err != nil {
		return nil, err
	}

	allColumns, err := formBool(r, "all_columns", s.cfg.Dedup.AllColumns)
	if err != nil {
		return nil, err
	}
	if j.includeIndex, err = formBool(r, "include_index", s.cfg.Output.IncludeIndex); err != nil {
		return nil, err
	}

	sheet := s.cfg.Dedup.Sheet
	if v := r.FormValue("sheet"); v != "" {
		sheet = v
	}

	if err := r.Context().Err(); err != nil {
		return nil, err
	}

	j.dataset, err = tabular.Read(file, inFormat, tabular.ReadOptions{Sheet: sheet})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}

	switch cols := r.MultipartForm.Value["columns"]; {
	case allColumns:
		j.keyColumns = append([]string(nil), j.dataset.Columns...)
	case len(cols) > 1:
		j.keyColumns = cols
	case len(cols) == 1:
		j.keyColumns = config.SplitList(cols[0])
	default:
		j.keyColumns = s.cfg.Dedup.Columns
	}

	return j, nil
}

func formBool(r *http.Request, name string, def bool) (bool, error) {
	v := r.FormValue(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid configuration: %s=%q is not a boolean", name, v)
	}
	return b, nil
}

// handleHealth reports liveness and job capacity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Jobs:     s.limiter.Status(),
		Database: s.sink != nil,
	})
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string        `json:"status"`
	Jobs     LimiterStatus `json:"jobs"`
	Database bool          `json:"database"`
}

// handleDedup returns the deduplicated file with the summary in X-Dedup-* headers.
func (s *Server) handleDedup(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer s.limiter.Release()

	j, err := s.parseJob(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	runID := uuid.New()
	ctx := logging.WithRunID(r.Context(), runID.String())
	logger := logging.WithFields(ctx, "file", j.fileName, "keep", j.policy.String())

	res, err := dedup.Run(j.dataset, j.keyColumns, j.policy)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	var stored int64 = -1
	if s.sink != nil && s.cfg.Database.Table != "" {
		if stored, err = s.sink.Write(ctx, s.cfg.Database.Table, res.Dataset, runID); err != nil {
			s.respondError(w, r, err, 0)
			return
		}
	}

	var buf bytes.Buffer
	opts := tabular.WriteOptions{IncludeIndex: j.includeIndex, Sheet: s.cfg.Output.Sheet}
	if err := tabular.Write(&buf, j.outFormat, res.Dataset, opts); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", j.outFormat.ContentType())
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": OutputName(j.fileName, j.outFormat),
	}))
	h.Set(HeaderRunID, runID.String())
	setSummaryHeaders(h, res)
	if stored >= 0 {
		h.Set(HeaderStoredRows, strconv.FormatInt(stored, 10))
	}

	logger.Info("dedup completed",
		"input_rows", res.Summary.InputRows,
		"output_rows", res.Summary.OutputRows,
		"removed_rows", res.Summary.RemovedRows,
	)

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Warn("write response", "error", err)
	}
}

func setSummaryHeaders(h http.Header, res *dedup.Result) {
	h.Set(HeaderInputRows, strconv.Itoa(res.Summary.InputRows))
	h.Set(HeaderOutputRows, strconv.Itoa(res.Summary.OutputRows))
	h.Set(HeaderRemovedRows, strconv.Itoa(res.Summary.RemovedRows))
	h.Set(HeaderRemovedPercent, strconv.FormatFloat(res.Summary.RemovedPercent, 'f', 2, 64))

	if len(res.Warnings) > 0 {
		kinds := make([]string, len(res.Warnings))
		for i, w := range res.Warnings {
			kinds[i] = string(w.Kind)
		}
		h.Set(HeaderWarnings, strings.Join(kinds, ","))
	}
}

// OutputName derives the download name: "<base>_deduplicated.<ext>".
func OutputName(inputName string, f tabular.Format) string {
	base := filepath.Base(inputName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "data"
	}
	return base + "_deduplicated." + f.String()
}

// AnalyzeResponse is the body of POST /api/analyze.
type AnalyzeResponse struct {
	RunID      string          `json:"run_id"`
	File       string          `json:"file"`
	Columns    []string        `json:"columns"`
	KeyColumns []string        `json:"key_columns"`
	Keep       string          `json:"keep"`
	Summary    dedup.Summary   `json:"summary"`
	Warnings   []dedup.Warning `json:"warnings"`
	GroupCount int             `json:"group_count"`
	Groups     []GroupJSON     `json:"groups"`
	Truncated  bool            `json:"truncated"`
}

// GroupJSON is one duplicate group: its key values and zero-based row positions.
type GroupJSON struct {
	Key  []string `json:"key"`
	Rows []int    `json:"rows"`
}

// handleAnalyze reports what a dedup run would do without returning the file.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer s.limiter.Release()

	j, err := s.parseJob(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	maxGroups := DefaultMaxGroups
	if v := r.FormValue("max_groups"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, r, fmt.Errorf("invalid configuration: max_groups=%q", v), http.StatusBadRequest)
			return
		}
		maxGroups = n
	}

	res, err := dedup.Run(j.dataset, j.keyColumns, j.policy)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	groups := dedup.FindGroups(j.dataset, j.keyColumns)
	resp := AnalyzeResponse{
		RunID:      uuid.NewString(),
		File:       j.fileName,
		Columns:    j.dataset.Columns,
		KeyColumns: j.keyColumns,
		Keep:       j.policy.String(),
		Summary:    res.Summary,
		Warnings:   res.Warnings,
		GroupCount: len(groups),
		Groups:     make([]GroupJSON, 0, min(len(groups), maxGroups)),
		Truncated:  len(groups) > maxGroups,
	}
	if resp.Warnings == nil {
		resp.Warnings = []dedup.Warning{}
	}
	for _, g := range groups[:min(len(groups), maxGroups)] {
		resp.Groups = append(resp.Groups, GroupJSON{Key: g.KeyStrings(), Rows: g.Positions})
	}

	writeJSON(w, http.StatusOK, resp)
}
