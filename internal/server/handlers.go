package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/bobmcallan/tally/internal/services/chart"
	"github.com/bobmcallan/tally/internal/services/dataset"
	"github.com/bobmcallan/tally/internal/services/ingest"
	"github.com/bobmcallan/tally/internal/services/report"
)

// analyzeRequest is the JSON body of POST /api/analyze.
type analyzeRequest struct {
	Rows    []models.RawRow `json:"rows"`
	TopN    int             `json:"top_n"`
	Summary bool            `json:"summary"`
}

// handleAnalyze handles POST /api/analyze. The body is CSV (text/csv or
// text/plain) or a JSON object with rows. ?format renders the report in
// another format.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	options := interfaces.AnalyzeOptions{
		TopN:    QueryInt(r, "top_n"),
		Summary: QueryBool(r, "summary"),
	}

	var rows []models.RawRow
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv", "text/plain", "application/csv":
		r.Body = http.MaxBytesReader(w, r.Body, dataset.MaxUploadBytes)
		table, err := ingest.ParseCSV(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			WriteError(w, http.StatusBadRequest, "Invalid CSV: "+err.Error())
			return
		}
		rows = table.RawRows()

	default:
		var req analyzeRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		if req.Rows == nil {
			WriteError(w, http.StatusBadRequest, "rows is required")
			return
		}
		rows = req.Rows
		if req.TopN > 0 {
			options.TopN = req.TopN
		}
		options.Summary = options.Summary || req.Summary
	}

	rep, err := s.app.AnalysisService.Analyze(r.Context(), rows, options)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	if format == report.FormatJSON {
		WriteJSON(w, http.StatusOK, rep)
		return
	}
	s.writeRendered(w, r, rep, format, "")
}

// handleDatasets handles GET (list) and POST (import) on /api/datasets.
func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodGet {
		infos, err := s.app.DatasetService.List(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		if infos == nil {
			infos = []models.DatasetInfo{}
		}
		WriteJSON(w, http.StatusOK, infos)
		return
	}

	body, source, err := uploadBody(w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer body.Close()

	ds, err := s.app.DatasetService.Import(r.Context(), r.URL.Query().Get("name"), source, body)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ds.Info())
}

// uploadBody returns the uploaded file and its source name. Multipart forms
// carry the file in the "file" field; otherwise the raw body is the file and
// ?filename names it.
func uploadBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, dataset.MaxUploadBytes+1<<20)
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("multipart field \"file\" is required: %w", err)
		}
		return file, filepath.Base(header.Filename), nil
	}

	source := filepath.Base(r.URL.Query().Get("filename"))
	if source == "." || source == "/" {
		source = ""
	}
	if source == "" {
		source = "upload.csv"
		if mediaType == "application/json" {
			source = "upload.json"
		}
	}
	return r.Body, source, nil
}

// handleDataset handles GET and DELETE on /api/datasets/{id}.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodDelete) {
		return
	}

	if r.Method == http.MethodDelete {
		if err := s.app.DatasetService.Delete(r.Context(), id); err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
		return
	}

	ds, err := s.app.DatasetService.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ds.Info())
}

// handleDatasetReport handles GET /api/datasets/{id}/report.
func (s *Server) handleDatasetReport(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	rep, ds, err := s.app.AnalysisService.AnalyzeDataset(r.Context(), id, interfaces.AnalyzeOptions{
		TopN:    QueryInt(r, "top_n"),
		Summary: QueryBool(r, "summary"),
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	s.writeRendered(w, r, rep, format, ds.Name)
}

// writeRendered renders the report and writes it. PDFs, and anything with
// ?download=true, are sent as attachments.
func (s *Server) writeRendered(w http.ResponseWriter, r *http.Request, rep *models.Report, format report.Format, title string) {
	rendered, err := s.app.ReportService.Render(rep, format, title)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	filename := ""
	if format == report.FormatPDF || QueryBool(r, "download") {
		filename = rendered.Filename
	}
	WriteBytes(w, rendered.ContentType, filename, rendered.Body)
}

// handleDatasetExport handles GET /api/datasets/{id}/export/{companies|sectors}.csv.
func (s *Server) handleDatasetExport(w http.ResponseWriter, r *http.Request, id, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if name != "companies" && name != "sectors" {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("unknown export %q", name))
		return
	}

	rep, _, err := s.app.AnalysisService.AnalyzeDataset(r.Context(), id, interfaces.AnalyzeOptions{})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	rendered, err := s.app.ReportService.Export(rep, name)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteBytes(w, rendered.ContentType, rendered.Filename, rendered.Body)
}

// handleDatasetChart handles GET /api/datasets/{id}/charts/{name}.png.
func (s *Server) handleDatasetChart(w http.ResponseWriter, r *http.Request, id, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if !knownChart(name) {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("unknown chart %q", name))
		return
	}

	rep, _, err := s.app.AnalysisService.AnalyzeDataset(r.Context(), id, interfaces.AnalyzeOptions{})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	png, err := s.app.ChartService.Render(rep, name)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteBytes(w, "image/png", "", png)
}

func knownChart(name string) bool {
	for _, n := range chart.Names {
		if n == name {
			return true
		}
	}
	return false
}

// handleDatasetSource handles GET /api/datasets/{id}/source.
func (s *Server) handleDatasetSource(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	upload, err := s.app.DatasetService.Source(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if strings.EqualFold(filepath.Ext(upload.Filename), ".json") {
		contentType = "application/json"
	}
	w.Header().Set("X-Checksum-SHA256", upload.Checksum)
	WriteBytes(w, contentType, upload.Filename, upload.Data)
}

// sampleInfo is the list view of an embedded sample.
type sampleInfo struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
	RowCount    int      `json:"row_count"`
}

// handleSampleList handles GET /api/samples.
func (s *Server) handleSampleList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	samples, err := ingest.Samples()
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	out := make([]sampleInfo, 0, len(samples))
	for _, smp := range samples {
		out = append(out, sampleInfo{
			Name:        smp.Name,
			Title:       smp.Title,
			Description: smp.Description,
			Columns:     smp.Columns,
			RowCount:    len(smp.Rows),
		})
	}
	WriteJSON(w, http.StatusOK, out)
}

// handleSampleImport handles POST /api/samples/{name}.
func (s *Server) handleSampleImport(w http.ResponseWriter, r *http.Request) {
	name := PathParam(r, "/api/samples/", "")
	if name == "" {
		s.handleSampleList(w, r)
		return
	}
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	ds, err := s.app.DatasetService.ImportSample(r.Context(), name)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ds.Info())
}
