package server

import (
	"net/http"
	"runtime"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/tally/internal/common"
)

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/mcp/tools", s.handleToolCatalog)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Analysis
	mux.HandleFunc("/api/analyze", s.handleAnalyze)

	// Datasets
	mux.HandleFunc("/api/datasets/", s.routeDatasets)
	mux.HandleFunc("/api/datasets", s.handleDatasets)

	// Samples
	mux.HandleFunc("/api/samples/", s.handleSampleImport)
	mux.HandleFunc("/api/samples", s.handleSampleList)

	// MCP over Streamable HTTP
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.app.MCPServer,
		mcpserver.WithStateLess(true),
	))
}

// routeDatasets dispatches /api/datasets/{id}/* to the appropriate handler.
func (s *Server) routeDatasets(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/datasets/")
	if path == "" {
		s.handleDatasets(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "":
		s.handleDataset(w, r, id)
	case "report":
		s.handleDatasetReport(w, r, id)
	case "source":
		s.handleDatasetSource(w, r, id)
	case "glossary":
		s.handleGlossary(w, r, id)
	default:
		if name, ok := fileParam(subpath, "export/", ".csv"); ok {
			s.handleDatasetExport(w, r, id, name)
		} else if name, ok := fileParam(subpath, "charts/", ".png"); ok {
			s.handleDatasetChart(w, r, id, name)
		} else {
			WriteError(w, http.StatusNotFound, "Not found")
		}
	}
}

// fileParam extracts {name} from "{prefix}{name}{ext}".
func fileParam(subpath, prefix, ext string) (string, bool) {
	if !strings.HasPrefix(subpath, prefix) || !strings.HasSuffix(subpath, ext) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(subpath, prefix), ext)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	cfg := s.app.Config

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":    cfg.Environment,
		"analysis":       cfg.Analysis,
		"llm_provider":   s.app.SummaryService.Provider(),
		"llm_configured": s.app.LLMClient != nil,
		"auth_enabled":   cfg.Auth.Enabled(),
		"storage_path":   cfg.Storage.Path,
		"uploads_path":   cfg.Storage.UploadsPath,
		"logging_level":  cfg.Logging.Level,
		"tracing":        cfg.Tracing.Enabled,
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := map[string]interface{}{
		"version":        common.GetVersion(),
		"build":          common.GetBuild(),
		"commit":         common.GetGitCommit(),
		"uptime":         time.Since(s.app.StartupTime).Round(time.Second).String(),
		"started_at":     s.app.StartupTime,
		"correlation_id": common.ResolveCorrelationID(r.Context()),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  float64(m.HeapAlloc) / 1024 / 1024,
		"sys_mb":         float64(m.Sys) / 1024 / 1024,
		"num_gc":         m.NumGC,
	}

	if infos, err := s.app.DatasetService.List(r.Context()); err == nil {
		resp["dataset_count"] = len(infos)
	}

	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToolCatalog(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, buildToolCatalog())
}
