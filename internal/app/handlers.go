package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/services/ingest"
	"github.com/bobmcallan/tally/internal/services/report"
)

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createAnalyzeCSVTool(), handleAnalyzeCSV(a.AnalysisService, a.ReportService, a.Logger))
	s.AddTool(createListDatasetsTool(), handleListDatasets(a.DatasetService, a.Logger))
	s.AddTool(createGetReportTool(), handleGetReport(a.AnalysisService, a.ReportService, a.Logger))
	s.AddTool(createListSamplesTool(), handleListSamples())
	s.AddTool(createImportSampleTool(), handleImportSample(a.DatasetService, a.Logger))
}

func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Tally MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

func handleAnalyzeCSV(analysisService interfaces.AnalysisService, reportService *report.Service, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		csvText, err := request.RequireString("csv")
		if err != nil || strings.TrimSpace(csvText) == "" {
			return errorResult("Error: csv parameter is required"), nil
		}

		table, err := ingest.ParseCSV(strings.NewReader(csvText))
		if err != nil {
			return errorResult(fmt.Sprintf("CSV error: %v", err)), nil
		}

		rep, err := analysisService.Analyze(ctx, table.RawRows(), analyzeOptions(request))
		if err != nil {
			logger.Error().Err(err).Msg("MCP analysis failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}

		rendered, err := reportService.Render(rep, report.FormatMarkdown, "")
		if err != nil {
			return errorResult(fmt.Sprintf("Render error: %v", err)), nil
		}
		return textResult(string(rendered.Body)), nil
	}
}

func handleListDatasets(datasetService interfaces.DatasetService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		infos, err := datasetService.List(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("MCP list datasets failed")
			return errorResult(fmt.Sprintf("Error listing datasets: %v", err)), nil
		}
		if len(infos) == 0 {
			return textResult("No datasets imported. Use import_sample or POST /api/datasets to add one."), nil
		}

		var sb strings.Builder
		sb.WriteString("# Datasets\n\n")
		sb.WriteString("| ID | Name | Rows | Imported |\n")
		sb.WriteString("|----|------|------|----------|\n")
		for _, d := range infos {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n",
				d.ID, d.Name, d.RowCount, d.ImportedAt.Format("2006-01-02 15:04")))
		}
		return textResult(sb.String()), nil
	}
}

func handleGetReport(analysisService interfaces.AnalysisService, reportService *report.Service, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("dataset_id")
		if err != nil || id == "" {
			return errorResult("Error: dataset_id parameter is required"), nil
		}

		format := report.FormatMarkdown
		if f := request.GetString("format", ""); f != "" {
			format, err = report.ParseFormat(f)
			if err != nil || (format != report.FormatMarkdown && format != report.FormatJSON) {
				return errorResult("Error: format must be markdown or json"), nil
			}
		}

		rep, ds, err := analysisService.AnalyzeDataset(ctx, id, analyzeOptions(request))
		if err != nil {
			logger.Warn().Err(err).Str("dataset", id).Msg("MCP report failed")
			return errorResult(fmt.Sprintf("Report error: %v", err)), nil
		}

		rendered, err := reportService.Render(rep, format, ds.Name)
		if err != nil {
			return errorResult(fmt.Sprintf("Render error: %v", err)), nil
		}
		return textResult(string(rendered.Body)), nil
	}
}

func handleListSamples() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		samples, err := ingest.Samples()
		if err != nil {
			return errorResult(fmt.Sprintf("Error loading samples: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString("# Sample Datasets\n\n")
		for _, s := range samples {
			sb.WriteString(fmt.Sprintf("- **%s** (%s, %d rows): %s\n", s.Name, s.Title, len(s.Rows), s.Description))
		}
		return textResult(sb.String()), nil
	}
}

func handleImportSample(datasetService interfaces.DatasetService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil || name == "" {
			return errorResult("Error: name parameter is required"), nil
		}

		ds, err := datasetService.ImportSample(ctx, name)
		if err != nil {
			logger.Warn().Err(err).Str("sample", name).Msg("MCP sample import failed")
			return errorResult(fmt.Sprintf("Import error: %v", err)), nil
		}

		data, err := json.MarshalIndent(ds.Info(), "", "  ")
		if err != nil {
			return errorResult(fmt.Sprintf("Encode error: %v", err)), nil
		}
		return textResult(string(data)), nil
	}
}

func analyzeOptions(request mcp.CallToolRequest) interfaces.AnalyzeOptions {
	return interfaces.AnalyzeOptions{
		TopN:    request.GetInt("top_n", 0),
		Summary: request.GetBool("summary", false),
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
