package server

// ToolDefinition describes one MCP tool and the HTTP route that backs it.
type ToolDefinition struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Params      []ParamDefinition `json:"params,omitempty"`
}

// ParamDefinition describes a single tool parameter and where it is sent.
type ParamDefinition struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	In          string `json:"in"` // path, query or body
	Required    bool   `json:"required,omitempty"`
}

// buildToolCatalog returns the tool catalog with HTTP mappings.
// Used by GET /api/mcp/tools so a proxy can register tools without a rebuild.
func buildToolCatalog() []ToolDefinition {
	datasetParam := ParamDefinition{
		Name:        "dataset_id",
		Type:        "string",
		Description: "ID of an imported dataset (see list_datasets)",
		In:          "path",
		Required:    true,
	}
	topNParam := ParamDefinition{
		Name:        "top_n",
		Type:        "number",
		Description: "Number of top performers to include (default from server config)",
		In:          "query",
	}
	summaryParam := ParamDefinition{
		Name:        "summary",
		Type:        "boolean",
		Description: "Attach an LLM executive summary when a provider is configured",
		In:          "query",
	}

	return []ToolDefinition{
		// --- System ---
		{
			Name:        "get_version",
			Description: "Get the Tally server version and status. Use this to verify connectivity.",
			Method:      "GET",
			Path:        "/api/version",
		},
		{
			Name:        "get_config",
			Description: "Show the analysis thresholds and the configured LLM provider.",
			Method:      "GET",
			Path:        "/api/config",
		},
		{
			Name:        "get_diagnostics",
			Description: "Get server diagnostics: uptime, version, memory and dataset count.",
			Method:      "GET",
			Path:        "/api/diagnostics",
		},

		// --- Analysis ---
		{
			Name:        "analyze_csv",
			Description: "Analyse company financials supplied inline. Returns totals, sector breakdown, top performers and risk flags.",
			Method:      "POST",
			Path:        "/api/analyze",
			Params: []ParamDefinition{
				{
					Name:        "rows",
					Type:        "array",
					Description: "Rows with Company, Revenue, Expenses, Net_Income and optional Sector, Market_Cap, Date",
					In:          "body",
					Required:    true,
				},
				{
					Name:        "format",
					Type:        "string",
					Description: "Output format: json, markdown, html or pdf (default json)",
					In:          "query",
				},
				topNParam,
				summaryParam,
			},
		},

		// --- Datasets ---
		{
			Name:        "list_datasets",
			Description: "List imported datasets with row counts and upload times.",
			Method:      "GET",
			Path:        "/api/datasets",
		},
		{
			Name:        "get_dataset",
			Description: "Get metadata for one imported dataset.",
			Method:      "GET",
			Path:        "/api/datasets/{dataset_id}",
			Params:      []ParamDefinition{datasetParam},
		},
		{
			Name:        "delete_dataset",
			Description: "Delete an imported dataset and its uploaded source file.",
			Method:      "DELETE",
			Path:        "/api/datasets/{dataset_id}",
			Params:      []ParamDefinition{datasetParam},
		},
		{
			Name:        "get_report",
			Description: "Analyse an imported dataset and return the report.",
			Method:      "GET",
			Path:        "/api/datasets/{dataset_id}/report",
			Params: []ParamDefinition{
				datasetParam,
				{
					Name:        "format",
					Type:        "string",
					Description: "Output format: json, markdown, html or pdf (default json)",
					In:          "query",
				},
				topNParam,
				summaryParam,
			},
		},
		{
			Name:        "get_glossary",
			Description: "Explain every report term with live values from a dataset.",
			Method:      "GET",
			Path:        "/api/datasets/{dataset_id}/glossary",
			Params:      []ParamDefinition{datasetParam},
		},
		{
			Name:        "export_csv",
			Description: "Export per-company or per-sector results as CSV.",
			Method:      "GET",
			Path:        "/api/datasets/{dataset_id}/export/{table}.csv",
			Params: []ParamDefinition{
				datasetParam,
				{
					Name:        "table",
					Type:        "string",
					Description: "companies or sectors",
					In:          "path",
					Required:    true,
				},
			},
		},
		{
			Name:        "get_chart",
			Description: "Render a PNG chart of a dataset.",
			Method:      "GET",
			Path:        "/api/datasets/{dataset_id}/charts/{chart}.png",
			Params: []ParamDefinition{
				datasetParam,
				{
					Name:        "chart",
					Type:        "string",
					Description: "revenue-income, sector-revenue, sector-margin or top-companies",
					In:          "path",
					Required:    true,
				},
			},
		},

		// --- Samples ---
		{
			Name:        "list_samples",
			Description: "List the built-in sample datasets.",
			Method:      "GET",
			Path:        "/api/samples",
		},
		{
			Name:        "import_sample",
			Description: "Import a built-in sample as a dataset.",
			Method:      "POST",
			Path:        "/api/samples/{name}",
			Params: []ParamDefinition{
				{
					Name:        "name",
					Type:        "string",
					Description: "Sample name (see list_samples)",
					In:          "path",
					Required:    true,
				},
			},
		},
	}
}
