package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Tally server version and status. Use this to verify connectivity."),
	)
}

func createAnalyzeCSVTool() mcp.Tool {
	return mcp.NewTool("analyze_csv",
		mcp.WithDescription("Analyse company financials given as CSV text. Required columns: Company, Revenue, Expenses, Net_Income; optional: Date, Sector, Market_Cap. Returns a markdown report with totals, sector comparison, top performers and risk flags."),
		mcp.WithString("csv",
			mcp.Required(),
			mcp.Description("CSV text with a header row. Comma, semicolon and tab delimiters are accepted."),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of top performers to list (default from server config)"),
		),
		mcp.WithBoolean("summary",
			mcp.Description("Attach a natural-language summary (default: false)"),
		),
	)
}

func createListDatasetsTool() mcp.Tool {
	return mcp.NewTool("list_datasets",
		mcp.WithDescription("List imported datasets, newest first, with their IDs and row counts."),
	)
}

func createGetReportTool() mcp.Tool {
	return mcp.NewTool("get_report",
		mcp.WithDescription("Analyse a stored dataset and return the report."),
		mcp.WithString("dataset_id",
			mcp.Required(),
			mcp.Description("Dataset ID from list_datasets"),
		),
		mcp.WithString("format",
			mcp.Description("markdown (default) or json"),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of top performers to list (default from server config)"),
		),
		mcp.WithBoolean("summary",
			mcp.Description("Attach a natural-language summary (default: false)"),
		),
	)
}

func createListSamplesTool() mcp.Tool {
	return mcp.NewTool("list_samples",
		mcp.WithDescription("List the built-in sample datasets that can be imported with import_sample."),
	)
}

func createImportSampleTool() mcp.Tool {
	return mcp.NewTool("import_sample",
		mcp.WithDescription("Import a built-in sample dataset and return its dataset ID."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Sample name from list_samples (e.g. 'tech', 'mixed', 'crisis')"),
		),
	)
}
