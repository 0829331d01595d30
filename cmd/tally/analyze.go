package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/tally/internal/app"
	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/bobmcallan/tally/internal/services/analysis"
	"github.com/bobmcallan/tally/internal/services/chart"
	"github.com/bobmcallan/tally/internal/services/ingest"
	"github.com/bobmcallan/tally/internal/services/report"
	"github.com/bobmcallan/tally/internal/services/summary"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyse a CSV or JSON file and print the report",
	Long: `Analyse company financials. The input is a CSV file (comma, semicolon or tab
delimited), a JSON file with {"rows": [...]} or a bare array, "-" for CSV on
stdin, or a built-in sample via --sample.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeFormat  string
	analyzeTopN    int
	analyzeSummary bool
	analyzeSample  string
	analyzeOutput  string
	analyzeExport  string
	analyzeChart   string
	analyzeTitle   string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "markdown", "Report format: json, markdown, html or pdf")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top", 0, "Number of top performers (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeSummary, "summary", false, "Attach an LLM executive summary")
	analyzeCmd.Flags().StringVar(&analyzeSample, "sample", "", "Analyse a built-in sample instead of a file")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeExport, "export", "", "Write a CSV export instead of the report: companies or sectors")
	analyzeCmd.Flags().StringVar(&analyzeChart, "chart", "", "Write a PNG chart instead of the report: "+strings.Join(chart.Names, ", "))
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "Report title")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeSample == "" && len(args) == 0 {
		return errors.New("a file argument or --sample is required")
	}
	if analyzeSample != "" && len(args) > 0 {
		return errors.New("use either a file argument or --sample, not both")
	}
	if analyzeExport != "" && analyzeChart != "" {
		return errors.New("use either --export or --chart, not both")
	}
	if analyzeChart != "" && analyzeOutput == "" {
		return errors.New("--chart writes PNG data and needs --output")
	}

	format, err := report.ParseFormat(analyzeFormat)
	if err != nil {
		return err
	}

	config, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	var rows []models.RawRow
	title := analyzeTitle
	if analyzeSample != "" {
		smp, err := ingest.LookupSample(analyzeSample)
		if err != nil {
			return err
		}
		rows = smp.RawRows()
		if title == "" {
			title = smp.Title
		}
	} else {
		rows, err = readRows(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	var summarySvc interfaces.SummaryService
	if analyzeSummary {
		client, err := app.NewLLMClient(ctx, config, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		if client == nil {
			return errors.New("--summary needs an LLM provider with an API key configured")
		}
		summarySvc = summary.NewService(client, logger)
	}

	// Storage is only needed for stored datasets.
	svc := analysis.NewService(nil, summarySvc, config.Analysis, logger)
	rep, err := svc.Analyze(ctx, rows, interfaces.AnalyzeOptions{TopN: analyzeTopN, Summary: analyzeSummary})
	if err != nil {
		return err
	}

	body, err := renderOutput(rep, format, title, logger)
	if err != nil {
		return err
	}

	if analyzeOutput == "" {
		_, err = cmd.OutOrStdout().Write(body)
		return err
	}
	if err := os.WriteFile(analyzeOutput, body, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", analyzeOutput, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes, %d companies, %d skipped)\n",
		analyzeOutput, len(body), rep.TotalCompanies, rep.SkippedCount)
	return nil
}

// renderOutput picks between a chart, a CSV export and the rendered report.
func renderOutput(rep *models.Report, format report.Format, title string, logger *common.Logger) ([]byte, error) {
	switch {
	case analyzeChart != "":
		return chart.NewService(logger).Render(rep, analyzeChart)
	case analyzeExport != "":
		rendered, err := report.NewService(logger).Export(rep, analyzeExport)
		if err != nil {
			return nil, err
		}
		return rendered.Body, nil
	}

	rendered, err := report.NewService(logger).Render(rep, format, title)
	if err != nil {
		return nil, err
	}
	return rendered.Body, nil
}

// readRows loads analysis input from a path. "-" reads CSV from stdin and a
// .json extension selects the JSON decoder.
func readRows(path string, stdin io.Reader) ([]models.RawRow, error) {
	if path == "-" {
		table, err := ingest.ParseCSV(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stdin: %w", err)
		}
		return table.RawRows(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		rows, err := ingest.DecodeJSONRows(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return rows, nil
	}

	table, err := ingest.ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return table.RawRows(), nil
}
