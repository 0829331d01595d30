// Package report renders analysis reports for people and spreadsheets
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/models"
)

// Format is an output format for a rendered report
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// ErrUnknownFormat is returned for an unsupported format or export name
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat accepts the format names and their common aliases
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
}

// Rendered is a report ready to serve or write to disk
type Rendered struct {
	ContentType string
	Filename    string
	Body        []byte
}

// Service renders reports in the supported formats
type Service struct {
	logger *common.Logger
	now    func() time.Time
}

// NewService creates a new report service
func NewService(logger *common.Logger) *Service {
	return &Service{logger: logger, now: time.Now}
}

// Render produces the report in the requested format. title heads the
// human-readable formats.
func (s *Service) Render(report *models.Report, format Format, title string) (*Rendered, error) {
	now := s.now()

	var out *Rendered
	switch format {
	case FormatJSON:
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		out = &Rendered{ContentType: "application/json", Filename: ExportFilename("full", "json", now), Body: body}

	case FormatMarkdown:
		md := MarkdownReport(report, title, now)
		out = &Rendered{ContentType: "text/markdown; charset=utf-8", Filename: ExportFilename("financial", "md", now), Body: []byte(md)}

	case FormatHTML:
		body, err := MarkdownToHTML(MarkdownReport(report, title, now), titleOrDefault(title))
		if err != nil {
			return nil, err
		}
		out = &Rendered{ContentType: "text/html; charset=utf-8", Filename: ExportFilename("financial", "html", now), Body: body}

	case FormatPDF:
		body, err := MarkdownToPDF(MarkdownReport(report, title, now), titleOrDefault(title))
		if err != nil {
			return nil, err
		}
		out = &Rendered{ContentType: "application/pdf", Filename: ExportFilename("financial", "pdf", now), Body: body}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	s.logger.Debug().Str("format", string(format)).Int("bytes", len(out.Body)).Msg("Report rendered")
	return out, nil
}

// Export produces one of the CSV exports: "companies" or "sectors"
func (s *Service) Export(report *models.Report, name string) (*Rendered, error) {
	now := s.now()
	var (
		body []byte
		err  error
		kind string
	)
	switch name {
	case "companies":
		body, err = CompaniesCSV(report)
		kind = "company"
	case "sectors":
		body, err = SectorsCSV(report)
		kind = "sector"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	if err != nil {
		return nil, err
	}
	return &Rendered{ContentType: "text/csv; charset=utf-8", Filename: ExportFilename(kind, "csv", now), Body: body}, nil
}

func titleOrDefault(title string) string {
	if title == "" {
		return "Financial Analysis Report"
	}
	return title
}
