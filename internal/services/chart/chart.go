// Package chart renders PNG charts of an analysis report
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/models"
)

// Chart names accepted by Render
const (
	RevenueIncome = "revenue-income"
	SectorRevenue = "sector-revenue"
	SectorMargin  = "sector-margin"
	TopCompanies  = "top-companies"
)

// Names lists every chart in display order
var Names = []string{RevenueIncome, SectorRevenue, SectorMargin, TopCompanies}

var (
	ErrUnknownChart  = errors.New("unknown chart")
	ErrNotEnoughData = errors.New("not enough data to chart")
)

var (
	colorRevenue  = drawing.ColorFromHex("2563eb") // blue-600
	colorExpenses = drawing.ColorFromHex("9ca3af") // gray-400
	colorIncome   = drawing.ColorFromHex("16a34a") // green-600
	colorLoss     = drawing.ColorFromHex("dc2626") // red-600
)

// Service renders charts
type Service struct {
	logger *common.Logger
}

// NewService creates a chart service
func NewService(logger *common.Logger) *Service {
	return &Service{logger: logger}
}

// Render draws the named chart as PNG bytes
func (s *Service) Render(report *models.Report, name string) ([]byte, error) {
	var (
		png []byte
		err error
	)
	switch name {
	case RevenueIncome:
		png, err = RenderRevenueIncome(report.Companies)
	case SectorRevenue:
		png, err = RenderSectorRevenue(report.Sectors)
	case SectorMargin:
		png, err = RenderSectorMargin(report.Sectors)
	case TopCompanies:
		png, err = RenderTopCompanies(report.Companies, 10)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChart, name)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("chart", name).Int("bytes", len(png)).Msg("Chart rendered")
	return png, nil
}

// RenderRevenueIncome plots net income against revenue, one dot per company
func RenderRevenueIncome(companies []models.CompanyAnalysis) ([]byte, error) {
	if len(companies) == 0 {
		return nil, ErrNotEnoughData
	}

	xs := make([]float64, len(companies))
	ys := make([]float64, len(companies))
	for i, c := range companies {
		xs[i] = c.Revenue
		ys[i] = c.NetIncome
	}

	graph := chart.Chart{
		Title:  "Revenue vs Net Income",
		Width:  900,
		Height: 500,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Name:           "Revenue",
			Range:          paddedRange(xs),
			ValueFormatter: moneyTick,
		},
		YAxis: chart.YAxis{
			Name:           "Net Income",
			Range:          paddedRange(ys),
			ValueFormatter: moneyTick,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "Companies",
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    5,
					DotColor:    colorRevenue,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	return render(&graph)
}

// RenderSectorRevenue draws each sector's share of positive revenue
func RenderSectorRevenue(sectors []models.SectorSummary) ([]byte, error) {
	var values []chart.Value
	for _, s := range sectors {
		if s.TotalRevenue > 0 {
			values = append(values, chart.Value{Label: s.Sector, Value: s.TotalRevenue})
		}
	}
	if len(values) == 0 {
		return nil, ErrNotEnoughData
	}

	pie := chart.PieChart{
		Title:  "Revenue by Sector",
		Width:  600,
		Height: 600,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderSectorMargin draws the average profit margin of each sector as a
// percentage. Sectors with no defined margin are left out.
func RenderSectorMargin(sectors []models.SectorSummary) ([]byte, error) {
	var bars []chart.Value
	var vals []float64
	for _, s := range sectors {
		m, ok := s.AverageProfitMargin.Value()
		if !ok {
			continue
		}
		pct := m * 100
		bars = append(bars, chart.Value{Label: s.Sector, Value: pct, Style: barStyle(signColor(pct, colorIncome))})
		vals = append(vals, pct)
	}
	if len(bars) == 0 {
		return nil, ErrNotEnoughData
	}

	graph := chart.BarChart{
		Title:        "Average Profit Margin by Sector",
		Width:        900,
		Height:       450,
		BarWidth:     50,
		UseBaseValue: true,
		BaseValue:    0,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: zeroAnchoredRange(vals),
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderTopCompanies draws revenue, expenses and net income side by side for
// the n largest companies by revenue
func RenderTopCompanies(companies []models.CompanyAnalysis, n int) ([]byte, error) {
	if len(companies) == 0 {
		return nil, ErrNotEnoughData
	}

	top := append([]models.CompanyAnalysis{}, companies...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Revenue > top[j].Revenue })
	if len(top) > n {
		top = top[:n]
	}

	var bars []chart.Value
	var vals []float64
	for _, c := range top {
		bars = append(bars,
			chart.Value{Label: c.Company, Value: c.Revenue, Style: barStyle(colorRevenue)},
			chart.Value{Label: " ", Value: c.Expenses, Style: barStyle(colorExpenses)},
			chart.Value{Label: " ", Value: c.NetIncome, Style: barStyle(signColor(c.NetIncome, colorIncome))},
		)
		vals = append(vals, c.Revenue, c.Expenses, c.NetIncome)
	}

	graph := chart.BarChart{
		Title:        "Top Companies: Revenue, Expenses, Net Income",
		Width:        1200,
		Height:       500,
		BarWidth:     22,
		BarSpacing:   4,
		UseBaseValue: true,
		BaseValue:    0,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range:          zeroAnchoredRange(vals),
			ValueFormatter: moneyTick,
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func render(graph *chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func barStyle(c drawing.Color) chart.Style {
	return chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

func signColor(v float64, positive drawing.Color) drawing.Color {
	if v < 0 {
		return colorLoss
	}
	return positive
}

// paddedRange spans the values with a 5% margin. A single distinct value
// still gets a non-empty range.
func paddedRange(vals []float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.1, 1)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// zeroAnchoredRange is paddedRange widened to include zero, for bars drawn from a zero base
func zeroAnchoredRange(vals []float64) *chart.ContinuousRange {
	return paddedRange(append(append([]float64{}, vals...), 0))
}

func moneyTick(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return common.FormatCompactMoney(f)
}
