package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pdfFont       = "Helvetica"
	pdfFontSize   = 9.0
	pdfLineHeight = 5.0
	pdfPageWidth  = 190.0 // A4 minus 10mm margins
)

// MarkdownToPDF lays out report markdown on A4 pages. Headings, paragraphs,
// emphasis, lists and tables are supported; anything else is written as text.
func MarkdownToPDF(md, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("tally", true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont(pdfFont, "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	pdf.SetFont(pdfFont, "", pdfFontSize)

	source := []byte(md)
	doc := markdown.Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{pdf: pdf, source: source, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	tr        func(string) string
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfRenderer) setFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(pdfFont, style, pdfFontSize)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			size := map[int]float64{1: 15, 2: 12, 3: 10.5}[node.Level]
			if size == 0 {
				size = 10
			}
			r.pdf.SetFont(pdfFont, "B", size)
			r.pdf.MultiCell(0, size*0.55, r.tr(inlineText(node, r.source)), "", "L", false)
			r.pdf.Ln(1)
			r.setFont()
		}
		return ast.WalkSkipChildren, nil

	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(pdfLineHeight + 1)
		}

	case *ast.TextBlock:
		if !entering {
			r.pdf.Ln(pdfLineHeight)
		}

	case *ast.Text:
		if entering {
			r.pdf.Write(pdfLineHeight, r.tr(string(node.Segment.Value(r.source))))
			if node.SoftLineBreak() {
				r.pdf.Write(pdfLineHeight, " ")
			}
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.setFont()

	case *ast.CodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", pdfFontSize)
			r.pdf.Write(pdfLineHeight, r.tr(inlineText(node, r.source)))
			r.setFont()
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(2)
			}
		}

	case *ast.ListItem:
		if entering {
			r.pdf.SetX(10 + float64(r.listLevel)*5)
			r.pdf.Write(pdfLineHeight, "- ")
		}

	case *ast.ThematicBreak:
		if entering {
			y := r.pdf.GetY() + 2
			r.pdf.Line(10, y, 10+pdfPageWidth, y)
			r.pdf.Ln(4)
		}

	case *extast.Table:
		if entering {
			r.table(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

// table draws a grid with equal-share column widths weighted by content length
func (r *pdfRenderer) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, r.tr(inlineText(cell, r.source)))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	cols := len(rows[0])
	widths := make([]float64, cols)
	total := 0.0
	for c := 0; c < cols; c++ {
		longest := 4.0
		for _, row := range rows {
			if c < len(row) {
				if w := r.pdf.GetStringWidth(row[c]); w > longest {
					longest = w
				}
			}
		}
		widths[c] = longest
		total += longest
	}
	for c := range widths {
		widths[c] = widths[c] / total * pdfPageWidth
	}

	r.pdf.Ln(1)
	r.pdf.SetFont(pdfFont, "", 7.5)
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(pdfFont, "B", 7.5)
			r.pdf.SetFillColor(230, 230, 230)
		}
		for c := 0; c < cols; c++ {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			cell = fitText(r.pdf, cell, widths[c]-1.5)
			r.pdf.CellFormat(widths[c], 5, cell, "1", 0, "L", i == 0, 0, "")
		}
		r.pdf.Ln(-1)
		if i == 0 {
			r.pdf.SetFont(pdfFont, "", 7.5)
		}
	}
	r.pdf.Ln(3)
	r.setFont()
}

// fitText truncates s with an ellipsis until it fits the width
func fitText(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// inlineText collects the literal text under an inline container
func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}
