// Package ingest turns delimited text and JSON into analysis input rows
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bobmcallan/tally/internal/models"
)

// ErrNoHeader is returned when the input has no header row
var ErrNoHeader = errors.New("input has no header row")

// Table is delimited text split into a header and rows keyed by column
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// RawRows converts the table into analysis input. Cells that were absent
// from a short line are absent from the row.
func (t *Table) RawRows() []models.RawRow {
	rows := make([]models.RawRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		raw := make(models.RawRow, len(r))
		for k, v := range r {
			raw[k] = v
		}
		rows = append(rows, raw)
	}
	return rows
}

// ParseCSV reads delimited text with a header row. The delimiter is
// detected from the header among comma, semicolon and tab. Header names are
// trimmed and a UTF-8 byte order mark is dropped.
func ParseCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)

	// Drop a UTF-8 BOM
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	head, _ := br.Peek(4096)
	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(head)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "") {
		return nil, ErrNoHeader
	}

	table := &Table{Columns: columns, Rows: []map[string]string{}}
	line, _ := reader.FieldPos(0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, fmt.Errorf("read line %d: %w", perr.StartLine, err)
			}
			return nil, fmt.Errorf("read after line %d: %w", line, err)
		}
		line, _ = reader.FieldPos(0)
		if isBlankRecord(record) {
			continue
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) && col != "" {
				row[col] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// detectDelimiter picks the most frequent candidate in the first line
func detectDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// DecodeJSONRows reads either {"rows": [...]} or a bare array of row
// objects. Numbers are kept as json.Number so no precision is lost before
// validation.
func DecodeJSONRows(r io.Reader) ([]models.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty JSON body")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if data[0] == '[' {
		var rows []models.RawRow
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		return nonNil(rows), nil
	}

	var envelope struct {
		Rows []models.RawRow `json:"rows"`
	}
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return nonNil(envelope.Rows), nil
}

func nonNil(rows []models.RawRow) []models.RawRow {
	if rows == nil {
		return []models.RawRow{}
	}
	return rows
}

// TableFromRows builds a table from decoded JSON rows. Required columns come
// first, then any others in name order.
func TableFromRows(rows []models.RawRow) *Table {
	seen := map[string]bool{}
	var extra []string
	table := &Table{Rows: make([]map[string]string, 0, len(rows))}

	for _, r := range rows {
		row := make(map[string]string, len(r))
		for k, v := range r {
			row[k] = cellString(v)
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
		table.Rows = append(table.Rows, row)
	}

	known := append(append([]string{}, models.RequiredColumns...), models.OptionalColumns...)
	for _, col := range known {
		if seen[col] {
			table.Columns = append(table.Columns, col)
			delete(seen, col)
		}
	}
	sort.Strings(extra)
	for _, col := range extra {
		if seen[col] {
			table.Columns = append(table.Columns, col)
		}
	}
	if table.Columns == nil {
		table.Columns = []string{}
	}
	return table
}
