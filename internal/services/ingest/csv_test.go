package ingest

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tally/internal/models"
)

func TestParseCSV_Basic(t *testing.T) {
	in := "Company,Revenue,Expenses,Net_Income,Sector\n" +
		"Acme,100,60,40,Retail\n" +
		"Globex,200,150,50,Energy\n"

	table, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"Company", "Revenue", "Expenses", "Net_Income", "Sector"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Globex", table.Rows[1]["Company"])
	assert.Equal(t, "150", table.Rows[1]["Expenses"])
}

func TestParseCSV_DelimiterDetection(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"semicolon", "Company;Revenue;Expenses;Net_Income\nAcme;100;60;40\n"},
		{"tab", "Company\tRevenue\tExpenses\tNet_Income\nAcme\t100\t60\t40\n"},
		{"comma", "Company,Revenue,Expenses,Net_Income\nAcme,100,60,40\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseCSV(strings.NewReader(tt.in))
			require.NoError(t, err)
			require.Len(t, table.Rows, 1)
			assert.Equal(t, "40", table.Rows[0]["Net_Income"])
		})
	}
}

func TestParseCSV_BOMAndHeaderWhitespace(t *testing.T) {
	in := "\xEF\xBB\xBF Company , Revenue,Expenses,Net_Income\nAcme,1,1,0\n"

	table, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, "Company", table.Columns[0])
	assert.Equal(t, "Revenue", table.Columns[1])
	assert.Equal(t, "Acme", table.Rows[0]["Company"])
}

func TestParseCSV_ShortRowsLeaveCellsAbsent(t *testing.T) {
	in := "Company,Revenue,Expenses,Net_Income\nAcme,100\n"

	table, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	_, ok := table.Rows[0]["Expenses"]
	assert.False(t, ok)

	rows := table.RawRows()
	_, ok, err = rows[0].Lookup(models.ColExpenses)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseCSV_BlankLinesSkipped(t *testing.T) {
	in := "Company,Revenue,Expenses,Net_Income\n\nAcme,1,1,0\n,,,\nGlobex,2,1,1\n"

	table, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestParseCSV_ErrorReportsSourceLine(t *testing.T) {
	in := "Company,Revenue,Expenses,Net_Income\n,,,\n\n,,,\nAcme,1,1,0\nBad\"Co,1,1,0\n"

	_, err := ParseCSV(strings.NewReader(in))
	require.Error(t, err)

	var perr *csv.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "read line 6:")
}

func TestParseCSV_QuotedFields(t *testing.T) {
	in := "Company,Revenue,Expenses,Net_Income\n\"Smith, Jones & Co\",\"1,000\",500,500\n"

	table, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "Smith, Jones & Co", table.Rows[0]["Company"])
	assert.Equal(t, "1,000", table.Rows[0]["Revenue"])
}

func TestParseCSV_NoHeader(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	table, err := ParseCSV(strings.NewReader("Company,Revenue,Expenses,Net_Income\n"))
	require.NoError(t, err)
	assert.NotNil(t, table.Rows)
	assert.Empty(t, table.Rows)
}

func TestDecodeJSONRows(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"bare_array", `[{"Company":"A","Revenue":100,"Expenses":50,"Net_Income":50}]`, 1},
		{"envelope", `{"rows":[{"Company":"A"},{"Company":"B"}]}`, 2},
		{"empty_array", `[]`, 0},
		{"envelope_without_rows", `{}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := DecodeJSONRows(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.NotNil(t, rows)
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestDecodeJSONRows_KeepsNumbers(t *testing.T) {
	rows, err := DecodeJSONRows(strings.NewReader(`[{"Revenue":12345678901234567}]`))
	require.NoError(t, err)

	v, ok, err := rows[0].Lookup(models.ColRevenue)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, json.Number("12345678901234567"), v)
}

func TestDecodeJSONRows_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "{not json", `"text"`} {
		_, err := DecodeJSONRows(strings.NewReader(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestTableFromRows(t *testing.T) {
	rows, err := DecodeJSONRows(strings.NewReader(`[
		{"Zeta": "z", "Net_Income": 5, "Company": "A", "Revenue": 10, "Expenses": 5},
		{"Company": "B", "Alpha": true, "Sector": "Retail"}
	]`))
	require.NoError(t, err)

	table := TableFromRows(rows)

	assert.Equal(t, []string{"Company", "Revenue", "Expenses", "Net_Income", "Sector", "Alpha", "Zeta"}, table.Columns)
	assert.Equal(t, "10", table.Rows[0]["Revenue"])
	assert.Equal(t, "true", table.Rows[1]["Alpha"])
	_, ok := table.Rows[1]["Revenue"]
	assert.False(t, ok)
}
