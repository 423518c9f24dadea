package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epipulse/internal/ingest"
	"epipulse/pkg/contracts/domain"
)

func rawTable(headers []string, rows [][]string) *ingest.RawTable {
	return &ingest.RawTable{Headers: headers, Rows: rows, Fingerprint: "test-fp"}
}

func TestNormalize_RenamesColumns(t *testing.T) {
	raw := rawTable(
		[]string{"Region", "Country", "Year", "Measles_Cases", "Rubella_Cases", "Population"},
		[][]string{
			{"Europe", "Italy", "2019", "100", "12", "60000000"},
		},
	)

	wide := Normalize(raw)

	require.Len(t, wide.Records, 1)
	rec := wide.Records[0]
	assert.Equal(t, "Europe", rec.Region)
	assert.Equal(t, "Italy", rec.Country)
	assert.Equal(t, domain.NewInt(2019), rec.Year)
	assert.Equal(t, domain.NewFloat(100), rec.Measles)
	assert.Equal(t, domain.NewFloat(12), rec.Rubella)
	assert.Equal(t, domain.NewFloat(60000000), rec.Population)

	assert.True(t, wide.Columns.Measles)
	assert.True(t, wide.Columns.Rubella)
	assert.False(t, wide.Columns.MeaslesPer100K)
	assert.Equal(t, "test-fp", wide.Fingerprint)
}

func TestNormalize_CaseInsensitiveHeaders(t *testing.T) {
	raw := rawTable(
		[]string{"country", "YEAR", "measles_cases"},
		[][]string{{"Italy", "2019", "100"}},
	)

	wide := Normalize(raw)

	require.Len(t, wide.Records, 1)
	assert.Equal(t, "Italy", wide.Records[0].Country)
	assert.Equal(t, domain.NewInt(2019), wide.Records[0].Year)
	assert.Equal(t, domain.NewFloat(100), wide.Records[0].Measles)
}

func TestNormalize_CoercionFailuresBecomeNulls(t *testing.T) {
	tests := []struct {
		name string
		cell string
	}{
		{name: "text", cell: "N/A"},
		{name: "empty", cell: ""},
		{name: "dash", cell: "-"},
		{name: "mixed", cell: "12abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawTable(
				[]string{"Country", "Year", "Measles_Cases"},
				[][]string{{"Italy", "2019", tt.cell}},
			)

			wide := Normalize(raw)

			require.Len(t, wide.Records, 1)
			assert.False(t, wide.Records[0].Measles.Valid)
			// The row itself survives.
			assert.Equal(t, "Italy", wide.Records[0].Country)
		})
	}
}

func TestNormalize_YearCoercion(t *testing.T) {
	tests := []struct {
		name     string
		cell     string
		expected domain.NullInt
	}{
		{name: "plain integer", cell: "2020", expected: domain.NewInt(2020)},
		{name: "spreadsheet float", cell: "2020.0", expected: domain.NewInt(2020)},
		{name: "fractional year is null", cell: "2020.5", expected: domain.NullInt{}},
		{name: "text is null", cell: "unknown", expected: domain.NullInt{}},
		{name: "empty is null", cell: "", expected: domain.NullInt{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawTable(
				[]string{"Country", "Year", "Measles_Cases"},
				[][]string{{"Italy", tt.cell, "1"}},
			)

			wide := Normalize(raw)
			require.Len(t, wide.Records, 1)
			assert.Equal(t, tt.expected, wide.Records[0].Year)
		})
	}
}

func TestNormalize_ThousandsSeparators(t *testing.T) {
	raw := rawTable(
		[]string{"Country", "Year", "Measles_Cases"},
		[][]string{{"Italy", "2019", "12,345"}},
	)

	wide := Normalize(raw)
	require.Len(t, wide.Records, 1)
	assert.Equal(t, domain.NewFloat(12345), wide.Records[0].Measles)
}

func TestNormalize_UnknownColumnsPassThrough(t *testing.T) {
	raw := rawTable(
		[]string{"Country", "Year", "Measles_Cases", "Source_System"},
		[][]string{{"Italy", "2019", "100", "WHO"}},
	)

	wide := Normalize(raw)

	require.Len(t, wide.Records, 1)
	assert.Equal(t, "WHO", wide.Records[0].Extra["Source_System"])
}

func TestNormalize_TrimsIdentityColumns(t *testing.T) {
	raw := rawTable(
		[]string{"Region", "Country", "Year", "Measles_Cases"},
		[][]string{{"  Europe ", " Italy  ", "2019", "100"}},
	)

	wide := Normalize(raw)

	require.Len(t, wide.Records, 1)
	assert.Equal(t, "Europe", wide.Records[0].Region)
	assert.Equal(t, "Italy", wide.Records[0].Country)
}

func TestNormalize_DuplicateRowsPreserved(t *testing.T) {
	raw := rawTable(
		[]string{"Country", "Year", "Measles_Cases"},
		[][]string{
			{"Italy", "2019", "100"},
			{"Italy", "2019", "110"},
		},
	)

	wide := Normalize(raw)

	require.Len(t, wide.Records, 2)
	assert.Equal(t, domain.NewFloat(100), wide.Records[0].Measles)
	assert.Equal(t, domain.NewFloat(110), wide.Records[1].Measles)
}

func TestNormalize_NilAndEmptyInput(t *testing.T) {
	assert.Empty(t, Normalize(nil).Records)

	wide := Normalize(rawTable([]string{"Country", "Year"}, nil))
	assert.Empty(t, wide.Records)
	assert.True(t, wide.Columns.Country)
}

func TestWideTable_Countries(t *testing.T) {
	raw := rawTable(
		[]string{"Country", "Year", "Measles_Cases"},
		[][]string{
			{"Italy", "2019", "1"},
			{"France", "2019", "2"},
			{"Italy", "2020", "3"},
		},
	)

	wide := Normalize(raw)

	assert.Equal(t, []string{"Italy", "France"}, wide.Countries())
}

func TestWideTable_CountryRecords(t *testing.T) {
	raw := rawTable(
		[]string{"Country", "Year", "Measles_Cases"},
		[][]string{
			{"Italy", "2020", "3"},
			{"Italy", "", "9"},
			{"Italy", "2019", "1"},
			{"France", "2019", "2"},
		},
	)

	wide := Normalize(raw)
	rows := wide.CountryRecords("Italy")

	require.Len(t, rows, 3)
	assert.Equal(t, domain.NewInt(2019), rows[0].Year)
	assert.Equal(t, domain.NewInt(2020), rows[1].Year)
	assert.False(t, rows[2].Year.Valid)
}
