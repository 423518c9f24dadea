package operations

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"epipulse/internal/anomaly"
	"epipulse/internal/config"
	"epipulse/internal/errors"
	"epipulse/internal/exporter"
	"epipulse/internal/pipeline"
)

// writeFixtureWorkbook builds a two-country surveillance workbook.
func writeFixtureWorkbook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"Region", "Country", "Year", "Measles_Cases", "Rubella_Cases", "Population"},
	}
	for i := 0; i < 6; i++ {
		rows = append(rows,
			[]interface{}{"Europe", "Italy", 2015 + i, 100 + i*5, 10 + i, 60000000},
			[]interface{}{"Europe", "France", 2015 + i, 80 + i*3, 8 + i, 67000000},
		)
	}
	// One spike year for Italy.
	rows = append(rows, []interface{}{"Europe", "Italy", 2021, 5000, 400, 60000000})

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "surveillance.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func testPaths(t *testing.T) *config.Paths {
	t.Helper()

	dir := t.TempDir()
	paths, err := config.NewPaths(config.PathsConfig{
		DataDir:    dir,
		ReportsDir: filepath.Join(dir, "reports"),
		LogsDir:    filepath.Join(dir, "logs"),
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func TestFullRun(t *testing.T) {
	workbook := writeFixtureWorkbook(t)
	paths := testPaths(t)
	cfg := config.Default()

	proc := pipeline.New(nil, cfg.Cache)
	detector := anomaly.NewDetector(nil, cfg.Anomaly, cfg.Cache)
	writer := exporter.NewCSVWriter(paths)

	m := NewManager(nil,
		NewIngestStep(nil, workbook),
		NewTransformStep(nil, proc),
		NewScanStep(nil, detector, cfg.Anomaly.Contamination),
		NewExportStep(nil, writer, "surveillance"),
	)

	state, err := m.Execute(context.Background(), "run-integration")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, state.GetStatus())

	// Data flowed through every slot.
	require.NotNil(t, state.Raw)
	require.NotNil(t, state.Wide)
	assert.Len(t, state.Wide.Records, 13)
	assert.Len(t, state.Long, 13*2)
	require.Len(t, state.Anomalies, 2)
	assert.Equal(t, "Italy", state.Anomalies[0].Country)
	assert.Equal(t, "France", state.Anomalies[1].Country)

	// Scan progress carries the remaining-time estimate.
	scanStep := state.GetStep(StepIDScan)
	require.NotNil(t, scanStep)
	assert.Contains(t, scanStep.Message, "(eta ")

	// All reports exist and parse.
	for _, name := range []string{
		"surveillance_long.csv",
		"surveillance_wide.csv",
		"surveillance_anomalies_Italy.csv",
		"surveillance_anomalies_France.csv",
	} {
		path := paths.GetReportPath(name)
		f, err := os.Open(path)
		require.NoError(t, err, name)
		records, err := csv.NewReader(f).ReadAll()
		f.Close()
		require.NoError(t, err, name)
		assert.Greater(t, len(records), 1, name)
	}

	// Long export carries the derived columns.
	f, err := os.Open(paths.GetReportPath("surveillance_long.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"region", "country", "year", "disease", "value", "roll3", "roll5", "yoy"},
		records[0])
}

func TestIngestStep_MissingFile(t *testing.T) {
	m := NewManager(nil, NewIngestStep(nil, filepath.Join(t.TempDir(), "absent.xlsx")))

	state, err := m.Execute(context.Background(), "run-missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMalformedInput))
	assert.Equal(t, RunStatusFailed, state.GetStatus())
}

func TestIngestStep_EmptyPathFailsValidation(t *testing.T) {
	m := NewManager(nil, NewIngestStep(nil, ""))

	_, err := m.Execute(context.Background(), "run-nopath")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParameter))
}

func TestTransformStep_RequiresRawTable(t *testing.T) {
	proc := pipeline.New(nil, config.Default().Cache)
	m := NewManager(nil, NewTransformStep(nil, proc))

	_, err := m.Execute(context.Background(), "run-noraw")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMalformedInput))
}

func TestScanStep_InvalidContamination(t *testing.T) {
	workbook := writeFixtureWorkbook(t)
	cfg := config.Default()
	proc := pipeline.New(nil, cfg.Cache)
	detector := anomaly.NewDetector(nil, cfg.Anomaly, cfg.Cache)

	m := NewManager(nil,
		NewIngestStep(nil, workbook),
		NewTransformStep(nil, proc),
		NewScanStep(nil, detector, 1.5),
	)

	state, err := m.Execute(context.Background(), "run-badparam")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParameter))
	assert.Equal(t, RunStatusFailed, state.GetStatus())
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "Italy", expected: "Italy"},
		{in: "Korea, Republic of", expected: "Korea_Republic_of"},
		{in: "Bosnia/Herzegovina", expected: "Bosnia_Herzegovina"},
		{in: "Côte dIvoire", expected: "Cte_dIvoire"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeFileName(tt.in))
		})
	}
}
