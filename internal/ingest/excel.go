// Package ingest reads the surveillance workbook into a raw table.
// It is the only place where malformed input is a hard failure; every
// later stage degrades to nulls instead.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"epipulse/internal/errors"
)

// RawTable is a parsed spreadsheet: one header row and the data rows
// beneath it, all values still strings.
type RawTable struct {
	Headers []string
	Rows    [][]string

	// Fingerprint identifies the dataset content for cache keying.
	Fingerprint string
}

// maxHeaderScanRows bounds how deep into a sheet we look for the header
// row; real exports occasionally carry title rows above it.
const maxHeaderScanRows = 10

// ReadWorkbook opens an .xlsx file and extracts the surveillance table.
func ReadWorkbook(path string) (*RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewMalformedInput(fmt.Sprintf("failed to open workbook %s", path), err)
	}
	defer f.Close()

	return extractTable(f)
}

// ReadWorkbookReader parses an .xlsx workbook from a reader, for callers
// holding uploaded bytes rather than a file path.
func ReadWorkbookReader(r io.Reader) (*RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.NewMalformedInput("failed to open workbook from reader", err)
	}
	defer f.Close()

	return extractTable(f)
}

func extractTable(f *excelize.File) (*RawTable, error) {
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) == 0 {
			continue
		}

		headerRow := findHeaderRow(rows)
		if headerRow == -1 {
			continue
		}

		slog.Info("found surveillance data sheet",
			slog.String("sheet_name", name),
			slog.Int("header_row", headerRow),
			slog.Int("data_rows", len(rows)-headerRow-1))

		headers := trimAll(rows[headerRow])
		data := padRows(rows[headerRow+1:], len(headers))

		return &RawTable{
			Headers:     headers,
			Rows:        data,
			Fingerprint: fingerprint(headers, data),
		}, nil
	}

	return nil, errors.NewMalformedInput("no sheet with Country and Year columns found", nil)
}

// findHeaderRow locates the first row carrying the identity columns.
func findHeaderRow(rows [][]string) int {
	limit := len(rows)
	if limit > maxHeaderScanRows {
		limit = maxHeaderScanRows
	}

	for i := 0; i < limit; i++ {
		rowText := strings.ToLower(strings.Join(rows[i], " "))
		if strings.Contains(rowText, "country") && strings.Contains(rowText, "year") {
			return i
		}
	}
	return -1
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(strings.TrimPrefix(cell, "\uFEFF"))
	}
	return out
}

// padRows right-pads short rows so every row has one cell per header.
// excelize drops trailing empty cells.
func padRows(rows [][]string, width int) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		padded := make([]string, width)
		for i := 0; i < width && i < len(row); i++ {
			padded[i] = row[i]
		}
		out = append(out, padded)
	}
	return out
}

// fingerprint hashes the table content so caches keyed on it miss as
// soon as the input dataset changes.
func fingerprint(headers []string, rows [][]string) string {
	h := sha256.New()
	writeRow := func(row []string) {
		for _, cell := range row {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}

	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}

	return hex.EncodeToString(h.Sum(nil))
}
