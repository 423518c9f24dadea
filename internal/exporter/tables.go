package exporter

import (
	"sort"
	"strconv"

	"epipulse/internal/errors"
	"epipulse/internal/pipeline"
	"epipulse/pkg/contracts/domain"
)

// longHeaders is the fixed column order of the long-table export.
var longHeaders = []string{"region", "country", "year", "disease", "value", "roll3", "roll5", "yoy"}

// WriteLongCSV exports the enriched long table, rows sorted by
// (country, region, disease, year) to match the download contract.
func (w *CSVWriter) WriteLongCSV(filePath string, long []domain.LongRecord) error {
	rows := append([]domain.LongRecord(nil), long...)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.Disease != b.Disease {
			return a.Disease < b.Disease
		}
		if a.Year.Valid != b.Year.Valid {
			return a.Year.Valid
		}
		return a.Year.Int64 < b.Year.Int64
	})

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Region,
			r.Country,
			r.Year.String(),
			string(r.Disease),
			r.Value.String(),
			r.Roll3.String(),
			r.Roll5.String(),
			r.YoY.String(),
		})
	}

	if err := w.WriteSimpleCSV(filePath, longHeaders, records); err != nil {
		return errors.NewExport("failed to write long table", err)
	}
	return nil
}

// WriteWideCSV exports the normalized wide table: canonical columns
// first, optional per-100k columns when present, then passthrough
// columns in sorted header order.
func (w *CSVWriter) WriteWideCSV(filePath string, wide *pipeline.WideTable) error {
	headers := []string{"region", "country", "year", "measles", "rubella", "population"}
	if wide.Columns.MeaslesPer100K {
		headers = append(headers, "measles_per100k")
	}
	if wide.Columns.RubellaPer100K {
		headers = append(headers, "rubella_per100k")
	}
	extraCols := extraColumns(wide.Records)
	headers = append(headers, extraCols...)

	records := make([][]string, 0, len(wide.Records))
	for _, r := range wide.Records {
		row := []string{
			r.Region,
			r.Country,
			r.Year.String(),
			r.Measles.String(),
			r.Rubella.String(),
			r.Population.String(),
		}
		if wide.Columns.MeaslesPer100K {
			row = append(row, r.MeaslesPer100K.String())
		}
		if wide.Columns.RubellaPer100K {
			row = append(row, r.RubellaPer100K.String())
		}
		for _, col := range extraCols {
			row = append(row, r.Extra[col])
		}
		records = append(records, row)
	}

	if err := w.WriteSimpleCSV(filePath, headers, records); err != nil {
		return errors.NewExport("failed to write wide table", err)
	}
	return nil
}

// WriteAnomalyCSV exports one country's anomaly result: the wide columns
// plus label and score columns for each feature set that was scored.
// Feature sets that were not scored contribute no columns at all.
func (w *CSVWriter) WriteAnomalyCSV(filePath string, result *domain.CountryAnomalies) error {
	headers := []string{"region", "country", "year", "measles", "rubella", "population"}
	for _, fs := range []domain.FeatureSet{domain.FeatureSetMeasles, domain.FeatureSetRubella, domain.FeatureSetJoint} {
		if result.HasFeature(fs) {
			headers = append(headers, string(fs)+"_anomaly", string(fs)+"_anomaly_score")
		}
	}

	records := make([][]string, 0, len(result.Records))
	for _, r := range result.Records {
		row := []string{
			r.Region,
			r.Country,
			r.Year.String(),
			r.WideRecord.Measles.String(),
			r.WideRecord.Rubella.String(),
			r.Population.String(),
		}
		for _, fs := range []domain.FeatureSet{domain.FeatureSetMeasles, domain.FeatureSetRubella, domain.FeatureSetJoint} {
			if result.HasFeature(fs) {
				row = appendScore(row, r.ScoreFor(fs))
			}
		}
		records = append(records, row)
	}

	if err := w.WriteSimpleCSV(filePath, headers, records); err != nil {
		return errors.NewExport("failed to write anomaly table", err)
	}
	return nil
}

// appendScore renders one feature set's label and score cells. Rows the
// model did not score (joint rows dropped for nulls) render empty.
func appendScore(row []string, score *domain.AnomalyScore) []string {
	if score == nil {
		return append(row, "", "")
	}
	return append(row,
		strconv.Itoa(score.Label),
		strconv.FormatFloat(score.Score, 'f', 6, 64))
}

// extraColumns returns the sorted union of passthrough column names.
func extraColumns(records []domain.WideRecord) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		for col := range r.Extra {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)
	return cols
}
