// Package pipeline implements the surveillance data transformation:
// schema normalization, wide-to-long reshaping, and grouped time-series
// enrichment. Stages are fail-soft: coercion failures become nulls and
// missing columns produce empty output rather than errors, so consumers
// observe emptiness instead of crashes.
package pipeline

import (
	"strconv"
	"strings"

	"epipulse/internal/ingest"
	"epipulse/pkg/contracts/domain"
)

// columnRenames maps source spreadsheet headers to canonical names.
// The mapping is fixed and total; headers not listed here pass through
// unchanged into WideRecord.Extra.
var columnRenames = map[string]string{
	"Region":                 "region",
	"Country":                "country",
	"Year":                   "year",
	"Measles_Cases":          "measles",
	"Rubella_Cases":          "rubella",
	"Population":             "population",
	"Measles_Cases_Per_100K": "measles_per100k",
	"Rubella_Cases_Per_100K": "rubella_per100k",
}

// ColumnSet records which canonical measure columns were present in the
// source, driving which disease slices the reshaper emits.
type ColumnSet struct {
	Region         bool
	Country        bool
	Year           bool
	Measles        bool
	Rubella        bool
	Population     bool
	MeaslesPer100K bool
	RubellaPer100K bool
}

// Diseases returns the disease labels whose measure columns are present,
// in canonical emission order.
func (c ColumnSet) Diseases() []domain.Disease {
	var out []domain.Disease
	if c.Measles {
		out = append(out, domain.DiseaseMeasles)
	}
	if c.Rubella {
		out = append(out, domain.DiseaseRubella)
	}
	if c.MeaslesPer100K {
		out = append(out, domain.DiseaseMeaslesPer100K)
	}
	if c.RubellaPer100K {
		out = append(out, domain.DiseaseRubellaPer100K)
	}
	return out
}

// WideTable is the normalized wide output: canonical columns plus
// passthrough, one record per source row, duplicates preserved.
type WideTable struct {
	Records     []domain.WideRecord
	Columns     ColumnSet
	Fingerprint string
}

// Countries returns the distinct countries in first-seen order.
func (t *WideTable) Countries() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Records {
		if !seen[r.Country] {
			seen[r.Country] = true
			out = append(out, r.Country)
		}
	}
	return out
}

// CountryRecords returns the rows for one country in year-ascending
// order, null years last.
func (t *WideTable) CountryRecords(country string) []domain.WideRecord {
	var out []domain.WideRecord
	for _, r := range t.Records {
		if r.Country == country {
			out = append(out, r)
		}
	}
	sortWideByYear(out)
	return out
}

// Normalize renames raw columns to the canonical wide schema, trims the
// identity columns, and coerces year and measure values. It never fails:
// unparseable cells become nulls and a raw table missing the identity
// columns simply yields rows with empty identities, which downstream
// reshaping turns into an empty or degenerate long table.
func Normalize(raw *ingest.RawTable) *WideTable {
	if raw == nil {
		return &WideTable{}
	}

	canonical := make([]string, len(raw.Headers))
	cols := ColumnSet{}
	for i, header := range raw.Headers {
		name, ok := columnRenames[header]
		if !ok {
			// Fall back to case-insensitive matching on the source name.
			for src, dst := range columnRenames {
				if strings.EqualFold(src, header) {
					name, ok = dst, true
					break
				}
			}
		}
		if !ok {
			canonical[i] = header
			continue
		}
		canonical[i] = name
		switch name {
		case "region":
			cols.Region = true
		case "country":
			cols.Country = true
		case "year":
			cols.Year = true
		case "measles":
			cols.Measles = true
		case "rubella":
			cols.Rubella = true
		case "population":
			cols.Population = true
		case "measles_per100k":
			cols.MeaslesPer100K = true
		case "rubella_per100k":
			cols.RubellaPer100K = true
		}
	}

	records := make([]domain.WideRecord, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		rec := domain.WideRecord{}
		for i, cell := range row {
			if i >= len(canonical) {
				break
			}
			switch canonical[i] {
			case "region":
				rec.Region = strings.TrimSpace(cell)
			case "country":
				rec.Country = strings.TrimSpace(cell)
			case "year":
				rec.Year = coerceInt(cell)
			case "measles":
				rec.Measles = coerceFloat(cell)
			case "rubella":
				rec.Rubella = coerceFloat(cell)
			case "population":
				rec.Population = coerceFloat(cell)
			case "measles_per100k":
				rec.MeaslesPer100K = coerceFloat(cell)
			case "rubella_per100k":
				rec.RubellaPer100K = coerceFloat(cell)
			default:
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[canonical[i]] = cell
			}
		}
		records = append(records, rec)
	}

	return &WideTable{
		Records:     records,
		Columns:     cols,
		Fingerprint: raw.Fingerprint,
	}
}

// coerceFloat parses a numeric cell, tolerating thousands separators and
// surrounding whitespace. Anything unparseable is null.
func coerceFloat(cell string) domain.NullFloat {
	s := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if s == "" {
		return domain.NullFloat{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.NullFloat{}
	}
	return domain.NewFloat(v)
}

// coerceInt parses the year cell. Values like "2020.0" from spreadsheet
// float formatting coerce to their integral value; anything else that is
// not a whole number is null.
func coerceInt(cell string) domain.NullInt {
	s := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if s == "" {
		return domain.NullInt{}
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return domain.NewInt(v)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return domain.NullInt{}
	}
	return domain.NewInt(int64(f))
}
