package pipeline

import (
	"sort"

	"epipulse/pkg/contracts/domain"
)

// Reshape converts the wide table into long form: one slice of rows per
// disease column present, concatenated. No rows are filtered, so a wide
// table with N rows and D disease columns yields exactly N*D long rows.
// The result is stable-sorted by (country, disease, year ascending) with
// null years last; duplicate (country, disease, year) rows keep their
// input order. Sort order is load-bearing: the enricher's windows and
// year-over-year ratios follow row order within each group.
func Reshape(wide *WideTable) []domain.LongRecord {
	if wide == nil || len(wide.Records) == 0 {
		return nil
	}

	diseases := wide.Columns.Diseases()
	long := make([]domain.LongRecord, 0, len(wide.Records)*len(diseases))

	for _, disease := range diseases {
		for _, rec := range wide.Records {
			long = append(long, domain.LongRecord{
				Region:  rec.Region,
				Country: rec.Country,
				Year:    rec.Year,
				Disease: disease,
				Value:   rec.Measure(disease),
			})
		}
	}

	sortLong(long)
	return long
}

// sortLong stable-sorts long records by (country, disease, year asc),
// null years after valid ones.
func sortLong(long []domain.LongRecord) {
	sort.SliceStable(long, func(i, j int) bool {
		a, b := long[i], long[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.Disease != b.Disease {
			return a.Disease < b.Disease
		}
		return yearLess(a.Year, b.Year)
	})
}

// yearLess orders years ascending with nulls last.
func yearLess(a, b domain.NullInt) bool {
	switch {
	case a.Valid && b.Valid:
		return a.Int64 < b.Int64
	case a.Valid:
		return true
	default:
		return false
	}
}

// sortWideByYear orders wide records by year ascending, null years last,
// preserving input order for ties.
func sortWideByYear(records []domain.WideRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return yearLess(records[i].Year, records[j].Year)
	})
}
