package aggregate

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"epipulse/pkg/contracts/domain"
)

// CountrySummary holds the headline statistics for one country's yearly
// case totals.
type CountrySummary struct {
	Country       string  `json:"country"`
	Total         float64 `json:"total"`
	PeakYear      int64   `json:"peak_year"`
	PeakValue     float64 `json:"peak_value"`
	AnnualAverage float64 `json:"annual_average"`
	Years         int     `json:"years"`
}

// SummarizeCountry reduces one country's long rows to yearly sums and
// reports total, peak year, peak value and annual average. The second
// return is false when the country has no year-attributed values.
func SummarizeCountry(long []domain.LongRecord, country string) (CountrySummary, bool) {
	yearly := yearlyTotals(long, country)
	if len(yearly) == 0 {
		return CountrySummary{}, false
	}

	summary := CountrySummary{Country: country, Years: len(yearly)}
	first := true
	for year, total := range yearly {
		summary.Total += total
		if first || total > summary.PeakValue {
			summary.PeakYear = year
			summary.PeakValue = total
			first = false
		} else if total == summary.PeakValue && year < summary.PeakYear {
			summary.PeakYear = year
		}
	}
	summary.AnnualAverage = summary.Total / float64(len(yearly))

	return summary, true
}

// ComparisonStats are the side-by-side statistics over a country's
// yearly totals.
type ComparisonStats struct {
	Country string  `json:"country"`
	Total   float64 `json:"total"`
	Mean    float64 `json:"mean"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	StdDev  float64 `json:"std_dev"`
}

// CompareCountries computes comparison statistics for each requested
// country, preserving the requested order. Countries without data are
// omitted. StdDev is the sample standard deviation and is zero for a
// single observation.
func CompareCountries(long []domain.LongRecord, countries []string) []ComparisonStats {
	out := make([]ComparisonStats, 0, len(countries))
	for _, country := range countries {
		yearly := yearlyTotals(long, country)
		if len(yearly) == 0 {
			continue
		}

		values := make([]float64, 0, len(yearly))
		for _, total := range yearly {
			values = append(values, total)
		}
		sort.Float64s(values)

		stats := ComparisonStats{
			Country: country,
			Mean:    stat.Mean(values, nil),
			Min:     values[0],
			Max:     values[len(values)-1],
		}
		for _, v := range values {
			stats.Total += v
		}
		if len(values) > 1 {
			stats.StdDev = stat.StdDev(values, nil)
		}
		out = append(out, stats)
	}
	return out
}

// KPISummary is the global headline row over a long-table selection.
type KPISummary struct {
	TotalCases     float64 `json:"total_cases"`
	LatestYear     int64   `json:"latest_year"`
	HasLatestYear  bool    `json:"has_latest_year"`
	LatestTotal    float64 `json:"latest_total"`
	LatestYoY      float64 `json:"latest_yoy"`
	HasLatestYoY   bool    `json:"has_latest_yoy"`
	Countries      int     `json:"countries"`
	AveragePerYear float64 `json:"average_per_year"`
}

// Summarize computes the global KPI row: period total, latest year and
// its total, latest year-over-year change against the prior year when
// that year has a positive total, distinct countries, and the average
// total per observed year.
func Summarize(long []domain.LongRecord) KPISummary {
	var summary KPISummary

	yearTotals := make(map[int64]float64)
	countries := make(map[string]bool)
	for _, r := range long {
		countries[r.Country] = true
		if !r.Value.Valid {
			continue
		}
		summary.TotalCases += r.Value.Float64
		if r.Year.Valid {
			yearTotals[r.Year.Int64] += r.Value.Float64
		}
	}
	summary.Countries = len(countries)

	if len(yearTotals) == 0 {
		return summary
	}

	summary.AveragePerYear = summary.TotalCases / float64(len(yearTotals))

	for year := range yearTotals {
		if !summary.HasLatestYear || year > summary.LatestYear {
			summary.LatestYear = year
			summary.HasLatestYear = true
		}
	}
	summary.LatestTotal = yearTotals[summary.LatestYear]

	if prev, ok := yearTotals[summary.LatestYear-1]; ok && prev > 0 {
		summary.LatestYoY = summary.LatestTotal/prev - 1
		summary.HasLatestYoY = true
	}

	return summary
}

// yearlyTotals sums one country's values per year, skipping nulls and
// rows without a year.
func yearlyTotals(long []domain.LongRecord, country string) map[int64]float64 {
	yearly := make(map[int64]float64)
	for _, r := range long {
		if r.Country != country || !r.Year.Valid || !r.Value.Valid {
			continue
		}
		yearly[r.Year.Int64] += r.Value.Float64
	}
	return yearly
}
