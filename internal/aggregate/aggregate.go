// Package aggregate provides the rollups the presentation layer consumes:
// sums over the long table grouped by disease/year, region/year and
// country, plus per-country summary statistics. All reductions skip null
// values and exclude null-year rows from year-based groupings, and their
// results are independent of input row order.
package aggregate

import (
	"sort"

	"epipulse/pkg/contracts/domain"
)

// DiseaseYearTotal is the sum of values for one (disease, year) pair.
type DiseaseYearTotal struct {
	Disease domain.Disease `json:"disease"`
	Year    int64          `json:"year"`
	Total   float64        `json:"total"`
}

// TotalsByDiseaseYear sums values grouped by (disease, year), sorted by
// disease then year ascending.
func TotalsByDiseaseYear(long []domain.LongRecord) []DiseaseYearTotal {
	type key struct {
		disease domain.Disease
		year    int64
	}
	totals := make(map[key]float64)
	for _, r := range long {
		if !r.Year.Valid || !r.Value.Valid {
			continue
		}
		totals[key{r.Disease, r.Year.Int64}] += r.Value.Float64
	}

	out := make([]DiseaseYearTotal, 0, len(totals))
	for k, total := range totals {
		out = append(out, DiseaseYearTotal{Disease: k.disease, Year: k.year, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Disease != out[j].Disease {
			return out[i].Disease < out[j].Disease
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// RegionYearTotal is the sum of values for one (region, year) pair.
type RegionYearTotal struct {
	Region string  `json:"region"`
	Year   int64   `json:"year"`
	Total  float64 `json:"total"`
}

// TotalsByRegionYear sums values grouped by (region, year), sorted by
// region then year ascending.
func TotalsByRegionYear(long []domain.LongRecord) []RegionYearTotal {
	type key struct {
		region string
		year   int64
	}
	totals := make(map[key]float64)
	for _, r := range long {
		if !r.Year.Valid || !r.Value.Valid {
			continue
		}
		totals[key{r.Region, r.Year.Int64}] += r.Value.Float64
	}

	out := make([]RegionYearTotal, 0, len(totals))
	for k, total := range totals {
		out = append(out, RegionYearTotal{Region: k.region, Year: k.year, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// CountryTotal is the sum of values for one country.
type CountryTotal struct {
	Country string  `json:"country"`
	Total   float64 `json:"total"`
}

// RankCountries sums values per country and ranks descending by total,
// ties broken by country name ascending for stable output.
func RankCountries(long []domain.LongRecord) []CountryTotal {
	totals := make(map[string]float64)
	for _, r := range long {
		if !r.Value.Valid {
			continue
		}
		totals[r.Country] += r.Value.Float64
	}

	out := make([]CountryTotal, 0, len(totals))
	for country, total := range totals {
		out = append(out, CountryTotal{Country: country, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// TotalsByCountryForYear sums values per country for a single year,
// sorted by country name. Used for geographic display.
func TotalsByCountryForYear(long []domain.LongRecord, year int64) []CountryTotal {
	totals := make(map[string]float64)
	for _, r := range long {
		if !r.Year.Valid || r.Year.Int64 != year || !r.Value.Valid {
			continue
		}
		totals[r.Country] += r.Value.Float64
	}

	out := make([]CountryTotal, 0, len(totals))
	for country, total := range totals {
		out = append(out, CountryTotal{Country: country, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Country < out[j].Country
	})
	return out
}
