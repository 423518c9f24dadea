package pipeline

import (
	"gonum.org/v1/gonum/stat"

	"epipulse/pkg/contracts/domain"
)

// Rolling window sizes for the derived metrics.
const (
	roll3Window = 3
	roll5Window = 5
)

// Enrich computes roll3, roll5 and yoy for every long record, grouped by
// (country, disease). The input must already be sorted the way Reshape
// leaves it: groups contiguous, year ascending within each group. Group
// boundaries reset all window state, so no values leak between countries
// or diseases.
//
// Windows are trailing and include the current row. A window mean uses
// only the non-null values inside it and needs at least one; otherwise
// the metric is null. yoy compares against the immediately preceding row
// in sort order, not year-1, so gaps in years do not interpolate.
func Enrich(long []domain.LongRecord) []domain.LongRecord {
	if len(long) == 0 {
		return long
	}

	out := make([]domain.LongRecord, len(long))
	copy(out, long)

	groupStart := 0
	for i := 1; i <= len(out); i++ {
		if i == len(out) || !sameGroup(out[i], out[groupStart]) {
			enrichGroup(out[groupStart:i])
			groupStart = i
		}
	}

	return out
}

func sameGroup(a, b domain.LongRecord) bool {
	return a.Country == b.Country && a.Disease == b.Disease
}

// enrichGroup fills the derived metrics for one contiguous group.
func enrichGroup(group []domain.LongRecord) {
	for i := range group {
		group[i].Roll3 = windowMean(group, i, roll3Window)
		group[i].Roll5 = windowMean(group, i, roll5Window)
		group[i].YoY = yearOverYear(group, i)
	}
}

// windowMean averages the non-null values among rows [i-size+1, i],
// clipped at the group start. Null when the window holds no values.
func windowMean(group []domain.LongRecord, i, size int) domain.NullFloat {
	start := i - size + 1
	if start < 0 {
		start = 0
	}

	var values []float64
	for j := start; j <= i; j++ {
		if group[j].Value.Valid {
			values = append(values, group[j].Value.Float64)
		}
	}
	if len(values) == 0 {
		return domain.NullFloat{}
	}
	return domain.NewFloat(stat.Mean(values, nil))
}

// yearOverYear is value[i]/value[i-1] - 1, defined only when both the
// current and previous values exist and the previous one is non-zero.
// The first row of a group has no prior row and is always null.
func yearOverYear(group []domain.LongRecord, i int) domain.NullFloat {
	if i == 0 {
		return domain.NullFloat{}
	}
	prev := group[i-1].Value
	cur := group[i].Value
	if !cur.Valid || !prev.Valid || prev.Float64 == 0 {
		return domain.NullFloat{}
	}
	return domain.NewFloat(cur.Float64/prev.Float64 - 1)
}
