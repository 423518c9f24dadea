package domain

import "strconv"

// NullFloat is a float64 measure value that may be absent.
// Coercion failures during normalization produce invalid values
// rather than errors, so absence flows through the pipeline.
type NullFloat struct {
	Float64 float64 `json:"value"`
	Valid   bool    `json:"valid"`
}

// NewFloat returns a valid NullFloat holding v.
func NewFloat(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// String formats the value for CSV export. Invalid values render empty.
func (f NullFloat) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

// NullInt is an int64 value that may be absent, used for the year column.
type NullInt struct {
	Int64 int64 `json:"value"`
	Valid bool  `json:"valid"`
}

// NewInt returns a valid NullInt holding v.
func NewInt(v int64) NullInt {
	return NullInt{Int64: v, Valid: true}
}

// String formats the value for CSV export. Invalid values render empty.
func (i NullInt) String() string {
	if !i.Valid {
		return ""
	}
	return strconv.FormatInt(i.Int64, 10)
}
