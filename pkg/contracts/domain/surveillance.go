package domain

// Disease labels a measure column in the long table.
type Disease string

const (
	DiseaseMeasles        Disease = "Measles"
	DiseaseRubella        Disease = "Rubella"
	DiseaseMeaslesPer100K Disease = "Measles_per100k"
	DiseaseRubellaPer100K Disease = "Rubella_per100k"
)

// WideRecord is one row of the canonical wide table: one (country, year)
// observation with disease measures as separate columns. Duplicate
// (country, year) pairs from the raw input are preserved as-is.
type WideRecord struct {
	Region         string    `json:"region"`
	Country        string    `json:"country"`
	Year           NullInt   `json:"year"`
	Measles        NullFloat `json:"measles"`
	Rubella        NullFloat `json:"rubella"`
	Population     NullFloat `json:"population"`
	MeaslesPer100K NullFloat `json:"measles_per100k,omitempty"`
	RubellaPer100K NullFloat `json:"rubella_per100k,omitempty"`

	// Extra holds unrecognized source columns, passed through unchanged
	// keyed by their original header.
	Extra map[string]string `json:"extra,omitempty"`
}

// Measure returns the value of the measure column labelled by d.
func (w WideRecord) Measure(d Disease) NullFloat {
	switch d {
	case DiseaseMeasles:
		return w.Measles
	case DiseaseRubella:
		return w.Rubella
	case DiseaseMeaslesPer100K:
		return w.MeaslesPer100K
	case DiseaseRubellaPer100K:
		return w.RubellaPer100K
	}
	return NullFloat{}
}

// LongRecord is one row of the long table: a single (country, disease, year)
// observation with its derived time-series metrics.
type LongRecord struct {
	Region  string    `json:"region"`
	Country string    `json:"country"`
	Year    NullInt   `json:"year"`
	Disease Disease   `json:"disease"`
	Value   NullFloat `json:"value"`
	Roll3   NullFloat `json:"roll3"`
	Roll5   NullFloat `json:"roll5"`
	YoY     NullFloat `json:"yoy"`
}
