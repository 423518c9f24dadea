package domain

// FeatureSet identifies the measure columns fed to one outlier model.
type FeatureSet string

const (
	FeatureSetMeasles FeatureSet = "measles"
	FeatureSetRubella FeatureSet = "rubella"
	FeatureSetJoint   FeatureSet = "joint"
)

// AnomalyScore is the output of one outlier model for one row.
type AnomalyScore struct {
	// Label is +1 for normal points and -1 for outliers.
	Label int `json:"label"`
	// Score is the model decision value; lower means more anomalous.
	Score float64 `json:"score"`
}

// AnomalyRecord augments a wide row with the scores of whichever feature
// sets had enough data. A nil pointer means the feature set was not scored
// for this row; for the joint set that includes rows dropped for nulls.
type AnomalyRecord struct {
	WideRecord

	Measles *AnomalyScore `json:"measles_anomaly,omitempty"`
	Rubella *AnomalyScore `json:"rubella_anomaly,omitempty"`
	Joint   *AnomalyScore `json:"joint_anomaly,omitempty"`
}

// ScoreFor returns the score for one feature set, nil when unscored.
func (r *AnomalyRecord) ScoreFor(fs FeatureSet) *AnomalyScore {
	switch fs {
	case FeatureSetMeasles:
		return r.Measles
	case FeatureSetRubella:
		return r.Rubella
	case FeatureSetJoint:
		return r.Joint
	}
	return nil
}

// CountryAnomalies is the per-country anomaly detection result.
// Countries with fewer than the minimum observations yield no result at
// all rather than an empty structure.
type CountryAnomalies struct {
	Country string       `json:"country"`
	Scored  []FeatureSet `json:"scored"`
	Records []AnomalyRecord `json:"records"`
}

// HasFeature reports whether the given feature set was scored.
func (c *CountryAnomalies) HasFeature(fs FeatureSet) bool {
	for _, s := range c.Scored {
		if s == fs {
			return true
		}
	}
	return false
}
