package anomaly

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"epipulse/internal/cache"
	"epipulse/internal/config"
	"epipulse/internal/errors"
	"epipulse/internal/infrastructure"
	"epipulse/internal/pipeline"
	"epipulse/pkg/contracts/domain"
)

// minObservations is the smallest feature matrix an isolation forest is
// fitted on. Countries and feature sets below it yield no result.
const minObservations = 3

// Detector runs per-country anomaly detection over the wide table.
// Results are memoized keyed by (dataset fingerprint, country,
// contamination, ensemble sizes).
type Detector struct {
	logger   *slog.Logger
	cfg      config.AnomalyConfig
	cache    *cache.Cache[*domain.CountryAnomalies]
	validate *validator.Validate
}

// NewDetector creates a detector with the given model and cache settings.
func NewDetector(logger *slog.Logger, cfg config.AnomalyConfig, cacheCfg config.CacheConfig) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		logger:   logger,
		cfg:      cfg,
		cache:    cache.New[*domain.CountryAnomalies](cacheCfg.TTL, cacheCfg.MaxSize),
		validate: validator.New(),
	}
}

// DetectCountry scores one country's time series. A contamination
// outside (0,1) is rejected before any computation. A country with fewer
// than three year-observations yields (nil, nil): absent, not an error.
//
// Three feature sets are scored independently when they have enough
// observations: measles alone, rubella alone, and both jointly. Rows
// with a null in any of a feature set's columns are dropped from that
// fit but keep their place in the output with no score. The joint model
// uses a larger ensemble than the single-feature models.
func (d *Detector) DetectCountry(ctx context.Context, wide *pipeline.WideTable, country string, contamination float64) (*domain.CountryAnomalies, error) {
	if err := d.validate.Var(contamination, "gt=0,lt=1"); err != nil {
		return nil, errors.NewInvalidParameter(
			fmt.Sprintf("contamination must be in (0, 1), got %v", contamination))
	}

	ctx, span := infrastructure.Tracer().Start(ctx, "anomaly.DetectCountry")
	defer span.End()
	span.SetAttributes(
		attribute.String("country", country),
		attribute.Float64("contamination", contamination),
	)

	key := d.cacheKey(wide.Fingerprint, country, contamination)
	if res, ok := d.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return res, nil
	}

	rows := wide.CountryRecords(country)
	if len(rows) < minObservations {
		d.logger.DebugContext(ctx, "insufficient data for anomaly detection",
			slog.String("country", country),
			slog.Int("observations", len(rows)),
			slog.Int("required", minObservations))
		return nil, nil
	}

	result := &domain.CountryAnomalies{
		Country: country,
		Records: make([]domain.AnomalyRecord, len(rows)),
	}
	for i, rec := range rows {
		result.Records[i] = domain.AnomalyRecord{WideRecord: rec}
	}

	if wide.Columns.Measles {
		d.scoreFeatureSet(result, domain.FeatureSetMeasles, contamination, d.cfg.Trees,
			func(r domain.WideRecord) ([]float64, bool) {
				if !r.Measles.Valid {
					return nil, false
				}
				return []float64{r.Measles.Float64}, true
			})
	}
	if wide.Columns.Rubella {
		d.scoreFeatureSet(result, domain.FeatureSetRubella, contamination, d.cfg.Trees,
			func(r domain.WideRecord) ([]float64, bool) {
				if !r.Rubella.Valid {
					return nil, false
				}
				return []float64{r.Rubella.Float64}, true
			})
	}
	if wide.Columns.Measles && wide.Columns.Rubella {
		d.scoreFeatureSet(result, domain.FeatureSetJoint, contamination, d.cfg.JointTrees,
			func(r domain.WideRecord) ([]float64, bool) {
				if !r.Measles.Valid || !r.Rubella.Valid {
					return nil, false
				}
				return []float64{r.Measles.Float64, r.Rubella.Float64}, true
			})
	}

	d.logger.InfoContext(ctx, "anomaly detection completed",
		slog.String("country", country),
		slog.Int("observations", len(rows)),
		slog.Int("feature_sets", len(result.Scored)))

	d.cache.Set(key, result)
	return result, nil
}

// featureFn extracts one feature set's vector from a wide record, or
// reports the row unusable for that fit.
type featureFn func(domain.WideRecord) ([]float64, bool)

// scoreFeatureSet fits one model over the rows the extractor accepts and
// writes labels and scores back onto those rows. Feature sets with fewer
// than three usable observations are skipped entirely: the result simply
// lacks that feature set rather than carrying nulls.
func (d *Detector) scoreFeatureSet(result *domain.CountryAnomalies, fs domain.FeatureSet, contamination float64, trees int, extract featureFn) {
	var features [][]float64
	var rowIdx []int
	for i, rec := range result.Records {
		if vec, ok := extract(rec.WideRecord); ok {
			features = append(features, vec)
			rowIdx = append(rowIdx, i)
		}
	}
	if len(features) < minObservations {
		return
	}

	forest := fitForest(features, forestConfig{trees: trees, seed: d.cfg.Seed})
	scores := forest.scoreSamples(features)
	labels := labelScores(scores, contamination)

	for j, i := range rowIdx {
		score := &domain.AnomalyScore{Label: labels[j], Score: scores[j]}
		switch fs {
		case domain.FeatureSetMeasles:
			result.Records[i].Measles = score
		case domain.FeatureSetRubella:
			result.Records[i].Rubella = score
		case domain.FeatureSetJoint:
			result.Records[i].Joint = score
		}
	}
	result.Scored = append(result.Scored, fs)
}

// InvalidateDataset drops every cached result. Called when the input
// dataset is replaced.
func (d *Detector) InvalidateDataset() {
	d.cache.Clear()
}

// CacheStats exposes memoization statistics.
func (d *Detector) CacheStats() map[string]interface{} {
	return d.cache.Stats()
}

func (d *Detector) cacheKey(fingerprint, country string, contamination float64) string {
	return fmt.Sprintf("%s|%s|%g|%d|%d|%d",
		fingerprint, country, contamination, d.cfg.Trees, d.cfg.JointTrees, d.cfg.Seed)
}
