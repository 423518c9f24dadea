package pipeline

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"epipulse/internal/cache"
	"epipulse/internal/config"
	"epipulse/internal/infrastructure"
	"epipulse/internal/ingest"
	"epipulse/pkg/contracts/domain"
)

// transformResult bundles the derived tables cached per dataset.
type transformResult struct {
	wide *WideTable
	long []domain.LongRecord
}

// Pipeline runs normalization, reshaping and enrichment over a raw table
// and memoizes the result per dataset fingerprint. The pipeline itself is
// synchronous; repeated calls on an unchanged dataset hit the cache.
type Pipeline struct {
	logger *slog.Logger
	cache  *cache.Cache[transformResult]
}

// New creates a pipeline with the given cache configuration.
func New(logger *slog.Logger, cacheCfg config.CacheConfig) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger: logger,
		cache:  cache.New[transformResult](cacheCfg.TTL, cacheCfg.MaxSize),
	}
}

// Transform produces the wide and enriched long tables for raw. It never
// fails: data-quality issues surface as nulls or empty tables, which is
// the contract consumers rely on.
func (p *Pipeline) Transform(ctx context.Context, raw *ingest.RawTable) (*WideTable, []domain.LongRecord) {
	ctx, span := infrastructure.Tracer().Start(ctx, "pipeline.Transform")
	defer span.End()

	if raw != nil && raw.Fingerprint != "" {
		if res, ok := p.cache.Get(raw.Fingerprint); ok {
			p.logger.DebugContext(ctx, "transform cache hit",
				slog.String("fingerprint", raw.Fingerprint))
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return res.wide, res.long
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	wide := p.normalize(ctx, raw)
	long := p.reshapeAndEnrich(ctx, wide)

	if raw != nil && raw.Fingerprint != "" {
		p.cache.Set(raw.Fingerprint, transformResult{wide: wide, long: long})
	}

	return wide, long
}

// InvalidateDataset drops the cached result for one dataset fingerprint.
func (p *Pipeline) InvalidateDataset(fingerprint string) {
	p.cache.Invalidate(fingerprint)
}

// CacheStats exposes memoization statistics.
func (p *Pipeline) CacheStats() map[string]interface{} {
	return p.cache.Stats()
}

func (p *Pipeline) normalize(ctx context.Context, raw *ingest.RawTable) *WideTable {
	ctx, span := infrastructure.Tracer().Start(ctx, "pipeline.Normalize")
	defer span.End()

	wide := Normalize(raw)

	p.logger.InfoContext(ctx, "normalized wide table",
		slog.Int("record_count", len(wide.Records)),
		slog.Bool("has_per100k", wide.Columns.MeaslesPer100K || wide.Columns.RubellaPer100K))
	span.SetAttributes(attribute.Int("records", len(wide.Records)))

	return wide
}

func (p *Pipeline) reshapeAndEnrich(ctx context.Context, wide *WideTable) []domain.LongRecord {
	ctx, span := infrastructure.Tracer().Start(ctx, "pipeline.ReshapeEnrich")
	defer span.End()

	long := Enrich(Reshape(wide))

	p.logger.InfoContext(ctx, "built enriched long table",
		slog.Int("long_rows", len(long)),
		slog.Int("diseases", len(wide.Columns.Diseases())))
	span.SetAttributes(attribute.Int("long_rows", len(long)))

	return long
}
