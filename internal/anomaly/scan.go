package anomaly

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"epipulse/internal/infrastructure"
	"epipulse/internal/pipeline"
	"epipulse/pkg/contracts/domain"
)

// ProgressFunc receives scan progress after each country completes.
type ProgressFunc func(completed, total int, country string)

// ScanAll runs anomaly detection for every country in the wide table.
// Per-country computations are independent, so they run concurrently on
// a bounded worker group; output order follows the wide table's
// first-seen country order regardless of completion order. Countries
// with insufficient data are omitted from the result. The progress
// callback, when non-nil, fires once per country under a lock, so it
// needs no synchronization of its own.
func (d *Detector) ScanAll(ctx context.Context, wide *pipeline.WideTable, contamination float64, progress ProgressFunc) ([]*domain.CountryAnomalies, error) {
	ctx, span := infrastructure.Tracer().Start(ctx, "anomaly.ScanAll")
	defer span.End()

	countries := wide.Countries()
	results := make([]*domain.CountryAnomalies, len(countries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.ScanConcurrency)

	var mu sync.Mutex
	completed := 0

	for i, country := range countries {
		i, country := i, country
		g.Go(func() error {
			res, err := d.DetectCountry(ctx, wide, country, contamination)
			if err != nil {
				return err
			}
			results[i] = res

			mu.Lock()
			completed++
			if progress != nil {
				progress(completed, len(countries), country)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	scanned := make([]*domain.CountryAnomalies, 0, len(results))
	for _, res := range results {
		if res != nil {
			scanned = append(scanned, res)
		}
	}

	d.logger.InfoContext(ctx, "anomaly scan completed",
		slog.Int("countries", len(countries)),
		slog.Int("scored", len(scanned)))

	return scanned, nil
}
