package operations

import (
	"context"
	"fmt"
	"log/slog"

	"epipulse/internal/anomaly"
	"epipulse/internal/errors"
	"epipulse/internal/exporter"
	"epipulse/internal/ingest"
	"epipulse/internal/pipeline"
)

// Step IDs for the standard run sequence.
const (
	StepIDIngest    = "ingest"
	StepIDTransform = "transform"
	StepIDScan      = "anomaly_scan"
	StepIDExport    = "export"
)

// IngestStep reads the source workbook into a raw table.
type IngestStep struct {
	logger *slog.Logger
	path   string
}

// NewIngestStep creates the ingest step for the given workbook path.
func NewIngestStep(logger *slog.Logger, path string) *IngestStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestStep{logger: logger, path: path}
}

func (s *IngestStep) ID() string   { return StepIDIngest }
func (s *IngestStep) Name() string { return "Ingest Workbook" }

func (s *IngestStep) Validate(state *RunState) error {
	if s.path == "" {
		return errors.NewInvalidParameter("input path is required")
	}
	return nil
}

func (s *IngestStep) Execute(ctx context.Context, state *RunState) error {
	raw, err := ingest.ReadWorkbook(s.path)
	if err != nil {
		return err
	}

	state.SourcePath = s.path
	state.Raw = raw

	s.logger.InfoContext(ctx, "workbook ingested",
		slog.String("path", s.path),
		slog.Int("rows", len(raw.Rows)),
		slog.String("fingerprint", raw.Fingerprint))
	return nil
}

// TransformStep normalizes the raw table, reshapes it to long form and
// derives the rolling and year-over-year series.
type TransformStep struct {
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
}

// NewTransformStep creates the transform step around the given pipeline.
func NewTransformStep(logger *slog.Logger, p *pipeline.Pipeline) *TransformStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransformStep{logger: logger, pipeline: p}
}

func (s *TransformStep) ID() string   { return StepIDTransform }
func (s *TransformStep) Name() string { return "Normalize and Enrich" }

func (s *TransformStep) Validate(state *RunState) error {
	if state.Raw == nil {
		return errors.NewMalformedInput("no raw table to transform", nil)
	}
	return nil
}

func (s *TransformStep) Execute(ctx context.Context, state *RunState) error {
	wide, long := s.pipeline.Transform(ctx, state.Raw)
	state.Wide = wide
	state.Long = long

	s.logger.InfoContext(ctx, "dataset transformed",
		slog.Int("wide_rows", len(wide.Records)),
		slog.Int("long_rows", len(long)))
	return nil
}

// ScanStep scores every country for anomalies. Countries below the
// minimum observation count are silently absent from the results.
type ScanStep struct {
	logger        *slog.Logger
	detector      *anomaly.Detector
	contamination float64
}

// NewScanStep creates the anomaly scan step.
func NewScanStep(logger *slog.Logger, d *anomaly.Detector, contamination float64) *ScanStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanStep{logger: logger, detector: d, contamination: contamination}
}

func (s *ScanStep) ID() string   { return StepIDScan }
func (s *ScanStep) Name() string { return "Anomaly Scan" }

func (s *ScanStep) Validate(state *RunState) error {
	if state.Wide == nil {
		return errors.NewMalformedInput("no normalized table to scan", nil)
	}
	return nil
}

func (s *ScanStep) Execute(ctx context.Context, state *RunState) error {
	countries := state.Wide.Countries()
	tracker := NewProgressTracker(StepIDScan, len(countries))

	results, err := s.detector.ScanAll(ctx, state.Wide, s.contamination,
		func(completed, total int, country string) {
			tracker.Update(completed, country)
			if stepState := state.GetStep(StepIDScan); stepState != nil {
				_, _, pct, _ := tracker.GetProgress()
				stepState.UpdateProgress(pct, fmt.Sprintf("%s (eta %s)", country, tracker.GetETA()))
			}
		})
	if err != nil {
		return err
	}

	state.Anomalies = results

	s.logger.InfoContext(ctx, "anomaly scan finished",
		slog.Int("countries", len(countries)),
		slog.Int("scored", len(results)),
		slog.Duration("elapsed", tracker.GetElapsedTime()))
	return nil
}

// ExportStep writes the long, wide and per-country anomaly tables as
// CSV files under the reports directory.
type ExportStep struct {
	logger *slog.Logger
	writer *exporter.CSVWriter
	prefix string
}

// NewExportStep creates the export step. The prefix names the output
// files, e.g. "surveillance" gives surveillance_long.csv.
func NewExportStep(logger *slog.Logger, w *exporter.CSVWriter, prefix string) *ExportStep {
	if prefix == "" {
		prefix = "surveillance"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportStep{logger: logger, writer: w, prefix: prefix}
}

func (s *ExportStep) ID() string   { return StepIDExport }
func (s *ExportStep) Name() string { return "Export Reports" }

func (s *ExportStep) Validate(state *RunState) error {
	if state.Wide == nil || state.Long == nil {
		return errors.NewMalformedInput("no transformed data to export", nil)
	}
	return nil
}

func (s *ExportStep) Execute(ctx context.Context, state *RunState) error {
	longFile := s.prefix + "_long.csv"
	if err := s.writer.WriteLongCSV(longFile, state.Long); err != nil {
		return err
	}

	wideFile := s.prefix + "_wide.csv"
	if err := s.writer.WriteWideCSV(wideFile, state.Wide); err != nil {
		return err
	}

	files := 2
	for _, result := range state.Anomalies {
		name := fmt.Sprintf("%s_anomalies_%s.csv", s.prefix, sanitizeFileName(result.Country))
		if err := s.writer.WriteAnomalyCSV(name, result); err != nil {
			return err
		}
		files++
	}

	s.logger.InfoContext(ctx, "reports exported",
		slog.Int("files", files),
		slog.String("prefix", s.prefix))
	return nil
}

// sanitizeFileName keeps country names filesystem-safe.
func sanitizeFileName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ', r == '/', r == '\\':
			out = append(out, '_')
		}
	}
	return string(out)
}

var (
	_ Step = (*IngestStep)(nil)
	_ Step = (*TransformStep)(nil)
	_ Step = (*ScanStep)(nil)
	_ Step = (*ExportStep)(nil)
)
