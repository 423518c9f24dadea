package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"epipulse/internal/anomaly"
	"epipulse/internal/config"
	"epipulse/internal/exporter"
	"epipulse/internal/infrastructure"
	"epipulse/internal/operations"
	"epipulse/internal/pipeline"
	"epipulse/pkg/contracts"
)

func main() {
	in := flag.String("in", "", "input .xlsx workbook with surveillance case counts")
	out := flag.String("out", "", "output directory for CSV reports (defaults to configured reports dir)")
	prefix := flag.String("prefix", "surveillance", "file name prefix for exported reports")
	configPath := flag.String("config", "", "optional YAML config file")
	contamination := flag.Float64("contamination", 0, "expected anomaly fraction, must be in (0, 1); 0 uses the configured default")
	scan := flag.Bool("anomalies", true, "run the per-country anomaly scan")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionInfo().String())
		return
	}

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: pipeline -in <workbook.xlsx> [-out dir] [-contamination 0.1]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *out != "" {
		cfg.Paths.ReportsDir = *out
	}

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		slog.Error("failed to resolve paths", "error", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("failed to create directories", "error", err)
		os.Exit(1)
	}

	cfg.Logging.FilePath = paths.GetLogPath("pipeline.log")
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	traceFile, err := os.Create(paths.GetLogPath("trace.jsonl"))
	if err != nil {
		logger.Error("failed to open trace output", "error", err)
		os.Exit(1)
	}
	defer traceFile.Close()

	providers, err := infrastructure.InitializeTracing(traceFile)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	contam := cfg.Anomaly.Contamination
	if *contamination != 0 {
		contam = *contamination
	}

	proc := pipeline.New(logger, cfg.Cache)
	detector := anomaly.NewDetector(logger, cfg.Anomaly, cfg.Cache)
	writer := exporter.NewCSVWriter(paths)

	steps := []operations.Step{
		operations.NewIngestStep(logger, *in),
		operations.NewTransformStep(logger, proc),
	}
	if *scan {
		steps = append(steps, operations.NewScanStep(logger, detector, contam))
	}
	steps = append(steps, operations.NewExportStep(logger, writer, *prefix))

	manager := operations.NewManager(logger, steps...)

	runID := uuid.NewString()
	state, err := manager.Execute(ctx, runID)
	if err != nil {
		logger.Error("run failed",
			"run_id", runID,
			"status", string(state.GetStatus()),
			"error", err)
		os.Exit(1)
	}

	logger.Info("run finished",
		"run_id", runID,
		"duration", state.Duration().String(),
		"reports_dir", paths.ReportsDir)
}
