package operations

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"epipulse/internal/infrastructure"
)

// Manager runs a fixed sequence of steps against a shared run state.
// Steps run in order; the first failure stops the run.
type Manager struct {
	logger *slog.Logger
	steps  []Step
}

// NewManager creates a manager for the given step sequence.
func NewManager(logger *slog.Logger, steps ...Step) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger, steps: steps}
}

// Steps returns the configured step sequence.
func (m *Manager) Steps() []Step {
	return m.steps
}

// Execute runs all steps in order. The run state is returned in every
// case; callers inspect its Status and per-step states for details.
func (m *Manager) Execute(ctx context.Context, runID string) (*RunState, error) {
	state := NewRunState(runID)
	state.Start()

	ctx = infrastructure.WithRunID(ctx, runID)
	ctx, span := infrastructure.Tracer().Start(ctx, "operations.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.Int("run.steps", len(m.steps)),
	)

	m.logger.InfoContext(ctx, "run started",
		slog.String("run_id", runID),
		slog.Int("steps", len(m.steps)))

	for _, step := range m.steps {
		stepState := NewStepState(step.ID(), step.Name())
		state.SetStep(step.ID(), stepState)

		if err := ctx.Err(); err != nil {
			stepState.Skip("run cancelled")
			state.Cancel()
			span.SetStatus(codes.Error, "cancelled")
			return state, err
		}

		if err := step.Validate(state); err != nil {
			stepState.Fail(err)
			state.Fail(err)
			m.logStepError(ctx, step, err)
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}

		stepState.Start()
		start := time.Now()

		if err := m.executeStep(ctx, step, state); err != nil {
			stepState.Fail(err)
			state.Fail(err)
			m.logStepError(ctx, step, err)
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}

		stepState.Complete()
		m.logger.InfoContext(ctx, "step completed",
			slog.String("run_id", runID),
			slog.String("step", step.ID()),
			slog.Duration("duration", time.Since(start)))
	}

	state.Complete()
	m.logger.InfoContext(ctx, "run completed",
		slog.String("run_id", runID),
		slog.Duration("duration", state.Duration()))
	return state, nil
}

func (m *Manager) executeStep(ctx context.Context, step Step, state *RunState) error {
	ctx, span := infrastructure.Tracer().Start(ctx, "operations.Step")
	defer span.End()
	span.SetAttributes(attribute.String("step.id", step.ID()))

	return step.Execute(ctx, state)
}

func (m *Manager) logStepError(ctx context.Context, step Step, err error) {
	m.logger.ErrorContext(ctx, "step failed",
		slog.String("step", step.ID()),
		slog.String("error", err.Error()))
}
