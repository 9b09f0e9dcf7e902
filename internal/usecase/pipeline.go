package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"LensInventory/internal/domain"
	"LensInventory/internal/ports"
)

// Pipeline runs an ordered list of stages over a job.
type Pipeline struct {
	stages []ports.Stage
	logger *slog.Logger
}

// NewPipeline constructs a pipeline; stages run in the given order.
func NewPipeline(logger *slog.Logger, stages ...ports.Stage) *Pipeline {
	return &Pipeline{stages: stages, logger: logger}
}

// Run executes every stage in turn. Cancellation is checked between stages,
// never inside one.
func (p *Pipeline) Run(ctx context.Context, job domain.Job) (domain.Job, error) {
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return job, fmt.Errorf("before stage %s: %w", stage.Name(), err)
		}

		p.debug("run stage", "stage", stage.Name(), "platform", job.Platform)
		next, err := stage.Execute(job)
		if err != nil {
			return job, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		job = next
	}
	return job, nil
}

// Stages lists stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name())
	}
	return names
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
