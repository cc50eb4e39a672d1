// Package pipeline runs receipt scan jobs as a sequence of steps: load the
// image, transcribe it, parse a draft and validate its category.
package pipeline

import (
	"context"
	"fmt"

	"github.com/fblacp/scales/internal/jobs"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/receipt"
)

// PipelineStep represents a single step in the scan pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Job   *jobs.ScanReceiptJob
	Image []byte
	Text  string
	Draft *receipt.Draft
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		log.Debug().Str("step", step.Name()).Msg("Pipeline step done")
	}
	return nil
}

// NewScanPipeline creates the standard four-step receipt pipeline. A nil
// storage only supports jobs that carry their image inline.
func NewScanPipeline(storage StorageService, extractor receipt.TextExtractor, scanner *receipt.Scanner) *Pipeline {
	return NewPipeline(
		&FetchImageStep{Storage: storage},
		&ExtractTextStep{Extractor: extractor},
		&ParseDraftStep{Scanner: scanner},
		&ValidateCategoryStep{Validator: NewCategoryValidator()},
	)
}

// Handler adapts the pipeline to a job queue handler. The finished draft
// is stored on the job.
func Handler(p *Pipeline) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ScanReceiptJob) error {
		ctx = logger.ForUser(ctx, job.UserID)
		state := &PipelineState{Job: job}
		if err := p.Execute(ctx, state); err != nil {
			return err
		}
		job.Draft = state.Draft
		log := logger.FromContext(ctx)
		log.Info().
			Str("job_id", job.JobID).
			Str("category", state.Draft.Category).
			Str("amount", state.Draft.Amount.String()).
			Msg("Receipt scanned")
		return nil
	}
}
