package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/fblacp/scales/internal/receipt"
)

// StorageService is the part of the object store the pipeline reads from.
type StorageService interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// Step 1: FetchImageStep loads the image bytes, from the job or from storage.
type FetchImageStep struct {
	Storage StorageService
}

func (s *FetchImageStep) Name() string { return "fetch_image" }

func (s *FetchImageStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Job.Image) > 0 {
		state.Image = state.Job.Image
		return nil
	}
	if state.Job.ImageURI == "" {
		return errors.New("job has no image")
	}
	if s.Storage == nil {
		return fmt.Errorf("no storage configured to fetch %s", state.Job.ImageURI)
	}
	data, err := s.Storage.FetchFromGCS(ctx, state.Job.ImageURI)
	if err != nil {
		return err
	}
	state.Image = data
	return nil
}

// Step 2: ExtractTextStep transcribes the image.
type ExtractTextStep struct {
	Extractor receipt.TextExtractor
}

func (s *ExtractTextStep) Name() string { return "extract_text" }

func (s *ExtractTextStep) Execute(ctx context.Context, state *PipelineState) error {
	text, err := s.Extractor.ExtractText(ctx, state.Image, state.Job.MimeType)
	if err != nil {
		return err
	}
	state.Text = text
	return nil
}

// Step 3: ParseDraftStep builds the draft from the transcribed text.
type ParseDraftStep struct {
	Scanner *receipt.Scanner
}

func (s *ParseDraftStep) Name() string { return "parse_draft" }

func (s *ParseDraftStep) Execute(ctx context.Context, state *PipelineState) error {
	draft := s.Scanner.Parse(ctx, state.Text)
	draft.ReceiptImage = state.Job.ImageURI
	state.Draft = draft
	return nil
}

// Step 4: ValidateCategoryStep snaps the draft category onto the
// predefined list for its type.
type ValidateCategoryStep struct {
	Validator *CategoryValidator
}

func (s *ValidateCategoryStep) Name() string { return "validate_category" }

func (s *ValidateCategoryStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Draft == nil {
		return errors.New("no draft to validate")
	}
	state.Draft.Category = s.Validator.Normalize(ctx, state.Draft.Type, state.Draft.Category)
	return nil
}
