package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/jobs"
	"github.com/fblacp/scales/internal/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStorage struct {
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return m.FetchFromGCSFunc(ctx, gcsURI)
}

type mockExtractor struct {
	ExtractTextFunc func(ctx context.Context, image []byte, mimeType string) (string, error)
}

func (m *mockExtractor) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	return m.ExtractTextFunc(ctx, image, mimeType)
}

func textExtractor(text string) *mockExtractor {
	return &mockExtractor{
		ExtractTextFunc: func(ctx context.Context, image []byte, mimeType string) (string, error) {
			return text, nil
		},
	}
}

func TestScanPipeline_FromStorage(t *testing.T) {
	storage := &mockStorage{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			assert.Equal(t, "gs://b/receipts/u1/r.png", gcsURI)
			return []byte("png"), nil
		},
	}
	extractor := &mockExtractor{
		ExtractTextFunc: func(ctx context.Context, image []byte, mimeType string) (string, error) {
			assert.Equal(t, []byte("png"), image)
			assert.Equal(t, "image/png", mimeType)
			return "CITY CINEMA\n2024-05-10\nTicket x2\nTOTAL 24.00", nil
		},
	}
	scanner := receipt.NewScanner(extractor, nil, time.UTC)

	job := &jobs.ScanReceiptJob{JobID: "j1", UserID: "u1", ImageURI: "gs://b/receipts/u1/r.png", MimeType: "image/png"}
	require.NoError(t, Handler(NewScanPipeline(storage, extractor, scanner))(context.Background(), job))

	require.NotNil(t, job.Draft)
	assert.Equal(t, "Entertainment", job.Draft.Category)
	assert.Equal(t, "-24", job.Draft.Amount.String())
	assert.Equal(t, "2024-05-10", job.Draft.Date.Format("2006-01-02"))
	assert.Equal(t, "gs://b/receipts/u1/r.png", job.Draft.ReceiptImage)
}

func TestScanPipeline_InlineImage(t *testing.T) {
	extractor := textExtractor("Corner Cafe TOTAL 7.25")
	p := NewScanPipeline(nil, extractor, receipt.NewScanner(extractor, nil, time.UTC))

	job := &jobs.ScanReceiptJob{UserID: "u1", Image: []byte("jpg")}
	require.NoError(t, Handler(p)(context.Background(), job))
	assert.Equal(t, "Food", job.Draft.Category)
	assert.Empty(t, job.Draft.ReceiptImage)
}

func TestScanPipeline_Errors(t *testing.T) {
	extractor := textExtractor("TOTAL 1.00")
	scanner := receipt.NewScanner(extractor, nil, time.UTC)

	tests := []struct {
		name    string
		storage StorageService
		job     *jobs.ScanReceiptJob
		wantErr string
	}{
		{
			name:    "no image",
			job:     &jobs.ScanReceiptJob{UserID: "u1"},
			wantErr: "fetch_image",
		},
		{
			name:    "uri without storage",
			job:     &jobs.ScanReceiptJob{UserID: "u1", ImageURI: "gs://b/o"},
			wantErr: "no storage configured",
		},
		{
			name: "fetch fails",
			storage: &mockStorage{
				FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
					return nil, errors.New("permission denied")
				},
			},
			job:     &jobs.ScanReceiptJob{UserID: "u1", ImageURI: "gs://b/o"},
			wantErr: "permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Handler(NewScanPipeline(tt.storage, extractor, scanner))(context.Background(), tt.job)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, tt.job.Draft)
		})
	}
}

func TestScanPipeline_ExtractorError(t *testing.T) {
	extractor := &mockExtractor{
		ExtractTextFunc: func(ctx context.Context, image []byte, mimeType string) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	p := NewScanPipeline(nil, extractor, receipt.NewScanner(extractor, nil, time.UTC))
	err := p.Execute(context.Background(), &PipelineState{Job: &jobs.ScanReceiptJob{Image: []byte{1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline step 2 (extract_text)")
}

func TestCategoryValidator(t *testing.T) {
	ctx := context.Background()
	v := NewCategoryValidator()

	tests := []struct {
		typ      domain.TransactionType
		category string
		want     string
		valid    bool
	}{
		{domain.TypeExpense, "Food", "Food", true},
		{domain.TypeExpense, "  personal care ", "Personal Care", true},
		{domain.TypeExpense, "Salary", "Other", false},
		{domain.TypeIncome, "salary", "Salary", true},
		{domain.TypeIncome, "Pets", "Other", false},
		{"bogus", "Food", "Other", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ)+"/"+tt.category, func(t *testing.T) {
			assert.Equal(t, tt.valid, v.Valid(tt.typ, tt.category))
			assert.Equal(t, tt.want, v.Normalize(ctx, tt.typ, tt.category))
		})
	}
}

func TestValidateCategoryStep_CustomKeywords(t *testing.T) {
	classifier, err := receipt.ParseClassifier([]byte("categories:\n  - name: Pets\n    keywords: [kibble]\n"))
	require.NoError(t, err)
	extractor := textExtractor("KIBBLE 2kg TOTAL 30.00")
	p := NewScanPipeline(nil, extractor, receipt.NewScanner(extractor, classifier, time.UTC))

	job := &jobs.ScanReceiptJob{UserID: "u1", Image: []byte{1}}
	require.NoError(t, Handler(p)(context.Background(), job))
	assert.Equal(t, "Other", job.Draft.Category)
}
