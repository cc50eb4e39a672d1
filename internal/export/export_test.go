package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/summary"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T) summary.Result {
	t.Helper()
	rng, err := summary.ParseRange("2024-03-01", "2024-03-07", time.UTC)
	require.NoError(t, err)
	txs := []domain.Transaction{
		{ID: "1", Title: "Salary", Amount: decimal.RequireFromString("2500"), Date: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), Category: "Salary"},
		{ID: "2", Title: "Groceries <b>", Amount: decimal.RequireFromString("-82.40"), Date: time.Date(2024, 3, 3, 18, 0, 0, 0, time.UTC), Category: "Food"},
		{ID: "3", Title: "Bus", Amount: decimal.RequireFromString("-2.75"), Date: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), Category: "Transport"},
		{ID: "4", Title: "Broken", Amount: decimal.RequireFromString("-1")},
	}
	return summary.Aggregate(context.Background(), txs, rng)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatPDF, false},
		{"CSV", FormatCSV, false},
		{" html ", FormatHTML, false},
		{"pdf", FormatPDF, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.True(t, strings.HasPrefix(FormatCSV.ContentType(), "text/csv"))
}

func TestBuildReport(t *testing.T) {
	report := BuildReport(sampleResult(t), "eur")

	assert.Equal(t, "Mar 1, 2024 - Mar 7, 2024", report.Period)
	assert.Equal(t, "EUR", report.Currency.Code)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Transactions, 3)
	assert.Equal(t, "3", report.Transactions[0].ID)
	assert.Equal(t, "2024-03-05", report.Transactions[0].Date.String())
	assert.True(t, report.Totals.Balance.Equal(decimal.RequireFromString("2414.85")))
	assert.Equal(t, "-€2.75", report.Amount(decimal.RequireFromString("-2.75")))
	assert.Equal(t, "scales-2024-03-01_2024-03-07.csv", report.Filename(FormatCSV))

	fallback := BuildReport(sampleResult(t), "XYZ")
	assert.Equal(t, "USD", fallback.Currency.Code)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, BuildReport(sampleResult(t), "USD")))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"2024-03-05", "Bus", "Transport", "expense", "-2.75", "USD"}, records[1])
	assert.Equal(t, []string{"2024-03-01", "Salary", "Salary", "income", "2500.00", "USD"}, records[3])
}

func TestRender(t *testing.T) {
	data, err := Render(BuildReport(sampleResult(t), "USD"), FormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Date,Title,Category"))

	_, err = Render(BuildReport(sampleResult(t), "USD"), Format("xls"))
	assert.Error(t, err)
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, BuildReport(sampleResult(t), "USD")))
	out := buf.String()

	assert.Contains(t, out, "<h1>Financial Summary - Mar 1, 2024 - Mar 7, 2024</h1>")
	assert.Contains(t, out, `Total Income: <span class="positive">$2500.00</span>`)
	assert.Contains(t, out, `Total Expenses: <span class="negative">$85.15</span>`)
	assert.Contains(t, out, `Balance: <span class="positive">$2414.85</span>`)
	assert.Contains(t, out, "Groceries &lt;b&gt;")
	assert.NotContains(t, out, "Groceries <b>")
	assert.Contains(t, out, "height: 100%")
	assert.Equal(t, 7, strings.Count(out, `class="bucket"`))
	assert.Contains(t, out, "1 transaction(s) with unreadable dates omitted")
}

func TestWriteHTML_Empty(t *testing.T) {
	rng, err := summary.ParseRange("2024-03-01", "2024-03-01", time.UTC)
	require.NoError(t, err)
	report := BuildReport(summary.Aggregate(context.Background(), nil, rng), "USD")

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, report))
	assert.Contains(t, buf.String(), "No transactions in this period.")
	assert.Contains(t, buf.String(), "height: 0%")
}

func TestWritePDF(t *testing.T) {
	for _, code := range []string{"USD", "INR"} {
		var buf bytes.Buffer
		require.NoError(t, WritePDF(&buf, BuildReport(sampleResult(t), code)))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), code)
	}
}

func TestWritePDF_ManyRows(t *testing.T) {
	rng, err := summary.ParseRange("2024-01-01", "2024-03-31", time.UTC)
	require.NoError(t, err)
	var txs []domain.Transaction
	for i := 0; i < 120; i++ {
		txs = append(txs, domain.Transaction{
			ID:     string(rune('a' + i%26)),
			Title:  strings.Repeat("long title ", 10),
			Amount: decimal.NewFromInt(int64(i - 60)),
			Date:   time.Date(2024, 1, 1+i%90, 12, 0, 0, 0, time.UTC),
		})
	}
	report := BuildReport(summary.Aggregate(context.Background(), txs, rng), "USD")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, report, FormatPDF))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPdfAmount(t *testing.T) {
	inr := BuildReport(summary.Result{}, "INR")
	assert.Equal(t, "-INR 5.00", pdfAmount(inr, decimal.NewFromInt(-5)))
	gbp := BuildReport(summary.Result{}, "GBP")
	assert.Equal(t, "£5.00", pdfAmount(gbp, decimal.NewFromInt(5)))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
}

type mockStorage struct {
	UploadBytesFunc  func(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error)
	FetchFromGCSFunc func(ctx context.Context, uri string) ([]byte, error)
	SignedURLFunc    func(ctx context.Context, bucket, object string, ttl time.Duration) (string, error)
}

func (m *mockStorage) UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error) {
	return m.UploadBytesFunc(ctx, bucket, object, data, contentType)
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, uri string) ([]byte, error) {
	return m.FetchFromGCSFunc(ctx, uri)
}

func (m *mockStorage) SignedURL(ctx context.Context, bucket, object string, ttl time.Duration) (string, error) {
	return m.SignedURLFunc(ctx, bucket, object, ttl)
}

func TestPublisher_Publish(t *testing.T) {
	var gotObject, gotType string
	storage := &mockStorage{
		UploadBytesFunc: func(_ context.Context, bucket, object string, _ []byte, contentType string) (string, error) {
			gotObject, gotType = object, contentType
			return "gs://" + bucket + "/" + object, nil
		},
		SignedURLFunc: func(_ context.Context, bucket, object string, ttl time.Duration) (string, error) {
			assert.Equal(t, DefaultLinkTTL, ttl)
			return "https://signed/" + object, nil
		},
	}

	pub, err := NewPublisher(storage, "b").Publish(context.Background(), "u1/report.pdf", []byte("%PDF-"), FormatPDF.ContentType())
	require.NoError(t, err)
	assert.Equal(t, "exports/u1/report.pdf", gotObject)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "gs://b/exports/u1/report.pdf", pub.URI)
	assert.Equal(t, "https://signed/exports/u1/report.pdf", pub.URL)
}

func TestPublisher_SigningFailureKeepsUpload(t *testing.T) {
	storage := &mockStorage{
		UploadBytesFunc: func(_ context.Context, bucket, object string, _ []byte, _ string) (string, error) {
			return "gs://" + bucket + "/" + object, nil
		},
		SignedURLFunc: func(context.Context, string, string, time.Duration) (string, error) {
			return "", errors.New("no signing credentials")
		},
	}
	pub, err := NewPublisher(storage, "b").Publish(context.Background(), "r.csv", nil, "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "gs://b/exports/r.csv", pub.URI)
	assert.Empty(t, pub.URL)
}

func TestPublisher_Errors(t *testing.T) {
	_, err := NewPublisher(&mockStorage{}, "").Publish(context.Background(), "r.csv", nil, "")
	assert.Error(t, err)

	storage := &mockStorage{
		UploadBytesFunc: func(context.Context, string, string, []byte, string) (string, error) {
			return "", errors.New("denied")
		},
	}
	_, err = NewPublisher(storage, "b").Publish(context.Background(), "r.csv", nil, "")
	assert.ErrorContains(t, err, "denied")
}
