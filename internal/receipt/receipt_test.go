package receipt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{"largest wins", "Coffee $3.50\nMuffin 2.25\nTOTAL $5.75", "5.75", true},
		{"no dollar sign", "Sum 120.00 tax 9.60", "120", true},
		{"needs two decimals", "Qty 3 item 4.5", "0", false},
		{"none", "thank you", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAmount(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestExtractDate(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		text string
		want string
	}{
		{"us numeric", "Date: 01/15/2023 10:42", "2023-01-15"},
		{"day first when month impossible", "31-12-2022", "2022-12-31"},
		{"two digit year", "3/4/24", "2024-03-04"},
		{"iso", "Printed 2023-02-07", "2023-02-07"},
		{"day month name", "15 January 2023", "2023-01-15"},
		{"month name day", "Sold on Mar 9, 2021", "2021-03-09"},
		{"lower case month", "9 dec 2020", "2020-12-09"},
		{"numeric tried first", "Jan 1, 2020 and 2/3/2021", "2021-02-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractDate(tt.text, loc)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}

	_, ok := ExtractDate("no date here", loc)
	assert.False(t, ok)
	_, ok = ExtractDate("02/30/2023", loc)
	assert.False(t, ok)
}

func TestClassifier(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		text string
		want string
	}{
		{"Joe's Restaurant - dinner for two", "Food"},
		{"CITY TAXI fare", "Transport"},
		{"Hotel booking for your trip", "Travel"},
		{"nothing relevant", "Other"},
		// gas counts for Transport and Utilities; Transport comes first
		{"gas", "Transport"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}

	assert.Equal(t, domain.TypeIncome, c.ClassifyType("Monthly SALARY deposit"))
	assert.Equal(t, domain.TypeExpense, c.ClassifyType("Groceries receipt total"))
}

func TestParseClassifier(t *testing.T) {
	data := []byte(`
categories:
  - name: Pets
    keywords: [Vet, kibble]
  - name: Food
    keywords: [kibble, bakery]
income_keywords: [payout]
`)
	c, err := ParseClassifier(data)
	require.NoError(t, err)
	assert.Equal(t, "Pets", c.Classify("KIBBLE 2kg"))
	assert.Equal(t, "Food", c.Classify("bakery bread"))
	assert.Equal(t, domain.TypeIncome, c.ClassifyType("payout"))
	assert.Equal(t, domain.TypeExpense, c.ClassifyType("salary"))

	_, err = ParseClassifier([]byte("categories:\n  - keywords: [x]\n"))
	assert.Error(t, err)
}

type mockExtractor struct {
	ExtractTextFunc func(ctx context.Context, image []byte, mimeType string) (string, error)
}

func (m *mockExtractor) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	return m.ExtractTextFunc(ctx, image, mimeType)
}

func TestScanner_Scan(t *testing.T) {
	now := time.Date(2024, 7, 4, 15, 0, 0, 0, time.UTC)

	t.Run("expense", func(t *testing.T) {
		s := NewScanner(&mockExtractor{
			ExtractTextFunc: func(ctx context.Context, image []byte, mimeType string) (string, error) {
				assert.Equal(t, "image/png", mimeType)
				return "CORNER CAFE\n06/01/2024\nLatte 4.50\nTOTAL $9.00", nil
			},
		}, nil, time.UTC)
		s.now = func() time.Time { return now }

		d, err := s.Scan(context.Background(), []byte{1}, "image/png")
		require.NoError(t, err)
		assert.Equal(t, "-9", d.Amount.String())
		assert.Equal(t, "2024-06-01", d.Date.Format("2006-01-02"))
		assert.True(t, d.DateFound)
		assert.Equal(t, "Food", d.Category)
		assert.Equal(t, domain.TypeExpense, d.Type)

		tx := d.Transaction("u1")
		assert.Equal(t, "u1", tx.UserID)
		assert.True(t, tx.Amount.Equal(d.Amount))
	})

	t.Run("income without date", func(t *testing.T) {
		s := NewScanner(&mockExtractor{
			ExtractTextFunc: func(ctx context.Context, image []byte, mimeType string) (string, error) {
				return "Refund issued 25.00", nil
			},
		}, nil, time.UTC)
		s.now = func() time.Time { return now }

		d, err := s.Scan(context.Background(), []byte{1}, "")
		require.NoError(t, err)
		assert.Equal(t, "25", d.Amount.String())
		assert.Equal(t, domain.TypeIncome, d.Type)
		assert.False(t, d.DateFound)
		assert.True(t, now.Equal(d.Date))
	})

	t.Run("extractor error", func(t *testing.T) {
		s := NewScanner(&mockExtractor{
			ExtractTextFunc: func(ctx context.Context, image []byte, mimeType string) (string, error) {
				return "", errors.New("quota")
			},
		}, nil, time.UTC)
		_, err := s.Scan(context.Background(), []byte{1}, "")
		assert.Error(t, err)
	})
}

func TestCleanModelText(t *testing.T) {
	assert.Equal(t, "TOTAL 1.00", cleanModelText("```text\nTOTAL 1.00\n```"))
	assert.Equal(t, "plain", cleanModelText("  plain \n"))
}
