package notionsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/summary"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotion struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error)
	UpdatePageFunc    func(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePageFunc   func(ctx context.Context, pageID string) error
}

func (m *mockNotion) CreatePage(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
	return m.CreatePageFunc(ctx, databaseID, props)
}

func (m *mockNotion) UpdatePage(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	return m.UpdatePageFunc(ctx, pageID, props)
}

func (m *mockNotion) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return m.QueryDatabaseFunc(ctx, databaseID, req)
}

func (m *mockNotion) ArchivePage(ctx context.Context, pageID string) error {
	return m.ArchivePageFunc(ctx, pageID)
}

// fakeNotion is an in-memory database behind mockNotion.
type fakeNotion struct {
	pages    []notionapi.Page
	created  []notionapi.Properties
	updated  map[string]notionapi.Properties
	archived []string
	queries  int
}

func (f *fakeNotion) mock() *mockNotion {
	f.updated = make(map[string]notionapi.Properties)
	return &mockNotion{
		CreatePageFunc: func(_ context.Context, _ string, props notionapi.Properties) (*notionapi.Page, error) {
			f.created = append(f.created, props)
			return &notionapi.Page{ID: notionapi.ObjectID("new-page")}, nil
		},
		UpdatePageFunc: func(_ context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
			f.updated[pageID] = props
			return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
		},
		QueryDatabaseFunc: func(_ context.Context, _ string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			f.queries++
			// two pages per response to exercise the cursor loop
			start := 0
			if req.StartCursor != "" {
				start = int(req.StartCursor[0] - '0')
			}
			end := start + 2
			if end >= len(f.pages) {
				return &notionapi.DatabaseQueryResponse{Results: f.pages[start:]}, nil
			}
			return &notionapi.DatabaseQueryResponse{
				Results:    f.pages[start:end],
				HasMore:    true,
				NextCursor: notionapi.Cursor(string(rune('0' + end))),
			}, nil
		},
		ArchivePageFunc: func(_ context.Context, pageID string) error {
			f.archived = append(f.archived, pageID)
			return nil
		},
	}
}

func page(id, txID, userID string) notionapi.Page {
	props := notionapi.Properties{
		PropUserID: &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: userID}}},
	}
	if txID != "" {
		props[PropTransactionID] = &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: txID}}}
	}
	return notionapi.Page{ID: notionapi.ObjectID(id), Properties: props}
}

type staticSource []domain.Transaction

func (s staticSource) GetTransactions(context.Context, string) ([]domain.Transaction, error) {
	return s, nil
}

func marchRange(t *testing.T) summary.Range {
	t.Helper()
	rng, err := summary.ParseRange("2024-03-01", "2024-03-31", time.UTC)
	require.NoError(t, err)
	return rng
}

func marchTxs() staticSource {
	return staticSource{
		{ID: "t1", UserID: "u1", Title: "Salary", Amount: decimal.NewFromInt(3000), Date: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), Category: "Salary"},
		{ID: "t2", UserID: "u1", Title: "Rent", Amount: decimal.NewFromInt(-1200), Date: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), Category: "Housing", Comment: "march"},
		{ID: "t3", UserID: "u1", Title: "Old", Amount: decimal.NewFromInt(-5), Date: time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC)},
		{ID: "t4", UserID: "u1", Title: "Broken", Amount: decimal.NewFromInt(-5)},
	}
}

func TestSyncTransactions(t *testing.T) {
	fake := &fakeNotion{pages: []notionapi.Page{
		page("p1", "t1", "u1"),
		page("p2", "t3", "u1"),
		page("p3", "", "u1"),
		page("p4", "t9", "other"),
		page("p5", "t1", "u1"),
	}}

	res, err := SyncTransactions(context.Background(), marchTxs(), fake.mock(), "db", "u1", marchRange(t), false)
	require.NoError(t, err)

	assert.Equal(t, &Result{Total: 2, Created: 1, Updated: 1, Archived: 3}, res)
	assert.Equal(t, []string{"p2", "p3", "p5"}, fake.archived)
	assert.Contains(t, fake.updated, "p1")
	require.Len(t, fake.created, 1)
	assert.Equal(t, "t2", plainText(notionapi.Page{Properties: fake.created[0]}, PropTransactionID))
	assert.Equal(t, 3, fake.queries)
}

func TestSyncTransactions_DryRun(t *testing.T) {
	fake := &fakeNotion{pages: []notionapi.Page{page("p1", "t1", "u1"), page("p2", "gone", "u1")}}
	mock := fake.mock()
	mock.CreatePageFunc = nil
	mock.UpdatePageFunc = nil
	mock.ArchivePageFunc = nil

	res, err := SyncTransactions(context.Background(), marchTxs(), mock, "db", "u1", marchRange(t), true)
	require.NoError(t, err)
	assert.Equal(t, &Result{Total: 2, Created: 1, Updated: 1, Archived: 1}, res)
}

func TestSyncTransactions_CountsFailures(t *testing.T) {
	fake := &fakeNotion{pages: []notionapi.Page{page("p9", "gone", "u1")}}
	mock := fake.mock()
	mock.CreatePageFunc = func(context.Context, string, notionapi.Properties) (*notionapi.Page, error) {
		return nil, errors.New("rate limited")
	}
	mock.ArchivePageFunc = func(context.Context, string) error { return errors.New("forbidden") }

	res, err := SyncTransactions(context.Background(), marchTxs(), mock, "db", "u1", marchRange(t), false)
	require.NoError(t, err)
	assert.Equal(t, &Result{Total: 2, Failed: 3}, res)
}

func TestSyncTransactions_QueryError(t *testing.T) {
	mock := &mockNotion{
		QueryDatabaseFunc: func(context.Context, string, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return nil, errors.New("unauthorized")
		},
	}
	_, err := SyncTransactions(context.Background(), marchTxs(), mock, "db", "u1", marchRange(t), false)
	assert.ErrorContains(t, err, "unauthorized")
}

func TestTransactionToNotionProperties(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tx := domain.Transaction{
		ID:               "t1",
		UserID:           "u1",
		Title:            "Gym",
		Amount:           decimal.RequireFromString("-45.50"),
		Date:             time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC),
		IsRecurring:      true,
		RecurringType:    domain.RecurringMonthly,
		RecurringEndDate: &end,
		ReceiptImage:     "gs://b/r.jpg",
	}

	props := TransactionToNotionProperties(tx, "EUR", loc)

	assert.Equal(t, "Gym", plainText(notionapi.Page{Properties: props}, PropTitle))
	assert.Equal(t, notionapi.NumberProperty{Number: -45.5}, props[PropAmount])
	assert.Equal(t, selectProp("expense"), props[PropType])
	assert.Equal(t, selectProp(domain.DefaultCategory), props[PropCategory])
	assert.Equal(t, selectProp("EUR"), props[PropCurrency])
	assert.Equal(t, selectProp("monthly"), props[PropRecurring])
	assert.Equal(t, richTextProp("gs://b/r.jpg"), props[PropReceipt])
	assert.NotContains(t, props, PropComment)

	date := props[PropDate].(notionapi.DateProperty)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), time.Time(*date.Date.Start))

	bare := TransactionToNotionProperties(domain.Transaction{ID: "x", Amount: decimal.NewFromInt(5)}, "", nil)
	assert.Equal(t, selectProp("income"), bare[PropType])
	assert.NotContains(t, bare, PropDate)
	assert.NotContains(t, bare, PropCurrency)
}
