package currency

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/goal"
	"github.com/fblacp/scales/internal/kv"
	"github.com/fblacp/scales/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	c, err := Lookup(" eur ")
	require.NoError(t, err)
	assert.Equal(t, "€", c.Symbol)

	_, err = Lookup("XYZ")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	assert.Len(t, Supported(), 8)
}

func TestConvert(t *testing.T) {
	tests := []struct {
		amount, from, to, want string
	}{
		{"100", "USD", "EUR", "85"},
		{"85", "EUR", "USD", "100"},
		{"100", "USD", "USD", "100"},
		{"100", "USD", "XYZ", "100"},
		{"72", "GBP", "JPY", "11050"},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			got := Convert(decimal.RequireFromString(tt.amount), tt.from, tt.to)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$12.50", Format(decimal.RequireFromString("12.5"), "USD"))
	assert.Equal(t, "-€3.00", Format(decimal.NewFromInt(-3), "EUR"))
	assert.Equal(t, "₹0.00", Format(decimal.Zero, "INR"))
	assert.Equal(t, "XYZ1.00", Format(decimal.NewFromInt(1), "XYZ"))
}

// rateServer serves both API shapes. primaryOK and fallbackOK switch the
// endpoints between a valid answer and a 500.
func rateServer(t *testing.T, primaryOK, fallbackOK *bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v6/key/latest/USD", func(w http.ResponseWriter, r *http.Request) {
		if !*primaryOK {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"result":"success","conversion_rates":{"EUR":0.9}}`)
	})
	mux.HandleFunc("/v4/latest/USD", func(w http.ResponseWriter, r *http.Request) {
		if !*fallbackOK {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"base":"USD","rates":{"EUR":0.8}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Rate(t *testing.T) {
	ctx := context.Background()
	primaryOK, fallbackOK := true, true
	srv := rateServer(t, &primaryOK, &fallbackOK)

	cache := kv.NewMemory()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewClient("key", cache, WithBaseURLs(srv.URL+"/v6", srv.URL+"/v4"))
	c.now = func() time.Time { return now }

	assert.Equal(t, "1", c.Rate(ctx, "USD", "usd").String())
	assert.Equal(t, "0.9", c.Rate(ctx, "USD", "EUR").String())

	primaryOK = false
	assert.Equal(t, "0.8", c.Rate(ctx, "USD", "EUR").String())

	fallbackOK = false
	assert.Equal(t, "0.8", c.Rate(ctx, "USD", "EUR").String(), "cached rate")

	now = now.Add(25 * time.Hour)
	assert.Equal(t, "1", c.Rate(ctx, "USD", "EUR").String(), "expired cache")
}

func TestClient_PrimaryRequiresSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v6/key/latest/USD", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"error","conversion_rates":{"EUR":5}}`)
	})
	mux.HandleFunc("/v4/latest/USD", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":{"EUR":0.7}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient("key", nil, WithBaseURLs(srv.URL+"/v6", srv.URL+"/v4"))
	assert.Equal(t, "0.7", c.Rate(context.Background(), "USD", "EUR").String())
}

type fixedRate string

func (f fixedRate) Rate(ctx context.Context, from, to string) decimal.Decimal {
	return decimal.RequireFromString(string(f))
}

func TestService_ChangeCurrency(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	repo := memory.New()
	goals := goal.NewStore(store)
	prefs := NewPreferences(store, "USD")
	svc := NewService(fixedRate("0.85"), prefs, goals, repo)

	_, err := repo.AddTransaction(ctx, domain.Transaction{UserID: "u1", Amount: decimal.NewFromInt(-100), Date: time.Now()})
	require.NoError(t, err)
	require.NoError(t, goals.Set(ctx, "u1", decimal.NewFromInt(1000)))

	change, err := svc.ChangeCurrency(ctx, "u1", "eur")
	require.NoError(t, err)
	assert.Equal(t, "USD", change.From.Code)
	assert.Equal(t, "EUR", change.To.Code)
	assert.Equal(t, "0.85", change.Rate.String())

	g, _, _ := goals.Get(ctx, "u1")
	assert.Equal(t, "850", g.String())
	txs, _ := repo.GetTransactions(ctx, "u1")
	assert.Equal(t, "-85", txs[0].Amount.String())
	cur, _ := prefs.Get(ctx, "u1")
	assert.Equal(t, "EUR", cur.Code)

	// same currency again: nothing converted
	change, err = svc.ChangeCurrency(ctx, "u1", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "1", change.Rate.String())
	g, _, _ = goals.Get(ctx, "u1")
	assert.Equal(t, "850", g.String())

	_, err = svc.ChangeCurrency(ctx, "u1", "BTC")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

type recordingObserver struct {
	CurrencyRescaledFunc func(userID string, rate decimal.Decimal)
}

func (r *recordingObserver) CurrencyRescaled(userID string, rate decimal.Decimal) {
	r.CurrencyRescaledFunc(userID, rate)
}

func TestService_ObserverRunsBetweenConversionAndGoal(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	repo := memory.New()
	goals := goal.NewStore(store)
	svc := NewService(fixedRate("110.5"), NewPreferences(store, "USD"), goals, repo)

	_, err := repo.AddTransaction(ctx, domain.Transaction{UserID: "u1", Amount: decimal.NewFromInt(10), Date: time.Now()})
	require.NoError(t, err)
	require.NoError(t, goals.Set(ctx, "u1", decimal.NewFromInt(100)))

	var events []string
	svc.Observe(&recordingObserver{
		CurrencyRescaledFunc: func(userID string, rate decimal.Decimal) {
			assert.Equal(t, "u1", userID)
			assert.Equal(t, "110.5", rate.String())
			txs, _ := repo.GetTransactions(ctx, "u1")
			assert.Equal(t, "1105", txs[0].Amount.String(), "transactions already converted")
			g, _, _ := goals.Get(ctx, "u1")
			assert.Equal(t, "100", g.String(), "goal not rescaled yet")
			events = append(events, "rescaled")
		},
	})
	unsubscribe := goals.Subscribe(func(userID string, g decimal.Decimal, set bool) {
		events = append(events, "goal:"+g.String())
	})
	defer unsubscribe()

	_, err = svc.ChangeCurrency(ctx, "u1", "JPY")
	require.NoError(t, err)
	assert.Equal(t, []string{"rescaled", "goal:11050"}, events)
}

func TestPreferences_Default(t *testing.T) {
	ctx := context.Background()
	p := NewPreferences(kv.NewMemory(), "nope")
	c, err := p.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "USD", c.Code)

	assert.ErrorIs(t, p.Set(ctx, "u1", "XXX"), ErrUnsupportedCurrency)
}
