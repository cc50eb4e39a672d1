// Package api assembles the HTTP routes and middleware of the Scales API.
package api

import (
	"net/http"
	"strings"

	"github.com/fblacp/scales/internal/api/handlers"
	"github.com/fblacp/scales/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups every endpoint handler the router serves.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Transactions *handlers.TransactionsHandler
	Goal         *handlers.GoalHandler
	Currency     *handlers.CurrencyHandler
	Dashboard    *handlers.DashboardHandler
	Summary      *handlers.SummaryHandler
	Receipts     *handlers.ReceiptsHandler
	Jobs         *handlers.JobsHandler
}

// methods dispatches on the request method and answers 405 otherwise.
func methods(routes map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.Method]; ok {
			h(w, r)
			return
		}
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// withID serves prefix+{id} routes, rejecting an empty or nested id.
func withID(prefix string, routes map[string]func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, prefix)
		if id == "" || strings.Contains(id, "/") {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		h, ok := routes[r.Method]
		if !ok {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r, id)
	}
}

// NewRouter registers every route on a ServeMux and wraps it in the
// middleware chain Recovery, RequestID, Logger, CORS, Auth. RequestID
// runs before Logger so request logs carry the ID.
func NewRouter(h Handlers, verifier middleware.TokenVerifier, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", handlers.HealthCheck)

	// Auth endpoints
	mux.HandleFunc("/api/auth/signup", methods(map[string]http.HandlerFunc{http.MethodPost: h.Auth.Signup}))
	mux.HandleFunc("/api/auth/login", methods(map[string]http.HandlerFunc{http.MethodPost: h.Auth.Login}))
	mux.HandleFunc("/api/me", methods(map[string]http.HandlerFunc{http.MethodGet: h.Auth.Me}))

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", methods(map[string]http.HandlerFunc{
		http.MethodGet:  h.Transactions.ListTransactions,
		http.MethodPost: h.Transactions.CreateTransaction,
	}))
	mux.HandleFunc("/api/transactions/", withID("/api/transactions/", map[string]func(http.ResponseWriter, *http.Request, string){
		http.MethodPut:    h.Transactions.UpdateTransaction,
		http.MethodDelete: h.Transactions.DeleteTransaction,
	}))

	mux.HandleFunc("/api/categories", methods(map[string]http.HandlerFunc{http.MethodGet: handlers.ListCategories}))

	mux.HandleFunc("/api/goal", methods(map[string]http.HandlerFunc{
		http.MethodGet:    h.Goal.GetGoal,
		http.MethodPut:    h.Goal.SetGoal,
		http.MethodDelete: h.Goal.ClearGoal,
	}))
	mux.HandleFunc("/api/currency", methods(map[string]http.HandlerFunc{
		http.MethodGet: h.Currency.GetCurrency,
		http.MethodPut: h.Currency.SetCurrency,
	}))

	mux.HandleFunc("/api/dashboard", methods(map[string]http.HandlerFunc{http.MethodGet: h.Dashboard.GetDashboard}))
	mux.HandleFunc("/api/summary", methods(map[string]http.HandlerFunc{http.MethodGet: h.Summary.GetSummary}))
	mux.HandleFunc("/api/export", methods(map[string]http.HandlerFunc{http.MethodGet: h.Summary.Export}))

	// Receipt scanning and its jobs
	mux.HandleFunc("/api/receipts/scan", methods(map[string]http.HandlerFunc{http.MethodPost: h.Receipts.ScanReceipt}))
	mux.HandleFunc("/api/jobs", methods(map[string]http.HandlerFunc{http.MethodGet: h.Jobs.ListJobs}))
	mux.HandleFunc("/api/jobs/", withID("/api/jobs/", map[string]func(http.ResponseWriter, *http.Request, string){
		http.MethodGet: h.Jobs.GetJob,
	}))

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(verifier)(mux),
				),
			),
		),
	)
}
