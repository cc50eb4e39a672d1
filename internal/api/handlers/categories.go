package handlers

import (
	"net/http"

	"github.com/fblacp/scales/internal/api/middleware"
	"github.com/fblacp/scales/internal/domain"
)

// ListCategories handles GET /api/categories. ?type=income|expense
// narrows the answer to one list.
func ListCategories(w http.ResponseWriter, r *http.Request) {
	switch typ := domain.TransactionType(r.URL.Query().Get("type")); typ {
	case "":
		middleware.WriteJSON(w, http.StatusOK, map[string][]string{
			"income":  domain.CategoriesByType(domain.TypeIncome),
			"expense": domain.CategoriesByType(domain.TypeExpense),
		})
	case domain.TypeIncome, domain.TypeExpense, domain.TypeAll:
		categories := domain.CategoriesByType(typ)
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"categories": categories,
			"count":      len(categories),
		})
	default:
		middleware.WriteError(w, http.StatusBadRequest, "type must be income, expense or all")
	}
}
