package pipeline

import (
	"context"
	"strings"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/receipt"
)

// CategoryValidator validates draft categories against the predefined lists.
type CategoryValidator struct {
	categories map[domain.TransactionType]map[string]string // normalized -> canonical
}

// NewCategoryValidator creates a validator from the domain category lists.
func NewCategoryValidator() *CategoryValidator {
	v := &CategoryValidator{categories: make(map[domain.TransactionType]map[string]string)}
	for _, typ := range []domain.TransactionType{domain.TypeIncome, domain.TypeExpense} {
		names := make(map[string]string)
		for _, name := range domain.CategoriesByType(typ) {
			names[normalizeCategory(name)] = name
		}
		v.categories[typ] = names
	}
	return v
}

// Valid reports whether category belongs to the list for typ.
func (v *CategoryValidator) Valid(typ domain.TransactionType, category string) bool {
	_, ok := v.categories[typ][normalizeCategory(category)]
	return ok
}

// Normalize returns the canonical spelling of category, or the receipt
// fallback category
// when typ has no such category.
func (v *CategoryValidator) Normalize(ctx context.Context, typ domain.TransactionType, category string) string {
	if name, ok := v.categories[typ][normalizeCategory(category)]; ok {
		return name
	}
	log := logger.FromContext(ctx)
	log.Warn().
		Str("category", category).
		Str("type", string(typ)).
		Msg("Unknown category, using fallback")
	return receipt.FallbackCategory
}

// normalizeCategory trims and upper-cases a name for comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
