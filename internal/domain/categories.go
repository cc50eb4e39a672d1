package domain

// TransactionType selects a category list.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
	TypeAll     TransactionType = "all"
)

// ExpenseCategories are the predefined expense categories.
var ExpenseCategories = []string{
	"Food",
	"Shopping",
	"Transport",
	"Housing",
	"Entertainment",
	"Healthcare",
	"Education",
	"Utilities",
	"Travel",
	"Insurance",
	"Personal Care",
	"Gifts",
	"Investments",
	"Other",
}

// IncomeCategories are the predefined income categories.
var IncomeCategories = []string{
	"Salary",
	"Business",
	"Investments",
	"Freelance",
	"Gifts",
	"Rental",
	"Refunds",
	"Other",
}

// CategoriesByType returns a copy of the category list for typ. TypeAll is
// the union with income categories first and duplicates removed.
func CategoriesByType(typ TransactionType) []string {
	switch typ {
	case TypeIncome:
		return append([]string(nil), IncomeCategories...)
	case TypeExpense:
		return append([]string(nil), ExpenseCategories...)
	case TypeAll:
		seen := make(map[string]bool, len(IncomeCategories)+len(ExpenseCategories))
		var out []string
		for _, list := range [][]string{IncomeCategories, ExpenseCategories} {
			for _, c := range list {
				if !seen[c] {
					seen[c] = true
					out = append(out, c)
				}
			}
		}
		return out
	default:
		return []string{}
	}
}
