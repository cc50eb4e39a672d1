package receipt

import (
	"fmt"
	"os"
	"strings"

	"github.com/fblacp/scales/internal/domain"
	"gopkg.in/yaml.v3"
)

// CategoryConfig maps a category to the keywords that suggest it.
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CategoriesConfig is the layout of a keyword YAML file.
type CategoriesConfig struct {
	Categories     []CategoryConfig `yaml:"categories"`
	IncomeKeywords []string         `yaml:"income_keywords"`
}

// DefaultCategories is the built-in keyword table. Order matters: ties go
// to the earlier entry.
var DefaultCategories = []CategoryConfig{
	{Name: "Food", Keywords: []string{"restaurant", "cafe", "food", "dining", "meal", "eat", "drink", "coffee", "lunch", "dinner"}},
	{Name: "Shopping", Keywords: []string{"store", "shop", "mall", "retail", "purchase", "buy", "clothes", "fashion", "merchandise"}},
	{Name: "Transport", Keywords: []string{"taxi", "uber", "lyft", "bus", "train", "subway", "metro", "transport", "fare", "gas", "fuel"}},
	{Name: "Entertainment", Keywords: []string{"movie", "cinema", "theater", "concert", "show", "game", "sports", "event", "ticket"}},
	{Name: "Healthcare", Keywords: []string{"doctor", "hospital", "pharmacy", "medical", "health", "dental", "vision", "insurance"}},
	{Name: "Education", Keywords: []string{"school", "university", "college", "tuition", "book", "course", "education", "learning"}},
	{Name: "Utilities", Keywords: []string{"bill", "utility", "electric", "water", "gas", "internet", "phone", "cable", "tv"}},
	{Name: "Travel", Keywords: []string{"hotel", "flight", "airline", "vacation", "travel", "trip", "lodging", "accommodation"}},
	{Name: "Personal Care", Keywords: []string{"salon", "spa", "beauty", "hair", "nails", "gym", "fitness", "wellness"}},
}

// DefaultIncomeKeywords mark a scanned document as income.
var DefaultIncomeKeywords = []string{
	"salary", "paycheck", "income", "deposit", "transfer", "refund",
	"reimbursement", "payment", "invoice",
}

// FallbackCategory is used when no keyword matches.
const FallbackCategory = "Other"

// Classifier assigns a category and a type to receipt text by keyword
// counting. Matching is case-insensitive substring matching.
type Classifier struct {
	categories     []CategoryConfig
	incomeKeywords []string
}

// NewClassifier builds a Classifier from cfg. Empty sections fall back to
// the built-in tables.
func NewClassifier(cfg CategoriesConfig) *Classifier {
	c := &Classifier{
		categories:     cfg.Categories,
		incomeKeywords: cfg.IncomeKeywords,
	}
	if len(c.categories) == 0 {
		c.categories = DefaultCategories
	}
	if len(c.incomeKeywords) == 0 {
		c.incomeKeywords = DefaultIncomeKeywords
	}
	c.categories = lowerCategories(c.categories)
	c.incomeKeywords = lowerAll(c.incomeKeywords)
	return c
}

// DefaultClassifier uses the built-in tables.
func DefaultClassifier() *Classifier {
	return NewClassifier(CategoriesConfig{})
}

// ParseClassifier reads a keyword table from YAML.
func ParseClassifier(data []byte) (*Classifier, error) {
	var cfg CategoriesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ParseClassifier: %w", err)
	}
	for i, cat := range cfg.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return nil, fmt.Errorf("ParseClassifier: category %d has no name", i)
		}
	}
	return NewClassifier(cfg), nil
}

// LoadClassifier reads a keyword table from a YAML file. An empty path
// returns DefaultClassifier.
func LoadClassifier(path string) (*Classifier, error) {
	if path == "" {
		return DefaultClassifier(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadClassifier: %w", err)
	}
	return ParseClassifier(data)
}

// Classify returns the category with the most matching keywords.
func (c *Classifier) Classify(text string) string {
	lower := strings.ToLower(text)

	best, bestCount := FallbackCategory, 0
	for _, cat := range c.categories {
		n := 0
		for _, kw := range cat.Keywords {
			if kw != "" && strings.Contains(lower, kw) {
				n++
			}
		}
		if n > bestCount {
			best, bestCount = cat.Name, n
		}
	}
	return best
}

// ClassifyType reports income when any income keyword appears.
func (c *Classifier) ClassifyType(text string) domain.TransactionType {
	lower := strings.ToLower(text)
	for _, kw := range c.incomeKeywords {
		if kw != "" && strings.Contains(lower, kw) {
			return domain.TypeIncome
		}
	}
	return domain.TypeExpense
}

func lowerCategories(in []CategoryConfig) []CategoryConfig {
	out := make([]CategoryConfig, len(in))
	for i, c := range in {
		out[i] = CategoryConfig{Name: c.Name, Keywords: lowerAll(c.Keywords)}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
