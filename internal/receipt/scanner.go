// Package receipt turns receipt images into draft transactions: OCR text,
// amount and date extraction, and keyword classification.
package receipt

import (
	"context"
	"fmt"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/logger"
	"github.com/shopspring/decimal"
)

// Draft is a pre-filled transaction for the user to review.
type Draft struct {
	Title        string                 `json:"title"`
	Amount       decimal.Decimal        `json:"amount"`
	Date         time.Time              `json:"date"`
	DateFound    bool                   `json:"date_found"`
	AmountFound  bool                   `json:"amount_found"`
	Category     string                 `json:"category"`
	Type         domain.TransactionType `json:"type"`
	Text         string                 `json:"text"`
	ReceiptImage string                 `json:"receipt_image,omitempty"`
}

// Transaction converts the draft into a transaction owned by userID.
func (d Draft) Transaction(userID string) domain.Transaction {
	return domain.Transaction{
		UserID:       userID,
		Title:        d.Title,
		Amount:       d.Amount,
		Date:         d.Date,
		Category:     d.Category,
		ReceiptImage: d.ReceiptImage,
	}
}

// Scanner builds drafts from receipt images.
type Scanner struct {
	extractor  TextExtractor
	classifier *Classifier
	loc        *time.Location
	now        func() time.Time
}

// NewScanner creates a Scanner. A nil classifier uses the built-in table.
func NewScanner(extractor TextExtractor, classifier *Classifier, loc *time.Location) *Scanner {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scanner{extractor: extractor, classifier: classifier, loc: loc, now: time.Now}
}

// Scan extracts text from image and parses it. Expenses get a negative
// amount; a receipt without a readable date is dated now.
func (s *Scanner) Scan(ctx context.Context, image []byte, mimeType string) (*Draft, error) {
	text, err := s.extractor.ExtractText(ctx, image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("Scan: %w", err)
	}
	return s.Parse(ctx, text), nil
}

// Parse builds a draft from already extracted text.
func (s *Scanner) Parse(ctx context.Context, text string) *Draft {
	log := logger.FromContext(ctx)

	draft := &Draft{
		Title: "Receipt",
		Text:  text,
		Type:  s.classifier.ClassifyType(text),
	}

	amount, ok := ExtractAmount(text)
	draft.AmountFound = ok
	if draft.Type == domain.TypeExpense {
		amount = amount.Neg()
	}
	draft.Amount = amount

	date, ok := ExtractDate(text, s.loc)
	if !ok {
		date = s.now().In(s.loc)
	}
	draft.Date, draft.DateFound = date, ok

	if draft.Type == domain.TypeIncome {
		draft.Category = "Other"
	} else {
		draft.Category = s.classifier.Classify(text)
	}

	log.Debug().
		Str("amount", draft.Amount.String()).
		Bool("amount_found", draft.AmountFound).
		Bool("date_found", draft.DateFound).
		Str("category", draft.Category).
		Str("type", string(draft.Type)).
		Msg("Parsed receipt")
	return draft
}
