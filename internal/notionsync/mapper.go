package notionsync

import (
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the transactions database.
const (
	PropTitle         = "Title"
	PropTransactionID = "Transaction ID"
	PropUserID        = "User ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropCurrency      = "Currency"
	PropRecurring     = "Recurring"
	PropComment       = "Comment"
	PropReceipt       = "Receipt"
)

// TransactionToNotionProperties converts a transaction to page properties.
// The date is sent as a calendar day in loc; optional fields are only set
// when present.
func TransactionToNotionProperties(tx domain.Transaction, currencyCode string, loc *time.Location) notionapi.Properties {
	typ := domain.TypeExpense
	if tx.IsIncome() {
		typ = domain.TypeIncome
	}
	amount, _ := tx.Amount.Float64()

	props := notionapi.Properties{
		PropTitle:         titleProp(tx.Title),
		PropTransactionID: richTextProp(tx.ID),
		PropUserID:        richTextProp(tx.UserID),
		PropAmount:        notionapi.NumberProperty{Number: amount},
		PropType:          selectProp(string(typ)),
		PropCategory:      selectProp(tx.CategoryOrDefault()),
	}

	if !tx.Date.IsZero() {
		props[PropDate] = dayProp(tx.Date, loc)
	}
	if currencyCode != "" {
		props[PropCurrency] = selectProp(currencyCode)
	}
	if tx.IsRecurring && tx.RecurringType != "" {
		props[PropRecurring] = selectProp(string(tx.RecurringType))
	}
	if tx.Comment != "" {
		props[PropComment] = richTextProp(tx.Comment)
	}
	if tx.ReceiptImage != "" {
		props[PropReceipt] = richTextProp(tx.ReceiptImage)
	}
	return props
}

func titleProp(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{Title: richText(s)}
}

func richTextProp(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{RichText: richText(s)}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func selectProp(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Select: notionapi.Option{Name: name}}
}

// dayProp sends midnight UTC of the local day so Notion shows the same
// date regardless of the workspace time zone.
func dayProp(t time.Time, loc *time.Location) notionapi.DateProperty {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	d := notionapi.Date(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC))
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// plainText reads a title or rich text property of a queried page.
func plainText(page notionapi.Page, name string) string {
	var parts []notionapi.RichText
	switch p := page.Properties[name].(type) {
	case *notionapi.RichTextProperty:
		parts = p.RichText
	case notionapi.RichTextProperty:
		parts = p.RichText
	case *notionapi.TitleProperty:
		parts = p.Title
	case notionapi.TitleProperty:
		parts = p.Title
	}
	if len(parts) == 0 {
		return ""
	}
	if parts[0].PlainText != "" {
		return parts[0].PlainText
	}
	if parts[0].Text != nil {
		return parts[0].Text.Content
	}
	return ""
}

func extractTransactionID(page notionapi.Page) string {
	return plainText(page, PropTransactionID)
}

func extractUserID(page notionapi.Page) string {
	return plainText(page, PropUserID)
}
