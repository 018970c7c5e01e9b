// Package extract pulls structured entities out of raw document text.
// Every function is pure and total: no input ever fails, empty
// collections come back when nothing matches.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kanuni-ai/kanuni/internal/domain"
)

// Go's regexp package is RE2-based, so these patterns cannot
// backtrack catastrophically on adversarial input.
var (
	amountRe  = regexp.MustCompile(`(?:KES|Ksh|USD|\$|€|£)?\s*\d[\d,]*(?:\.\d{2})?`)
	dateRe    = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	invoiceRe = regexp.MustCompile(`(?i)INV-?\d{3,}`)
	emailRe   = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
)

// Entities extracts monetary amounts, dates, invoice numbers and
// emails from text. Extracted sets are deduplicated by exact
// case-sensitive match, preserving first-occurrence order.
func Entities(text string) domain.DocumentEntities {
	amounts := dedup(amountRe.FindAllString(text, -1))
	dates := dedup(dateRe.FindAllString(text, -1))
	invoices := dedup(invoiceRe.FindAllString(text, -1))
	emails := dedup(emailRe.FindAllString(text, -1))

	return domain.DocumentEntities{
		Amounts:           amounts,
		AmountValues:      Amounts(text),
		Dates:             dates,
		InvoiceNumbers:    invoices,
		Emails:            emails,
		HasInvoiceNumbers: len(invoices) > 0,
		HasDates:          len(dates) > 0,
	}
}

// Amounts returns the numeric values of all monetary amounts found in
// text, in occurrence order. Tokens that do not parse to a positive
// number are dropped.
func Amounts(text string) []float64 {
	matches := amountRe.FindAllString(text, -1)
	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		n, ok := parseAmount(m)
		if ok && n > 0 {
			values = append(values, n)
		}
	}
	return values
}

// parseAmount strips currency tokens and separators before parsing.
func parseAmount(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func dedup(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
