package forensic

import (
	"strings"
	"unicode/utf8"

	"github.com/kanuni-ai/kanuni/internal/domain"
)

// redFlagTerms is the fixed scan list in report order. The innermost
// subset carries critical severity; everything else is high.
var redFlagTerms = []struct {
	term     string
	severity domain.Severity
}{
	{"bribe", domain.SeverityCritical},
	{"kickback", domain.SeverityCritical},
	{"bearer cash", domain.SeverityCritical},
	{"facilitation payment", domain.SeverityHigh},
	{"under the table", domain.SeverityHigh},
	{"off the books", domain.SeverityHigh},
	{"consulting fee", domain.SeverityHigh},
	{"commission", domain.SeverityHigh},
	{"gift", domain.SeverityHigh},
	{"expedite", domain.SeverityHigh},
}

// KeywordHit is one matched red-flag term with surrounding context.
type KeywordHit struct {
	Term     string          `json:"term"`
	Severity domain.Severity `json:"severity"`

	// Context is the window around the first occurrence, for human
	// review. Repeated occurrences of the same term report once.
	Context string `json:"context"`
}

// ScanKeywords matches the red-flag term list case-insensitively as
// substrings. Hits come back in scan-list order.
func (c Config) ScanKeywords(text string) []KeywordHit {
	lower := strings.ToLower(text)

	var hits []KeywordHit
	for _, rf := range redFlagTerms {
		idx := strings.Index(lower, rf.term)
		if idx < 0 {
			continue
		}
		hits = append(hits, KeywordHit{
			Term:     rf.term,
			Severity: rf.severity,
			Context:  window(text, idx, idx+len(rf.term), c.ContextRadius),
		})
	}
	return hits
}

// window returns text[start:end] widened by radius bytes on each side,
// clamped to the text bounds and to rune boundaries so the context
// never carries a split UTF-8 sequence.
func window(text string, start, end, radius int) string {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi--
	}
	return text[lo:hi]
}
