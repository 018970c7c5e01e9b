// Package domain defines the core interfaces and types for Kanuni.
package domain

// Severity classifies how serious a finding is. The set is fixed;
// scoring weight is looked up by severity, never by comparing strings.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank returns the ordinal position of a severity, highest first.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 0
	default:
		return -1
	}
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// Source records where a finding came from. Provenance is set at
// creation time and never inferred after the fact.
type Source string

const (
	SourceRuleBased   Source = "rule-based"
	SourceStatistical Source = "statistical"
	SourceModelBased  Source = "model-based"
)

// Finding is one detected compliance or risk issue. Findings are
// immutable once created.
type Finding struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
	Label    string   `json:"label"`

	// Confidence is a display-only percentage string, e.g. "95%".
	Confidence string `json:"confidence"`

	Source Source `json:"source"`

	// Section is the regulatory provision the finding maps to.
	// Empty for purely statistical findings.
	Section string `json:"section,omitempty"`

	Recommendation string `json:"recommendation"`
}
