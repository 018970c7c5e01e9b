package domain

import "time"

// CustomRule is a tenant-defined compliance rule evaluated by the CEL
// engine against document-level features. Built-in regulatory rules are
// compiled into the binary; custom rules extend them at runtime.
type CustomRule struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Title    string `json:"title"`
	Version  string `json:"version"`

	Severity Severity `json:"severity"`

	// Expression is a CEL expression over document features that must
	// return bool. True means the document is compliant; false emits a
	// finding. The polarity matches the built-in registry.
	Expression string `json:"expression"`

	// Violation and Recommendation populate the emitted finding.
	Violation      string `json:"violation"`
	Recommendation string `json:"recommendation"`

	// Section optionally names the provision the rule enforces.
	Section string `json:"section,omitempty"`

	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
