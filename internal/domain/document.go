package domain

import (
	"fmt"
	"time"
)

// AnalysisMode selects the analysis profile for a document.
type AnalysisMode string

const (
	ModeProcurement AnalysisMode = "procurement"
	ModeContract    AnalysisMode = "contract"
	ModeFraud       AnalysisMode = "fraud"
	ModeAudit       AnalysisMode = "audit"
)

// ParseMode validates a mode string. An empty string defaults to
// procurement, matching the upstream extraction layer's behavior.
func ParseMode(s string) (AnalysisMode, error) {
	switch AnalysisMode(s) {
	case ModeProcurement, ModeContract, ModeFraud, ModeAudit:
		return AnalysisMode(s), nil
	case "":
		return ModeProcurement, nil
	default:
		return "", fmt.Errorf("unknown analysis mode %q", s)
	}
}

// Document records one ingested document. The full text is not
// persisted; only a preview for listing purposes.
type Document struct {
	ID       string       `json:"id"`
	TenantID string       `json:"tenantId"`
	FileName string       `json:"fileName,omitempty"`
	Mode     AnalysisMode `json:"mode"`

	SizeBytes   int    `json:"sizeBytes"`
	TextPreview string `json:"textPreview,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// DocumentEntities holds artifacts extracted from one document's text.
// Derived, recomputed per request, never persisted.
type DocumentEntities struct {
	Amounts        []string  `json:"amounts"`
	AmountValues   []float64 `json:"amountValues"`
	Dates          []string  `json:"dates"`
	InvoiceNumbers []string  `json:"invoiceNumbers"`
	Emails         []string  `json:"emails"`

	HasInvoiceNumbers bool `json:"hasInvoiceNumbers"`
	HasDates          bool `json:"hasDates"`
}
