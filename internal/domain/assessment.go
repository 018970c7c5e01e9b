package domain

import (
	"time"
)

// RiskLevel is the bucketed label derived from the numeric risk score
// via fixed thresholds.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskAssessment is the aggregate result for one document. The fields
// Findings through Alerts are produced by the pure analysis pipeline;
// ID, TenantID, Timestamp and Metadata are stamped by the service
// layer after the pipeline returns. Never mutated after construction.
type RiskAssessment struct {
	ID         string       `json:"id"`
	TenantID   string       `json:"tenantId"`
	DocumentID string       `json:"documentId,omitempty"`
	Mode       AnalysisMode `json:"mode"`

	// Findings in discovery order, stable across reruns for identical input.
	Findings []Finding `json:"findings"`

	// RiskScore is the severity-weighted composite score in [0,100].
	RiskScore int       `json:"riskScore"`
	RiskLevel RiskLevel `json:"riskLevel"`

	// TopConcern is the first critical finding's text, else the first
	// finding's text, else a fixed no-concerns sentinel.
	TopConcern string `json:"topConcern"`

	// Suggestions are finding recommendations in finding order, capped.
	Suggestions []string `json:"suggestions"`

	// Alerts are the critical findings' narratives.
	Alerts []string `json:"alerts"`

	// AuditOpinion is an optional one-sentence narrative contributed by
	// the opinion generator. The assessment is complete without it.
	AuditOpinion      string  `json:"auditOpinion,omitempty"`
	OpinionConfidence float64 `json:"opinionConfidence,omitempty"`

	Timestamp time.Time          `json:"timestamp"`
	Metadata  AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata carries processing information. None of it feeds
// back into scoring.
type AssessmentMetadata struct {
	TraceID        string `json:"traceId"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	TotalMs        int64  `json:"totalMs"`
	EngineVersion  string `json:"engineVersion"`
	CacheHit       bool   `json:"cacheHit,omitempty"`
}

// HasCriticalFinding reports whether any finding carries critical severity.
func (a *RiskAssessment) HasCriticalFinding() bool {
	for _, f := range a.Findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// AssessmentResponse is the API response for a document analysis.
type AssessmentResponse struct {
	AssessmentID string             `json:"assessmentId"`
	DocumentID   string             `json:"documentId,omitempty"`
	Mode         AnalysisMode       `json:"mode"`
	Findings     []Finding          `json:"findings"`
	RiskScore    int                `json:"riskScore"`
	RiskLevel    RiskLevel          `json:"riskLevel"`
	TopConcern   string             `json:"topConcern"`
	Suggestions  []string           `json:"suggestions"`
	Alerts       []string           `json:"alerts"`
	AuditOpinion string             `json:"auditOpinion,omitempty"`
	Metadata     AssessmentMetadata `json:"metadata"`
}

// ToResponse converts an assessment to an API response.
func (a *RiskAssessment) ToResponse() *AssessmentResponse {
	return &AssessmentResponse{
		AssessmentID: a.ID,
		DocumentID:   a.DocumentID,
		Mode:         a.Mode,
		Findings:     a.Findings,
		RiskScore:    a.RiskScore,
		RiskLevel:    a.RiskLevel,
		TopConcern:   a.TopConcern,
		Suggestions:  a.Suggestions,
		Alerts:       a.Alerts,
		AuditOpinion: a.AuditOpinion,
		Metadata:     a.Metadata,
	}
}
