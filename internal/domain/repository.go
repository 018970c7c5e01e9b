package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Document operations
	SaveDocument(ctx context.Context, tenantID string, doc *Document) error
	GetDocument(ctx context.Context, tenantID string, docID string) (*Document, error)

	// Assessment results
	SaveAssessment(ctx context.Context, tenantID string, a *RiskAssessment) error
	GetAssessment(ctx context.Context, tenantID string, id string) (*RiskAssessment, error)

	// Custom rule operations
	SaveCustomRule(ctx context.Context, tenantID string, rule *CustomRule) error
	GetCustomRule(ctx context.Context, tenantID string, ruleID string) (*CustomRule, error)
	ListCustomRules(ctx context.Context, tenantID string) ([]*CustomRule, error)

	// Audit trail
	AppendAuditLog(ctx context.Context, tenantID string, entry *AuditEntry) error
	ListAuditLog(ctx context.Context, tenantID string, limit int) ([]*AuditEntry, error)

	// Aggregate analytics for the dashboard surface
	AnalyticsSummary(ctx context.Context, tenantID string) (*AnalyticsSummary, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// AuditEntry records one action taken against a document or assessment.
type AuditEntry struct {
	ID           string    `json:"id"`
	AssessmentID string    `json:"assessmentId,omitempty"`
	Action       string    `json:"action"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}

// AnalyticsSummary aggregates assessment history for one tenant.
type AnalyticsSummary struct {
	TotalDocuments   int64 `json:"totalDocuments"`
	TotalAssessments int64 `json:"totalAssessments"`
	TotalAlerts      int64 `json:"totalAlerts"`
	AverageRiskScore int   `json:"averageRiskScore"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
