// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kanuni-ai/kanuni/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveDocument stores document metadata with tenant isolation.
func (r *SQLRepository) SaveDocument(ctx context.Context, tenantID string, doc *domain.Document) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO documents (
			id, tenant_id, file_name, mode, size_bytes, text_preview, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		doc.ID, tenantID, doc.FileName, string(doc.Mode),
		doc.SizeBytes, doc.TextPreview, doc.CreatedAt,
	)
	return err
}

// GetDocument retrieves document metadata by ID with tenant isolation.
func (r *SQLRepository) GetDocument(ctx context.Context, tenantID string, docID string) (*domain.Document, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, file_name, mode, size_bytes, text_preview, created_at
		FROM documents
		WHERE tenant_id = ? AND id = ?
	`

	var doc domain.Document
	var mode string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, docID).Scan(
		&doc.ID, &doc.TenantID, &doc.FileName, &mode,
		&doc.SizeBytes, &doc.TextPreview, &doc.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.Mode = domain.AnalysisMode(mode)
	return &doc, nil
}

// SaveAssessment stores an assessment with tenant isolation.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, a *domain.RiskAssessment) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	findings, _ := json.Marshal(a.Findings)
	suggestions, _ := json.Marshal(a.Suggestions)
	alerts, _ := json.Marshal(a.Alerts)
	metadata, _ := json.Marshal(a.Metadata)

	query := `
		INSERT INTO assessments (
			id, tenant_id, document_id, mode, findings, risk_score, risk_level,
			top_concern, suggestions, alerts, alert_count,
			audit_opinion, opinion_confidence, timestamp, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, tenantID, a.DocumentID, string(a.Mode),
		string(findings), a.RiskScore, string(a.RiskLevel),
		a.TopConcern, string(suggestions), string(alerts), len(a.Alerts),
		a.AuditOpinion, a.OpinionConfidence, a.Timestamp, string(metadata),
	)
	return err
}

// GetAssessment retrieves an assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, id string) (*domain.RiskAssessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, document_id, mode, findings, risk_score, risk_level,
			   top_concern, suggestions, alerts,
			   audit_opinion, opinion_confidence, timestamp, metadata
		FROM assessments
		WHERE tenant_id = ? AND id = ?
	`

	var a domain.RiskAssessment
	var mode, level string
	var findings, suggestions, alerts, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id).Scan(
		&a.ID, &a.TenantID, &a.DocumentID, &mode,
		&findings, &a.RiskScore, &level,
		&a.TopConcern, &suggestions, &alerts,
		&a.AuditOpinion, &a.OpinionConfidence, &a.Timestamp, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.Mode = domain.AnalysisMode(mode)
	a.RiskLevel = domain.RiskLevel(level)
	json.Unmarshal([]byte(findings), &a.Findings)
	json.Unmarshal([]byte(suggestions), &a.Suggestions)
	json.Unmarshal([]byte(alerts), &a.Alerts)
	json.Unmarshal([]byte(metadata), &a.Metadata)

	return &a, nil
}

// SaveCustomRule stores a custom rule with tenant isolation. Saving an
// existing (id, version) updates it in place.
func (r *SQLRepository) SaveCustomRule(ctx context.Context, tenantID string, rule *domain.CustomRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	version := rule.Version
	if version == "" {
		version = "1"
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO custom_rules (
			id, tenant_id, title, version, severity, expression,
			violation, recommendation, section, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			title = excluded.title,
			severity = excluded.severity,
			expression = excluded.expression,
			violation = excluded.violation,
			recommendation = excluded.recommendation,
			section = excluded.section,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Title, version, string(rule.Severity),
		rule.Expression, rule.Violation, rule.Recommendation, rule.Section,
		enabled, now, now,
	)
	return err
}

// GetCustomRule retrieves the latest enabled version of a rule.
func (r *SQLRepository) GetCustomRule(ctx context.Context, tenantID string, ruleID string) (*domain.CustomRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, title, version, severity, expression,
			   violation, recommendation, section, enabled, created_at, updated_at
		FROM custom_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	rule, err := scanCustomRule(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

// ListCustomRules retrieves all enabled custom rules for a tenant in
// rule-ID order, matching the engine's evaluation order.
func (r *SQLRepository) ListCustomRules(ctx context.Context, tenantID string) ([]*domain.CustomRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, title, version, severity, expression,
			   violation, recommendation, section, enabled, created_at, updated_at
		FROM custom_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.CustomRule
	for rows.Next() {
		rule, err := scanCustomRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomRule(row rowScanner) (*domain.CustomRule, error) {
	var rule domain.CustomRule
	var severity string
	var enabled int

	if err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Title, &rule.Version, &severity,
		&rule.Expression, &rule.Violation, &rule.Recommendation, &rule.Section,
		&enabled, &rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rule.Severity = domain.Severity(severity)
	rule.Enabled = enabled == 1
	return &rule, nil
}

// AppendAuditLog records an action against a document or assessment.
func (r *SQLRepository) AppendAuditLog(ctx context.Context, tenantID string, entry *domain.AuditEntry) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO audit_log (
			id, tenant_id, assessment_id, action, details, timestamp
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		entry.ID, tenantID, entry.AssessmentID, entry.Action,
		entry.Details, entry.Timestamp,
	)
	return err
}

// ListAuditLog retrieves the most recent audit entries for a tenant.
func (r *SQLRepository) ListAuditLog(ctx context.Context, tenantID string, limit int) ([]*domain.AuditEntry, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, assessment_id, action, details, timestamp
		FROM audit_log
		WHERE tenant_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID, &entry.AssessmentID, &entry.Action,
			&entry.Details, &entry.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// AnalyticsSummary aggregates assessment history for one tenant.
func (r *SQLRepository) AnalyticsSummary(ctx context.Context, tenantID string) (*domain.AnalyticsSummary, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	var summary domain.AnalyticsSummary

	docQuery := `SELECT COUNT(*) FROM documents WHERE tenant_id = ?`
	if err := r.db.QueryRowContext(ctx, r.rebind(docQuery), tenantID).Scan(&summary.TotalDocuments); err != nil {
		return nil, err
	}

	assessQuery := `
		SELECT COUNT(*), COALESCE(SUM(alert_count), 0), COALESCE(AVG(risk_score), 0)
		FROM assessments
		WHERE tenant_id = ?
	`
	var avgScore float64
	if err := r.db.QueryRowContext(ctx, r.rebind(assessQuery), tenantID).Scan(
		&summary.TotalAssessments, &summary.TotalAlerts, &avgScore,
	); err != nil {
		return nil, err
	}
	summary.AverageRiskScore = int(avgScore)

	return &summary, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
