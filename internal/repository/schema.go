package repository

// Schema definitions for the Kanuni database.
// Compatible with both SQLite and PostgreSQL.

const schemaDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    mode TEXT NOT NULL,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    text_preview TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id);
CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(tenant_id, created_at);
`

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    document_id TEXT,
    mode TEXT NOT NULL,
    findings TEXT NOT NULL,
    risk_score INTEGER NOT NULL,
    risk_level TEXT NOT NULL,
    top_concern TEXT NOT NULL,
    suggestions TEXT,
    alerts TEXT,
    alert_count INTEGER NOT NULL DEFAULT 0,
    audit_opinion TEXT,
    opinion_confidence REAL NOT NULL DEFAULT 0,
    timestamp TIMESTAMP NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_tenant ON assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_assessments_document ON assessments(tenant_id, document_id);
CREATE INDEX IF NOT EXISTS idx_assessments_level ON assessments(tenant_id, risk_level);
CREATE INDEX IF NOT EXISTS idx_assessments_timestamp ON assessments(tenant_id, timestamp);
`

const schemaCustomRules = `
CREATE TABLE IF NOT EXISTS custom_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    title TEXT NOT NULL,
    version TEXT NOT NULL,
    severity TEXT NOT NULL,
    expression TEXT NOT NULL,
    violation TEXT NOT NULL,
    recommendation TEXT,
    section TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_custom_rules_tenant ON custom_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_custom_rules_enabled ON custom_rules(tenant_id, enabled);
`

const schemaAuditLog = `
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    assessment_id TEXT,
    action TEXT NOT NULL,
    details TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_tenant ON audit_log(tenant_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_assessment ON audit_log(tenant_id, assessment_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(tenant_id, timestamp);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaDocuments,
		schemaAssessments,
		schemaCustomRules,
		schemaAuditLog,
	}
}
