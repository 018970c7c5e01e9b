package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kanuni-ai/kanuni/internal/analyzer"
	"github.com/kanuni-ai/kanuni/internal/cache"
	"github.com/kanuni-ai/kanuni/internal/domain"
	"github.com/kanuni-ai/kanuni/internal/opinion"
	"github.com/kanuni-ai/kanuni/internal/rules"
)

// assessmentTTL is how long cached assessments live. The pipeline is
// deterministic, so the TTL only bounds cache growth.
const assessmentTTL = time.Hour

// previewLength is how much document text is persisted for listings.
const previewLength = 200

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	pipeline *analyzer.Pipeline
	custom   *rules.CustomEngine
	opinions opinion.Generator
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, c domain.Cache, bus domain.EventBus, pipeline *analyzer.Pipeline, custom *rules.CustomEngine, opinions opinion.Generator, version string) *Handler {
	if opinions == nil {
		opinions = opinion.Noop{}
	}
	return &Handler{
		repo:     repo,
		cache:    c,
		bus:      bus,
		pipeline: pipeline,
		custom:   custom,
		opinions: opinions,
		version:  version,
	}
}

// AnalyzeRequest is the request body for POST /analyze.
type AnalyzeRequest struct {
	FileName string `json:"fileName,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Text     string `json:"text"`

	// ModelFindings come from an external classifier. They are
	// validated and appended after the core findings.
	ModelFindings []domain.Finding `json:"modelFindings,omitempty"`
}

// Analyze handles POST /analyze requests: the synchronous path that
// runs a document through the full assessment pipeline.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "text is required",
		})
		return
	}

	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	// Model findings vary per request, so only digest-pure requests
	// can be served from (or written to) the cache.
	cacheable := h.cache != nil && len(req.ModelFindings) == 0
	digest := cache.Key(mode, req.Text)

	if cacheable {
		if cached, err := h.cache.GetAssessment(ctx, tenantID, digest); err == nil && cached != nil {
			cached.Metadata.CacheHit = true
			cached.Metadata.TraceID = traceID
			cached.Metadata.TotalMs = time.Since(start).Milliseconds()
			writeJSON(w, http.StatusOK, cached.ToResponse())
			return
		}
	}

	// Record the document
	docID := uuid.New().String()
	doc := &domain.Document{
		ID:          docID,
		TenantID:    tenantID,
		FileName:    req.FileName,
		Mode:        mode,
		SizeBytes:   len(req.Text),
		TextPreview: preview(req.Text),
		CreatedAt:   time.Now().UTC(),
	}
	if h.repo != nil {
		if err := h.repo.SaveDocument(ctx, tenantID, doc); err != nil {
			slog.Error("failed to save document", "document_id", docID, "error", err)
		}
	}

	// Analyze
	assessment := h.pipeline.Analyze(req.Text, mode, req.ModelFindings)
	assessment.ID = uuid.New().String()
	assessment.TenantID = tenantID
	assessment.DocumentID = docID
	assessment.Timestamp = time.Now().UTC()
	assessment.Metadata.TraceID = traceID
	assessment.Metadata.EngineVersion = h.version

	// Optional narrative opinion, generated after the assessment is
	// final so a generator failure never blocks the response.
	if text, confidence, err := h.opinions.Generate(ctx, assessment); err != nil {
		slog.Warn("opinion generation failed", "assessment_id", assessment.ID, "error", err)
	} else if text != "" {
		assessment.AuditOpinion = text
		assessment.OpinionConfidence = confidence
	}

	assessment.Metadata.TotalMs = time.Since(start).Milliseconds()

	// Persist and audit
	if h.repo != nil {
		if err := h.repo.SaveAssessment(ctx, tenantID, assessment); err != nil {
			slog.Error("failed to save assessment", "assessment_id", assessment.ID, "error", err)
		}
		h.audit(ctx, tenantID, assessment.ID, "document.analyzed",
			"risk score "+strconv.Itoa(assessment.RiskScore)+" ("+string(assessment.RiskLevel)+")")
	}

	// Cache for identical re-submissions
	if cacheable {
		if err := h.cache.SetAssessment(ctx, tenantID, digest, assessment, assessmentTTL); err != nil {
			slog.Warn("failed to cache assessment", "assessment_id", assessment.ID, "error", err)
		}
		if _, err := h.cache.IncrementCounter(ctx, tenantID, "analyses", 24*time.Hour); err != nil {
			slog.Debug("failed to increment analysis counter", "error", err)
		}
	}

	// Publish completion and, for critical findings, an alert
	if h.bus != nil {
		payload, _ := json.Marshal(assessment)
		if err := h.bus.Publish(ctx, tenantID, domain.TopicAssessmentCompleted, payload); err != nil {
			slog.Error("failed to publish assessment", "assessment_id", assessment.ID, "error", err)
		}
		if assessment.HasCriticalFinding() {
			if err := h.bus.Publish(ctx, tenantID, domain.TopicAlert, payload); err != nil {
				slog.Error("failed to publish alert", "assessment_id", assessment.ID, "error", err)
			}
			if h.repo != nil {
				h.audit(ctx, tenantID, assessment.ID, "alert.raised", assessment.TopConcern)
			}
		}
	}

	writeJSON(w, http.StatusOK, assessment.ToResponse())
}

// audit appends an audit entry, logging rather than failing on error.
func (h *Handler) audit(ctx context.Context, tenantID, assessmentID, action, details string) {
	entry := &domain.AuditEntry{
		ID:           uuid.New().String(),
		AssessmentID: assessmentID,
		Action:       action,
		Details:      details,
		Timestamp:    time.Now().UTC(),
	}
	if err := h.repo.AppendAuditLog(ctx, tenantID, entry); err != nil {
		slog.Error("failed to append audit log", "action", action, "error", err)
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// GetAssessment retrieves an assessment by ID.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "assessment id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	a, err := h.repo.GetAssessment(ctx, tenantID, id)
	if err != nil {
		slog.Error("failed to get assessment", "id", id, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "assessment not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// GetDocument retrieves a document record by ID.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "document id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	doc, err := h.repo.GetDocument(ctx, tenantID, id)
	if err != nil {
		slog.Error("failed to get document", "id", id, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "document not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// builtinRuleView is the serializable summary of a compiled-in rule.
type builtinRuleView struct {
	Section  string          `json:"section"`
	Title    string          `json:"title"`
	Severity domain.Severity `json:"severity"`
}

// ListRules returns the compiled-in regulatory rules plus the custom
// rules currently loaded in the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	builtin := make([]builtinRuleView, 0, len(rules.Registry()))
	for _, rule := range rules.Registry() {
		builtin = append(builtin, builtinRuleView{
			Section:  rule.Section,
			Title:    rule.Title,
			Severity: rule.Severity,
		})
	}

	var custom []*domain.CustomRule
	if h.custom != nil {
		custom = h.custom.GetLoadedRules()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"builtin": builtin,
		"custom":  custom,
		"count":   len(builtin) + len(custom),
	})
}

// GetRule retrieves a loaded custom rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if h.custom != nil {
		for _, rule := range h.custom.GetLoadedRules() {
			if rule.ID == ruleID {
				writeJSON(w, http.StatusOK, rule)
				return
			}
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a custom rule.
type CreateRuleRequest struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Severity       domain.Severity `json:"severity"`
	Expression     string          `json:"expression"`
	Violation      string          `json:"violation"`
	Recommendation string          `json:"recommendation,omitempty"`
	Section        string          `json:"section,omitempty"`
	Enabled        bool            `json:"enabled"`
}

// CreateRule validates and persists a custom rule for the tenant.
// Call POST /rules/reload afterwards to load it into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.custom == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "custom rule engine not available",
		})
		return
	}

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Title == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, title, and expression are required",
		})
		return
	}
	if !req.Severity.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "severity must be one of critical, high, medium, low",
		})
		return
	}

	rule := &domain.CustomRule{
		ID:             req.ID,
		TenantID:       tenantID,
		Title:          req.Title,
		Version:        "1",
		Severity:       req.Severity,
		Expression:     req.Expression,
		Violation:      req.Violation,
		Recommendation: req.Recommendation,
		Section:        req.Section,
		Enabled:        req.Enabled,
	}

	// Compile-check the expression before persisting
	if err := h.custom.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveCustomRule(ctx, tenantID, rule); err != nil {
			slog.Error("failed to save custom rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("custom rule created", "id", rule.ID, "title", rule.Title, "tenant_id", tenantID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads the tenant's custom rules from the database into
// the engine. This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}
	if h.custom == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "custom rule engine not available",
		})
		return
	}

	dbRules, err := h.repo.ListCustomRules(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list custom rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.custom.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload custom rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("custom rules reloaded", "count", len(dbRules), "tenant_id", tenantID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// Analytics returns the tenant's aggregate assessment statistics.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	summary, err := h.repo.AnalyticsSummary(ctx, tenantID)
	if err != nil {
		slog.Error("failed to compute analytics", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute analytics",
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// AuditLog returns the tenant's audit trail, newest first.
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = parsed
	}

	entries, err := h.repo.ListAuditLog(ctx, tenantID, limit)
	if err != nil {
		slog.Error("failed to list audit log", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list audit log",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func preview(text string) string {
	if len(text) <= previewLength {
		return text
	}
	cut := previewLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
