package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kanuni-ai/kanuni/internal/analyzer"
	"github.com/kanuni-ai/kanuni/internal/cache"
	"github.com/kanuni-ai/kanuni/internal/domain"
	"github.com/kanuni-ai/kanuni/internal/forensic"
	"github.com/kanuni-ai/kanuni/internal/rules"
	"github.com/kanuni-ai/kanuni/internal/scoring"
)

// createTestServer creates a server with the full pipeline and an
// in-memory cache for testing.
func createTestServer() *Server {
	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	custom, _ := rules.NewCustomEngine()

	// Load a custom rule that passes for any realistic test document
	// so it never perturbs the analysis assertions.
	custom.LoadRule(&domain.CustomRule{
		ID:         "doc-size-cap",
		Title:      "DOCUMENT SIZE CAP",
		Severity:   domain.SeverityLow,
		Expression: "length < 100000",
		Violation:  "Document exceeds the configured size cap",
		Enabled:    true,
	})

	evaluator := rules.NewEvaluator(rules.DefaultEvaluatorConfig(), forensic.DefaultConfig(), custom)
	pipeline := analyzer.New(evaluator, scoring.NewScorer(scoring.DefaultConfig()))

	return NewServer(cfg, nil, cache.NewLRUCache(100), nil, pipeline, custom, nil, "test-v1")
}

// riskyDocument returns procurement text that trips rule and
// statistical checks.
func riskyDocument() string {
	text := "TENDER EVALUATION MINUTES. The committee agreed to split the contract " +
		"into quarterly awards below the review threshold. A kickback was paid to " +
		"expedite the award. Vendor: Acme Supplies Ltd received each award."
	for len(text) < 300 {
		text += " The annexes describe packaging and storage arrangements in routine detail."
	}
	return text
}

func analyzeRequest(body []byte, tenantID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}
	return req
}

func TestAnalyzeEndpoint(t *testing.T) {
	server := createTestServer()

	t.Run("SuccessfulAnalysis", func(t *testing.T) {
		body, _ := json.Marshal(AnalyzeRequest{
			FileName: "tender-minutes.pdf",
			Mode:     "procurement",
			Text:     riskyDocument(),
		})

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, analyzeRequest(body, "tenant-001"))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp domain.AssessmentResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.AssessmentID == "" {
			t.Error("expected assessmentId in response")
		}
		if resp.DocumentID == "" {
			t.Error("expected documentId in response")
		}
		if resp.Mode != domain.ModeProcurement {
			t.Errorf("expected mode procurement, got %s", resp.Mode)
		}
		if resp.RiskScore == 0 {
			t.Error("expected non-zero risk score for risky document")
		}
		if len(resp.Findings) == 0 {
			t.Error("expected findings for risky document")
		}
		if resp.Metadata.EngineVersion != "test-v1" {
			t.Errorf("expected engine version test-v1, got %s", resp.Metadata.EngineVersion)
		}
		if resp.Metadata.TraceID == "" {
			t.Error("expected traceId in metadata")
		}
		if resp.Metadata.CacheHit {
			t.Error("first analysis should not be a cache hit")
		}
	})

	t.Run("CacheHitOnResubmission", func(t *testing.T) {
		body, _ := json.Marshal(AnalyzeRequest{
			Mode: "procurement",
			Text: riskyDocument() + " Resubmission marker.",
		})

		first := httptest.NewRecorder()
		server.Router().ServeHTTP(first, analyzeRequest(body, "tenant-cache"))
		if first.Code != http.StatusOK {
			t.Fatalf("first request failed: %d", first.Code)
		}

		second := httptest.NewRecorder()
		server.Router().ServeHTTP(second, analyzeRequest(body, "tenant-cache"))
		if second.Code != http.StatusOK {
			t.Fatalf("second request failed: %d", second.Code)
		}

		var firstResp, secondResp domain.AssessmentResponse
		json.Unmarshal(first.Body.Bytes(), &firstResp)
		json.Unmarshal(second.Body.Bytes(), &secondResp)

		if !secondResp.Metadata.CacheHit {
			t.Error("expected second identical analysis to be a cache hit")
		}
		if secondResp.RiskScore != firstResp.RiskScore {
			t.Errorf("cached score %d differs from original %d", secondResp.RiskScore, firstResp.RiskScore)
		}
	})

	t.Run("ShortDocumentScoresLow", func(t *testing.T) {
		body, _ := json.Marshal(AnalyzeRequest{
			Mode: "procurement",
			Text: "Brief memo about stationery.",
		})

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, analyzeRequest(body, "tenant-001"))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp domain.AssessmentResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if len(resp.Findings) != 0 {
			t.Errorf("expected no findings for short document, got %d", len(resp.Findings))
		}
		if resp.RiskLevel != domain.RiskLow {
			t.Errorf("expected LOW risk, got %s", resp.RiskLevel)
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, analyzeRequest([]byte("{}"), ""))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, analyzeRequest([]byte("not-json"), "tenant-001"))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingText", func(t *testing.T) {
		body, _ := json.Marshal(AnalyzeRequest{Mode: "procurement"})

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, analyzeRequest(body, "tenant-001"))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidMode", func(t *testing.T) {
		body, _ := json.Marshal(AnalyzeRequest{Mode: "forecast", Text: riskyDocument()})

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, analyzeRequest(body, "tenant-001"))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		body, _ := json.Marshal(AnalyzeRequest{Text: riskyDocument()})

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, analyzeRequest(body, "tenant-001"))

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
	})
}

func TestRuleEndpoints(t *testing.T) {
	server := createTestServer()

	t.Run("ListRules", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rules", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Builtin []builtinRuleView    `json:"builtin"`
			Custom  []*domain.CustomRule `json:"custom"`
			Count   int                  `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if len(resp.Builtin) != 13 {
			t.Errorf("expected 13 builtin rules, got %d", len(resp.Builtin))
		}
		if len(resp.Custom) != 1 {
			t.Errorf("expected 1 custom rule, got %d", len(resp.Custom))
		}
		if resp.Count != 14 {
			t.Errorf("expected count 14, got %d", resp.Count)
		}
	})

	t.Run("GetLoadedRule", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rules/doc-size-cap", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var rule domain.CustomRule
		json.Unmarshal(rr.Body.Bytes(), &rule)
		if rule.Title != "DOCUMENT SIZE CAP" {
			t.Errorf("unexpected rule: %+v", rule)
		}
	})

	t.Run("GetUnknownRule", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rules/nonexistent", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("CreateRule", func(t *testing.T) {
		body, _ := json.Marshal(CreateRuleRequest{
			ID:         "keyword-ceiling",
			Title:      "KEYWORD CEILING",
			Severity:   domain.SeverityHigh,
			Expression: "keyword_hits < 3",
			Violation:  "Too many red-flag terms",
			Enabled:    true,
		})

		req := httptest.NewRequest(http.MethodPost, "/rules", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("CreateRuleInvalidExpression", func(t *testing.T) {
		body, _ := json.Marshal(CreateRuleRequest{
			ID:         "bad-rule",
			Title:      "BAD RULE",
			Severity:   domain.SeverityLow,
			Expression: "keyword_hits <<< 3",
			Enabled:    true,
		})

		req := httptest.NewRequest(http.MethodPost, "/rules", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "invalid CEL expression") {
			t.Errorf("expected CEL error in body, got %s", rr.Body.String())
		}
	})

	t.Run("CreateRuleInvalidSeverity", func(t *testing.T) {
		body, _ := json.Marshal(CreateRuleRequest{
			ID:         "odd-severity",
			Title:      "ODD SEVERITY",
			Severity:   "urgent",
			Expression: "true",
			Enabled:    true,
		})

		req := httptest.NewRequest(http.MethodPost, "/rules", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ReloadRequiresRepository", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/rules/reload", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
	})
}

func TestReportingEndpoints(t *testing.T) {
	server := createTestServer()

	t.Run("AnalyticsRequiresRepository", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/analytics", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
	})

	t.Run("AuditRequiresRepository", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
	})
}

func TestPreviewRuneBoundaries(t *testing.T) {
	// 300 bytes of 3-byte runes: a byte-offset cut at 200 would split
	// a character.
	text := strings.Repeat("€", 100)

	p := preview(text)
	if len(p) > previewLength {
		t.Errorf("preview length %d exceeds cap %d", len(p), previewLength)
	}
	if !utf8.ValidString(p) {
		t.Errorf("preview is not valid UTF-8: %q", p)
	}
	if !strings.HasPrefix(text, p) {
		t.Error("preview should be a prefix of the original text")
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer()

	t.Run("HealthCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TenantMiddlewareExtractsID", func(t *testing.T) {
		var capturedTenantID string

		handler := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedTenantID = GetTenantID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "my-tenant-123")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedTenantID != "my-tenant-123" {
			t.Errorf("expected tenant ID 'my-tenant-123', got '%s'", capturedTenantID)
		}
	})

	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
