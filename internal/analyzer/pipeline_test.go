package analyzer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kanuni-ai/kanuni/internal/domain"
	"github.com/kanuni-ai/kanuni/internal/forensic"
	"github.com/kanuni-ai/kanuni/internal/rules"
	"github.com/kanuni-ai/kanuni/internal/scoring"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	evaluator := rules.NewEvaluator(rules.DefaultEvaluatorConfig(), forensic.DefaultConfig(), nil)
	return New(evaluator, scoring.NewScorer(scoring.DefaultConfig()))
}

func riskyDocument() string {
	text := "The committee agreed to split the contract across quarters. " +
		"A kickback was paid to secure the award for Vendor: Acme Ltd. " +
		"Payments of 1000 and 2000 and 3000 were recorded. " +
		"Tender submission closes in 3 days."
	for len(text) < 250 {
		text += " Further annexes describe packaging and storage arrangements in routine detail."
	}
	return text
}

func TestAnalyzeShortDocument(t *testing.T) {
	p := newTestPipeline(t)

	a := p.Analyze("tiny", domain.ModeProcurement, nil)

	if a.RiskScore != 0 || a.RiskLevel != domain.RiskLow {
		t.Errorf("expected zero-score LOW for short document, got %d %q", a.RiskScore, a.RiskLevel)
	}
	if len(a.Findings) != 0 {
		t.Errorf("expected no findings, got %+v", a.Findings)
	}
	if a.TopConcern == "" {
		t.Error("expected the no-concern sentinel, got empty string")
	}
}

func TestAnalyzeRiskyDocument(t *testing.T) {
	p := newTestPipeline(t)

	a := p.Analyze(riskyDocument(), domain.ModeProcurement, nil)

	if len(a.Findings) == 0 {
		t.Fatal("expected findings on a risky document")
	}
	if a.RiskScore == 0 {
		t.Error("expected a non-zero risk score")
	}
	if !a.HasCriticalFinding() {
		t.Error("expected a critical finding for corruption language")
	}
	if len(a.Alerts) == 0 {
		t.Error("expected alerts for critical findings")
	}
	if a.Mode != domain.ModeProcurement {
		t.Errorf("expected mode stamped on assessment, got %q", a.Mode)
	}
	if a.Metadata.RulesEvaluated == 0 {
		t.Error("expected rules-evaluated metadata")
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	p := newTestPipeline(t)
	text := riskyDocument()

	first, err := json.Marshal(p.Analyze(text, domain.ModeProcurement, nil))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	second, err := json.Marshal(p.Analyze(text, domain.ModeProcurement, nil))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("assessments differ between runs:\n%s\n%s", first, second)
	}
}

func TestAnalyzeModelFindings(t *testing.T) {
	p := newTestPipeline(t)

	model := []domain.Finding{
		{Severity: domain.SeverityHigh, Text: "classifier flagged unusual invoice clustering", Source: domain.SourceRuleBased},
		{Severity: "bogus", Text: "invalid severity is dropped"},
		{Severity: domain.SeverityLow, Text: ""},
	}

	a := p.Analyze(riskyDocument(), domain.ModeProcurement, model)

	kept := 0
	for _, f := range a.Findings {
		if f.Source == domain.SourceModelBased {
			kept++
			if !strings.Contains(f.Text, "invoice clustering") {
				t.Errorf("unexpected model finding: %+v", f)
			}
		}
	}
	if kept != 1 {
		t.Errorf("expected 1 validated model finding, got %d", kept)
	}
}

func TestAnalyzeModelFindingsAffectScore(t *testing.T) {
	p := newTestPipeline(t)
	text := riskyDocument()

	base := p.Analyze(text, domain.ModeProcurement, nil)
	augmented := p.Analyze(text, domain.ModeProcurement, []domain.Finding{
		{Severity: domain.SeverityCritical, Text: "model finding"},
	})

	if augmented.RiskScore < base.RiskScore {
		t.Errorf("model finding lowered the score: %d < %d", augmented.RiskScore, base.RiskScore)
	}
}
