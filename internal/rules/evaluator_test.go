package rules

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kanuni-ai/kanuni/internal/domain"
	"github.com/kanuni-ai/kanuni/internal/forensic"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	return NewEvaluator(DefaultEvaluatorConfig(), forensic.DefaultConfig(), nil)
}

// pad grows text past the minimum document length with neutral filler.
func pad(text string) string {
	filler := " The remaining pages describe delivery logistics and storage arrangements in routine detail."
	for len(text) < 250 {
		text += filler
	}
	return text
}

func TestEvaluateShortDocument(t *testing.T) {
	ev := newTestEvaluator(t)

	findings := ev.Evaluate("too short to analyze", domain.ModeProcurement)
	if findings != nil {
		t.Errorf("expected nil findings for short document, got %+v", findings)
	}
}

func TestEvaluateCleanDocument(t *testing.T) {
	ev := newTestEvaluator(t)

	text := pad("The annual procurement plan was approved within the budget. " +
		"Tender opening took place in public. Evaluation followed the published criteria. " +
		"The award went to the lowest evaluated price. The contract was signed by both parties.")

	findings := ev.Evaluate(text, domain.ModeProcurement)
	for _, f := range findings {
		if f.Severity == domain.SeverityCritical {
			t.Errorf("unexpected critical finding on clean document: %+v", f)
		}
	}
}

func TestEvaluateViolationCap(t *testing.T) {
	ev := newTestEvaluator(t)

	// Trip as many section checks as possible at once.
	text := pad("The committee agreed to split the contract. A state officer took part. " +
		"A kickback was paid. The tender opening was held behind closed doors. " +
		"Minutes suggest price fixing among bidders. A preference margin applied to local firms.")

	findings := ev.Evaluate(text, domain.ModeProcurement)

	ruleBased := 0
	for _, f := range findings {
		if f.Source == domain.SourceRuleBased {
			ruleBased++
		}
	}
	if ruleBased > 5 {
		t.Errorf("expected at most 5 rule violations, got %d", ruleBased)
	}
	if len(findings) > 10 {
		t.Errorf("expected at most 10 findings, got %d", len(findings))
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	ev := newTestEvaluator(t)

	text := pad("The committee agreed to split the contract for Vendor: Acme Ltd. " +
		"Payments of 1000 and 2000 and 3000 were recorded. A gift was exchanged. " +
		"Tender submission closes in 3 days.")

	first := ev.Evaluate(text, domain.ModeProcurement)
	second := ev.Evaluate(text, domain.ModeProcurement)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("evaluation is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestEvaluateTruncatesOversizedText(t *testing.T) {
	ev := newTestEvaluator(t)

	// The violation sits past the truncation point, so it must not fire.
	text := pad("The annual procurement plan was approved within the budget. " +
		"Tender opening in public. Evaluation criteria were published. " +
		"Award on lowest evaluated price. Contract signed.")
	text += strings.Repeat(" general provisions continue", 2000)
	text += " A kickback was paid to secure the award."

	if len(text) <= 50000 {
		t.Fatalf("test text not oversized: %d", len(text))
	}

	findings := ev.Evaluate(text, domain.ModeProcurement)
	for _, f := range findings {
		if f.Section == "Section 66" {
			t.Errorf("violation past the truncation point should not fire: %+v", f)
		}
	}
}

func TestEvaluateStatisticalGate(t *testing.T) {
	ev := newTestEvaluator(t)

	// No procurement vocabulary at all: statistical analysis is skipped
	// even though amounts and a red-flag term are present.
	text := pad("Payments of 1000 and 2000 and 3000 and 4000 were recorded. " +
		"A kickback was mentioned in the meeting notes.")

	findings := ev.Evaluate(text, domain.ModeFraud)
	for _, f := range findings {
		if f.Source == domain.SourceStatistical {
			t.Errorf("statistical finding without procurement vocabulary: %+v", f)
		}
	}
}

func TestEvaluateCustomRuleViolation(t *testing.T) {
	engine, err := NewCustomEngine()
	if err != nil {
		t.Fatalf("failed to create custom engine: %v", err)
	}
	defer engine.Close()

	rule := &domain.CustomRule{
		ID:             "rule-round-ratio",
		Title:          "ROUND AMOUNT CEILING",
		Severity:       domain.SeverityHigh,
		Expression:     "round_ratio <= 0.5",
		Violation:      "More than half of all amounts are suspiciously round",
		Recommendation: "Request itemized pricing",
		Section:        "Section 54",
		Enabled:        true,
	}
	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	ev := NewEvaluator(DefaultEvaluatorConfig(), forensic.DefaultConfig(), engine)

	text := pad("Procurement payments of 1000 and 2000 and 3000 and 4000 were recorded " +
		"against the approved procurement plan and budget for the year.")

	findings := ev.Evaluate(text, domain.ModeProcurement)

	found := false
	for _, f := range findings {
		if f.Label == "ROUND AMOUNT CEILING" {
			found = true
			if f.Source != domain.SourceRuleBased {
				t.Errorf("expected rule-based source, got %q", f.Source)
			}
		}
	}
	if !found {
		t.Errorf("expected custom rule violation, got %+v", findings)
	}
}

func TestRulesEvaluated(t *testing.T) {
	ev := newTestEvaluator(t)
	if got := ev.RulesEvaluated(); got != len(Registry()) {
		t.Errorf("expected %d rules evaluated, got %d", len(Registry()), got)
	}
}
