package rules

import (
	"testing"

	"github.com/kanuni-ai/kanuni/internal/domain"
)

func sectionRule(t *testing.T, section string) BuiltinRule {
	t.Helper()
	for _, rule := range Registry() {
		if rule.Section == section {
			return rule
		}
	}
	t.Fatalf("no rule for %s", section)
	return BuiltinRule{}
}

func TestRegistryShape(t *testing.T) {
	rules := Registry()
	if len(rules) != 13 {
		t.Fatalf("expected 13 builtin rules, got %d", len(rules))
	}
	for _, rule := range rules {
		if rule.Section == "" || rule.Title == "" || rule.Violation == "" || rule.Recommendation == "" {
			t.Errorf("rule %q has empty fields", rule.Section)
		}
		if !rule.Severity.Valid() {
			t.Errorf("rule %q has invalid severity %q", rule.Section, rule.Severity)
		}
		if rule.Check == nil {
			t.Errorf("rule %q has no check", rule.Section)
		}
	}
}

func TestSectionChecks(t *testing.T) {
	tests := []struct {
		name      string
		section   string
		text      string
		compliant bool
	}{
		{
			name:      "planning present",
			section:   "Section 53",
			text:      "The annual procurement plan was approved within the budget ceiling.",
			compliant: true,
		},
		{
			name:      "planning missing budget",
			section:   "Section 53",
			text:      "The procurement plan was circulated to all departments.",
			compliant: false,
		},
		{
			name:      "contract splitting language",
			section:   "Section 54",
			text:      "The committee agreed to split the contract across quarters.",
			compliant: false,
		},
		{
			name:      "no splitting language",
			section:   "Section 54",
			text:      "A single consolidated award was issued.",
			compliant: true,
		},
		{
			name:      "officer with disclosure",
			section:   "Section 59",
			text:      "A public officer filed the required disclosure of interest.",
			compliant: true,
		},
		{
			name:      "officer without disclosure",
			section:   "Section 59",
			text:      "A state officer participated in the award decision.",
			compliant: false,
		},
		{
			name:      "tender security within limit",
			section:   "Section 61",
			text:      "Bidders shall provide tender security of 2% of the tender value.",
			compliant: true,
		},
		{
			name:      "tender security above limit",
			section:   "Section 61",
			text:      "Bidders shall provide tender security of 5% of the tender value.",
			compliant: false,
		},
		{
			name:      "tender security without percentage",
			section:   "Section 61",
			text:      "A tender security in the prescribed form is required.",
			compliant: true,
		},
		{
			name:      "definitional corruption clause",
			section:   "Section 66",
			text:      "This agreement prohibits corrupt practices by either party.",
			compliant: true,
		},
		{
			name:      "definitional bribery clause",
			section:   "Section 66",
			text:      "This policy prohibits bribery and kickbacks in all procurement activities.",
			compliant: true,
		},
		{
			name:      "definitional clause with evidence",
			section:   "Section 66",
			text:      "This agreement prohibits corrupt practices. An investigation found the supplier overpriced the goods.",
			compliant: false,
		},
		{
			name:      "bare corruption language",
			section:   "Section 66",
			text:      "A kickback was paid to secure the award.",
			compliant: false,
		},
		{
			name:      "opening with public attendance",
			section:   "Section 78",
			text:      "The tender opening took place in public at the town hall.",
			compliant: true,
		},
		{
			name:      "opening without transparency",
			section:   "Section 78",
			text:      "The tender opening was held behind closed doors.",
			compliant: false,
		},
		{
			name:      "evaluation with criteria",
			section:   "Section 80",
			text:      "Evaluation followed the published criteria.",
			compliant: true,
		},
		{
			name:      "evaluation without criteria",
			section:   "Section 80",
			text:      "Evaluation was completed in one afternoon.",
			compliant: false,
		},
		{
			name:      "award on lowest price",
			section:   "Section 86",
			text:      "The award went to the lowest evaluated price.",
			compliant: true,
		},
		{
			name:      "award without valid basis",
			section:   "Section 86",
			text:      "The award went to the chairman's preferred firm.",
			compliant: false,
		},
		{
			name:      "direct procurement justified",
			section:   "Section 91",
			text:      "Direct procurement was used for reason of a declared emergency.",
			compliant: true,
		},
		{
			name:      "direct procurement unjustified",
			section:   "Section 91",
			text:      "Direct procurement was used for the supply of stationery.",
			compliant: false,
		},
		{
			name:      "bid rigging language",
			section:   "Section 93",
			text:      "Minutes suggest price fixing among the three bidders.",
			compliant: false,
		},
		{
			name:      "written contract",
			section:   "Section 135",
			text:      "The contract was signed by both parties.",
			compliant: true,
		},
		{
			name:      "performance security always passes",
			section:   "Section 142",
			text:      "anything at all",
			compliant: true,
		},
		{
			name:      "preferences without target groups",
			section:   "Section 155",
			text:      "A preference margin applied to local firms.",
			compliant: false,
		},
		{
			name:      "preferences with target groups",
			section:   "Section 155",
			text:      "A 30% reservation applied for women and youth owned enterprises.",
			compliant: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := sectionRule(t, tt.section)
			if got := rule.Check(tt.text); got != tt.compliant {
				t.Errorf("%s: Check(%q) = %v, want %v", tt.section, tt.text, got, tt.compliant)
			}
		})
	}
}

func TestCriticalSections(t *testing.T) {
	for _, section := range []string{"Section 59", "Section 66", "Section 93"} {
		if sectionRule(t, section).Severity != domain.SeverityCritical {
			t.Errorf("expected %s to be critical", section)
		}
	}
}
