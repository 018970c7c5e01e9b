package scoring

import (
	"testing"

	"github.com/kanuni-ai/kanuni/internal/domain"
)

func finding(severity domain.Severity, text string) domain.Finding {
	return domain.Finding{Severity: severity, Text: text, Source: domain.SourceRuleBased}
}

func TestScoreWeights(t *testing.T) {
	s := NewScorer(DefaultConfig())

	tests := []struct {
		name     string
		findings []domain.Finding
		want     int
	}{
		{"no findings", nil, 0},
		{"one critical", []domain.Finding{finding(domain.SeverityCritical, "a")}, 30},
		{"one high", []domain.Finding{finding(domain.SeverityHigh, "a")}, 18},
		{"one medium", []domain.Finding{finding(domain.SeverityMedium, "a")}, 8},
		{"one low", []domain.Finding{finding(domain.SeverityLow, "a")}, 3},
		{"critical plus high", []domain.Finding{
			finding(domain.SeverityCritical, "a"),
			finding(domain.SeverityHigh, "b"),
		}, 48},
		{"clamped at 100", []domain.Finding{
			finding(domain.SeverityCritical, "a"),
			finding(domain.SeverityCritical, "b"),
			finding(domain.SeverityCritical, "c"),
			finding(domain.SeverityCritical, "d"),
		}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score(tt.findings); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreMonotonic(t *testing.T) {
	s := NewScorer(DefaultConfig())

	findings := []domain.Finding{}
	prev := 0
	for i := 0; i < 10; i++ {
		findings = append(findings, finding(domain.SeverityMedium, "m"))
		score := s.Score(findings)
		if score < prev {
			t.Fatalf("score decreased from %d to %d after adding a finding", prev, score)
		}
		prev = score
	}
}

func TestLevelTiers(t *testing.T) {
	s := NewScorer(DefaultConfig())

	tests := []struct {
		score int
		want  domain.RiskLevel
	}{
		{0, domain.RiskLow},
		{19, domain.RiskLow},
		{20, domain.RiskMedium},
		{44, domain.RiskMedium},
		{45, domain.RiskHigh},
		{69, domain.RiskHigh},
		{70, domain.RiskCritical},
		{100, domain.RiskCritical},
	}

	for _, tt := range tests {
		if got := s.Level(tt.score); got != tt.want {
			t.Errorf("Level(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestAssessTopConcernPrecedence(t *testing.T) {
	s := NewScorer(DefaultConfig())

	t.Run("critical wins over earlier findings", func(t *testing.T) {
		a := s.Assess([]domain.Finding{
			finding(domain.SeverityHigh, "a high concern"),
			finding(domain.SeverityCritical, "the critical concern"),
		})
		if a.TopConcern != "the critical concern" {
			t.Errorf("TopConcern = %q", a.TopConcern)
		}
	})

	t.Run("first finding without criticals", func(t *testing.T) {
		a := s.Assess([]domain.Finding{
			finding(domain.SeverityMedium, "first concern"),
			finding(domain.SeverityHigh, "second concern"),
		})
		if a.TopConcern != "first concern" {
			t.Errorf("TopConcern = %q", a.TopConcern)
		}
	})

	t.Run("sentinel for clean document", func(t *testing.T) {
		a := s.Assess(nil)
		if a.TopConcern != "No material compliance concerns identified" {
			t.Errorf("TopConcern = %q", a.TopConcern)
		}
		if a.RiskScore != 0 || a.RiskLevel != domain.RiskLow {
			t.Errorf("expected zero-score LOW assessment, got %d %q", a.RiskScore, a.RiskLevel)
		}
	})
}

func TestAssessAlerts(t *testing.T) {
	s := NewScorer(DefaultConfig())

	a := s.Assess([]domain.Finding{
		finding(domain.SeverityCritical, "first alert"),
		finding(domain.SeverityHigh, "not an alert"),
		finding(domain.SeverityCritical, "second alert"),
	})

	if len(a.Alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %v", a.Alerts)
	}
	if a.Alerts[0] != "first alert" || a.Alerts[1] != "second alert" {
		t.Errorf("unexpected alerts: %v", a.Alerts)
	}
}

func TestAssessSuggestions(t *testing.T) {
	s := NewScorer(DefaultConfig())

	t.Run("recommendation with text fallback", func(t *testing.T) {
		withRec := finding(domain.SeverityHigh, "finding text")
		withRec.Recommendation = "do the thing"
		withoutRec := finding(domain.SeverityMedium, "bare finding")

		a := s.Assess([]domain.Finding{withRec, withoutRec})

		if len(a.Suggestions) != 2 {
			t.Fatalf("expected 2 suggestions, got %v", a.Suggestions)
		}
		if a.Suggestions[0] != "do the thing" {
			t.Errorf("expected recommendation first, got %q", a.Suggestions[0])
		}
		if a.Suggestions[1] != "bare finding" {
			t.Errorf("expected text fallback, got %q", a.Suggestions[1])
		}
	})

	t.Run("capped at five", func(t *testing.T) {
		var findings []domain.Finding
		for i := 0; i < 8; i++ {
			findings = append(findings, finding(domain.SeverityLow, "f"))
		}
		a := s.Assess(findings)
		if len(a.Suggestions) != 5 {
			t.Errorf("expected 5 suggestions, got %d", len(a.Suggestions))
		}
	})
}
