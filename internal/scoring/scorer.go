// Package scoring turns findings into a bounded risk score and the
// assessment summary fields derived from it.
package scoring

import (
	"github.com/kanuni-ai/kanuni/internal/domain"
)

// Config holds the severity weights and tier thresholds.
type Config struct {
	// Weights maps finding severity to its score contribution.
	Weights map[domain.Severity]int

	// Tier thresholds, inclusive lower bounds on the clamped score.
	CriticalAt int
	HighAt     int
	MediumAt   int

	// MaxSuggestions caps the recommendations surfaced per assessment.
	MaxSuggestions int

	// NoConcernText is the top concern for a clean document.
	NoConcernText string
}

// DefaultConfig returns the standard scoring parameters.
func DefaultConfig() Config {
	return Config{
		Weights: map[domain.Severity]int{
			domain.SeverityCritical: 30,
			domain.SeverityHigh:     18,
			domain.SeverityMedium:   8,
			domain.SeverityLow:      3,
		},
		CriticalAt:     70,
		HighAt:         45,
		MediumAt:       20,
		MaxSuggestions: 5,
		NoConcernText:  "No material compliance concerns identified",
	}
}

// Scorer computes risk scores and assessment summaries from findings.
type Scorer struct {
	cfg Config
}

// NewScorer returns a scorer with the given configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score sums severity weights over the findings and clamps to [0,100].
func (s *Scorer) Score(findings []domain.Finding) int {
	score := 0
	for _, f := range findings {
		score += s.cfg.Weights[f.Severity]
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Level maps a clamped score to its risk tier.
func (s *Scorer) Level(score int) domain.RiskLevel {
	switch {
	case score >= s.cfg.CriticalAt:
		return domain.RiskCritical
	case score >= s.cfg.HighAt:
		return domain.RiskHigh
	case score >= s.cfg.MediumAt:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// Assess builds the scored summary for a finding set. Top concern is
// the first critical finding's text, falling back to the first finding
// and then the no-concern sentinel. Alerts carry every critical
// finding's text. Suggestions collect recommendations in finding order,
// falling back to the finding text, capped at MaxSuggestions.
func (s *Scorer) Assess(findings []domain.Finding) domain.RiskAssessment {
	score := s.Score(findings)

	assessment := domain.RiskAssessment{
		Findings:   findings,
		RiskScore:  score,
		RiskLevel:  s.Level(score),
		TopConcern: s.cfg.NoConcernText,
	}

	for _, f := range findings {
		if f.Severity == domain.SeverityCritical {
			assessment.Alerts = append(assessment.Alerts, f.Text)
		}
		if len(assessment.Suggestions) < s.cfg.MaxSuggestions {
			suggestion := f.Recommendation
			if suggestion == "" {
				suggestion = f.Text
			}
			assessment.Suggestions = append(assessment.Suggestions, suggestion)
		}
	}

	if len(assessment.Alerts) > 0 {
		assessment.TopConcern = assessment.Alerts[0]
	} else if len(findings) > 0 {
		assessment.TopConcern = findings[0].Text
	}

	return assessment
}
