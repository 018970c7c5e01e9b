// Package analyzer composes rule evaluation and scoring into the
// document assessment pipeline.
package analyzer

import (
	"github.com/kanuni-ai/kanuni/internal/domain"
	"github.com/kanuni-ai/kanuni/internal/rules"
	"github.com/kanuni-ai/kanuni/internal/scoring"
)

// Pipeline runs the full assessment over document text. It is pure:
// the same text, mode, and model findings always produce the same
// assessment, which is what makes assessments cacheable by content.
type Pipeline struct {
	evaluator *rules.Evaluator
	scorer    *scoring.Scorer
}

// New wires a pipeline from its two stages.
func New(evaluator *rules.Evaluator, scorer *scoring.Scorer) *Pipeline {
	return &Pipeline{evaluator: evaluator, scorer: scorer}
}

// Analyze evaluates text and returns the scored assessment. Model
// findings from an external classifier are validated and appended
// after the core findings so they contribute to the score without
// disturbing rule ordering. Identity fields (ID, tenant, document,
// timestamp) are left for the caller to stamp.
func (p *Pipeline) Analyze(text string, mode domain.AnalysisMode, modelFindings []domain.Finding) *domain.RiskAssessment {
	findings := p.evaluator.Evaluate(text, mode)

	for _, f := range modelFindings {
		if f.Text == "" || !f.Severity.Valid() {
			continue
		}
		f.Source = domain.SourceModelBased
		findings = append(findings, f)
	}

	assessment := p.scorer.Assess(findings)
	assessment.Mode = mode
	assessment.Metadata.RulesEvaluated = p.evaluator.RulesEvaluated()
	return &assessment
}
