package rules

import (
	"regexp"
	"strings"

	"github.com/kanuni-ai/kanuni/internal/domain"
	"github.com/kanuni-ai/kanuni/internal/extract"
	"github.com/kanuni-ai/kanuni/internal/forensic"
)

// procurementGateRe decides whether statistical analysis runs at all.
// Documents with no procurement vocabulary skip it.
var procurementGateRe = regexp.MustCompile(`(?i)procurement|tender|bid|contract`)

// EvaluatorConfig bounds the work done per document.
type EvaluatorConfig struct {
	// MinDocLength is the minimum text length worth analyzing.
	// Shorter inputs return no findings.
	MinDocLength int

	// MaxTextLength truncates oversized documents before analysis.
	MaxTextLength int

	// MaxViolations stops rule evaluation after this many violations.
	MaxViolations int

	// MaxFindings is the hard cap on findings returned.
	MaxFindings int
}

// DefaultEvaluatorConfig returns the standard evaluation bounds.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		MinDocLength:  200,
		MaxTextLength: 50000,
		MaxViolations: 5,
		MaxFindings:   10,
	}
}

// Evaluator runs the builtin registry, tenant custom rules, and the
// statistical analyzers over a document and merges the findings.
type Evaluator struct {
	cfg      EvaluatorConfig
	forensic forensic.Config
	custom   *CustomEngine
}

// NewEvaluator wires an evaluator. custom may be nil when no tenant
// rules are configured.
func NewEvaluator(cfg EvaluatorConfig, fc forensic.Config, custom *CustomEngine) *Evaluator {
	return &Evaluator{cfg: cfg, forensic: fc, custom: custom}
}

// Evaluate analyzes text and returns findings in deterministic order:
// rule violations first (builtin registry order, then custom rules by
// ID), then statistical findings. The same text and mode always yield
// the same findings.
func (ev *Evaluator) Evaluate(text string, mode domain.AnalysisMode) []domain.Finding {
	if len(text) < ev.cfg.MinDocLength {
		return nil
	}
	if len(text) > ev.cfg.MaxTextLength {
		text = text[:ev.cfg.MaxTextLength]
	}

	var findings []domain.Finding

	violations := 0
	for _, rule := range Registry() {
		if violations >= ev.cfg.MaxViolations {
			break
		}
		if rule.Check(text) {
			continue
		}
		findings = append(findings, domain.Finding{
			Severity:       rule.Severity,
			Text:           rule.Violation,
			Label:          strings.ToUpper(rule.Title),
			Confidence:     "95%",
			Source:         domain.SourceRuleBased,
			Section:        rule.Section,
			Recommendation: rule.Recommendation,
		})
		violations++
	}

	if ev.custom != nil && ev.custom.RulesCount() > 0 && violations < ev.cfg.MaxViolations {
		for _, f := range ev.custom.EvaluateAll(ev.features(text, mode)) {
			if violations >= ev.cfg.MaxViolations {
				break
			}
			findings = append(findings, f)
			violations++
		}
	}

	if procurementGateRe.MatchString(text) {
		findings = append(findings, ev.forensic.Findings(text)...)
	}

	if len(findings) > ev.cfg.MaxFindings {
		findings = findings[:ev.cfg.MaxFindings]
	}
	return findings
}

// RulesEvaluated reports how many rules a single Evaluate call runs,
// for assessment metadata.
func (ev *Evaluator) RulesEvaluated() int {
	n := len(Registry())
	if ev.custom != nil {
		n += ev.custom.RulesCount()
	}
	return n
}

// features derives the custom-rule variable set from the document.
func (ev *Evaluator) features(text string, mode domain.AnalysisMode) Features {
	entities := extract.Entities(text)
	amounts := ev.forensic.AnalyzeAmounts(text)
	vendors := ev.forensic.AnalyzeVendors(text)
	keywords := ev.forensic.ScanKeywords(text)

	return Features{
		Mode:              string(mode),
		Length:            len(text),
		AmountCount:       amounts.TotalAmounts,
		RoundRatio:        amounts.RoundRatio,
		OutlierCount:      len(amounts.Outliers),
		VendorMentions:    vendors.TotalMentions,
		TopVendorRatio:    vendors.ConcentrationRatio,
		KeywordHits:       len(keywords),
		HasInvoiceNumbers: entities.HasInvoiceNumbers,
		HasDates:          entities.HasDates,
		Text:              text,
	}
}
