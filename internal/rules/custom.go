package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/kanuni-ai/kanuni/internal/domain"
)

// Features is the variable set a custom rule expression evaluates
// against. All values are derived from the document text before
// evaluation so expressions stay pure.
type Features struct {
	Mode              string
	Length            int
	AmountCount       int
	RoundRatio        float64
	OutlierCount      int
	VendorMentions    int
	TopVendorRatio    float64
	KeywordHits       int
	HasInvoiceNumbers bool
	HasDates          bool
	Text              string
}

// CustomEngine compiles and evaluates tenant-defined CEL rules. An
// expression must return bool; true means the document is compliant
// with the rule, false produces a violation finding.
type CustomEngine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*compiledCustomRule
}

type compiledCustomRule struct {
	rule    *domain.CustomRule
	program cel.Program
}

// NewCustomEngine creates the CEL environment with the document
// feature variables.
func NewCustomEngine() (*CustomEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("mode", cel.StringType),
		cel.Variable("length", cel.IntType),
		cel.Variable("amount_count", cel.IntType),
		cel.Variable("round_ratio", cel.DoubleType),
		cel.Variable("outlier_count", cel.IntType),
		cel.Variable("vendor_mentions", cel.IntType),
		cel.Variable("top_vendor_ratio", cel.DoubleType),
		cel.Variable("keyword_hits", cel.IntType),
		cel.Variable("has_invoice_numbers", cel.BoolType),
		cel.Variable("has_dates", cel.BoolType),
		cel.Variable("text", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &CustomEngine{
		env:      env,
		compiled: make(map[string]*compiledCustomRule),
	}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *CustomEngine) ValidateRule(rule *domain.CustomRule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compile(rule)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *CustomEngine) LoadRule(rule *domain.CustomRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compile(rule)
	if err != nil {
		return err
	}
	e.compiled[rule.ID] = compiled
	return nil
}

// LoadRules compiles and loads the enabled rules.
func (e *CustomEngine) LoadRules(rules []*domain.CustomRule) error {
	for _, rule := range rules {
		if rule.Enabled {
			if err := e.LoadRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules replaces the loaded rule set atomically. Enables
// hot-reloading from the database without a restart.
func (e *CustomEngine) ReloadRules(rules []*domain.CustomRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[string]*compiledCustomRule)
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		compiled, err := e.compile(rule)
		if err != nil {
			return err
		}
		next[rule.ID] = compiled
	}

	e.compiled = next
	return nil
}

// RulesCount returns the number of loaded rules.
func (e *CustomEngine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// GetLoadedRules returns the currently loaded rule definitions.
func (e *CustomEngine) GetLoadedRules() []*domain.CustomRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.CustomRule, 0, len(e.compiled))
	for _, compiled := range e.compiled {
		rules = append(rules, compiled.rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// EvaluateAll evaluates the loaded rules against the document features
// in rule-ID order, so repeated runs over the same document produce
// the same finding sequence. Rules that error at runtime are skipped.
func (e *CustomEngine) EvaluateAll(features Features) []domain.Finding {
	e.mu.RLock()
	rules := make([]*compiledCustomRule, 0, len(e.compiled))
	for _, compiled := range e.compiled {
		rules = append(rules, compiled)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].rule.ID < rules[j].rule.ID })

	activation := map[string]any{
		"mode":                features.Mode,
		"length":              features.Length,
		"amount_count":        features.AmountCount,
		"round_ratio":         features.RoundRatio,
		"outlier_count":       features.OutlierCount,
		"vendor_mentions":     features.VendorMentions,
		"top_vendor_ratio":    features.TopVendorRatio,
		"keyword_hits":        features.KeywordHits,
		"has_invoice_numbers": features.HasInvoiceNumbers,
		"has_dates":           features.HasDates,
		"text":                features.Text,
	}

	var findings []domain.Finding
	for _, compiled := range rules {
		out, _, err := compiled.program.Eval(activation)
		if err != nil {
			continue
		}
		compliant, ok := out.(types.Bool)
		if !ok || bool(compliant) {
			continue
		}
		rule := compiled.rule
		findings = append(findings, domain.Finding{
			Severity:       rule.Severity,
			Text:           rule.Violation,
			Label:          rule.Title,
			Confidence:     "95%",
			Source:         domain.SourceRuleBased,
			Section:        rule.Section,
			Recommendation: rule.Recommendation,
		})
	}
	return findings
}

// Close clears the loaded rules.
func (e *CustomEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = make(map[string]*compiledCustomRule)
	return nil
}

func (e *CustomEngine) compile(rule *domain.CustomRule) (*compiledCustomRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &compiledCustomRule{rule: rule, program: program}, nil
}
