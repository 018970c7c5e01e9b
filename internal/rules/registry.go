// Package rules implements the compliance rule registry and evaluator.
package rules

import (
	"regexp"
	"strconv"

	"github.com/kanuni-ai/kanuni/internal/domain"
)

// BuiltinRule is one statutory compliance check. Check returns true
// when the document is compliant with the section; false produces a
// violation finding.
type BuiltinRule struct {
	Section        string
	Title          string
	Keywords       []string
	Severity       domain.Severity
	Check          func(text string) bool
	Violation      string
	Recommendation string
}

var (
	procPlanRe   = regexp.MustCompile(`(?i)procurement\s+plan`)
	budgetRe     = regexp.MustCompile(`(?i)budget`)
	splitRe      = regexp.MustCompile(`(?i)split|divid(e|ing)\s+(contract|procurement)`)
	officerRe    = regexp.MustCompile(`(?i)(state|public)\s+officer`)
	disclosureRe = regexp.MustCompile(`(?i)disclos(e|ure)`)

	tenderSecurityRe    = regexp.MustCompile(`(?i)tender\s+security|bid\s+bond`)
	securityPercentRe   = regexp.MustCompile(`(?i)(?:tender\s+security|bid\s+bond)[\s\S]{0,100}(\d+(?:\.\d+)?)\s*%`)
	corruptRe           = regexp.MustCompile(`(?i)corrupt|bribe|kickback|collusion|collude|fraud(ulent)?|coerci`)
	standardClauseRe    = regexp.MustCompile(`(?i)(?:definition|prohibit|not\s+engage|policy\s+on|shall\s+not|article|clause)[\s\S]{0,50}(?:corrupt|brib|kickback|collu|fraud|coerci)`)
	corruptionEvidenceRe = regexp.MustCompile(`(?i)found\s+guilty|investigat(ed|ion)|convict(ed|ion)|irregularit(y|ies)|overpriced`)

	tenderOpeningRe = regexp.MustCompile(`(?i)tender\s+opening|opening\s+(of\s+)?(tender|bid)`)
	immediateRe     = regexp.MustCompile(`(?i)immediate(ly)?|forthwith`)
	publicRe        = regexp.MustCompile(`(?i)public|attend(ance)?`)
	evaluationRe    = regexp.MustCompile(`(?i)evaluat(ion|e)`)
	criteriaRe      = regexp.MustCompile(`(?i)criteria|criterion`)
	awardRe         = regexp.MustCompile(`(?i)award|successful`)
	awardCriteriaRe = regexp.MustCompile(`(?i)(lowest\s+(evaluated\s+)?price|highest\s+(technical\s+)?score|lowest\s+total\s+cost)`)

	restrictedRe    = regexp.MustCompile(`(?i)restricted\s+tender`)
	directRe        = regexp.MustCompile(`(?i)direct\s+procurement`)
	justificationRe = regexp.MustCompile(`(?i)justif(y|ication)|reason|emergency|urgent`)
	bidRiggingRe    = regexp.MustCompile(`(?i)bid\s+rig|cartel|price\s+fix|market\s+shar(e|ing)|anti-competitive`)

	contractRe   = regexp.MustCompile(`(?i)contract`)
	writtenRe    = regexp.MustCompile(`(?i)written|sign(ed)?|document`)
	preferenceRe = regexp.MustCompile(`(?i)preference|reserv(e|ation)`)
	groupsRe     = regexp.MustCompile(`(?i)(women|youth|disabilit)`)
	percent30Re  = regexp.MustCompile(`(?i)30\s*%|thirty\s+percent`)
)

// builtinRules holds the statutory checks in evaluation order. Order
// matters: the evaluator stops at its violation cap, so earlier
// sections win when a document trips many checks.
var builtinRules = []BuiltinRule{
	{
		Section:  "Section 53",
		Title:    "Procurement and Asset Disposal Planning",
		Keywords: []string{"procurement plan", "annual plan", "budget", "planning"},
		Severity: domain.SeverityHigh,
		Check: func(text string) bool {
			return procPlanRe.MatchString(text) && budgetRe.MatchString(text)
		},
		Violation:      "Procurement planning documentation missing or incomplete",
		Recommendation: "Ensure annual procurement plan is prepared and approved before commencement of financial year as per Section 53(2)",
	},
	{
		Section:  "Section 54",
		Title:    "Procurement Pricing and Requirement Not to Split Contracts",
		Keywords: []string{"split", "contract splitting", "market price", "inflated"},
		Severity: domain.SeverityHigh,
		Check: func(text string) bool {
			return !splitRe.MatchString(text)
		},
		Violation:      "Evidence of contract splitting to avoid procurement procedures",
		Recommendation: "Consolidate related procurements to comply with Section 54(1) prohibition on contract splitting",
	},
	{
		Section:  "Section 59",
		Title:    "Limitation on Contracts with State and Public Officers",
		Keywords: []string{"state officer", "public officer", "conflict", "interest", "disclosure"},
		Severity: domain.SeverityCritical,
		Check: func(text string) bool {
			// An officer mention is fine as long as disclosure appears.
			return !officerRe.MatchString(text) || disclosureRe.MatchString(text)
		},
		Violation:      "Potential conflict of interest - state/public officer involvement without disclosure",
		Recommendation: "Ensure compliance with Section 59: No contracts with state officers unless disclosed and approved",
	},
	{
		Section:  "Section 61",
		Title:    "Tender Security",
		Keywords: []string{"tender security", "bid bond", "guarantee", "2%", "two percent"},
		Severity: domain.SeverityHigh,
		Check: func(text string) bool {
			if !tenderSecurityRe.MatchString(text) {
				return true
			}
			// Only judge percentages stated near the security clause;
			// unrelated percentages elsewhere in the document are noise.
			m := securityPercentRe.FindStringSubmatch(text)
			if m == nil {
				return true
			}
			percent, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return true
			}
			return percent <= 2
		},
		Violation:      "Tender security exceeds 2% of tender value",
		Recommendation: "Reduce tender security to maximum 2% as per Section 61(2)(c)",
	},
	{
		Section:  "Section 66",
		Title:    "Corrupt, Coercive, Obstructive, Collusive or Fraudulent Practice",
		Keywords: []string{"corrupt", "bribe", "kickback", "collusion", "fraud", "coercion"},
		Severity: domain.SeverityCritical,
		Check: func(text string) bool {
			if !corruptRe.MatchString(text) {
				return true
			}
			// Many documents carry a boilerplate "corrupt and fraudulent
			// practices" clause. Definitional language alone is not a
			// violation; it is one when evidentiary language accompanies it.
			if standardClauseRe.MatchString(text) {
				return !corruptionEvidenceRe.MatchString(text)
			}
			return false
		},
		Violation:      "Evidence of corrupt, collusive, or fraudulent practices",
		Recommendation: "Report to relevant authorities immediately. Section 66 prohibits all corrupt practices",
	},
	{
		Section:  "Section 78",
		Title:    "Opening of Tenders",
		Keywords: []string{"tender opening", "opening committee", "immediately", "deadline", "public"},
		Severity: domain.SeverityHigh,
		Check: func(text string) bool {
			if !tenderOpeningRe.MatchString(text) {
				return true
			}
			return immediateRe.MatchString(text) || publicRe.MatchString(text)
		},
		Violation:      "Tender opening procedures do not comply with transparency requirements",
		Recommendation: "Ensure tenders are opened immediately after deadline with public attendance allowed (Section 78)",
	},
	{
		Section:  "Section 80",
		Title:    "Evaluation of Tenders",
		Keywords: []string{"evaluation", "criteria", "objective", "quantifiable", "price", "quality"},
		Severity: domain.SeverityHigh,
		Check: func(text string) bool {
			if !evaluationRe.MatchString(text) {
				return true
			}
			return criteriaRe.MatchString(text)
		},
		Violation:      "Evaluation criteria not clearly defined or disclosed",
		Recommendation: "Define objective and quantifiable evaluation criteria as per Section 80(3)",
	},
	{
		Section:  "Section 86",
		Title:    "Successful Tender",
		Keywords: []string{"lowest price", "highest score", "total cost", "award"},
		Severity: domain.SeverityHigh,
		Check: func(text string) bool {
			if !awardRe.MatchString(text) {
				return true
			}
			return awardCriteriaRe.MatchString(text)
		},
		Violation:      "Award criteria does not comply with Section 86 requirements",
		Recommendation: "Award must be based on: lowest evaluated price, highest score, or lowest total cost of ownership",
	},
	{
		Section:  "Section 91",
		Title:    "Choice of Procurement Procedure",
		Keywords: []string{"open tender", "competitive", "restricted", "direct procurement"},
		Severity: domain.SeverityHigh,
		Check: func(text string) bool {
			if !restrictedRe.MatchString(text) && !directRe.MatchString(text) {
				return true
			}
			return justificationRe.MatchString(text)
		},
		Violation:      "Alternative procurement method used without proper justification",
		Recommendation: "Open tendering is preferred. Justify use of alternative methods as per Section 91",
	},
	{
		Section:  "Section 93",
		Title:    "Bid Rigging and Anti-Competitive Practices",
		Keywords: []string{"bid rigging", "cartel", "price fixing", "market sharing", "anti-competitive"},
		Severity: domain.SeverityCritical,
		Check: func(text string) bool {
			return !bidRiggingRe.MatchString(text)
		},
		Violation:      "Evidence of bid rigging or anti-competitive practices",
		Recommendation: "Section 93 prohibits bid rigging. Report to Competition Authority of Kenya immediately",
	},
	{
		Section:  "Section 135",
		Title:    "Creation of Procurement Contracts",
		Keywords: []string{"written contract", "signed", "contract document"},
		Severity: domain.SeverityHigh,
		Check: func(text string) bool {
			if !contractRe.MatchString(text) {
				return true
			}
			return writtenRe.MatchString(text)
		},
		Violation:      "Contract not properly documented in writing",
		Recommendation: "All procurement contracts must be in writing and signed (Section 135)",
	},
	{
		Section:  "Section 142",
		Title:    "Performance Security",
		Keywords: []string{"performance security", "performance bond", "guarantee"},
		Severity: domain.SeverityMedium,
		Check: func(string) bool {
			// Presence check only; no reliable violation signal in text.
			return true
		},
		Violation:      "Performance security requirements not clearly specified",
		Recommendation: "Specify performance security requirements as per Section 142",
	},
	{
		Section:  "Section 155",
		Title:    "Preferences and Reservations",
		Keywords: []string{"preference", "reservation", "women", "youth", "disability", "30%", "thirty percent"},
		Severity: domain.SeverityMedium,
		Check: func(text string) bool {
			if !preferenceRe.MatchString(text) {
				return true
			}
			return groupsRe.MatchString(text) || percent30Re.MatchString(text)
		},
		Violation:      "Preference and reservation schemes not properly implemented",
		Recommendation: "Reserve minimum 30% for women, youth, and persons with disabilities (Section 155)",
	},
}

// Registry returns the builtin statutory rules in evaluation order.
func Registry() []BuiltinRule {
	return builtinRules
}
