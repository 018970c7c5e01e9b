package forensic

import (
	"fmt"

	"github.com/kanuni-ai/kanuni/internal/domain"
)

// Per-class finding cap. Each analyzer class contributes at most this
// many findings so one noisy signal cannot crowd out the others.
const maxPerClass = 2

// Findings runs all analyzers over text in fixed order (pricing,
// vendors, keywords, timeline) and translates the reports into
// findings. The order is part of the contract: it determines top
// concern selection and suggestion truncation downstream.
func (c Config) Findings(text string) []domain.Finding {
	var out []domain.Finding
	out = append(out, cap2(c.pricingFindings(text))...)
	out = append(out, cap2(c.vendorFindings(text))...)
	out = append(out, cap2(c.keywordFindings(text))...)
	out = append(out, cap2(c.timelineFindings(text))...)
	return out
}

func cap2(findings []domain.Finding) []domain.Finding {
	if len(findings) > maxPerClass {
		return findings[:maxPerClass]
	}
	return findings
}

func (c Config) pricingFindings(text string) []domain.Finding {
	report := c.AnalyzeAmounts(text)

	var out []domain.Finding
	if report.RoundRatio > c.SuspiciousRatio && report.RoundAmounts > 0 {
		out = append(out, domain.Finding{
			Severity: domain.SeverityHigh,
			Text: fmt.Sprintf("Excessive use of round numbers in pricing may indicate price manipulation (%d of %d amounts, e.g. %.0f)",
				report.RoundAmounts, report.TotalAmounts, report.FlaggedAmounts[0]),
			Label:          "PRICING ANOMALY",
			Confidence:     "85%",
			Source:         domain.SourceStatistical,
			Section:        "Section 54",
			Recommendation: "Review pricing structure for market competitiveness and authenticity",
		})
	}
	if len(report.Outliers) > 0 {
		out = append(out, domain.Finding{
			Severity: domain.SeverityMedium,
			Text: fmt.Sprintf("Price outliers detected: %d amount(s) significantly deviate from average",
				len(report.Outliers)),
			Label:          "PRICE VARIANCE",
			Confidence:     "78%",
			Source:         domain.SourceStatistical,
			Section:        "Section 54",
			Recommendation: "Investigate price outliers for potential inflation or errors",
		})
	}
	return out
}

func (c Config) vendorFindings(text string) []domain.Finding {
	report := c.AnalyzeVendors(text)

	var out []domain.Finding
	if report.ConcentrationRisk {
		out = append(out, domain.Finding{
			Severity: domain.SeverityHigh,
			Text: fmt.Sprintf("Vendor %s accounts for %.0f%% of all vendor mentions (%d of %d)",
				report.TopVendors[0].Name, report.ConcentrationRatio*100,
				report.TopVendors[0].Count, report.TotalMentions),
			Label:          "VENDOR CONCENTRATION",
			Confidence:     "90%",
			Source:         domain.SourceStatistical,
			Section:        "Section 91",
			Recommendation: "Diversify the supplier base or justify the reliance on a single vendor",
		})
	}
	if report.ContractSlicing {
		out = append(out, domain.Finding{
			Severity: domain.SeverityCritical,
			Text: fmt.Sprintf("Possible contract slicing: %d separate engagements concentrated on vendor %s",
				report.TotalMentions, report.TopVendors[0].Name),
			Label:          "CONTRACT SLICING",
			Confidence:     "92%",
			Source:         domain.SourceStatistical,
			Section:        "Section 54",
			Recommendation: "Consolidate related procurements; splitting to evade approval thresholds is prohibited",
		})
	}
	if report.SingleSource {
		out = append(out, domain.Finding{
			Severity:       domain.SeverityHigh,
			Text:           "Single source procurement detected without competitive bidding",
			Label:          "SINGLE SOURCE",
			Confidence:     "90%",
			Source:         domain.SourceStatistical,
			Section:        "Section 91",
			Recommendation: "Justify single source procurement or conduct open competitive bidding",
		})
	}
	return out
}

func (c Config) keywordFindings(text string) []domain.Finding {
	hits := c.ScanKeywords(text)

	out := make([]domain.Finding, 0, len(hits))
	for _, hit := range hits {
		confidence := "80%"
		if hit.Severity == domain.SeverityCritical {
			confidence = "88%"
		}
		out = append(out, domain.Finding{
			Severity:       hit.Severity,
			Text:           fmt.Sprintf("High-risk term %q found in context: …%s…", hit.Term, hit.Context),
			Label:          "RED-FLAG LANGUAGE",
			Confidence:     confidence,
			Source:         domain.SourceStatistical,
			Recommendation: "Escalate the flagged passage for forensic review",
		})
	}
	return out
}

func (c Config) timelineFindings(text string) []domain.Finding {
	issues := c.AnalyzeTimeline(text)

	out := make([]domain.Finding, 0, len(issues))
	for _, issue := range issues {
		out = append(out, domain.Finding{
			Severity: domain.SeverityMedium,
			Text: fmt.Sprintf("Tender period of %d days may be insufficient for competitive bidding",
				issue.Days),
			Label:      "TIMELINE CONCERN",
			Confidence: "75%",
			Source:     domain.SourceStatistical,
			Section:    "Section 97",
			Recommendation: fmt.Sprintf("Ensure adequate time for tender preparation (minimum %d days for domestic, %d days for international)",
				c.DomesticNoticeDays, c.InternationalNoticeDays),
		})
	}
	return out
}
