package forensic

import (
	"regexp"
	"sort"
)

// vendorRe matches "vendor: Acme Ltd", "Supplier XYZ Enterprises" and
// similar. The keyword is case-insensitive; the captured name must be
// capitalized so prose like "the supplier shall" is not collected.
var vendorRe = regexp.MustCompile(`(?i:vendor|supplier|contractor)[:\s]+([A-Z][A-Za-z0-9&]*(?:\s+[A-Z][A-Za-z0-9&.]*)*)`)

// singleSourceRe matches explicit sole-sourcing language.
var singleSourceRe = regexp.MustCompile(`(?i)single\s+source|sole\s+supplier|exclusive\s+supplier|only\s+vendor`)

// VendorMention is one distinct vendor name with its mention count.
type VendorMention struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// VendorReport summarizes vendor-concentration analysis.
type VendorReport struct {
	TotalMentions int `json:"totalMentions"`

	// TopVendors holds the most-mentioned vendors, count descending,
	// name ascending on ties, capped at Config.TopVendors.
	TopVendors []VendorMention `json:"topVendors"`

	// ConcentrationRatio is top vendor mentions / total mentions,
	// 0 when nothing matched.
	ConcentrationRatio float64 `json:"concentrationRatio"`
	ConcentrationRisk  bool    `json:"concentrationRisk"`

	// ContractSlicing fires on many mentions dominated by one vendor:
	// a pattern of one large award fragmented into small ones.
	ContractSlicing bool `json:"contractSlicing"`

	// SingleSource reports explicit sole-sourcing language.
	SingleSource bool `json:"singleSource"`
}

// AnalyzeVendors scans text for vendor/supplier/contractor mentions
// and measures how concentrated they are. Mentions are deliberately
// not deduplicated: multiplicity is the signal.
func (c Config) AnalyzeVendors(text string) VendorReport {
	var report VendorReport
	report.SingleSource = singleSourceRe.MatchString(text)

	counts := make(map[string]int)
	for _, m := range vendorRe.FindAllStringSubmatch(text, -1) {
		counts[m[1]]++
		report.TotalMentions++
	}
	if report.TotalMentions == 0 {
		return report
	}

	top := make([]VendorMention, 0, len(counts))
	for name, n := range counts {
		top = append(top, VendorMention{Name: name, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > c.TopVendors {
		top = top[:c.TopVendors]
	}
	report.TopVendors = top

	report.ConcentrationRatio = float64(top[0].Count) / float64(report.TotalMentions)
	report.ConcentrationRisk = report.ConcentrationRatio > c.ConcentrationRisk
	report.ContractSlicing = report.TotalMentions > c.SlicingMinMentions &&
		report.ConcentrationRatio > c.SlicingRatio
	return report
}
