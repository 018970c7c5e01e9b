package forensic

import (
	"github.com/kanuni-ai/kanuni/internal/extract"
)

// AmountReport summarizes the price-anomaly analysis of one document.
// It carries evidence samples so findings can cite more than a verdict.
type AmountReport struct {
	TotalAmounts int     `json:"totalAmounts"`
	RoundAmounts int     `json:"roundAmounts"`
	RoundRatio   float64 `json:"suspiciousRatio"`
	IsSuspicious bool    `json:"isSuspicious"`

	// FlaggedAmounts holds example round amounts, capped.
	FlaggedAmounts []float64 `json:"flaggedAmounts"`

	// Outliers holds amounts whose |z-score| exceeded the threshold.
	Outliers []float64 `json:"outliers"`
}

// AnalyzeAmounts extracts monetary amounts from text and checks for
// two manipulation signals: an excessive share of suspiciously round
// amounts, and statistical outliers. The ratio is 0 when no amounts
// are found.
func (c Config) AnalyzeAmounts(text string) AmountReport {
	values := extract.Amounts(text)

	var report AmountReport
	report.TotalAmounts = len(values)

	round := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= c.RoundMin && isDivisible(v, c.RoundDivisor) {
			round = append(round, v)
		}
	}
	report.RoundAmounts = len(round)
	if len(values) > 0 {
		report.RoundRatio = float64(len(round)) / float64(len(values))
	}
	if len(round) > c.MaxFlaggedExamples {
		round = round[:c.MaxFlaggedExamples]
	}
	report.FlaggedAmounts = round

	for _, sv := range ZScores(values, c.OutlierZ) {
		if sv.IsOutlier {
			report.Outliers = append(report.Outliers, sv.Value)
		}
	}

	report.IsSuspicious = report.RoundRatio > c.SuspiciousRatio || len(report.Outliers) > 0
	return report
}

func isDivisible(v, by float64) bool {
	if by == 0 {
		return false
	}
	q := v / by
	return q == float64(int64(q))
}
