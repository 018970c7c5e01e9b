// Package forensic provides the statistical document analyzers:
// price anomaly detection, vendor concentration, red-flag keyword
// scanning and timeline plausibility. All functions are pure; every
// threshold lives in Config so sensitivities can be tuned in tests.
package forensic

// Config carries the tunable thresholds for all analyzers.
type Config struct {
	// OutlierZ is the |z-score| above which an amount is an outlier.
	OutlierZ float64

	// RoundMin and RoundDivisor define a "suspiciously round" amount:
	// value >= RoundMin and exactly divisible by RoundDivisor.
	RoundMin     float64
	RoundDivisor float64

	// SuspiciousRatio is the round-amount ratio above which a document
	// is flagged.
	SuspiciousRatio float64

	// ConcentrationRisk is the top-vendor mention ratio above which
	// vendor concentration is flagged.
	ConcentrationRisk float64

	// SlicingMinMentions and SlicingRatio gate the contract-slicing
	// signal: many mentions dominated by one vendor.
	SlicingMinMentions int
	SlicingRatio       float64

	// MinNoticeDays flags tender periods shorter than this.
	// DomesticNoticeDays and InternationalNoticeDays feed the
	// remediation text.
	MinNoticeDays           int
	DomesticNoticeDays      int
	InternationalNoticeDays int

	// ContextRadius is the character window inspected around keyword
	// and timeline matches.
	ContextRadius int

	// MaxFlaggedExamples caps the evidence samples in reports.
	MaxFlaggedExamples int

	// TopVendors caps the per-vendor counts in reports.
	TopVendors int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		OutlierZ:                2.8,
		RoundMin:                1000,
		RoundDivisor:            1000,
		SuspiciousRatio:         0.25,
		ConcentrationRisk:       0.4,
		SlicingMinMentions:      5,
		SlicingRatio:            0.6,
		MinNoticeDays:           7,
		DomesticNoticeDays:      14,
		InternationalNoticeDays: 30,
		ContextRadius:           50,
		MaxFlaggedExamples:      5,
		TopVendors:              5,
	}
}
