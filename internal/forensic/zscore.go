package forensic

import "math"

// ScoredValue pairs a value with its z-score.
type ScoredValue struct {
	Value     float64 `json:"value"`
	ZScore    float64 `json:"zScore"`
	IsOutlier bool    `json:"isOutlier"`
}

// ZScores computes population z-scores for a value sequence. With
// fewer than 2 values every z-score is 0 and nothing is flagged. A
// zero standard deviation also yields z = 0 for every value, so no
// division by zero can occur. Scores are rounded to 2 decimals for
// stable serialized output.
func ZScores(values []float64, threshold float64) []ScoredValue {
	out := make([]ScoredValue, len(values))
	if len(values) < 2 {
		for i, v := range values {
			out[i] = ScoredValue{Value: v}
		}
		return out
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(len(values)))

	for i, v := range values {
		var z float64
		if stdDev != 0 {
			z = (v - mean) / stdDev
		}
		z = math.Round(z*100) / 100
		out[i] = ScoredValue{
			Value:     v,
			ZScore:    z,
			IsOutlier: math.Abs(z) > threshold,
		}
	}
	return out
}
