package domain

// ScoringWeights configures how jury, public and social signals combine.
// Raw percents may sum to anything; Normalized always yields fractions
// summing to 1.0, so 40/40/20 and 4/4/2 rank identically.
type ScoringWeights struct {
	JuryWeightPercent   int `json:"jury_weight_percent"`
	PublicWeightPercent int `json:"public_weight_percent"`
	SocialWeightPercent int `json:"social_weight_percent"`
}

// Normalized returns the effective jury/public/social fractions. Negative
// components are clamped to zero; an all-zero triple falls back to equal
// thirds so a misconfigured session still produces a total order.
func (w ScoringWeights) Normalized() (jury, public, social float64) {
	j := float64(max(w.JuryWeightPercent, 0))
	p := float64(max(w.PublicWeightPercent, 0))
	s := float64(max(w.SocialWeightPercent, 0))

	sum := j + p + s
	if sum == 0 {
		return 1.0 / 3, 1.0 / 3, 1.0 / 3
	}
	return j / sum, p / sum, s / sum
}
