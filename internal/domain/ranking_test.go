package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(likes ...int) []Candidate {
	out := make([]Candidate, len(likes))
	for i, l := range likes {
		out[i] = Candidate{ID: int64(i + 1), Category: "Enfant", SocialLikeCount: l}
	}
	return out
}

func TestComputeRanking_EnfantScenario(t *testing.T) {
	// Three candidates, jury {80,70,50}, public {60,90,40}, social
	// {20,10,90}, weights 40/40/20: candidate 2 must win on its public
	// lead, candidate 3 must come last despite the social spike.
	in := RankingInput{
		Candidates: candidates(20, 10, 90),
		JuryTotals: map[int64]float64{1: 80, 2: 70, 3: 50},
		VoteCounts: map[int64]int{1: 60, 2: 90, 3: 40},
		Weights:    ScoringWeights{JuryWeightPercent: 40, PublicWeightPercent: 40, SocialWeightPercent: 20},
	}

	ranking := ComputeRanking(in)
	require.Len(t, ranking, 3)

	assert.Equal(t, int64(2), ranking[0].CandidateID)
	assert.Equal(t, int64(1), ranking[1].CandidateID)
	assert.Equal(t, int64(3), ranking[2].CandidateID)

	for i, e := range ranking {
		assert.Equal(t, i+1, e.Rank)
	}

	// Normalization is against the category maximum.
	assert.InDelta(t, 100.0, ranking[1].JuryNormalized, 1e-9)    // candidate 1 has top jury signal
	assert.InDelta(t, 100.0, ranking[0].PublicNormalized, 1e-9)  // candidate 2 has top public signal
	assert.InDelta(t, 100.0, ranking[2].SocialNormalized, 1e-9)  // candidate 3 has top social signal
}

func TestComputeRanking_TieBrokenByRawPublicVotes(t *testing.T) {
	// Symmetric signals produce an exact total tie between candidates 1
	// and 2; candidate 2 holds more raw public votes and must rank first.
	in := RankingInput{
		Candidates: candidates(90, 60, 10),
		JuryTotals: map[int64]float64{1: 90, 2: 90, 3: 30},
		VoteCounts: map[int64]int{1: 60, 2: 90, 3: 10},
		Weights:    ScoringWeights{JuryWeightPercent: 40, PublicWeightPercent: 40, SocialWeightPercent: 20},
	}

	ranking := ComputeRanking(in)
	require.Len(t, ranking, 3)

	assert.InDelta(t, ranking[0].TotalScore, ranking[1].TotalScore, 1e-9, "totals must tie")
	assert.Equal(t, int64(2), ranking[0].CandidateID, "raw public votes break the tie")
	assert.Equal(t, int64(1), ranking[1].CandidateID)
}

func TestComputeRanking_FullTieBrokenByCandidateID(t *testing.T) {
	in := RankingInput{
		Candidates: candidates(5, 5),
		JuryTotals: map[int64]float64{1: 10, 2: 10},
		VoteCounts: map[int64]int{1: 7, 2: 7},
		Weights:    ScoringWeights{JuryWeightPercent: 50, PublicWeightPercent: 30, SocialWeightPercent: 20},
	}

	ranking := ComputeRanking(in)
	require.Len(t, ranking, 2)
	assert.Equal(t, int64(1), ranking[0].CandidateID, "identity is the last deterministic tiebreak")
}

func TestComputeRanking_WeightRenormalizationEquivalence(t *testing.T) {
	// 40/40/20 and 4/4/2 must produce identical rankings and totals.
	base := RankingInput{
		Candidates: candidates(20, 10, 90),
		JuryTotals: map[int64]float64{1: 80, 2: 70, 3: 50},
		VoteCounts: map[int64]int{1: 60, 2: 90, 3: 40},
		Weights:    ScoringWeights{JuryWeightPercent: 40, PublicWeightPercent: 40, SocialWeightPercent: 20},
	}
	scaled := base
	scaled.Weights = ScoringWeights{JuryWeightPercent: 4, PublicWeightPercent: 4, SocialWeightPercent: 2}

	a := ComputeRanking(base)
	b := ComputeRanking(scaled)
	require.Equal(t, len(a), len(b))

	for i := range a {
		assert.Equal(t, a[i].CandidateID, b[i].CandidateID)
		assert.InDelta(t, a[i].TotalScore, b[i].TotalScore, 1e-9)
	}
}

func TestComputeRanking_SignalWithoutObservationsIsZero(t *testing.T) {
	in := RankingInput{
		Candidates: candidates(0, 0),
		JuryTotals: map[int64]float64{},
		VoteCounts: map[int64]int{1: 12, 2: 30},
		Weights:    ScoringWeights{JuryWeightPercent: 50, PublicWeightPercent: 50, SocialWeightPercent: 0},
	}

	ranking := ComputeRanking(in)
	require.Len(t, ranking, 2)
	for _, e := range ranking {
		assert.Zero(t, e.JuryNormalized, "no jury observations yields 0 for all candidates")
		assert.Zero(t, e.SocialNormalized)
	}
	assert.Equal(t, int64(2), ranking[0].CandidateID)
}

func TestComputeRanking_Empty(t *testing.T) {
	assert.Empty(t, ComputeRanking(RankingInput{}))
}

func TestComputeRanking_IsPure(t *testing.T) {
	in := RankingInput{
		Candidates: candidates(1, 2),
		JuryTotals: map[int64]float64{1: 3, 2: 4},
		VoteCounts: map[int64]int{1: 5, 2: 6},
		Weights:    ScoringWeights{JuryWeightPercent: 60, PublicWeightPercent: 30, SocialWeightPercent: 10},
	}

	first := ComputeRanking(in)
	second := ComputeRanking(in)
	assert.Equal(t, first, second, "recomputation must be deterministic")
	assert.Equal(t, map[int64]float64{1: 3, 2: 4}, in.JuryTotals, "inputs must not be mutated")
}
