package domain

import "sort"

// RankingEntry is one row of a computed category ranking.
type RankingEntry struct {
	CandidateID      int64   `json:"candidate_id"`
	StageName        string  `json:"stage_name"`
	JuryNormalized   float64 `json:"jury_normalized"`
	PublicNormalized float64 `json:"public_normalized"`
	SocialNormalized float64 `json:"social_normalized"`
	RawPublicVotes   int     `json:"raw_public_votes"`
	TotalScore       float64 `json:"total_score"`
	Rank             int     `json:"rank"`
}

// RankingInput carries the raw signals for one category.
type RankingInput struct {
	Candidates []Candidate
	// JuryTotals is the per-candidate average of jury total scores for the
	// active phase. Missing candidates count as zero.
	JuryTotals map[int64]float64
	// VoteCounts is the per-candidate counted public votes for the event.
	VoteCounts map[int64]int
	Weights    ScoringWeights
}

// ComputeRanking turns raw jury, public and social signals into a
// normalized, weighted, deterministically ordered ranking. Each signal is
// rescaled to 0-100 against the maximum observed within the category; a
// signal with no observations yields 0 for everyone. The function is pure
// and re-runnable at any time - rankings are derived, never stored.
func ComputeRanking(in RankingInput) []RankingEntry {
	if len(in.Candidates) == 0 {
		return []RankingEntry{}
	}

	var maxJury, maxVotes, maxLikes float64
	for _, c := range in.Candidates {
		if v := in.JuryTotals[c.ID]; v > maxJury {
			maxJury = v
		}
		if v := float64(in.VoteCounts[c.ID]); v > maxVotes {
			maxVotes = v
		}
		if v := float64(c.SocialLikeCount); v > maxLikes {
			maxLikes = v
		}
	}

	juryW, publicW, socialW := in.Weights.Normalized()

	entries := make([]RankingEntry, 0, len(in.Candidates))
	for _, c := range in.Candidates {
		e := RankingEntry{
			CandidateID:      c.ID,
			StageName:        c.StageName,
			JuryNormalized:   normalize(in.JuryTotals[c.ID], maxJury),
			PublicNormalized: normalize(float64(in.VoteCounts[c.ID]), maxVotes),
			SocialNormalized: normalize(float64(c.SocialLikeCount), maxLikes),
			RawPublicVotes:   in.VoteCounts[c.ID],
		}
		e.TotalScore = e.JuryNormalized*juryW + e.PublicNormalized*publicW + e.SocialNormalized*socialW
		entries = append(entries, e)
	}

	// Descending total, ties by raw public votes, then candidate id for
	// a deterministic order.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		if entries[i].RawPublicVotes != entries[j].RawPublicVotes {
			return entries[i].RawPublicVotes > entries[j].RawPublicVotes
		}
		return entries[i].CandidateID < entries[j].CandidateID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries
}

func normalize(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return value / max * 100
}
