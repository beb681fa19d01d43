package rag

// FilterResult reports the two gates the relevance filter applies.
// Sufficient answers "is there any indexed content for this session"
// (pre-threshold candidate count); Fallback marks that no candidate
// cleared the threshold and the single best one was taken instead.
type FilterResult struct {
	Accepted   []Candidate
	Sufficient bool
	Fallback   bool
}

// FilterCandidates accepts every candidate whose distance is at or below
// threshold. When none pass but candidates exist, it degrades to the best
// scoring candidate rather than answering with nothing: refusing outright
// would punish single-document sessions whose only chunk is a weak match.
func FilterCandidates(candidates []Candidate, threshold float64, minDocs int) FilterResult {
	if minDocs < 1 {
		minDocs = 1
	}
	result := FilterResult{Sufficient: len(candidates) >= minDocs}
	if len(candidates) == 0 {
		return result
	}

	best := 0
	for i, c := range candidates {
		if c.Distance <= threshold {
			result.Accepted = append(result.Accepted, c)
		}
		if c.Distance < candidates[best].Distance {
			best = i
		}
	}

	if len(result.Accepted) == 0 {
		result.Accepted = []Candidate{candidates[best]}
		result.Fallback = true
	}
	return result
}
