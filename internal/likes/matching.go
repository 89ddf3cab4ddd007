// internal/likes/matching.go
// Candidate ranking by interest overlap.

package likes

import "sort"

// rankCandidates scores each candidate against the viewer's interests
// and sorts best first, ties broken by user ID.
func rankCandidates(viewerInterests []string, candidates []*Candidate) {
	for _, c := range candidates {
		c.MatchPercentage = interestScore(viewerInterests, c.Interests) * 100
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].MatchPercentage != candidates[j].MatchPercentage {
			return candidates[i].MatchPercentage > candidates[j].MatchPercentage
		}
		return candidates[i].UserID < candidates[j].UserID
	})
}

// interestScore is the Jaccard similarity of the two interest sets.
// Two empty sets score a neutral 0.5.
func interestScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}

	set := make(map[string]bool, len(a))
	for _, interest := range a {
		set[interest] = true
	}

	matches := 0
	seen := make(map[string]bool, len(b))
	for _, interest := range b {
		if seen[interest] {
			continue
		}
		seen[interest] = true
		if set[interest] {
			matches++
		}
	}

	union := len(set) + len(seen) - matches
	if union == 0 {
		return 0
	}

	return float64(matches) / float64(union)
}
