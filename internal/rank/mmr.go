package rank

import (
	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

// SelectMMR greedily selects up to k candidates from a scored, embedded pool
// using Maximal Marginal Relevance:
//
//	mmr = lambda*relevance - (1-lambda)*maxSimilarityToSelected
//
// Lambda 1 degenerates to pure relevance ranking, lambda 0 to diversity-first
// ranking. Ties break toward the earliest candidate index, so selection is
// deterministic for a fixed pool. Pools smaller than k are returned whole.
// Complexity is O(k * len(pool)).
func SelectMMR(pool []types.Candidate, k int, lambda float64) []types.Candidate {
	if k <= 0 || len(pool) == 0 {
		return nil
	}
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	if k > len(pool) {
		k = len(pool)
	}

	selected := make([]types.Candidate, 0, k)
	// maxSim[i] tracks the highest similarity of pool[i] to any selected
	// candidate, updated incrementally after each pick.
	maxSim := make([]float64, len(pool))
	used := make([]bool, len(pool))

	for len(selected) < k {
		bestIdx := -1
		bestScore := 0.0
		for i := range pool {
			if used[i] {
				continue
			}
			score := lambda*pool[i].Score - (1-lambda)*maxSim[i]
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		if bestIdx == -1 {
			break
		}

		used[bestIdx] = true
		selected = append(selected, pool[bestIdx])

		for i := range pool {
			if used[i] {
				continue
			}
			sim := CosineSimilarity(pool[i].Record.Embedding, pool[bestIdx].Record.Embedding)
			if sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}

	return selected
}
