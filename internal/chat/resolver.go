package chat

import "context"

// DataSetResolver picks the data set a turn should be compiled against.
type DataSetResolver interface {
	Resolve(ctx context.Context, qctx *QueryContext) (int64, bool)
}

// HeuristicResolver prefers the candidate with the most fresh matches, then
// the highest summed similarity, then the lowest id. Candidates are the
// turn's DataSetIDs, or every data set with matches when none are given.
type HeuristicResolver struct{}

func (HeuristicResolver) Resolve(_ context.Context, qctx *QueryContext) (int64, bool) {
	candidates := qctx.DataSetIDs
	if len(candidates) == 0 {
		candidates = qctx.MapInfo.DataSetIDs()
	}
	switch len(candidates) {
	case 0:
		return 0, false
	case 1:
		return candidates[0], true
	}

	var (
		best      int64
		bestFresh = -1
		bestSim   float64
	)
	for _, id := range candidates {
		fresh := 0
		similarity := 0.0
		for _, match := range qctx.MapInfo.MatchedElements(id) {
			if !match.Inherited {
				fresh++
			}
			similarity += match.Similarity
		}
		switch {
		case fresh > bestFresh,
			fresh == bestFresh && similarity > bestSim,
			fresh == bestFresh && similarity == bestSim && id < best:
			best, bestFresh, bestSim = id, fresh, similarity
		}
	}
	return best, true
}
