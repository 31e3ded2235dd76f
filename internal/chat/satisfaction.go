package chat

import "unicode"

// SatisfactionChecker decides whether a rule-based parse already covers
// enough of the query text to make LLM generation unnecessary.
type SatisfactionChecker struct {
	LengthThreshold int
	ShortThreshold  float64
	LongThreshold   float64
}

// IsSkip is true when some rule-based candidate reaches the threshold that
// applies to the query length. Whitespace does not count towards the length.
func (c SatisfactionChecker) IsSkip(qctx *QueryContext) bool {
	length := nonBlankLength(qctx.QueryText)
	if length == 0 {
		return false
	}
	threshold := c.LongThreshold
	if length <= c.LengthThreshold {
		threshold = c.ShortThreshold
	}
	for _, candidate := range qctx.CandidateParses {
		if candidate.Source != ParseSourceRule {
			continue
		}
		if candidate.Score/float64(length) >= threshold {
			return true
		}
	}
	return false
}

func nonBlankLength(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
