package annotate

import "sort"

// Reconcile collapses an unordered bag of candidate spans into a minimal
// non-overlapping set. Candidates with invalid bounds are silently dropped.
// Remaining spans are sorted by start offset ascending, longest first at the
// same start, then accepted greedily: a span is kept only when it begins at
// or after the end of the most recently kept span.
//
// The result is sorted, mutually non-overlapping, and stable: at equal start
// the widest candidate wins, and reconciling an already reconciled sequence
// returns it unchanged.
func Reconcile(spans []Span, sourceLen int) []Span {
	candidates := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.validWithin(sourceLen) {
			candidates = append(candidates, s)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Start != candidates[j].Start {
			return candidates[i].Start < candidates[j].Start
		}
		return candidates[i].Len() > candidates[j].Len()
	})

	out := make([]Span, 0, len(candidates))
	lastEnd := 0
	for _, s := range candidates {
		if len(out) == 0 || s.Start >= lastEnd {
			out = append(out, s)
			lastEnd = s.End
		}
	}
	return out
}
