package annotate

import "strings"

// Relocate recovers exact offsets for fragments that arrive without any.
// Hints are processed in the order received, sharing a single forward
// cursor that starts at 0. For each non-empty fragment, four searches are
// tried in turn:
//
//  1. exact substring at or after the cursor
//  2. case-insensitive at or after the cursor
//  3. exact substring anywhere in the source
//  4. case-insensitive anywhere in the source
//
// A hint that cannot be grounded by any of the four is dropped; no offset is
// ever guessed. On success the span's Text is re-sliced from the source (the
// hint's literal may differ in case) and the cursor advances to the span
// end, so a short repeated fragment cannot re-match an earlier occurrence
// when later, in-order occurrences remain.
func Relocate(source string, hints []Hint) []Span {
	folded := foldASCII(source)
	cursor := 0

	out := make([]Span, 0, len(hints))
	for _, h := range hints {
		if h.Text == "" {
			continue
		}
		start := indexFrom(source, h.Text, cursor)
		if start == -1 {
			start = indexFrom(folded, foldASCII(h.Text), cursor)
		}
		if start == -1 {
			start = strings.Index(source, h.Text)
		}
		if start == -1 {
			start = strings.Index(folded, foldASCII(h.Text))
		}
		if start == -1 {
			continue
		}
		end := start + len(h.Text)
		out = append(out, Span{
			Start:    start,
			End:      end,
			Category: h.Category,
			Text:     source[start:end],
		})
		cursor = end
	}
	return out
}

// indexFrom is strings.Index restricted to positions at or after from.
// Returns -1 when from is past the end of s.
func indexFrom(s, substr string, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(s) {
		return -1
	}
	i := strings.Index(s[from:], substr)
	if i == -1 {
		return -1
	}
	return from + i
}
