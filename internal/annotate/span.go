// Package annotate holds the offset-bearing span model and the two
// operations that turn noisy candidate sets into a renderable annotation
// set: Reconcile (non-overlap resolution) and Relocate (offset recovery for
// fragments quoted without positions).
package annotate

import (
	"github.com/overshare-io/overshare/internal/taxonomy"
)

// Span is a labeled substring of the analyzed text, addressed by byte
// offsets into the source. Text always holds source[Start:End]; spans built
// from external fragments re-derive Text from the offsets rather than
// trusting the caller's literal.
type Span struct {
	Start    int               `json:"start"`
	End      int               `json:"end"`
	Category taxonomy.Category `json:"label"`
	Text     string            `json:"text"`
}

// Len returns the span width in bytes.
func (s Span) Len() int { return s.End - s.Start }

// validWithin reports whether the span's bounds address valid positions in a
// source of the given length.
func (s Span) validWithin(sourceLen int) bool {
	return s.Start >= 0 && s.End > s.Start && s.End <= sourceLen
}

// Hint is an offset-free (category, fragment) suggestion, exchanged with the
// external risk classifier in both directions.
type Hint struct {
	Category taxonomy.Category `json:"label"`
	Text     string            `json:"text"`
}

// foldASCII lowercases ASCII letters only. Unlike strings.ToLower it can
// never change the byte length of the input, so offsets computed against the
// folded text remain valid against the original.
func foldASCII(s string) string {
	b := []byte(s)
	changed := false
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
