package detect

import (
	"regexp"
	"strings"

	"github.com/overshare-io/overshare/internal/annotate"
	"github.com/overshare-io/overshare/internal/taxonomy"
)

// Rule is a compiled detector. Each rule is independent and order-insensitive
// with respect to the others; the scanner simply unions their outputs.
type Rule struct {
	name     string
	category taxonomy.Category
	kind     string

	re       *regexp.Regexp
	keywords []string // pre-folded
	triggers []string // pre-folded

	window    int
	minDigits int
	maxDigits int
	minPrefix int
}

// apply runs the rule over text and appends its spans to dst. folded is
// foldASCII(text), computed once per scan.
func (r *Rule) apply(dst []annotate.Span, text, folded string) []annotate.Span {
	switch r.kind {
	case KindRegex:
		for _, m := range r.re.FindAllStringIndex(text, -1) {
			dst = append(dst, r.span(text, m[0], m[1]))
		}
	case KindKeyword:
		for _, kw := range r.keywords {
			for _, m := range findAll(folded, kw) {
				if m[0] < r.minPrefix {
					continue
				}
				dst = append(dst, r.span(text, m[0], m[1]))
			}
		}
	case KindProximityGated:
		for _, m := range r.re.FindAllStringIndex(text, -1) {
			if !r.windowHasTrigger(folded, m[0], m[1]) {
				continue
			}
			if !r.digitCountOK(text[m[0]:m[1]]) {
				continue
			}
			dst = append(dst, r.span(text, m[0], m[1]))
		}
	case KindDocumentGated:
		if !containsAny(folded, r.triggers) {
			return dst
		}
		for _, m := range r.re.FindAllStringIndex(text, -1) {
			dst = append(dst, r.span(text, m[0], m[1]))
		}
	}
	return dst
}

func (r *Rule) span(text string, start, end int) annotate.Span {
	return annotate.Span{
		Start:    start,
		End:      end,
		Category: r.category,
		Text:     text[start:end],
	}
}

// windowHasTrigger checks for a trigger keyword within ±window bytes of the
// match.
func (r *Rule) windowHasTrigger(folded string, start, end int) bool {
	lo := start - r.window
	if lo < 0 {
		lo = 0
	}
	hi := end + r.window
	if hi > len(folded) {
		hi = len(folded)
	}
	return containsAny(folded[lo:hi], r.triggers)
}

// digitCountOK counts digits in the matched text and checks the configured
// bounds. A rule without bounds accepts any count.
func (r *Rule) digitCountOK(match string) bool {
	if r.minDigits == 0 && r.maxDigits == 0 {
		return true
	}
	n := 0
	for i := 0; i < len(match); i++ {
		if match[i] >= '0' && match[i] <= '9' {
			n++
		}
	}
	if r.minDigits > 0 && n < r.minDigits {
		return false
	}
	if r.maxDigits > 0 && n > r.maxDigits {
		return false
	}
	return true
}

// findAll returns [start,end) pairs for every non-overlapping occurrence of
// needle in haystack, scanning left to right and advancing past each match.
func findAll(haystack, needle string) [][2]int {
	var out [][2]int
	if needle == "" {
		return out
	}
	from := 0
	for {
		i := strings.Index(haystack[from:], needle)
		if i == -1 {
			return out
		}
		start := from + i
		end := start + len(needle)
		out = append(out, [2]int{start, end})
		from = end
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
