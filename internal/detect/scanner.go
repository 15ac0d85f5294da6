// Package detect implements the pattern/lexicon scanner: a fixed, ordered
// list of independent detectors that locate candidate risk fragments in a
// post and label each with its risk category.
package detect

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/overshare-io/overshare/internal/annotate"
	"github.com/overshare-io/overshare/internal/ner"
	overshareotel "github.com/overshare-io/overshare/internal/otel"
	"github.com/overshare-io/overshare/internal/taxonomy"
)

var tracer = overshareotel.Tracer("github.com/overshare-io/overshare/internal/detect")

// institutionalKeywords gate ORG entities into the workplace category; a
// bare company or band name is not a workplace disclosure by itself.
var institutionalKeywords = []string{
	"university", "clinic", "hospital", "school", "corp", "inc", "labs",
}

// Scanner locates candidate risk spans using the compiled rule set and an
// optional entity recognizer. Purely functional over the input text; safe
// for concurrent use.
type Scanner struct {
	rules      []Rule
	recognizer ner.Recognizer
}

// ScannerOption configures a Scanner via the functional options pattern.
type ScannerOption func(*scannerConfig)

type scannerConfig struct {
	ruleFile           string
	customRules        []RuleConfig
	enabledCategories  []taxonomy.Category
	disabledCategories []taxonomy.Category
	recognizer         ner.Recognizer
}

// WithRuleFile loads additional detector rules from a rules YAML file.
// If the file does not exist, it is silently skipped.
func WithRuleFile(path string) ScannerOption {
	return func(c *scannerConfig) { c.ruleFile = path }
}

// WithCustomRules appends (or overrides by name) detector rule definitions.
func WithCustomRules(rules []RuleConfig) ScannerOption {
	return func(c *scannerConfig) { c.customRules = rules }
}

// WithEnabledCategories sets a category whitelist. When non-empty, only
// rules for the listed categories are active.
func WithEnabledCategories(categories []taxonomy.Category) ScannerOption {
	return func(c *scannerConfig) { c.enabledCategories = categories }
}

// WithDisabledCategories sets a category blacklist.
func WithDisabledCategories(categories []taxonomy.Category) ScannerOption {
	return func(c *scannerConfig) { c.disabledCategories = categories }
}

// WithRecognizer enables the named-entity rule backed by the given
// collaborator. Recognizer errors degrade to "no entities".
func WithRecognizer(r ner.Recognizer) ScannerOption {
	return func(c *scannerConfig) { c.recognizer = r }
}

// NewScanner creates a scanner. Without options it uses the embedded default
// rules; options layer file overrides and custom rules on top.
func NewScanner(opts ...ScannerOption) (*Scanner, error) {
	var cfg scannerConfig
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultRules()
	if err != nil {
		return nil, fmt.Errorf("loading default rules: %w", err)
	}

	var fileRules []RuleConfig
	if cfg.ruleFile != "" {
		rf, err := LoadRuleFile(cfg.ruleFile)
		if err != nil {
			return nil, fmt.Errorf("loading rule file: %w", err)
		}
		if rf != nil {
			fileRules = rf.Rules
		}
	}

	merged := MergeRules(defaults, fileRules, cfg.customRules)
	merged = FilterByCategories(merged, cfg.enabledCategories, cfg.disabledCategories)

	compiled, err := CompileRules(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling rules: %w", err)
	}

	return &Scanner{rules: compiled, recognizer: cfg.recognizer}, nil
}

// MustNewScanner is like NewScanner but panics on error. Useful for
// zero-config startup where the embedded defaults are expected to compile.
func MustNewScanner(opts ...ScannerOption) *Scanner {
	s, err := NewScanner(opts...)
	if err != nil {
		panic(fmt.Sprintf("detect.NewScanner: %v", err))
	}
	return s
}

// Scan runs every rule over text and returns the unfiltered union of their
// candidate spans. Rules apply in registry order and the output within one
// rule follows match order, so results are reproducible. Malformed input
// never errors; unmatched categories simply contribute no spans.
func (s *Scanner) Scan(ctx context.Context, text string) []annotate.Span {
	ctx, span := tracer.Start(ctx, "detect.scan")
	defer span.End()

	folded := foldASCII(text)

	var out []annotate.Span
	for i := range s.rules {
		out = s.rules[i].apply(out, text, folded)
	}
	out = append(out, s.entitySpans(ctx, text)...)

	span.SetAttributes(
		attribute.Int("detect.candidate_count", len(out)),
		attribute.Int("detect.rule_count", len(s.rules)),
	)
	return out
}

// entitySpans maps recognizer entities onto categories: location/facility
// and date/time tags become Location&Time; ORG becomes Workplace/Academic
// only when the surface text names an institution. Spans re-derive their
// text from the reported offsets and drop entities with invalid bounds.
func (s *Scanner) entitySpans(ctx context.Context, text string) []annotate.Span {
	if s.recognizer == nil {
		return nil
	}

	entities, err := s.recognizer.Entities(ctx, text)
	if err != nil {
		log.Warn().Err(err).Func(overshareotel.LogTraceFields(ctx)).Msg("entity_recognizer_unavailable")
		return nil
	}

	var out []annotate.Span
	for _, e := range entities {
		if e.Start < 0 || e.End <= e.Start || e.End > len(text) {
			continue
		}
		surface := text[e.Start:e.End]

		var cat taxonomy.Category
		switch e.Tag {
		case ner.TagGPE, ner.TagLOC, ner.TagFAC, ner.TagDATE, ner.TagTIME:
			cat = taxonomy.LocationTime
		case ner.TagORG:
			if !containsAny(foldASCII(surface), institutionalKeywords) {
				continue
			}
			cat = taxonomy.Workplace
		default:
			continue
		}

		out = append(out, annotate.Span{Start: e.Start, End: e.End, Category: cat, Text: surface})
	}
	return out
}
