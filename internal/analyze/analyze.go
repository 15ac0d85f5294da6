// Package analyze assembles detector and classifier output into a single
// analysis result. It owns the three analysis modes and every degradation
// path; an analysis never fails outright, it only loses signal.
package analyze

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/overshare-io/overshare/internal/annotate"
	"github.com/overshare-io/overshare/internal/classifier"
	"github.com/overshare-io/overshare/internal/detect"
	overshareotel "github.com/overshare-io/overshare/internal/otel"
	"github.com/overshare-io/overshare/internal/taxonomy"
)

var tracer = overshareotel.Tracer("github.com/overshare-io/overshare/internal/analyze")

// Mode selects which detectors contribute to an analysis.
type Mode string

const (
	// ModeRules uses the local pattern scanner only.
	ModeRules Mode = "rules"
	// ModeModel uses the external risk classifier only.
	ModeModel Mode = "model"
	// ModeHybrid unions scanner spans with classifier fragments, forwarding
	// scanner candidates as hints.
	ModeHybrid Mode = "hybrid"
)

// ParseMode validates a mode name. Empty defaults to ModeRules.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeRules, nil
	case ModeRules, ModeModel, ModeHybrid:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown analysis mode %q", s)
	}
}

// maxHints bounds how many candidate fragments travel to the classifier;
// beyond that the prompt stops getting sharper and only gets longer.
const maxHints = 6

// AnalysisResult is the assembled verdict for one post. Labels are the
// sorted distinct categories of Spans; every label has an explanation.
type AnalysisResult struct {
	Labels       []taxonomy.Category          `json:"labels"`
	Spans        []annotate.Span              `json:"spans"`
	Explanations map[taxonomy.Category]string `json:"explanations"`
}

// Analyzer runs posts through the configured detectors. The classifier is
// optional; model and hybrid modes degrade to their local half without one.
type Analyzer struct {
	scanner    *detect.Scanner
	classifier classifier.RiskClassifier
}

// New builds an Analyzer. rc may be nil when no classifier is configured.
func New(scanner *detect.Scanner, rc classifier.RiskClassifier) *Analyzer {
	return &Analyzer{scanner: scanner, classifier: rc}
}

// Analyze classifies text under the given mode. The returned result is never
// nil and its spans are reconciled: sorted, non-overlapping, grounded in text.
func (a *Analyzer) Analyze(ctx context.Context, text string, mode Mode) *AnalysisResult {
	ctx, span := tracer.Start(ctx, "analyze.analyze",
		trace.WithAttributes(
			attribute.String("analyze.mode", string(mode)),
			attribute.Int("analyze.text_bytes", len(text)),
		))
	defer span.End()

	var (
		spans    []annotate.Span
		supplied map[taxonomy.Category]string
	)

	switch mode {
	case ModeModel:
		out := a.classify(ctx, text, nil)
		spans = annotate.Relocate(text, out.Fragments)
		supplied = out.Explanations
	case ModeHybrid:
		local := annotate.Reconcile(a.scanner.Scan(ctx, text), len(text))
		out := a.classify(ctx, text, hintsFrom(local))
		spans = append(local, annotate.Relocate(text, out.Fragments)...)
		supplied = out.Explanations
	default:
		spans = a.scanner.Scan(ctx, text)
	}

	spans = annotate.Reconcile(spans, len(text))
	labels := labelsFrom(spans)

	explanations := make(map[taxonomy.Category]string, len(labels))
	for _, c := range labels {
		if msg, ok := supplied[c]; ok {
			explanations[c] = msg
		} else {
			explanations[c] = taxonomy.DefaultExplanation(c)
		}
	}

	span.SetAttributes(
		attribute.Int("analyze.span_count", len(spans)),
		attribute.Int("analyze.label_count", len(labels)),
	)
	return &AnalysisResult{Labels: labels, Spans: spans, Explanations: explanations}
}

// classify calls the external classifier and absorbs every failure mode into
// an empty outcome. Analyses keep working when the model is down.
func (a *Analyzer) classify(ctx context.Context, text string, hints []annotate.Hint) *classifier.Outcome {
	if a.classifier == nil {
		log.Debug().Msg("no risk classifier configured, model contribution skipped")
		return &classifier.Outcome{}
	}
	out, err := a.classifier.Classify(ctx, text, hints)
	if err != nil {
		log.Warn().Err(err).Func(overshareotel.LogTraceFields(ctx)).Msg("risk_classifier_failed")
		return &classifier.Outcome{}
	}
	return out
}

// hintsFrom shapes reconciled spans into classifier hints: dedup by
// (category, text), keep source order, cap at maxHints.
func hintsFrom(spans []annotate.Span) []annotate.Hint {
	seen := make(map[annotate.Hint]struct{}, len(spans))
	var hints []annotate.Hint
	for _, sp := range spans {
		h := annotate.Hint{Category: sp.Category, Text: sp.Text}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		hints = append(hints, h)
		if len(hints) == maxHints {
			break
		}
	}
	return hints
}

// labelsFrom returns the distinct categories present in spans, in canonical
// taxonomy order.
func labelsFrom(spans []annotate.Span) []taxonomy.Category {
	present := make(map[taxonomy.Category]bool, len(spans))
	for _, sp := range spans {
		present[sp.Category] = true
	}
	labels := make([]taxonomy.Category, 0, len(present))
	for _, c := range taxonomy.All() {
		if present[c] {
			labels = append(labels, c)
		}
	}
	return labels
}
