// Package classifier is the boundary to the external risk classifier: a
// non-deterministic model that labels a post and quotes risky fragments
// without character offsets. The package owns everything about that call
// (prompting, retry/backoff, response validation, memoization) so the
// detection core stays a pure function of its inputs.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/overshare-io/overshare/internal/annotate"
	"github.com/overshare-io/overshare/internal/taxonomy"
)

// TimeoutClassifyCall bounds a single classification request including all
// retries' individual attempts.
const TimeoutClassifyCall = 60 * time.Second

// ErrClassifierUnavailable is returned when the backend cannot be reached
// after all retries. Callers degrade to an empty outcome.
var ErrClassifierUnavailable = errors.New("risk classifier unavailable")

// Outcome is a classifier response mapped onto the closed category set.
// Unknown category names are dropped at this boundary; the "None" sentinel
// becomes NoRisk instead of a category.
type Outcome struct {
	Categories   []taxonomy.Category
	NoRisk       bool
	Fragments    []annotate.Hint
	Explanations map[taxonomy.Category]string
}

// Empty reports whether the outcome carries no usable signal.
func (o *Outcome) Empty() bool {
	return len(o.Categories) == 0 && len(o.Fragments) == 0
}

// RiskClassifier classifies a post for privacy risks. hints are optional
// local candidates forwarded to sharpen the model's attention; they may be
// nil. Implementations must be safe for concurrent use.
type RiskClassifier interface {
	Classify(ctx context.Context, post string, hints []annotate.Hint) (*Outcome, error)
}

// responseSchema constrains the shape of the model's JSON output. Anything
// that fails validation is treated as an empty outcome rather than an error;
// the model is free-form enough that hard failures would be noise.
const responseSchema = `{
	"type": "object",
	"properties": {
		"labels": {"type": "array", "items": {"type": "string"}},
		"spans_text": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"label": {"type": "string"},
					"text": {"type": "string"}
				},
				"required": ["label", "text"]
			}
		},
		"explanations": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		}
	}
}`

var compiledSchema *gojsonschema.Schema

func init() {
	var err error
	compiledSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
	if err != nil {
		panic("classifier: compiling response schema: " + err.Error())
	}
}

// wireOutcome mirrors the JSON contract with the model.
type wireOutcome struct {
	Labels       []string          `json:"labels"`
	SpansText    []wireFragment    `json:"spans_text"`
	Explanations map[string]string `json:"explanations"`
}

type wireFragment struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// ParseOutcome validates and maps raw model output onto an Outcome. Content
// that is not valid JSON or fails schema validation yields an empty outcome,
// never an error. Category names cross this boundary exactly once; past it
// everything is the closed enum.
func ParseOutcome(content string) *Outcome {
	out := &Outcome{Explanations: map[taxonomy.Category]string{}}

	result, err := compiledSchema.Validate(gojsonschema.NewStringLoader(content))
	if err != nil || !result.Valid() {
		return out
	}

	var wire wireOutcome
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return out
	}

	for _, name := range wire.Labels {
		cat, ok := taxonomy.Parse(name)
		if !ok {
			continue
		}
		if cat == taxonomy.None {
			out.NoRisk = true
			continue
		}
		out.Categories = append(out.Categories, cat)
	}

	for _, f := range wire.SpansText {
		cat, ok := taxonomy.Parse(f.Label)
		if !ok || !taxonomy.Valid(cat) {
			continue
		}
		out.Fragments = append(out.Fragments, annotate.Hint{Category: cat, Text: f.Text})
	}

	for name, msg := range wire.Explanations {
		cat, ok := taxonomy.Parse(name)
		if !ok || !taxonomy.Valid(cat) || msg == "" {
			continue
		}
		out.Explanations[cat] = msg
	}

	// A "None" alongside real findings is informational only.
	if len(out.Categories) > 0 {
		out.NoRisk = false
	}
	return out
}
