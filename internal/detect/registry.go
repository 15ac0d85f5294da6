package detect

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/overshare-io/overshare/internal/taxonomy"
	"github.com/overshare-io/overshare/patterns"
)

// Rule kinds supported by the registry.
const (
	// KindRegex emits one span per leftmost non-overlapping regex match.
	KindRegex = "regex"
	// KindKeyword emits one span per non-overlapping case-insensitive
	// occurrence of each listed phrase, scanning left to right.
	KindKeyword = "keyword"
	// KindProximityGated emits a regex match only when a trigger keyword
	// appears within the configured window around the match, and the match's
	// digit count falls inside [min_digits, max_digits] when set.
	KindProximityGated = "proximity_gated"
	// KindDocumentGated emits regex matches only when the whole post
	// contains at least one trigger keyword.
	KindDocumentGated = "document_gated"
)

// RuleFile is the top-level YAML structure for a detector rule file.
type RuleFile struct {
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig is a single detector rule definition. Exactly one of Regex or
// Keywords is used, depending on Kind.
type RuleConfig struct {
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`
	Kind     string `yaml:"kind" json:"kind"`
	Enabled  *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	Regex    string   `yaml:"regex,omitempty" json:"regex,omitempty"`
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`

	// Gating knobs.
	Triggers  []string `yaml:"triggers,omitempty" json:"triggers,omitempty"`
	Window    int      `yaml:"window,omitempty" json:"window,omitempty"`
	MinDigits int      `yaml:"min_digits,omitempty" json:"min_digits,omitempty"`
	MaxDigits int      `yaml:"max_digits,omitempty" json:"max_digits,omitempty"`

	// MinPrefix requires at least this many bytes of text before a keyword
	// occurrence (used by address-hint suffixes).
	MinPrefix int `yaml:"min_prefix,omitempty" json:"min_prefix,omitempty"`
}

// isEnabled returns true if the rule is enabled (defaults to true when nil).
func (r *RuleConfig) isEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ParseRuleFile parses detector rule YAML bytes into a RuleFile.
func ParseRuleFile(data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rule YAML: %w", err)
	}
	return &rf, nil
}

// LoadRuleFile reads and parses a detector rule YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing override file as a no-op.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}
	return ParseRuleFile(data)
}

// DefaultRules returns the built-in detector rules parsed from the embedded
// rules.yaml. This is the first layer in the merge chain.
func DefaultRules() ([]RuleConfig, error) {
	rf, err := ParseRuleFile(patterns.RulesYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded detector rules: %w", err)
	}
	return rf.Rules, nil
}

// MergeRules layers rule lists: defaults first, then overrides. Later layers
// replace earlier rules with the same Name; new rules are appended, so the
// application order stays the defaults' order plus appended extras.
func MergeRules(layers ...[]RuleConfig) []RuleConfig {
	index := make(map[string]int)
	var merged []RuleConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, rc)
			}
		}
	}
	return merged
}

// FilterByCategories applies category whitelist/blacklist filters. When
// enabled is non-empty only rules for those categories are kept; any rule
// for a disabled category is then removed.
func FilterByCategories(rules []RuleConfig, enabled, disabled []taxonomy.Category) []RuleConfig {
	result := rules

	if len(enabled) > 0 {
		allowed := make(map[taxonomy.Category]bool, len(enabled))
		for _, c := range enabled {
			allowed[c] = true
		}
		var filtered []RuleConfig
		for _, r := range result {
			if allowed[taxonomy.Category(r.Category)] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	if len(disabled) > 0 {
		blocked := make(map[taxonomy.Category]bool, len(disabled))
		for _, c := range disabled {
			blocked[c] = true
		}
		var filtered []RuleConfig
		for _, r := range result {
			if !blocked[taxonomy.Category(r.Category)] {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	return result
}

// CompileRules converts rule configs into the compiled rule slice applied by
// the Scanner. Disabled rules are skipped. The compiled order is the config
// order, which callers must keep stable.
func CompileRules(configs []RuleConfig) ([]Rule, error) {
	var rules []Rule

	for _, rc := range configs {
		if !rc.isEnabled() {
			continue
		}
		cat, ok := taxonomy.Parse(rc.Category)
		if !ok || !taxonomy.Valid(cat) {
			return nil, fmt.Errorf("rule %q: unknown category %q", rc.Name, rc.Category)
		}

		r := Rule{
			name:      rc.Name,
			category:  cat,
			kind:      rc.Kind,
			window:    rc.Window,
			minDigits: rc.MinDigits,
			maxDigits: rc.MaxDigits,
			minPrefix: rc.MinPrefix,
		}
		for _, t := range rc.Triggers {
			r.triggers = append(r.triggers, foldASCII(t))
		}

		switch rc.Kind {
		case KindKeyword:
			if len(rc.Keywords) == 0 {
				return nil, fmt.Errorf("rule %q: keyword rule needs keywords", rc.Name)
			}
			for _, k := range rc.Keywords {
				if k == "" {
					continue
				}
				r.keywords = append(r.keywords, foldASCII(k))
			}
		case KindRegex, KindProximityGated, KindDocumentGated:
			if rc.Regex == "" {
				return nil, fmt.Errorf("rule %q: %s rule needs a regex", rc.Name, rc.Kind)
			}
			re, err := regexp.Compile(rc.Regex)
			if err != nil {
				return nil, fmt.Errorf("compiling regex in rule %q: %w", rc.Name, err)
			}
			r.re = re
			if (rc.Kind == KindProximityGated || rc.Kind == KindDocumentGated) && len(r.triggers) == 0 {
				return nil, fmt.Errorf("rule %q: gated rule needs triggers", rc.Name)
			}
		default:
			return nil, fmt.Errorf("rule %q: unknown kind %q", rc.Name, rc.Kind)
		}

		rules = append(rules, r)
	}

	return rules, nil
}

// foldASCII lowercases ASCII letters only, preserving byte length so offsets
// computed against folded text stay valid against the original.
func foldASCII(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' }) == -1 {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
