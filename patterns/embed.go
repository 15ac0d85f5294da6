// Package patterns provides the embedded default detector rule definitions.
// The YAML file in this directory uses the registry format consumed by
// internal/detect (regex, keyword, and gated rule kinds per risk category).
package patterns

import _ "embed"

//go:embed rules.yaml
var rulesYAML []byte

// RulesYAML returns the embedded default detector rule definitions.
func RulesYAML() []byte { return rulesYAML }
