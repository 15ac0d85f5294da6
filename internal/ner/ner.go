// Package ner defines the boundary to an optional named-entity recognition
// collaborator. The scanner consumes only a fixed subset of entity tags;
// everything else about the recognizer (model, language, runtime) is the
// collaborator's concern.
package ner

import "context"

// Entity tags the scanner consumes. Any other tag is ignored.
const (
	TagGPE  = "GPE"  // geopolitical entity
	TagLOC  = "LOC"  // non-GPE location
	TagFAC  = "FAC"  // building, airport, venue
	TagDATE = "DATE"
	TagTIME = "TIME"
	TagORG  = "ORG"
)

// Entity is a typed entity span reported by a recognizer. Offsets are byte
// offsets into the analyzed text.
type Entity struct {
	Tag   string `json:"tag"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Recognizer locates typed entities in text. Implementations may call out
// over the network; errors must be treated by callers as "no entities", not
// as analysis failures.
type Recognizer interface {
	Entities(ctx context.Context, text string) ([]Entity, error)
}
