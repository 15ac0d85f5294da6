// Package taxonomy defines the closed set of privacy-risk categories and
// their display metadata. The category set is fixed at compile time; code in
// other packages must never pass category names around as free-form strings.
package taxonomy

// Category is one of the fixed privacy-risk categories.
type Category string

const (
	LocationTime   Category = "Location&Time"
	ContactIDs     Category = "Contact&IDs"
	GovFinancial   Category = "Gov&Financial IDs"
	HealthSensitiv Category = "Health&Sensitive"
	Credentials    Category = "Credentials&Security"
	Workplace      Category = "Workplace/Academic"
	Minors         Category = "Minors"
	MetadataDevice Category = "Metadata/Device"

	// None is the classifier's "no risk found" sentinel. It is a wire value
	// only and is never a member of All().
	None Category = "None"
)

// all is the canonical ordering used everywhere a stable category order is
// needed (scanner rule grouping, sorted result labels, API listings).
var all = []Category{
	LocationTime,
	ContactIDs,
	GovFinancial,
	HealthSensitiv,
	Credentials,
	Workplace,
	Minors,
	MetadataDevice,
}

// All returns the full category set in canonical order. Callers must not
// mutate the returned slice.
func All() []Category {
	return all
}

// Valid reports whether c is a real category (the None sentinel is not).
func Valid(c Category) bool {
	for _, k := range all {
		if k == c {
			return true
		}
	}
	return false
}

// Parse maps an external category name to a Category. ok is false for
// unknown names; the None sentinel parses successfully.
func Parse(name string) (Category, bool) {
	c := Category(name)
	if c == None || Valid(c) {
		return c, true
	}
	return "", false
}

// defaultExplanations are the fallback per-category justifications used when
// the classifier did not supply its own wording.
var defaultExplanations = map[Category]string{
	LocationTime:   "Reveals a time or place that could enable tracking.",
	ContactIDs:     "Shares contact details or a personal identifier.",
	GovFinancial:   "Exposes a government or financial identifier.",
	HealthSensitiv: "Reveals health or otherwise sensitive personal information.",
	Credentials:    "Shares a credential, code, or secret.",
	Workplace:      "Mentions non-public workplace or academic information.",
	Minors:         "Mentions a dependent child or minor.",
	MetadataDevice: "Shares a code or identifier tied to a device, document, or account.",
}

// DefaultExplanation returns the generic justification for a category.
func DefaultExplanation(c Category) string {
	if msg, ok := defaultExplanations[c]; ok {
		return msg
	}
	return "Potential privacy risk matched by this highlight."
}

// colors is display metadata for the presentation layer. Not load-bearing.
var colors = map[Category]string{
	LocationTime:   "#2E86AB",
	ContactIDs:     "#8E44AD",
	GovFinancial:   "#D35400",
	HealthSensitiv: "#C0392B",
	Credentials:    "#16A085",
	Workplace:      "#7D6608",
	Minors:         "#B03A2E",
	MetadataDevice: "#566573",
}

// Color returns the hex display color for a category.
func Color(c Category) string {
	if col, ok := colors[c]; ok {
		return col
	}
	return "#444444"
}
