package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllHasEightCategories(t *testing.T) {
	require.Len(t, All(), 8)
	seen := make(map[Category]bool)
	for _, c := range All() {
		assert.False(t, seen[c], "duplicate category %s", c)
		seen[c] = true
	}
}

func TestValid(t *testing.T) {
	for _, c := range All() {
		assert.True(t, Valid(c), "%s should be valid", c)
	}
	assert.False(t, Valid(None), "None sentinel is not a real category")
	assert.False(t, Valid(Category("Gossip")))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		want   Category
		wantOK bool
	}{
		{"Contact&IDs", ContactIDs, true},
		{"Location&Time", LocationTime, true},
		{"None", None, true},
		{"contact&ids", "", false}, // case matters on the wire
		{"Unknown", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.name)
		assert.Equal(t, tt.wantOK, ok, "Parse(%q) ok", tt.name)
		assert.Equal(t, tt.want, got, "Parse(%q)", tt.name)
	}
}

func TestDefaultExplanation(t *testing.T) {
	for _, c := range All() {
		assert.NotEmpty(t, DefaultExplanation(c))
	}
	// Unknown categories still get a usable generic message.
	assert.NotEmpty(t, DefaultExplanation(Category("whatever")))
}

func TestColor(t *testing.T) {
	for _, c := range All() {
		assert.Regexp(t, `^#[0-9A-Fa-f]{6}$`, Color(c))
	}
	assert.Equal(t, "#444444", Color(Category("unknown")))
}
