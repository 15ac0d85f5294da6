package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overshare-io/overshare/internal/analyze"
	"github.com/overshare-io/overshare/internal/annotate"
	"github.com/overshare-io/overshare/internal/config"
	"github.com/overshare-io/overshare/internal/taxonomy"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	expected := []string{"analyze", "serve", "categories", "version"}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range expected {
		assert.True(t, registered[name], "subcommand %q should be registered", name)
	}
}

func TestRootCommand_HelpOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"--help"})

	err := rootCmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Privacy oversharing detector")
	assert.Contains(t, output, "analyze")
	assert.Contains(t, output, "serve")
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	for _, name := range []string{"config", "verbose", "log-level", "log-format", "otel"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag %q should be registered", name)
	}
}

func TestVersionVars_HaveDefaults(t *testing.T) {
	assert.Equal(t, "dev", Version)
	assert.Equal(t, "none", Commit)
	assert.Equal(t, "unknown", BuildDate)
}

func TestPackageLevelTracer_IsNotNil(t *testing.T) {
	assert.NotNil(t, tracer)
}

func TestBuildAnalyzerWithoutClassifier(t *testing.T) {
	cfg := &config.Config{MaxPostChars: config.DefaultMaxPostChars}
	analyzer, err := buildAnalyzer(cfg)
	require.NoError(t, err)
	assert.NotNil(t, analyzer)
}

func TestPrintResult(t *testing.T) {
	buf := new(bytes.Buffer)
	printResult(buf, "Call 555-214-7821", &analyze.AnalysisResult{
		Labels: []taxonomy.Category{taxonomy.ContactIDs},
		Spans: []annotate.Span{
			{Start: 5, End: 17, Category: taxonomy.ContactIDs, Text: "555-214-7821"},
		},
		Explanations: map[taxonomy.Category]string{
			taxonomy.ContactIDs: taxonomy.DefaultExplanation(taxonomy.ContactIDs),
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Contact&IDs")
	assert.Contains(t, out, "555-214-7821")
	assert.Contains(t, out, "[5:17]")
}

func TestPrintResultNoRisks(t *testing.T) {
	buf := new(bytes.Buffer)
	printResult(buf, "just a nice day", &analyze.AnalysisResult{
		Explanations: map[taxonomy.Category]string{},
	})
	assert.Contains(t, buf.String(), "No privacy risks found")
}
