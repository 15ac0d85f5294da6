package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/overshare-io/overshare/internal/analyze"
	"github.com/overshare-io/overshare/internal/config"
	"github.com/overshare-io/overshare/internal/taxonomy"
)

var (
	analyzeMode string
	analyzeJSON bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Analyze a post for privacy oversharing",
	Long: `Analyze a post for privacy oversharing and print the flagged fragments.

The post is passed as an argument or piped on stdin:

  overshare analyze "Call me at 555-214-7821, I'm at the cafe until noon"
  echo "pickup code is 1140" | overshare analyze --mode hybrid`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "rules", "analysis mode (rules, model, hybrid)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "cli.analyze",
		trace.WithAttributes(attribute.String("analyze.mode", analyzeMode)))
	defer span.End()

	mode, err := analyze.ParseMode(analyzeMode)
	if err != nil {
		return err
	}

	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = strings.TrimRight(string(raw), "\n")
	}
	if text == "" {
		return fmt.Errorf("nothing to analyze: pass text as an argument or on stdin")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(text) > cfg.MaxPostChars {
		return fmt.Errorf("text exceeds maximum length of %d", cfg.MaxPostChars)
	}

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return err
	}

	result := analyzer.Analyze(ctx, text, mode)

	if analyzeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(cmd.OutOrStdout(), text, result)
	return nil
}

func printResult(w io.Writer, text string, result *analyze.AnalysisResult) {
	if len(result.Labels) == 0 {
		fmt.Fprintln(w, "No privacy risks found.")
		return
	}

	fmt.Fprintf(w, "Risks: %s\n\n", joinCategories(result.Labels))
	for _, sp := range result.Spans {
		fmt.Fprintf(w, "  [%d:%d] %-22s %q\n", sp.Start, sp.End, sp.Category, sp.Text)
	}
	fmt.Fprintln(w)
	for _, c := range result.Labels {
		fmt.Fprintf(w, "  %s: %s\n", c, result.Explanations[c])
	}
}

func joinCategories(categories []taxonomy.Category) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
