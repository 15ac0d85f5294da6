package cmd

import (
	"github.com/rs/zerolog/log"

	"github.com/overshare-io/overshare/internal/analyze"
	"github.com/overshare-io/overshare/internal/classifier"
	"github.com/overshare-io/overshare/internal/config"
	"github.com/overshare-io/overshare/internal/detect"
	"github.com/overshare-io/overshare/internal/ner"
)

// buildAnalyzer wires the scanner and optional collaborators from config.
// Missing collaborators degrade the analyzer instead of failing startup:
// no API key disables model/hybrid, no sidecar URL disables NER.
func buildAnalyzer(cfg *config.Config) (*analyze.Analyzer, error) {
	var scanOpts []detect.ScannerOption
	if cfg.RulesFile != "" {
		scanOpts = append(scanOpts, detect.WithRuleFile(cfg.RulesFile))
	}
	if cfg.NERBaseURL != "" {
		scanOpts = append(scanOpts, detect.WithRecognizer(ner.NewHTTPRecognizer(cfg.NERBaseURL)))
	}
	scanner, err := detect.NewScanner(scanOpts...)
	if err != nil {
		return nil, err
	}

	var rc classifier.RiskClassifier
	if cfg.ClassifierEnabled() {
		opts := []classifier.Option{classifier.WithModel(cfg.OpenAIModel)}
		var oc *classifier.OpenAIClassifier
		if cfg.OpenAIBaseURL != "" {
			oc, err = classifier.NewOpenAIClassifierWithBaseURL(
				cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ClassifierCacheSize, opts...)
		} else {
			oc, err = classifier.NewOpenAIClassifier(
				cfg.OpenAIAPIKey, cfg.ClassifierCacheSize, opts...)
		}
		if err != nil {
			return nil, err
		}
		rc = oc
	} else {
		log.Debug().Msg("no OpenAI API key configured; model and hybrid modes run rules-only")
	}

	return analyze.New(scanner, rc), nil
}
