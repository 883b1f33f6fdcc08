package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/gaps"
	"github.com/MikeSquared-Agency/scribe/internal/llm"
	"github.com/MikeSquared-Agency/scribe/internal/notes"
	"github.com/MikeSquared-Agency/scribe/internal/template"
)

type gapsFlags struct {
	template  string
	mapped    string
	noLLM     bool
	noSafety  bool
	threshold int
}

var gapsOpts gapsFlags

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Find gaps in an already mapped note",
	Long: `Run gap detection on a mapped note. The --mapped file is a mapping result
as printed by "scribectl map" (one object, not the array).

With --no-llm only the local rules run and no API key is needed.`,
	Args: cobra.NoArgs,
	RunE: runGaps,
}

func init() {
	f := gapsCmd.Flags()
	f.StringVarP(&gapsOpts.template, "template", "t", "", "note template YAML file (required)")
	f.StringVarP(&gapsOpts.mapped, "mapped", "m", "", "mapping result JSON file (required)")
	f.BoolVar(&gapsOpts.noLLM, "no-llm", false, "rule checks only")
	f.BoolVar(&gapsOpts.noSafety, "no-safety", false, "skip the safety documentation check")
	f.IntVar(&gapsOpts.threshold, "threshold", 0, "review threshold for section confidence (0 uses the configured value)")
	_ = gapsCmd.MarkFlagRequired("template")
	_ = gapsCmd.MarkFlagRequired("mapped")
}

// mappedNote is the subset of a mapping result gap detection reads.
type mappedNote struct {
	SessionID       string                 `json:"sessionId"`
	MappedSections  []notes.MappedSection  `json:"mappedSections"`
	ClinicalContext *notes.ClinicalContext `json:"clinicalContext"`
}

func runGaps(cmd *cobra.Command, args []string) error {
	tmpl, err := template.Load(gapsOpts.template)
	if err != nil {
		return err
	}
	req, err := loadGapRequest(gapsOpts.mapped, tmpl)
	if err != nil {
		return err
	}

	var client llm.Client
	cfg := config.Load()
	if !gapsOpts.noLLM {
		if client, cfg, err = newClient(); err != nil {
			return err
		}
	}
	detector := gaps.New(client, cfg.GapConfig(), nil)

	res := detector.DetectGaps(cmd.Context(), req, gapsOpts.options())
	if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("gap detection failed: %s", res.Error)
	}
	return nil
}

func loadGapRequest(path string, tmpl *template.Template) (gaps.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gaps.Request{}, fmt.Errorf("read mapped note: %w", err)
	}
	var note mappedNote
	if err := json.Unmarshal(data, &note); err != nil {
		return gaps.Request{}, fmt.Errorf("decode mapped note %s: %w", path, err)
	}
	return gaps.Request{
		SessionID:        note.SessionID,
		TemplateSections: tmpl.Sections,
		MappedSections:   note.MappedSections,
		ClinicalContext:  note.ClinicalContext,
	}, nil
}

func (f gapsFlags) options() *gaps.Options {
	useLLM := !f.noLLM
	safety := !f.noSafety
	opts := &gaps.Options{
		EnableLLMAnalysis:   &useLLM,
		EnforceSafetyChecks: &safety,
	}
	if f.threshold > 0 {
		opts.ConfidenceThreshold = &f.threshold
	}
	return opts
}
