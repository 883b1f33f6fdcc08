package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/scribe/internal/gaps"
	"github.com/MikeSquared-Agency/scribe/internal/mapping"
	"github.com/MikeSquared-Agency/scribe/internal/template"
)

type mapFlags struct {
	template       string
	patientContext string
	model          string
	noRewrite      bool
	noGaps         bool
	threshold      int
	concurrency    int
}

var mapOpts mapFlags

var mapCmd = &cobra.Command{
	Use:   "map [transcript files...]",
	Short: "Map transcript files into a note template",
	Long: `Map one or more transcript files into the sections of a note template.
Each file is one session; the session id is the file name without extension.

Examples:
  scribectl map --template soap.yaml session-01.txt
  scribectl map --template soap.yaml --no-rewrite --concurrency 4 transcripts/*.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMap,
}

func init() {
	f := mapCmd.Flags()
	f.StringVarP(&mapOpts.template, "template", "t", "", "note template YAML file (required)")
	f.StringVar(&mapOpts.patientContext, "patient-context", "", "free-text patient context passed with every session")
	f.StringVar(&mapOpts.model, "model", "", "override the configured model")
	f.BoolVar(&mapOpts.noRewrite, "no-rewrite", false, "skip the clinical language rewrite stage")
	f.BoolVar(&mapOpts.noGaps, "no-gaps", false, "skip gap analysis")
	f.IntVar(&mapOpts.threshold, "threshold", 0, "review threshold for section confidence (0 uses the configured value)")
	f.IntVarP(&mapOpts.concurrency, "concurrency", "c", 2, "sessions mapped in parallel")
	_ = mapCmd.MarkFlagRequired("template")
}

func runMap(cmd *cobra.Command, args []string) error {
	tmpl, err := template.Load(mapOpts.template)
	if err != nil {
		return err
	}

	client, cfg, err := newClient()
	if err != nil {
		return err
	}
	detector := gaps.New(client, cfg.GapConfig(), nil)
	engine := mapping.New(client, detector, cfg.MappingConfig(), nil)

	results, err := mapFiles(cmd.Context(), engine, tmpl, args, mapOpts)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), results)
}

// mapFiles maps every file with at most f.concurrency sessions in flight.
// Results keep argument order. Unreadable files abort the batch; mapping
// failures are reported in their envelopes.
func mapFiles(ctx context.Context, engine *mapping.Engine, tmpl *template.Template, files []string, f mapFlags) ([]mapping.Result, error) {
	opts := f.options()
	results := make([]mapping.Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(f.concurrency, 1))
	for i, path := range files {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			results[i] = engine.MapContent(gctx, mapping.Request{
				SessionID:      sessionID(path),
				Transcription:  string(data),
				Sections:       tmpl.Sections,
				PatientContext: f.patientContext,
			}, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f mapFlags) options() *mapping.Options {
	rewrite := !f.noRewrite
	gapAnalysis := !f.noGaps
	opts := &mapping.Options{
		Model:             f.model,
		EnableRewriting:   &rewrite,
		EnableGapAnalysis: &gapAnalysis,
	}
	if f.threshold > 0 {
		opts.ConfidenceThreshold = &f.threshold
	}
	return opts
}

func sessionID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
