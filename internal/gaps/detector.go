// Package gaps finds what a mapped session note is still missing. Rule checks
// run locally; an optional language-model pass adds gaps the rules cannot see.
package gaps

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/llm"
	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

// Detector is the gap detection engine. It holds no per-request state and is
// safe for concurrent use.
type Detector struct {
	llm    llm.Client
	cfg    Config
	logger *slog.Logger
}

func New(client llm.Client, cfg Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{llm: client, cfg: cfg.withDefaults(), logger: logger}
}

// Config returns the engine defaults after defaulting.
func (d *Detector) Config() Config {
	return d.cfg
}

// AnalyzeSection runs the per-section rules with the engine's thresholds.
func (d *Detector) AnalyzeSection(section notes.SectionInfo, content *notes.MappedSection) []notes.Gap {
	return d.AnalyzeSectionWith(section, content, d.cfg.ConfidenceThreshold)
}

// AnalyzeSectionWith is AnalyzeSection with an explicit confidence threshold.
func (d *Detector) AnalyzeSectionWith(section notes.SectionInfo, content *notes.MappedSection, threshold int) []notes.Gap {
	return AnalyzeSection(section, content, Thresholds{
		Confidence:       threshold,
		MinContentLength: d.cfg.MinContentLength,
	})
}

// DetectGaps analyzes a mapped note against its template. Language-model
// failures degrade to rule-only results; only malformed requests fail.
func (d *Detector) DetectGaps(ctx context.Context, req Request, opts *Options) Result {
	start := time.Now()
	o := d.cfg.resolve(opts)

	res := Result{
		SessionID:       req.SessionID,
		Gaps:            []notes.Gap{},
		SectionScores:   []notes.SectionScore{},
		Recommendations: []string{},
		Metrics:         Metrics{ModelUsed: o.model},
	}

	mapped, err := validateRequest(req)
	if err != nil {
		d.logger.Warn("rejected gap detection request", "session_id", req.SessionID, "error", err)
		res.Error = err.Error()
		res.Metrics.TotalProcessingTimeMs = time.Since(start).Milliseconds()
		return res
	}

	ruleStart := time.Now()
	ruleGaps := []notes.Gap{}
	for _, s := range req.TemplateSections {
		ruleGaps = append(ruleGaps, AnalyzeSection(s, mapped[s.ID], o.thresholds)...)
	}
	if o.safety {
		if g := safetyGap(req.TemplateSections, mapped, req.ClinicalContext); g != nil {
			ruleGaps = append(ruleGaps, *g)
		}
	}
	res.Metrics.RuleAnalysisTimeMs = time.Since(ruleStart).Milliseconds()

	gaps := ruleGaps
	var modelScore *float64
	var modelRecs []string
	if o.llmAnalysis {
		if d.llm == nil {
			res.Metrics.LLMAnalysisDegraded = true
		} else {
			llmStart := time.Now()
			res.Metrics.LLMCallCount = 1
			analysis, err := d.analyzeWithLLM(ctx, req, ruleGaps, o)
			res.Metrics.LLMAnalysisTimeMs = time.Since(llmStart).Milliseconds()
			if err != nil {
				d.logger.Warn("llm gap analysis failed, using rule-based gaps only",
					"session_id", req.SessionID,
					"error", err,
				)
				res.Metrics.LLMAnalysisDegraded = true
			} else {
				gaps = MergeGaps(ruleGaps, analysis.toGaps(req.TemplateSections, d.logger))
				modelScore = analysis.CompletenessScore
				modelRecs = analysis.Recommendations
			}
		}
	}

	SortGaps(gaps, req.TemplateSections)

	bySection := make(map[string][]notes.Gap)
	for _, g := range gaps {
		bySection[g.SectionID] = append(bySection[g.SectionID], g)
	}
	for _, s := range req.TemplateSections {
		res.SectionScores = append(res.SectionScores, ScoreSection(s, mapped[s.ID], bySection[s.ID], o.thresholds.Confidence))
	}

	res.Success = true
	res.Gaps = gaps
	res.Summary = notes.Summarize(gaps, len(req.TemplateSections))
	res.CompletenessScore = combineScores(CompletenessScore(req.TemplateSections, mapped, gaps), modelScore)
	res.Recommendations = Recommendations(gaps, req.TemplateSections, modelRecs)
	res.Metrics.TotalProcessingTimeMs = time.Since(start).Milliseconds()

	d.logger.Info("gap detection complete",
		"session_id", req.SessionID,
		"gaps", res.Summary.TotalGaps,
		"critical", res.Summary.CriticalGaps,
		"completeness", res.CompletenessScore,
		"llm_degraded", res.Metrics.LLMAnalysisDegraded,
	)
	return res
}

// CheckHealth reports whether the language model is reachable and available.
func (d *Detector) CheckHealth(ctx context.Context) bool {
	if d.llm == nil {
		return false
	}
	h, err := d.llm.CheckHealth(ctx)
	return err == nil && h.Available
}

func validateRequest(req Request) (map[string]*notes.MappedSection, error) {
	if len(req.TemplateSections) == 0 {
		return nil, fmt.Errorf("%w: no template sections", ErrInvalidRequest)
	}
	known := make(map[string]bool, len(req.TemplateSections))
	for _, s := range req.TemplateSections {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("%w: template section %q has no id", ErrInvalidRequest, s.Name)
		}
		if known[s.ID] {
			return nil, fmt.Errorf("%w: duplicate template section id %q", ErrInvalidRequest, s.ID)
		}
		known[s.ID] = true
	}

	mapped := make(map[string]*notes.MappedSection, len(req.MappedSections))
	for i := range req.MappedSections {
		m := &req.MappedSections[i]
		if !known[m.SectionID] {
			return nil, fmt.Errorf("%w: mapped section references unknown section id %q", ErrInvalidRequest, m.SectionID)
		}
		if _, dup := mapped[m.SectionID]; dup {
			return nil, fmt.Errorf("%w: duplicate mapped section id %q", ErrInvalidRequest, m.SectionID)
		}
		mapped[m.SectionID] = m
	}
	return mapped, nil
}

func (d *Detector) analyzeWithLLM(ctx context.Context, req Request, ruleGaps []notes.Gap, o resolvedOptions) (*llmAnalysis, error) {
	type mappedView struct {
		SectionID  string `json:"sectionId"`
		Content    string `json:"content"`
		Confidence int    `json:"confidence"`
	}
	views := make([]mappedView, 0, len(req.MappedSections))
	for _, m := range req.MappedSections {
		views = append(views, mappedView{SectionID: m.SectionID, Content: m.Text(), Confidence: m.Confidence})
	}

	cc := notes.ClinicalContext{}
	if req.ClinicalContext != nil {
		cc = *req.ClinicalContext
	}
	cc.Normalize()

	prompt := fmt.Sprintf(analysisUserPrompt,
		req.SessionID,
		toJSON(req.TemplateSections),
		toJSON(views),
		toJSON(cc),
		toJSON(ruleGaps),
		llm.SchemaFor[llmAnalysis](),
	)

	temp := o.temperature
	raw, err := d.llm.Generate(ctx, systemPrompt, prompt, llm.Options{
		Model:       o.model,
		Temperature: &temp,
		MaxTokens:   d.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm gap analysis: %w", err)
	}

	analysis, err := llm.DecodeJSON[llmAnalysis](raw)
	if err != nil {
		return nil, fmt.Errorf("parse gap analysis: %w", err)
	}
	return &analysis, nil
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(data)
}
