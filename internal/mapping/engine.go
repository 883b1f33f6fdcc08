// Package mapping turns a session transcript into template-conformant note
// sections: context extraction, section mapping, optional clinical rewrite and
// optional gap detection, run in that order.
package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/gaps"
	"github.com/MikeSquared-Agency/scribe/internal/llm"
	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

// Engine is the content mapping engine. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	llm      llm.Client
	detector *gaps.Detector
	cfg      Config
	logger   *slog.Logger
}

// New builds an engine. A nil detector gets one built on the same client with
// matching defaults.
func New(client llm.Client, detector *gaps.Detector, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if detector == nil {
		detector = gaps.New(client, gaps.Config{
			DefaultModel:        cfg.DefaultModel,
			DefaultTemperature:  cfg.DefaultTemperature,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
		}, logger)
	}
	return &Engine{llm: client, detector: detector, cfg: cfg, logger: logger}
}

// Detector returns the gap detector the engine delegates to.
func (e *Engine) Detector() *gaps.Detector {
	return e.detector
}

// MapContent runs the pipeline for one transcript. Failures come back in the
// envelope; MapContent never returns an error or panics on bad input.
func (e *Engine) MapContent(ctx context.Context, req Request, opts *Options) Result {
	o := e.cfg.resolve(opts)
	res := Result{
		SessionID:       req.SessionID,
		MappedSections:  []notes.MappedSection{},
		Gaps:            []notes.Gap{},
		Recommendations: []string{},
		Metrics:         Metrics{ModelUsed: o.model},
	}
	res.ClinicalContext.Normalize()

	fail := func(err error) Result {
		e.logger.Error("content mapping failed",
			"session_id", req.SessionID,
			"llm_calls", res.Metrics.LLMCallCount,
			"error", err,
		)
		res.Success = false
		res.MappedSections = []notes.MappedSection{}
		res.Error = err.Error()
		res.Metrics.TotalProcessingTimeMs = res.Metrics.total()
		return res
	}

	if err := validateSections(req.Sections); err != nil {
		return fail(err)
	}
	if e.llm == nil {
		return fail(ErrNoClient)
	}

	e.logger.Info("mapping transcript",
		"session_id", req.SessionID,
		"sections", len(req.Sections),
		"transcript_len", len(req.Transcription),
	)

	// Stage 1: context extraction.
	start := time.Now()
	res.Metrics.LLMCallCount++
	cc, err := e.extractContext(ctx, req, o)
	res.Metrics.ExtractionTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		return fail(err)
	}
	res.ClinicalContext = cc

	// Stage 2: section mapping.
	start = time.Now()
	res.Metrics.LLMCallCount++
	sections, err := e.mapSections(ctx, req, cc, o)
	res.Metrics.MappingTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		return fail(err)
	}

	// Stage 3: rewrite. Non-fatal.
	if o.rewrite && hasContent(sections) {
		start = time.Now()
		res.Metrics.LLMCallCount++
		if err := e.rewriteSections(ctx, req.SessionID, sections, o); err != nil {
			e.logger.Warn("rewrite failed, keeping mapped content",
				"session_id", req.SessionID,
				"error", err,
			)
			res.Metrics.RewriteDegraded = true
		}
		res.Metrics.RewriteTimeMs = time.Since(start).Milliseconds()
	}

	ApplyThreshold(sections, o.threshold)
	res.MappedSections = sections
	res.CompletenessScore = 100

	// Stage 4: gap delegation.
	if o.gapAnalysis {
		start = time.Now()
		temp := o.temperature
		threshold := o.threshold
		gr := e.detector.DetectGaps(ctx, gaps.Request{
			SessionID:        req.SessionID,
			TemplateSections: req.Sections,
			MappedSections:   sections,
			ClinicalContext:  &cc,
		}, &gaps.Options{
			Model:               o.model,
			Temperature:         &temp,
			ConfidenceThreshold: &threshold,
		})
		res.Metrics.GapAnalysisTimeMs = time.Since(start).Milliseconds()
		res.Metrics.LLMCallCount += gr.Metrics.LLMCallCount
		if !gr.Success {
			return fail(fmt.Errorf("gap analysis: %s", gr.Error))
		}
		res.Gaps = gr.Gaps
		res.CompletenessScore = gr.CompletenessScore
		res.Recommendations = gr.Recommendations
		res.Metrics.GapAnalysisDegraded = gr.Metrics.LLMAnalysisDegraded
	}

	res.Success = true
	res.Metrics.TotalProcessingTimeMs = res.Metrics.total()

	e.logger.Info("content mapping complete",
		"session_id", req.SessionID,
		"sections", len(res.MappedSections),
		"gaps", len(res.Gaps),
		"completeness", res.CompletenessScore,
		"llm_calls", res.Metrics.LLMCallCount,
		"duration_ms", res.Metrics.TotalProcessingTimeMs,
	)
	return res
}

// CheckHealth reports whether the language model is reachable and available.
func (e *Engine) CheckHealth(ctx context.Context) bool {
	if e.llm == nil {
		return false
	}
	h, err := e.llm.CheckHealth(ctx)
	return err == nil && h.Available
}

// ApplyThreshold forces needsReview on every section whose confidence is below
// threshold, naming both numbers in the review reason. Idempotent.
func ApplyThreshold(sections []notes.MappedSection, threshold int) {
	for i := range sections {
		s := &sections[i]
		if s.Confidence < threshold {
			s.NeedsReview = true
			s.ReviewReason = fmt.Sprintf("confidence %d is below the review threshold %d", s.Confidence, threshold)
		}
	}
}

func (m Metrics) total() int64 {
	return m.ExtractionTimeMs + m.MappingTimeMs + m.RewriteTimeMs + m.GapAnalysisTimeMs
}

func validateSections(sections []notes.SectionInfo) error {
	if len(sections) == 0 {
		return fmt.Errorf("%w: no template sections", ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("%w: template section %q has no id", ErrInvalidRequest, s.Name)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate template section id %q", ErrInvalidRequest, s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

func (e *Engine) generate(ctx context.Context, system, user string, o resolvedOptions) (string, error) {
	temp := o.temperature
	return e.llm.Generate(ctx, system, user, llm.Options{
		Model:       o.model,
		Temperature: &temp,
		MaxTokens:   e.cfg.MaxTokens,
	})
}

func (e *Engine) extractContext(ctx context.Context, req Request, o resolvedOptions) (notes.ClinicalContext, error) {
	prompt := fmt.Sprintf(extractionUserPrompt,
		req.SessionID,
		orNone(req.PatientContext),
		orNone(req.Transcription),
		llm.SchemaFor[notes.ClinicalContext](),
	)

	raw, err := e.generate(ctx, extractionSystemPrompt, prompt, o)
	if err != nil {
		return notes.ClinicalContext{}, fmt.Errorf("context extraction: %w", err)
	}

	resp, err := llm.DecodeJSON[extractionResponse](raw)
	if err != nil {
		e.logger.Error("failed to parse context extraction", "session_id", req.SessionID, "error", err, "raw", raw)
		return notes.ClinicalContext{}, fmt.Errorf("parse context extraction: %w", err)
	}
	cc := resp.ClinicalContext
	cc.Normalize()
	return cc, nil
}

func (e *Engine) mapSections(ctx context.Context, req Request, cc notes.ClinicalContext, o resolvedOptions) ([]notes.MappedSection, error) {
	prompt := fmt.Sprintf(mappingUserPrompt,
		req.SessionID,
		toJSON(req.Sections),
		toJSON(cc),
		orNone(req.PatientContext),
		orNone(req.Transcription),
		llm.SchemaFor[mappingResponse](),
	)

	raw, err := e.generate(ctx, mappingSystemPrompt, prompt, o)
	if err != nil {
		return nil, fmt.Errorf("section mapping: %w", err)
	}

	resp, err := llm.DecodeJSON[mappingResponse](raw)
	if err != nil {
		e.logger.Error("failed to parse section mapping", "session_id", req.SessionID, "error", err, "raw", raw)
		return nil, fmt.Errorf("parse section mapping: %w", err)
	}
	return e.reconcile(req.SessionID, req.Sections, resp.Sections), nil
}

// reconcile lines model output up with the template: one section per template
// entry in template order. Unknown ids are dropped and the first duplicate wins.
func (e *Engine) reconcile(sessionID string, template []notes.SectionInfo, items []mappedItem) []notes.MappedSection {
	idx := notes.IndexSections(template)
	byID := make(map[string]mappedItem, len(items))
	for _, it := range items {
		if _, ok := idx[it.SectionID]; !ok {
			e.logger.Warn("dropping mapped content for unknown section", "session_id", sessionID, "section_id", it.SectionID)
			continue
		}
		if _, dup := byID[it.SectionID]; dup {
			continue
		}
		byID[it.SectionID] = it
	}

	out := make([]notes.MappedSection, 0, len(template))
	for _, s := range template {
		ms := notes.MappedSection{
			SectionID:         s.ID,
			SectionName:       s.Name,
			ExtractedKeywords: []string{},
			DisplayOrder:      s.DisplayOrder,
		}
		it, ok := byID[s.ID]
		raw := strings.TrimSpace(it.RawContent)
		if !ok || raw == "" {
			ms.NeedsReview = true
			ms.ReviewReason = "no transcript content was mapped to this section"
			out = append(out, ms)
			continue
		}
		ms.RawContent = raw
		ms.ProcessedContent = raw
		ms.Confidence = clampConfidence(it.Confidence)
		ms.ExtractedKeywords = notes.UnionKeywords(it.ExtractedKeywords)
		ms.NeedsReview = it.NeedsReview
		ms.ReviewReason = strings.TrimSpace(it.ReviewReason)
		out = append(out, ms)
	}
	return out
}

// rewriteSections replaces processedContent in place. On error the sections
// are left as they were.
func (e *Engine) rewriteSections(ctx context.Context, sessionID string, sections []notes.MappedSection, o resolvedOptions) error {
	type draft struct {
		SectionID   string `json:"sectionId"`
		SectionName string `json:"sectionName"`
		Content     string `json:"content"`
	}
	drafts := make([]draft, 0, len(sections))
	for _, s := range sections {
		if s.RawContent == "" {
			continue
		}
		drafts = append(drafts, draft{SectionID: s.SectionID, SectionName: s.SectionName, Content: s.RawContent})
	}

	prompt := fmt.Sprintf(rewriteUserPrompt, sessionID, toJSON(drafts), llm.SchemaFor[rewriteResponse]())
	raw, err := e.generate(ctx, rewriteSystemPrompt, prompt, o)
	if err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}

	resp, err := llm.DecodeJSON[rewriteResponse](raw)
	if err != nil {
		return fmt.Errorf("parse rewrite: %w", err)
	}

	pos := make(map[string]int, len(sections))
	for i, s := range sections {
		if s.RawContent != "" {
			pos[s.SectionID] = i
		}
	}
	applied := make(map[string]bool, len(resp.Sections))
	for _, it := range resp.Sections {
		i, ok := pos[it.SectionID]
		text := strings.TrimSpace(it.ProcessedContent)
		if !ok || text == "" || applied[it.SectionID] {
			continue
		}
		applied[it.SectionID] = true
		sections[i].ProcessedContent = text
		sections[i].ExtractedKeywords = notes.UnionKeywords(sections[i].ExtractedKeywords, it.ClinicalTermsUsed)
	}
	return nil
}

func hasContent(sections []notes.MappedSection) bool {
	for _, s := range sections {
		if s.RawContent != "" {
			return true
		}
	}
	return false
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(data)
}
