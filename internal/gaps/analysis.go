package gaps

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

// llmAnalysis is the JSON document the gap analysis prompt asks for.
type llmAnalysis struct {
	Gaps              []llmGap `json:"gaps" jsonschema:"description=Additional documentation gaps not already found by the rule checks"`
	CompletenessScore *float64 `json:"completenessScore" jsonschema:"minimum=0,maximum=100"`
	Recommendations   []string `json:"recommendations"`
}

type llmGap struct {
	SectionID       string `json:"sectionId"`
	GapType         string `json:"gapType" jsonschema:"enum=missing_required_section,enum=insufficient_content,enum=low_confidence,enum=missing_safety_assessment,enum=llm_identified"`
	Severity        string `json:"severity" jsonschema:"enum=critical,enum=important,enum=minor"`
	PrimaryQuestion string `json:"primaryQuestion"`
	ReviewReason    string `json:"reviewReason,omitempty"`
}

func (a *llmAnalysis) Validate() error {
	if a.Gaps == nil && a.CompletenessScore == nil && a.Recommendations == nil {
		return errors.New("gap analysis has no gaps, score or recommendations")
	}
	return nil
}

// toGaps converts model gaps into the shared gap type. Gaps on sections outside
// the template or without a question are dropped; unknown types become
// llm_identified and unknown severities become minor.
func (a *llmAnalysis) toGaps(template []notes.SectionInfo, logger *slog.Logger) []notes.Gap {
	known := make(map[string]bool, len(template))
	for _, s := range template {
		known[s.ID] = true
	}

	out := make([]notes.Gap, 0, len(a.Gaps))
	for _, g := range a.Gaps {
		if !known[g.SectionID] {
			logger.Debug("dropping model gap for unknown section", "section_id", g.SectionID)
			continue
		}
		q := strings.TrimSpace(g.PrimaryQuestion)
		if q == "" {
			continue
		}
		gt := notes.GapType(g.GapType)
		if !gt.Valid() {
			gt = notes.GapLLMIdentified
		}
		sev := notes.Severity(strings.ToLower(g.Severity))
		if !sev.Valid() {
			sev = notes.SeverityMinor
		}
		out = append(out, notes.Gap{
			SectionID:       g.SectionID,
			GapType:         gt,
			Severity:        sev,
			PrimaryQuestion: q,
			ReviewReason:    strings.TrimSpace(g.ReviewReason),
		})
	}
	return out
}
