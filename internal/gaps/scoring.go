package gaps

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

// Scoring policy. Every number that shapes a score lives here.
const (
	criticalPenalty  = 15
	importantPenalty = 5
	minorPenalty     = 1

	sectionCriticalPenalty  = 40
	sectionImportantPenalty = 20
	sectionMinorPenalty     = 10
)

// ScoreSection scores one section from its mapped content and the gaps raised against it.
func ScoreSection(section notes.SectionInfo, content *notes.MappedSection, sectionGaps []notes.Gap, threshold int) notes.SectionScore {
	score := notes.SectionScore{SectionID: section.ID}

	missing := sectionText(content) == ""
	for _, g := range sectionGaps {
		if g.GapType == notes.GapMissingRequiredSection {
			missing = true
		}
	}
	if missing {
		score.Status = notes.StatusMissing
		return score
	}

	s := content.Confidence
	for _, g := range sectionGaps {
		switch g.Severity {
		case notes.SeverityCritical:
			s -= sectionCriticalPenalty
		case notes.SeverityImportant:
			s -= sectionImportantPenalty
		default:
			s -= sectionMinorPenalty
		}
	}
	score.Score = clamp(s)

	if len(sectionGaps) > 0 || content.Confidence < threshold || content.NeedsReview {
		score.Status = notes.StatusNeedsReview
	} else {
		score.Status = notes.StatusComplete
	}
	return score
}

// CompletenessScore is the share of required sections fully satisfied (present,
// no critical or important gap), scaled to 100 and penalized per gap by severity.
// Adding a gap never raises the score.
func CompletenessScore(template []notes.SectionInfo, mapped map[string]*notes.MappedSection, gaps []notes.Gap) int {
	blocking := make(map[string]bool)
	var critical, important, minor int
	for _, g := range gaps {
		switch g.Severity {
		case notes.SeverityCritical:
			critical++
			blocking[g.SectionID] = true
		case notes.SeverityImportant:
			important++
			blocking[g.SectionID] = true
		default:
			minor++
		}
	}

	base := 100.0
	var required, satisfied int
	for _, s := range template {
		if !s.IsRequired {
			continue
		}
		required++
		if sectionText(mapped[s.ID]) != "" && !blocking[s.ID] {
			satisfied++
		}
	}
	if required > 0 {
		base = 100 * float64(satisfied) / float64(required)
	}

	penalty := critical*criticalPenalty + important*importantPenalty + minor*minorPenalty
	return clamp(int(math.Round(base)) - penalty)
}

// combineScores folds a model-reported score into the rule score. The model can
// only lower it.
func combineScores(rule int, model *float64) int {
	if model == nil || *model < 0 || *model > 100 {
		return rule
	}
	m := int(math.Round(*model))
	if m < rule {
		return m
	}
	return rule
}

// SortGaps orders gaps by severity, then by the section's display order. Stable.
func SortGaps(gaps []notes.Gap, template []notes.SectionInfo) {
	order := make(map[string]int, len(template))
	for _, s := range template {
		order[s.ID] = s.DisplayOrder
	}
	pos := func(id string) int {
		if o, ok := order[id]; ok {
			return o
		}
		return math.MaxInt
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		ri, rj := gaps[i].Severity.Rank(), gaps[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return pos(gaps[i].SectionID) < pos(gaps[j].SectionID)
	})
}

// MergeGaps unions gap lists keyed by (sectionId, gapType). Earlier lists win
// on conflict, so rule-based gaps go first.
func MergeGaps(lists ...[]notes.Gap) []notes.Gap {
	out := []notes.Gap{}
	seen := make(map[notes.GapKey]struct{})
	for _, l := range lists {
		for _, g := range l {
			if _, ok := seen[g.Key()]; ok {
				continue
			}
			seen[g.Key()] = struct{}{}
			out = append(out, g)
		}
	}
	return out
}

// Recommendations turns the final gap list into clinician-facing actions,
// followed by any model recommendations. Duplicates are dropped.
func Recommendations(gaps []notes.Gap, template []notes.SectionInfo, extra []string) []string {
	names := make(map[string]string, len(template))
	for _, s := range template {
		names[s.ID] = s.Name
	}

	byType := make(map[notes.GapType][]string)
	seen := make(map[notes.GapKey]bool)
	for _, g := range gaps {
		if seen[g.Key()] {
			continue
		}
		seen[g.Key()] = true
		name := names[g.SectionID]
		if name == "" {
			name = g.SectionID
		}
		byType[g.GapType] = append(byType[g.GapType], name)
	}

	var recs []string
	if s := byType[notes.GapMissingSafetyAssessment]; len(s) > 0 {
		recs = append(recs, "Document a risk and safety assessment for the identified risk factors before finalizing the note.")
	}
	if s := byType[notes.GapMissingRequiredSection]; len(s) > 0 {
		recs = append(recs, fmt.Sprintf("Complete the required sections: %s.", strings.Join(s, ", ")))
	}
	if s := byType[notes.GapInsufficientContent]; len(s) > 0 {
		recs = append(recs, fmt.Sprintf("Expand brief sections with clinically meaningful detail: %s.", strings.Join(s, ", ")))
	}
	if s := byType[notes.GapLowConfidence]; len(s) > 0 {
		recs = append(recs, fmt.Sprintf("Review low-confidence sections against the session: %s.", strings.Join(s, ", ")))
	}

	out := []string{}
	dup := make(map[string]bool)
	for _, r := range append(recs, extra...) {
		r = strings.TrimSpace(r)
		if r == "" || dup[r] {
			continue
		}
		dup[r] = true
		out = append(out, r)
	}
	return out
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
