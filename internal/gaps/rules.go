package gaps

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

// safetyLanguage matches wording that shows a risk or safety assessment was documented.
var safetyLanguage = regexp.MustCompile(`(?i)\b(safety|risk assessment|risk level|suicid\w*|self[- ]?harm\w*|harm to (self|others)|homicid\w*|ideation|crisis plan|denie[sd] (si|hi)\b|no (si|hi)\b|means restriction|protective factors)`)

// AnalyzeSection applies the per-section rules to one template section and its
// mapped content (nil when nothing was mapped). It performs no I/O.
func AnalyzeSection(section notes.SectionInfo, content *notes.MappedSection, th Thresholds) []notes.Gap {
	gaps := []notes.Gap{}

	// Empty sections get at most missing_required_section; confidence is not
	// judged when there is nothing to be confident about.
	text := sectionText(content)
	if text == "" {
		if section.IsRequired {
			gaps = append(gaps, notes.Gap{
				SectionID:       section.ID,
				GapType:         notes.GapMissingRequiredSection,
				Severity:        notes.SeverityCritical,
				PrimaryQuestion: missingQuestion(section),
				ReviewReason:    fmt.Sprintf("required section %q has no content", section.Name),
			})
		}
		return gaps
	}

	if n := utf8.RuneCountInString(text); n < th.MinContentLength {
		gaps = append(gaps, notes.Gap{
			SectionID:       section.ID,
			GapType:         notes.GapInsufficientContent,
			Severity:        notes.SeverityImportant,
			PrimaryQuestion: fmt.Sprintf("Can you expand on the %s section? The current content is too brief to be clinically meaningful.", section.Name),
			ReviewReason:    fmt.Sprintf("content is %d characters, minimum is %d", n, th.MinContentLength),
		})
	}

	if content.Confidence < th.Confidence {
		gaps = append(gaps, notes.Gap{
			SectionID:       section.ID,
			GapType:         notes.GapLowConfidence,
			Severity:        lowConfidenceSeverity(th.Confidence - content.Confidence),
			PrimaryQuestion: fmt.Sprintf("Does the %s section accurately reflect what happened in the session?", section.Name),
			ReviewReason:    fmt.Sprintf("mapping confidence %d is below the threshold %d", content.Confidence, th.Confidence),
		})
	}

	return gaps
}

// lowConfidenceSeverity scales with how far confidence fell below the threshold.
func lowConfidenceSeverity(deficit int) notes.Severity {
	switch {
	case deficit >= 40:
		return notes.SeverityCritical
	case deficit >= 20:
		return notes.SeverityImportant
	default:
		return notes.SeverityMinor
	}
}

func missingQuestion(section notes.SectionInfo) string {
	q := fmt.Sprintf("What should be documented in the required %s section?", section.Name)
	switch {
	case section.AIPromptHints != "":
		q += " Consider: " + section.AIPromptHints
	case section.Description != "":
		q += " Expected: " + section.Description
	}
	return q
}

// sectionText is the trimmed raw content, falling back to processed content.
func sectionText(content *notes.MappedSection) string {
	if content == nil {
		return ""
	}
	if t := strings.TrimSpace(content.RawContent); t != "" {
		return t
	}
	return strings.TrimSpace(content.ProcessedContent)
}

// HasSafetyLanguage reports whether text documents a risk or safety assessment.
func HasSafetyLanguage(text string) bool {
	return safetyLanguage.MatchString(text)
}

// safetyGap checks the whole request: identified risk factors require safety
// language somewhere in the note. Returns nil when the check passes.
func safetyGap(template []notes.SectionInfo, mapped map[string]*notes.MappedSection, cc *notes.ClinicalContext) *notes.Gap {
	if cc == nil || len(cc.RiskFactors) == 0 || len(template) == 0 {
		return nil
	}
	for _, m := range mapped {
		if HasSafetyLanguage(m.RawContent) || HasSafetyLanguage(m.ProcessedContent) {
			return nil
		}
	}

	target := safetySection(template)
	return &notes.Gap{
		SectionID:       target.ID,
		GapType:         notes.GapMissingSafetyAssessment,
		Severity:        notes.SeverityCritical,
		PrimaryQuestion: fmt.Sprintf("Risk factors were identified (%s). Was a safety assessment completed, including suicidal or homicidal ideation and any safety plan?", strings.Join(cc.RiskFactors, "; ")),
		ReviewReason:    "risk factors identified but no section documents a safety assessment",
	}
}

// safetySection picks where a safety gap belongs: a risk/safety section if the
// template has one, else the first required section, else the first section.
func safetySection(template []notes.SectionInfo) notes.SectionInfo {
	ordered := make([]notes.SectionInfo, len(template))
	copy(ordered, template)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].DisplayOrder < ordered[j].DisplayOrder })

	for _, s := range ordered {
		name := strings.ToLower(s.Name + " " + s.ID)
		if strings.Contains(name, "risk") || strings.Contains(name, "safety") {
			return s
		}
	}
	for _, s := range ordered {
		if s.IsRequired {
			return s
		}
	}
	return ordered[0]
}
