// Package notes holds the data contracts shared by the mapping and gap engines
// and by the store, API and event layers around them.
package notes

// SectionInfo describes one section of the active note template.
type SectionInfo struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	IsRequired    bool   `json:"isRequired" yaml:"required"`
	DisplayOrder  int    `json:"displayOrder" yaml:"order"`
	AIPromptHints string `json:"aiPromptHints,omitempty" yaml:"hints,omitempty"`
}

// ClinicalContext is the structured extraction of a transcript. Lists keep
// order of mention and may contain duplicates.
type ClinicalContext struct {
	PresentingIssues []string `json:"presentingIssues"`
	Symptoms         []string `json:"symptoms"`
	Interventions    []string `json:"interventions"`
	Goals            []string `json:"goals"`
	RiskFactors      []string `json:"riskFactors"`
	Strengths        []string `json:"strengths"`
	EmotionalThemes  []string `json:"emotionalThemes"`
	ClientQuotes     []string `json:"clientQuotes"`
	Homework         []string `json:"homework"`
}

// ClinicalContextFields are the JSON keys of ClinicalContext.
var ClinicalContextFields = []string{
	"presentingIssues", "symptoms", "interventions", "goals", "riskFactors",
	"strengths", "emotionalThemes", "clientQuotes", "homework",
}

// Normalize replaces nil lists with empty ones so the context always
// serializes with every key present.
func (c *ClinicalContext) Normalize() {
	for _, l := range []*[]string{
		&c.PresentingIssues, &c.Symptoms, &c.Interventions, &c.Goals, &c.RiskFactors,
		&c.Strengths, &c.EmotionalThemes, &c.ClientQuotes, &c.Homework,
	} {
		if *l == nil {
			*l = []string{}
		}
	}
}

// MappedSection is the content mapped from a transcript into one template section.
type MappedSection struct {
	SectionID         string   `json:"sectionId"`
	SectionName       string   `json:"sectionName"`
	RawContent        string   `json:"rawContent"`
	ProcessedContent  string   `json:"processedContent"`
	Confidence        int      `json:"confidence"`
	ExtractedKeywords []string `json:"extractedKeywords"`
	NeedsReview       bool     `json:"needsReview"`
	ReviewReason      string   `json:"reviewReason,omitempty"`
	DisplayOrder      int      `json:"displayOrder"`
}

// Text returns the best available content: processed if present, raw otherwise.
func (m *MappedSection) Text() string {
	if m.ProcessedContent != "" {
		return m.ProcessedContent
	}
	return m.RawContent
}

// GapType tags the rule (or model) that produced a gap.
type GapType string

const (
	GapMissingRequiredSection  GapType = "missing_required_section"
	GapInsufficientContent     GapType = "insufficient_content"
	GapLowConfidence           GapType = "low_confidence"
	GapMissingSafetyAssessment GapType = "missing_safety_assessment"
	GapLLMIdentified           GapType = "llm_identified"
)

// Valid reports whether t is one of the known gap types.
func (t GapType) Valid() bool {
	switch t {
	case GapMissingRequiredSection, GapInsufficientContent, GapLowConfidence,
		GapMissingSafetyAssessment, GapLLMIdentified:
		return true
	}
	return false
}

// Severity ranks how urgently a gap must be closed before sign-off.
type Severity string

const (
	SeverityCritical  Severity = "critical"
	SeverityImportant Severity = "important"
	SeverityMinor     Severity = "minor"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s == SeverityCritical || s == SeverityImportant || s == SeverityMinor
}

// Rank orders severities: critical 0, important 1, minor 2. Unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityImportant:
		return 1
	case SeverityMinor:
		return 2
	default:
		return 3
	}
}

// Gap is a documentation gap a clinician needs to close.
type Gap struct {
	SectionID       string   `json:"sectionId"`
	GapType         GapType  `json:"gapType"`
	Severity        Severity `json:"severity"`
	PrimaryQuestion string   `json:"primaryQuestion"`
	ReviewReason    string   `json:"reviewReason,omitempty"`
}

// GapKey identifies a gap for set semantics when merging gap lists.
type GapKey struct {
	SectionID string
	GapType   GapType
}

// Key returns the merge key of g.
func (g Gap) Key() GapKey {
	return GapKey{SectionID: g.SectionID, GapType: g.GapType}
}

// SectionStatus is the display category of a scored section.
type SectionStatus string

const (
	StatusComplete    SectionStatus = "complete"
	StatusNeedsReview SectionStatus = "needs_review"
	StatusMissing     SectionStatus = "missing"
)

// SectionScore is the per-section result of gap detection.
type SectionScore struct {
	SectionID string        `json:"sectionId"`
	Score     int           `json:"score"`
	Status    SectionStatus `json:"status"`
}

// GapSummary counts gaps by severity. Always derived from a gap list.
type GapSummary struct {
	TotalGaps        int `json:"totalGaps"`
	CriticalGaps     int `json:"criticalGaps"`
	ImportantGaps    int `json:"importantGaps"`
	MinorGaps        int `json:"minorGaps"`
	SectionsWithGaps int `json:"sectionsWithGaps"`
	TotalSections    int `json:"totalSections"`
}

// Summarize derives a GapSummary from gaps over totalSections template sections.
func Summarize(gaps []Gap, totalSections int) GapSummary {
	s := GapSummary{TotalGaps: len(gaps), TotalSections: totalSections}
	seen := make(map[string]struct{})
	for _, g := range gaps {
		switch g.Severity {
		case SeverityCritical:
			s.CriticalGaps++
		case SeverityImportant:
			s.ImportantGaps++
		case SeverityMinor:
			s.MinorGaps++
		}
		seen[g.SectionID] = struct{}{}
	}
	s.SectionsWithGaps = len(seen)
	return s
}
