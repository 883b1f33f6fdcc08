package gaps

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MikeSquared-Agency/scribe/internal/llm"
	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

func scoringTemplate() []notes.SectionInfo {
	return []notes.SectionInfo{
		{ID: "s1", Name: "Subjective", IsRequired: true, DisplayOrder: 1},
		{ID: "s2", Name: "Assessment", IsRequired: true, DisplayOrder: 2},
		{ID: "s3", Name: "Homework", DisplayOrder: 3},
	}
}

func fullMapping() map[string]*notes.MappedSection {
	return map[string]*notes.MappedSection{
		"s1": {SectionID: "s1", RawContent: "Client reports improved sleep this week.", Confidence: 90},
		"s2": {SectionID: "s2", RawContent: "Symptoms of GAD are decreasing.", Confidence: 85},
		"s3": {SectionID: "s3", RawContent: "Continue thought records.", Confidence: 80},
	}
}

func TestCompletenessScore_NoGapsIs100(t *testing.T) {
	if got := CompletenessScore(scoringTemplate(), fullMapping(), nil); got != 100 {
		t.Errorf("CompletenessScore = %d, want 100", got)
	}
}

func TestCompletenessScore_NoRequiredSections(t *testing.T) {
	template := []notes.SectionInfo{{ID: "s3", Name: "Homework"}}
	if got := CompletenessScore(template, map[string]*notes.MappedSection{}, nil); got != 100 {
		t.Errorf("CompletenessScore = %d, want 100", got)
	}
}

func TestCompletenessScore_Monotonic(t *testing.T) {
	template := scoringTemplate()
	mapped := fullMapping()

	severities := []notes.Severity{notes.SeverityCritical, notes.SeverityImportant, notes.SeverityMinor}
	for _, sev := range severities {
		gaps := []notes.Gap{}
		prev := CompletenessScore(template, mapped, gaps)
		for i := 0; i < 10; i++ {
			gaps = append(gaps, notes.Gap{SectionID: template[i%3].ID, GapType: notes.GapLLMIdentified, Severity: sev})
			got := CompletenessScore(template, mapped, gaps)
			if got > prev {
				t.Fatalf("%s gap %d raised the score from %d to %d", sev, i+1, prev, got)
			}
			if got < 0 || got > 100 {
				t.Fatalf("score %d out of range", got)
			}
			prev = got
		}
	}
}

func TestCompletenessScore_CriticalWeighsMore(t *testing.T) {
	template := scoringTemplate()
	mapped := fullMapping()
	critical := CompletenessScore(template, mapped, []notes.Gap{{SectionID: "s3", Severity: notes.SeverityCritical}})
	minor := CompletenessScore(template, mapped, []notes.Gap{{SectionID: "s3", Severity: notes.SeverityMinor}})
	if critical >= minor {
		t.Errorf("critical gap score %d should be below minor gap score %d", critical, minor)
	}
}

func TestCompletenessScore_MissingRequired(t *testing.T) {
	template := scoringTemplate()
	mapped := fullMapping()
	delete(mapped, "s2")
	gaps := []notes.Gap{{SectionID: "s2", GapType: notes.GapMissingRequiredSection, Severity: notes.SeverityCritical}}

	// one of two required sections satisfied, minus one critical penalty
	if got := CompletenessScore(template, mapped, gaps); got != 50-criticalPenalty {
		t.Errorf("CompletenessScore = %d, want %d", got, 50-criticalPenalty)
	}
}

func TestCombineScores(t *testing.T) {
	tests := []struct {
		name  string
		rule  int
		model *float64
		want  int
	}{
		{"no model score", 80, nil, 80},
		{"model lower", 80, llm.Temp(62.4), 62},
		{"model higher ignored", 60, llm.Temp(95), 60},
		{"model out of range ignored", 60, llm.Temp(140), 60},
		{"negative ignored", 60, llm.Temp(-1), 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := combineScores(tt.rule, tt.model); got != tt.want {
				t.Errorf("combineScores = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreSection(t *testing.T) {
	section := notes.SectionInfo{ID: "s1", Name: "Assessment", IsRequired: true}

	missing := ScoreSection(section, nil, nil, 70)
	if missing.Status != notes.StatusMissing || missing.Score != 0 {
		t.Errorf("missing section scored %+v", missing)
	}

	content := &notes.MappedSection{SectionID: "s1", RawContent: "Symptoms of GAD are decreasing.", Confidence: 90}
	complete := ScoreSection(section, content, nil, 70)
	if complete.Status != notes.StatusComplete || complete.Score != 90 {
		t.Errorf("clean section scored %+v", complete)
	}

	gaps := []notes.Gap{{SectionID: "s1", GapType: notes.GapLLMIdentified, Severity: notes.SeverityImportant}}
	review := ScoreSection(section, content, gaps, 70)
	if review.Status != notes.StatusNeedsReview || review.Score != 90-sectionImportantPenalty {
		t.Errorf("section with gap scored %+v", review)
	}

	flagged := *content
	flagged.NeedsReview = true
	if got := ScoreSection(section, &flagged, nil, 70); got.Status != notes.StatusNeedsReview {
		t.Errorf("flagged section status = %q, want needs_review", got.Status)
	}
}

func TestSortGaps(t *testing.T) {
	template := scoringTemplate()
	gaps := []notes.Gap{
		{SectionID: "s3", GapType: notes.GapLowConfidence, Severity: notes.SeverityMinor},
		{SectionID: "s2", GapType: notes.GapInsufficientContent, Severity: notes.SeverityImportant},
		{SectionID: "s2", GapType: notes.GapMissingSafetyAssessment, Severity: notes.SeverityCritical},
		{SectionID: "s1", GapType: notes.GapLowConfidence, Severity: notes.SeverityImportant},
		{SectionID: "s1", GapType: notes.GapMissingRequiredSection, Severity: notes.SeverityCritical},
	}
	SortGaps(gaps, template)

	var got []string
	for _, g := range gaps {
		got = append(got, g.SectionID+"/"+string(g.Severity))
	}
	want := []string{"s1/critical", "s2/critical", "s1/important", "s2/important", "s3/minor"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SortGaps order mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeGaps_RuleWins(t *testing.T) {
	rule := []notes.Gap{{SectionID: "s1", GapType: notes.GapLowConfidence, Severity: notes.SeverityMinor, PrimaryQuestion: "rule"}}
	model := []notes.Gap{
		{SectionID: "s1", GapType: notes.GapLowConfidence, Severity: notes.SeverityCritical, PrimaryQuestion: "model"},
		{SectionID: "s2", GapType: notes.GapLLMIdentified, Severity: notes.SeverityMinor, PrimaryQuestion: "extra"},
	}

	got := MergeGaps(rule, model)
	if len(got) != 2 {
		t.Fatalf("expected 2 merged gaps, got %+v", got)
	}
	if got[0].PrimaryQuestion != "rule" {
		t.Errorf("rule gap should win on conflict, got %+v", got[0])
	}

	again := MergeGaps(got, model)
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("merge not idempotent (-first +second):\n%s", diff)
	}
}

func TestRecommendations(t *testing.T) {
	template := scoringTemplate()
	gaps := []notes.Gap{
		{SectionID: "s1", GapType: notes.GapMissingRequiredSection, Severity: notes.SeverityCritical},
		{SectionID: "s2", GapType: notes.GapMissingRequiredSection, Severity: notes.SeverityCritical},
	}
	got := Recommendations(gaps, template, []string{"Add measurable goals.", " ", "Add measurable goals."})
	want := []string{
		"Complete the required sections: Subjective, Assessment.",
		"Add measurable goals.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recommendations mismatch (-want +got):\n%s", diff)
	}

	if got := Recommendations(nil, template, nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil recommendations, got %#v", got)
	}
}
