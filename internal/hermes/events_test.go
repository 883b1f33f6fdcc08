package hermes

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSessionTranscribedEventParsing(t *testing.T) {
	raw := `{
		"session_id": "sess-001",
		"transcription": "Client: I haven't slept well since the move.",
		"sections": [
			{"id": "subjective", "name": "Subjective", "isRequired": true, "displayOrder": 1}
		],
		"patient_context": "42yo, GAD, session 6",
		"options": {"enableRewriting": false, "confidenceThreshold": 80}
	}`

	var evt SessionTranscribedEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("failed to parse SessionTranscribedEvent: %v", err)
	}

	if evt.SessionID != "sess-001" {
		t.Errorf("expected session_id 'sess-001', got '%s'", evt.SessionID)
	}
	if len(evt.Sections) != 1 || !evt.Sections[0].IsRequired {
		t.Errorf("expected one required section, got %+v", evt.Sections)
	}
	if evt.PatientContext != "42yo, GAD, session 6" {
		t.Errorf("unexpected patient_context %q", evt.PatientContext)
	}
	if evt.Options == nil || evt.Options.EnableRewriting == nil || *evt.Options.EnableRewriting {
		t.Errorf("expected enableRewriting=false, got %+v", evt.Options)
	}
	if evt.Options.EnableGapAnalysis != nil {
		t.Error("unset options should stay nil")
	}
	if evt.Options.ConfidenceThreshold == nil || *evt.Options.ConfidenceThreshold != 80 {
		t.Errorf("expected threshold 80, got %+v", evt.Options.ConfidenceThreshold)
	}
}

func TestSessionTranscribedEventByTemplate(t *testing.T) {
	var evt SessionTranscribedEvent
	if err := json.Unmarshal([]byte(`{"session_id":"s","transcription":"t","template_id":"soap"}`), &evt); err != nil {
		t.Fatal(err)
	}
	if evt.TemplateID != "soap" || evt.Sections != nil || evt.Options != nil {
		t.Errorf("unexpected event %+v", evt)
	}
}

func TestRegistration(t *testing.T) {
	reg := Registration("1.2.3")
	if reg.AgentID != "scribe" || reg.Version != "1.2.3" {
		t.Errorf("unexpected registration %+v", reg)
	}
	if diff := cmp.Diff([]string{SubjectSessionTranscribed}, reg.Subscribes); diff != "" {
		t.Errorf("subscribes mismatch (-want +got):\n%s", diff)
	}
	if len(reg.Publishes) != 3 {
		t.Errorf("expected 3 published subjects, got %v", reg.Publishes)
	}
}

func TestSubjectConstants(t *testing.T) {
	subjects := map[string]string{
		SubjectSessionTranscribed:    "scribe.session.transcribed",
		SubjectNoteMapped:            "scribe.note.mapped",
		SubjectNoteReviewRecommended: "scribe.note.review_recommended",
		SubjectNoteFailed:            "scribe.note.failed",
		SubjectAgentRegistered:       "swarm.agent.scribe.registered",
	}
	for got, want := range subjects {
		if got != want {
			t.Errorf("expected subject %q, got %q", want, got)
		}
	}
}
