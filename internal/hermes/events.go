package hermes

import (
	"github.com/MikeSquared-Agency/scribe/internal/mapping"
	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

const (
	// SubjectSessionTranscribed carries finished transcripts into scribe.
	SubjectSessionTranscribed = "scribe.session.transcribed"
	// SubjectNoteMapped announces a successful mapping.
	SubjectNoteMapped = "scribe.note.mapped"
	// SubjectNoteReviewRecommended flags a note a clinician should review before signing.
	SubjectNoteReviewRecommended = "scribe.note.review_recommended"
	// SubjectNoteFailed reports a mapping that could not be produced.
	SubjectNoteFailed = "scribe.note.failed"
	// SubjectAgentRegistered announces scribe on the swarm bus.
	SubjectAgentRegistered = "swarm.agent.scribe.registered"
)

// SessionTranscribedEvent asks scribe to map a transcript. Sections are given
// inline or looked up by TemplateID.
type SessionTranscribedEvent struct {
	SessionID      string              `json:"session_id"`
	Transcription  string              `json:"transcription"`
	TemplateID     string              `json:"template_id,omitempty"`
	Sections       []notes.SectionInfo `json:"sections,omitempty"`
	PatientContext string              `json:"patient_context,omitempty"`
	Options        *mapping.Options    `json:"options,omitempty"`
}

// NoteMappedEvent is published on SubjectNoteMapped and, when review is
// recommended, on SubjectNoteReviewRecommended.
type NoteMappedEvent struct {
	SessionID         string   `json:"session_id"`
	MappingID         string   `json:"mapping_id,omitempty"`
	CompletenessScore int      `json:"completeness_score"`
	GapCount          int      `json:"gap_count"`
	CriticalGaps      int      `json:"critical_gaps"`
	ReviewRecommended bool     `json:"review_recommended"`
	Recommendations   []string `json:"recommendations,omitempty"`
}

// NoteFailedEvent is published on SubjectNoteFailed.
type NoteFailedEvent struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

// AgentRegisteredEvent is published once at startup.
type AgentRegisteredEvent struct {
	AgentID      string   `json:"agent_id"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
	Subscribes   []string `json:"subscribes"`
	Publishes    []string `json:"publishes"`
}

// Registration describes what scribe consumes and produces.
func Registration(version string) AgentRegisteredEvent {
	return AgentRegisteredEvent{
		AgentID:      "scribe",
		Version:      version,
		Capabilities: []string{"content_mapping", "gap_detection"},
		Subscribes:   []string{SubjectSessionTranscribed},
		Publishes:    []string{SubjectNoteMapped, SubjectNoteReviewRecommended, SubjectNoteFailed},
	}
}
