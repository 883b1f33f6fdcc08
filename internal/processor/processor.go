// Package processor turns transcript events from the bus into mapped notes.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/scribe/internal/hermes"
	"github.com/MikeSquared-Agency/scribe/internal/mapping"
	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

// DefaultTimeout bounds one transcript's trip through the pipeline.
const DefaultTimeout = 5 * time.Minute

// Mapper runs the content mapping pipeline.
type Mapper interface {
	MapContent(ctx context.Context, req mapping.Request, opts *mapping.Options) mapping.Result
}

// Publisher sends events to the bus.
type Publisher interface {
	Publish(subject string, data any) error
}

// Store persists mappings and resolves templates.
type Store interface {
	SaveMapping(ctx context.Context, res *mapping.Result) (uuid.UUID, error)
	TemplateSections(ctx context.Context, templateID string) ([]notes.SectionInfo, error)
}

// Notifier tells clinicians about notes that need review.
type Notifier interface {
	PostReviewNotice(ctx context.Context, res *mapping.Result, mappingID string) (string, error)
}

// Processor orchestrates scribe's transcript processing pipeline.
type Processor struct {
	mapper  Mapper
	store   Store
	pub     Publisher
	notify  Notifier
	logger  *slog.Logger
	timeout time.Duration
}

// New builds a processor. store may be nil, in which case results are not
// persisted and events must carry their sections inline. notify may be nil.
func New(m Mapper, s Store, pub Publisher, notify Notifier, logger *slog.Logger) *Processor {
	return &Processor{
		mapper:  m,
		store:   s,
		pub:     pub,
		notify:  notify,
		logger:  logger,
		timeout: DefaultTimeout,
	}
}

// HandleTranscribed is the NATS handler for scribe.session.transcribed.
func (p *Processor) HandleTranscribed(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.Process(ctx, data)
}

// Process maps one transcript event and publishes the outcome. It never
// returns an error: every failure becomes a scribe.note.failed event.
func (p *Processor) Process(ctx context.Context, data []byte) {
	jobID := uuid.NewString()

	var evt hermes.SessionTranscribedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse transcript event", "job_id", jobID, "error", err)
		p.publishFailed("", fmt.Errorf("parse transcript event: %w", err))
		return
	}
	if evt.SessionID == "" {
		p.logger.Error("transcript event has no session id", "job_id", jobID)
		p.publishFailed("", errors.New("transcript event has no session_id"))
		return
	}

	p.logger.Info("processing transcript",
		"job_id", jobID,
		"session_id", evt.SessionID,
		"template_id", evt.TemplateID,
		"transcript_len", len(evt.Transcription),
	)

	sections, err := p.sections(ctx, evt)
	if err != nil {
		p.logger.Error("failed to resolve template", "job_id", jobID, "session_id", evt.SessionID, "error", err)
		p.publishFailed(evt.SessionID, err)
		return
	}

	res := p.mapper.MapContent(ctx, mapping.Request{
		SessionID:      evt.SessionID,
		Transcription:  evt.Transcription,
		Sections:       sections,
		PatientContext: evt.PatientContext,
	}, evt.Options)

	var mappingID string
	if p.store != nil {
		id, err := p.store.SaveMapping(ctx, &res)
		if err != nil {
			p.logger.Error("persistence failed", "job_id", jobID, "session_id", evt.SessionID, "error", err)
		} else {
			mappingID = id.String()
		}
	}

	if !res.Success {
		p.publishFailed(evt.SessionID, errors.New(res.Error))
		return
	}

	summary := notes.Summarize(res.Gaps, len(res.MappedSections))
	out := hermes.NoteMappedEvent{
		SessionID:         evt.SessionID,
		MappingID:         mappingID,
		CompletenessScore: res.CompletenessScore,
		GapCount:          summary.TotalGaps,
		CriticalGaps:      summary.CriticalGaps,
		ReviewRecommended: res.NeedsReview(),
	}
	if err := p.pub.Publish(hermes.SubjectNoteMapped, out); err != nil {
		p.logger.Error("failed to publish note mapped", "session_id", evt.SessionID, "error", err)
	}
	if out.ReviewRecommended {
		out.Recommendations = res.Recommendations
		if err := p.pub.Publish(hermes.SubjectNoteReviewRecommended, out); err != nil {
			p.logger.Error("failed to publish review recommended", "session_id", evt.SessionID, "error", err)
		}
		if p.notify != nil {
			if _, err := p.notify.PostReviewNotice(ctx, &res, mappingID); err != nil {
				p.logger.Warn("failed to post review notice", "session_id", evt.SessionID, "error", err)
			}
		}
	}

	p.logger.Info("transcript processed",
		"job_id", jobID,
		"session_id", evt.SessionID,
		"mapping_id", mappingID,
		"gaps", summary.TotalGaps,
		"review_recommended", out.ReviewRecommended,
	)
}

func (p *Processor) sections(ctx context.Context, evt hermes.SessionTranscribedEvent) ([]notes.SectionInfo, error) {
	if len(evt.Sections) > 0 {
		return evt.Sections, nil
	}
	if evt.TemplateID == "" {
		return nil, errors.New("transcript event has neither sections nor template_id")
	}
	if p.store == nil {
		return nil, fmt.Errorf("template %q requested but persistence is disabled", evt.TemplateID)
	}
	sections, err := p.store.TemplateSections(ctx, evt.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("load template %q: %w", evt.TemplateID, err)
	}
	return sections, nil
}

func (p *Processor) publishFailed(sessionID string, cause error) {
	if err := p.pub.Publish(hermes.SubjectNoteFailed, hermes.NoteFailedEvent{
		SessionID: sessionID,
		Error:     cause.Error(),
	}); err != nil {
		p.logger.Error("failed to publish note failed", "session_id", sessionID, "error", err)
	}
}
