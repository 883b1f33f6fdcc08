package mapping

import (
	"encoding/json"
	"errors"

	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

const (
	defaultConfidenceThreshold = 70
	defaultMaxTokens           = 8192
)

var (
	// ErrInvalidRequest marks caller errors in a mapping request.
	ErrInvalidRequest = errors.New("invalid mapping request")
	// ErrNoClient is reported by an engine built without a language model.
	ErrNoClient = errors.New("no language model client configured")
)

// Config holds the engine defaults, fixed at construction.
type Config struct {
	DefaultModel        string
	DefaultTemperature  float64
	ConfidenceThreshold int
	MaxTokens           int
}

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	return c
}

// Request is the input to MapContent.
type Request struct {
	SessionID      string              `json:"sessionId"`
	Transcription  string              `json:"transcription"`
	Sections       []notes.SectionInfo `json:"sections"`
	PatientContext string              `json:"patientContext,omitempty"`
}

// Options tune one MapContent call. Nil fields take the engine defaults.
type Options struct {
	Model               string   `json:"model,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
	EnableRewriting     *bool    `json:"enableRewriting,omitempty"`
	EnableGapAnalysis   *bool    `json:"enableGapAnalysis,omitempty"`
	ConfidenceThreshold *int     `json:"confidenceThreshold,omitempty"`
}

// Metrics describe how a MapContent call spent its time.
type Metrics struct {
	ExtractionTimeMs      int64  `json:"extractionTimeMs"`
	MappingTimeMs         int64  `json:"mappingTimeMs"`
	RewriteTimeMs         int64  `json:"rewriteTimeMs"`
	GapAnalysisTimeMs     int64  `json:"gapAnalysisTimeMs"`
	TotalProcessingTimeMs int64  `json:"totalProcessingTimeMs"`
	LLMCallCount          int    `json:"llmCallCount"`
	ModelUsed             string `json:"modelUsed"`
	RewriteDegraded       bool   `json:"rewriteDegraded"`
	GapAnalysisDegraded   bool   `json:"gapAnalysisDegraded"`
}

// Result is the content mapping envelope.
type Result struct {
	Success           bool                  `json:"success"`
	SessionID         string                `json:"sessionId"`
	MappedSections    []notes.MappedSection `json:"mappedSections"`
	ClinicalContext   notes.ClinicalContext `json:"clinicalContext"`
	Gaps              []notes.Gap           `json:"gaps"`
	CompletenessScore int                   `json:"completenessScore"`
	Recommendations   []string              `json:"recommendations"`
	Metrics           Metrics               `json:"metrics"`
	Error             string                `json:"error,omitempty"`
}

// NeedsReview reports whether a clinician should look at the note before
// finalizing it: any gap, any flagged section, or a degraded stage.
func (r *Result) NeedsReview() bool {
	if len(r.Gaps) > 0 || r.Metrics.RewriteDegraded || r.Metrics.GapAnalysisDegraded {
		return true
	}
	for _, s := range r.MappedSections {
		if s.NeedsReview {
			return true
		}
	}
	return false
}

type resolvedOptions struct {
	model       string
	temperature float64
	rewrite     bool
	gapAnalysis bool
	threshold   int
}

func (c Config) resolve(opts *Options) resolvedOptions {
	r := resolvedOptions{
		model:       c.DefaultModel,
		temperature: c.DefaultTemperature,
		rewrite:     true,
		gapAnalysis: true,
		threshold:   c.ConfidenceThreshold,
	}
	if opts == nil {
		return r
	}
	if opts.Model != "" {
		r.model = opts.Model
	}
	if opts.Temperature != nil {
		r.temperature = *opts.Temperature
	}
	if opts.EnableRewriting != nil {
		r.rewrite = *opts.EnableRewriting
	}
	if opts.EnableGapAnalysis != nil {
		r.gapAnalysis = *opts.EnableGapAnalysis
	}
	if opts.ConfidenceThreshold != nil {
		r.threshold = *opts.ConfidenceThreshold
	}
	return r
}

// extractionResponse is the stage 1 document. It must carry at least one of
// the clinical context fields; anything else is not an extraction.
type extractionResponse struct {
	notes.ClinicalContext
	fields int
}

func (r *extractionResponse) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.fields = 0
	for _, k := range notes.ClinicalContextFields {
		if _, ok := doc[k]; ok {
			r.fields++
		}
	}
	return json.Unmarshal(data, &r.ClinicalContext)
}

func (r *extractionResponse) Validate() error {
	if r.fields == 0 {
		return errors.New("extraction has none of the clinical context fields")
	}
	return nil
}

// mappingResponse is the stage 2 document.
type mappingResponse struct {
	Sections []mappedItem `json:"sections" jsonschema:"description=One entry per template section"`
}

type mappedItem struct {
	SectionID         string   `json:"sectionId"`
	RawContent        string   `json:"rawContent" jsonschema:"description=Content from the transcript that belongs in this section"`
	Confidence        int      `json:"confidence" jsonschema:"minimum=0,maximum=100"`
	ExtractedKeywords []string `json:"extractedKeywords"`
	NeedsReview       bool     `json:"needsReview"`
	ReviewReason      string   `json:"reviewReason,omitempty"`
}

func (m *mappingResponse) Validate() error {
	if m.Sections == nil {
		return errors.New("mapping response has no sections array")
	}
	return nil
}

// rewriteResponse is the stage 3 document.
type rewriteResponse struct {
	Sections []rewrittenItem `json:"sections"`
}

type rewrittenItem struct {
	SectionID         string   `json:"sectionId"`
	ProcessedContent  string   `json:"processedContent" jsonschema:"description=The section rewritten in professional clinical language"`
	ClinicalTermsUsed []string `json:"clinicalTermsUsed"`
}

func (r *rewriteResponse) Validate() error {
	if r.Sections == nil {
		return errors.New("rewrite response has no sections array")
	}
	return nil
}
