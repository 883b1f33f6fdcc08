package gaps

import (
	"errors"

	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

const (
	defaultConfidenceThreshold = 70
	defaultMinContentLength    = 10
	defaultMaxTokens           = 4096
)

// ErrInvalidRequest marks caller errors in a gap detection request.
var ErrInvalidRequest = errors.New("invalid gap detection request")

// Config holds the engine defaults, fixed at construction.
type Config struct {
	DefaultModel        string
	DefaultTemperature  float64
	ConfidenceThreshold int
	MinContentLength    int
	MaxTokens           int
}

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if c.MinContentLength <= 0 {
		c.MinContentLength = defaultMinContentLength
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	return c
}

// Request is the input to DetectGaps.
type Request struct {
	SessionID        string                 `json:"sessionId"`
	TemplateSections []notes.SectionInfo    `json:"templateSections"`
	MappedSections   []notes.MappedSection  `json:"mappedSections"`
	ClinicalContext  *notes.ClinicalContext `json:"clinicalContext,omitempty"`
}

// Options tune one DetectGaps call. Nil fields take the engine defaults.
type Options struct {
	EnableLLMAnalysis   *bool    `json:"enableLLMAnalysis,omitempty"`
	Model               string   `json:"model,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
	ConfidenceThreshold *int     `json:"confidenceThreshold,omitempty"`
	EnforceSafetyChecks *bool    `json:"enforceSafetyChecks,omitempty"`
}

// Thresholds are the numeric limits the section rules compare against.
type Thresholds struct {
	Confidence       int
	MinContentLength int
}

// Metrics describe how a DetectGaps call spent its time.
type Metrics struct {
	RuleAnalysisTimeMs    int64  `json:"ruleAnalysisTimeMs"`
	LLMAnalysisTimeMs     int64  `json:"llmAnalysisTimeMs"`
	TotalProcessingTimeMs int64  `json:"totalProcessingTimeMs"`
	LLMCallCount          int    `json:"llmCallCount"`
	ModelUsed             string `json:"modelUsed"`
	LLMAnalysisDegraded   bool   `json:"llmAnalysisDegraded"`
}

// Result is the gap detection envelope.
type Result struct {
	Success           bool                 `json:"success"`
	SessionID         string               `json:"sessionId"`
	Gaps              []notes.Gap          `json:"gaps"`
	SectionScores     []notes.SectionScore `json:"sectionScores"`
	Summary           notes.GapSummary     `json:"summary"`
	CompletenessScore int                  `json:"completenessScore"`
	Recommendations   []string             `json:"recommendations"`
	Metrics           Metrics              `json:"metrics"`
	Error             string               `json:"error,omitempty"`
}

type resolvedOptions struct {
	llmAnalysis bool
	safety      bool
	model       string
	temperature float64
	thresholds  Thresholds
}

func (c Config) resolve(opts *Options) resolvedOptions {
	r := resolvedOptions{
		llmAnalysis: true,
		safety:      true,
		model:       c.DefaultModel,
		temperature: c.DefaultTemperature,
		thresholds: Thresholds{
			Confidence:       c.ConfidenceThreshold,
			MinContentLength: c.MinContentLength,
		},
	}
	if opts == nil {
		return r
	}
	if opts.EnableLLMAnalysis != nil {
		r.llmAnalysis = *opts.EnableLLMAnalysis
	}
	if opts.EnforceSafetyChecks != nil {
		r.safety = *opts.EnforceSafetyChecks
	}
	if opts.Model != "" {
		r.model = opts.Model
	}
	if opts.Temperature != nil {
		r.temperature = *opts.Temperature
	}
	if opts.ConfidenceThreshold != nil {
		r.thresholds.Confidence = *opts.ConfidenceThreshold
	}
	return r
}
