// Package slack posts review notices for mapped notes to a Slack channel.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/mapping"
	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// maxListedGaps caps how many gaps one notice spells out.
const maxListedGaps = 5

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostReviewNotice tells the review channel that a mapped note needs a
// clinician's attention. Returns the message timestamp.
func (p *Poster) PostReviewNotice(ctx context.Context, res *mapping.Result, mappingID string) (string, error) {
	text := formatReviewNotice(res, mappingID)
	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{"type": "section", "text": map[string]any{"type": "mrkdwn", "text": text}},
		},
	})
	if err != nil {
		return "", err
	}
	p.logger.Info("posted review notice to slack", "ts", ts, "session_id", res.SessionID)
	return ts, nil
}

// post sends one chat.postMessage call and returns the message timestamp.
func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("parse slack response (status %d): %w", resp.StatusCode, err)
	}
	if !out.OK {
		return "", fmt.Errorf("slack error: %s", out.Error)
	}
	return out.TS, nil
}

func formatReviewNotice(res *mapping.Result, mappingID string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Note ready for review:* session %s\n", res.SessionID)
	if mappingID != "" {
		fmt.Fprintf(&sb, "*Mapping:* %s\n", mappingID)
	}
	fmt.Fprintf(&sb, "*Completeness:* %d/100\n", res.CompletenessScore)

	var flagged []string
	for _, s := range res.MappedSections {
		if s.NeedsReview {
			flagged = append(flagged, s.SectionName)
		}
	}
	if len(flagged) > 0 {
		fmt.Fprintf(&sb, "*Sections flagged:* %s\n", strings.Join(flagged, ", "))
	}
	if res.Metrics.RewriteDegraded || res.Metrics.GapAnalysisDegraded {
		sb.WriteString("_Some processing stages were skipped after model errors._\n")
	}

	if len(res.Gaps) > 0 {
		summary := notes.Summarize(res.Gaps, len(res.MappedSections))
		fmt.Fprintf(&sb, "\n*Gaps found: %d* (%d critical)\n", summary.TotalGaps, summary.CriticalGaps)
		for i, g := range res.Gaps {
			if i == maxListedGaps {
				fmt.Fprintf(&sb, "...and %d more\n", len(res.Gaps)-maxListedGaps)
				break
			}
			fmt.Fprintf(&sb, "%d. [%s] %s: %s\n", i+1, g.Severity, g.SectionID, g.PrimaryQuestion)
		}
	}

	return sb.String()
}
