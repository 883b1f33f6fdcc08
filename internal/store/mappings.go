package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/scribe/internal/gaps"
	"github.com/MikeSquared-Agency/scribe/internal/mapping"
	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

// MappingRow is a stored content mapping result.
type MappingRow struct {
	ID                uuid.UUID      `json:"id"`
	SessionID         string         `json:"sessionId"`
	Success           bool           `json:"success"`
	CompletenessScore int            `json:"completenessScore"`
	NeedsReview       bool           `json:"needsReview"`
	GapCount          int            `json:"gapCount"`
	CriticalGaps      int            `json:"criticalGaps"`
	Error             string         `json:"error,omitempty"`
	Result            mapping.Result `json:"result"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// SaveMapping stores a mapping result, failed envelopes included.
func (s *Store) SaveMapping(ctx context.Context, res *mapping.Result) (uuid.UUID, error) {
	body, err := json.Marshal(res)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal mapping result: %w", err)
	}

	summary := notes.Summarize(res.Gaps, len(res.MappedSections))
	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO note_mappings (id, session_id, success, completeness_score, needs_review, gap_count, critical_gaps, error, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`,
		id, res.SessionID, res.Success, res.CompletenessScore, res.NeedsReview(),
		summary.TotalGaps, summary.CriticalGaps, nullable(res.Error), body,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert note mapping: %w", err)
	}
	return id, nil
}

// GetMapping fetches a stored mapping by id.
func (s *Store) GetMapping(ctx context.Context, id uuid.UUID) (*MappingRow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, session_id, success, completeness_score, needs_review, gap_count, critical_gaps, error, result, created_at
		FROM note_mappings WHERE id = $1`, id)
	return scanMapping(row)
}

// LatestMappingForSession fetches the most recent mapping stored for a session.
func (s *Store) LatestMappingForSession(ctx context.Context, sessionID string) (*MappingRow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, session_id, success, completeness_score, needs_review, gap_count, critical_gaps, error, result, created_at
		FROM note_mappings WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, sessionID)
	return scanMapping(row)
}

func scanMapping(row pgx.Row) (*MappingRow, error) {
	var (
		m      MappingRow
		errMsg *string
		body   []byte
	)
	err := row.Scan(&m.ID, &m.SessionID, &m.Success, &m.CompletenessScore, &m.NeedsReview,
		&m.GapCount, &m.CriticalGaps, &errMsg, &body, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan note mapping: %w", err)
	}
	if errMsg != nil {
		m.Error = *errMsg
	}
	if err := json.Unmarshal(body, &m.Result); err != nil {
		return nil, fmt.Errorf("decode note mapping %s: %w", m.ID, err)
	}
	return &m, nil
}

// SaveGapAnalysis stores a standalone gap detection result.
func (s *Store) SaveGapAnalysis(ctx context.Context, res *gaps.Result) (uuid.UUID, error) {
	body, err := json.Marshal(res)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal gap analysis: %w", err)
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO gap_analyses (id, session_id, success, completeness_score, gap_count, critical_gaps, llm_degraded, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		id, res.SessionID, res.Success, res.CompletenessScore,
		res.Summary.TotalGaps, res.Summary.CriticalGaps, res.Metrics.LLMAnalysisDegraded, body,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert gap analysis: %w", err)
	}
	return id, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
