package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/scribe/internal/gaps"
	"github.com/MikeSquared-Agency/scribe/internal/llm/llmtest"
	"github.com/MikeSquared-Agency/scribe/internal/mapping"
	"github.com/MikeSquared-Agency/scribe/internal/notes"
	"github.com/MikeSquared-Agency/scribe/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mappings map[uuid.UUID]*store.MappingRow
	gapSaves int
	getErr   error
	pingErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{mappings: map[uuid.UUID]*store.MappingRow{}}
}

func (f *fakeStore) SaveMapping(_ context.Context, res *mapping.Result) (uuid.UUID, error) {
	id := uuid.New()
	f.mappings[id] = &store.MappingRow{ID: id, SessionID: res.SessionID, Success: res.Success, Result: *res}
	return id, nil
}

func (f *fakeStore) GetMapping(_ context.Context, id uuid.UUID) (*store.MappingRow, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	row, ok := f.mappings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return row, nil
}

func (f *fakeStore) SaveGapAnalysis(_ context.Context, _ *gaps.Result) (uuid.UUID, error) {
	f.gapSaves++
	return uuid.New(), nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

func newTestServer(fake *llmtest.Fake, token string, st Store) *Server {
	engine := mapping.New(fake, nil, mapping.Config{DefaultModel: "test-model"}, discardLogger())
	return NewServer(8760, token, engine, st, discardLogger())
}

func do(t *testing.T, srv *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			r = strings.NewReader(s)
		} else {
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatal(err)
			}
			r = bytes.NewReader(b)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(llmtest.New(), "", nil)
	w := do(t, srv, "GET", "/health", nil, "")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(llmtest.New(), "", newFakeStore())
	w := do(t, srv, "GET", "/api/v1/scribe/status", nil, "")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "scribe" {
		t.Errorf("expected agent scribe, got %q", body["agent"])
	}
	if body["persistence"] != "enabled" {
		t.Errorf("expected persistence enabled, got %q", body["persistence"])
	}
}

func TestStatusEndpoint_Persistence(t *testing.T) {
	down := newFakeStore()
	down.pingErr = errors.New("connection refused")

	tests := []struct {
		name string
		st   Store
		want string
	}{
		{"disabled", nil, "disabled"},
		{"unreachable", down, "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newTestServer(llmtest.New(), "", tt.st), "GET", "/api/v1/scribe/status", nil, "")
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body["persistence"] != tt.want {
				t.Errorf("persistence = %q, want %q", body["persistence"], tt.want)
			}
		})
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(llmtest.New(), "", nil)
	if w := do(t, srv, "GET", "/nonexistent", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(llmtest.New(), "secret", nil)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "guess", http.StatusUnauthorized},
		{"valid", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, srv, "GET", "/api/v1/notes/llm/health", nil, tt.token); w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}

	if w := do(t, srv, "GET", "/health", nil, ""); w.Code != http.StatusOK {
		t.Errorf("health must stay public, got %d", w.Code)
	}
}

func TestMapEndpoint(t *testing.T) {
	fake := llmtest.New(
		llmtest.Text(`{"presentingIssues":["anxiety"]}`),
		llmtest.Text(`{"sections":[{"sectionId":"s1","rawContent":"Patient reports anxiety.","confidence":85}]}`),
	)
	st := newFakeStore()
	srv := newTestServer(fake, "", st)

	body := `{
		"sessionId": "sess-1",
		"transcription": "Patient reports anxiety.",
		"sections": [{"id": "s1", "name": "Assessment", "isRequired": true}],
		"options": {"enableRewriting": false, "enableGapAnalysis": false}
	}`
	w := do(t, srv, "POST", "/api/v1/notes/map", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res mapping.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !res.Success || len(res.MappedSections) != 1 || res.CompletenessScore != 100 {
		t.Errorf("unexpected result %+v", res)
	}

	id, err := uuid.Parse(w.Header().Get("X-Mapping-Id"))
	if err != nil {
		t.Fatalf("expected mapping id header: %v", err)
	}
	if _, ok := st.mappings[id]; !ok {
		t.Error("mapping should be persisted")
	}

	w = do(t, srv, "GET", "/api/v1/notes/mappings/"+id.String(), nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for stored mapping, got %d", w.Code)
	}
	var row store.MappingRow
	if err := json.NewDecoder(w.Body).Decode(&row); err != nil {
		t.Fatalf("failed to decode mapping row: %v", err)
	}
	if row.SessionID != "sess-1" {
		t.Errorf("expected session sess-1, got %q", row.SessionID)
	}
}

func TestMapEndpoint_FailedEnvelope(t *testing.T) {
	srv := newTestServer(llmtest.New(llmtest.Fail("upstream 529")), "", nil)
	w := do(t, srv, "POST", "/api/v1/notes/map", MapRequest{
		Request: mapping.Request{SessionID: "s", Sections: []notes.SectionInfo{{ID: "a", Name: "A"}}},
	}, "")

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var res mapping.Result
	json.NewDecoder(w.Body).Decode(&res)
	if res.Success || !strings.Contains(res.Error, "upstream 529") {
		t.Errorf("unexpected envelope %+v", res)
	}
}

func TestMapEndpoint_BadJSON(t *testing.T) {
	srv := newTestServer(llmtest.New(), "", nil)
	w := do(t, srv, "POST", "/api/v1/notes/map", "{not json", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["error"] == "" {
		t.Error("expected JSON error body")
	}
}

func TestGapsEndpoint(t *testing.T) {
	st := newFakeStore()
	srv := newTestServer(llmtest.New(), "", st)

	f := false
	w := do(t, srv, "POST", "/api/v1/notes/gaps", GapsRequest{
		Request: gaps.Request{
			SessionID: "sess-g",
			TemplateSections: []notes.SectionInfo{
				{ID: "assessment", Name: "Assessment", IsRequired: true, DisplayOrder: 1},
			},
		},
		Options: &gaps.Options{EnableLLMAnalysis: &f},
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res gaps.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if res.Summary.CriticalGaps != 1 || res.Gaps[0].GapType != notes.GapMissingRequiredSection {
		t.Errorf("expected one missing section gap, got %+v", res.Gaps)
	}
	if st.gapSaves != 1 {
		t.Errorf("expected gap analysis persisted once, got %d", st.gapSaves)
	}

	w = do(t, srv, "POST", "/api/v1/notes/gaps", GapsRequest{}, "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty template should be 422, got %d", w.Code)
	}
}

func TestSectionEndpoint(t *testing.T) {
	srv := newTestServer(llmtest.New(), "", nil)

	w := do(t, srv, "POST", "/api/v1/notes/gaps/section", SectionRequest{
		Section: notes.SectionInfo{ID: "plan", Name: "Plan", IsRequired: true},
		Content: &notes.MappedSection{SectionID: "plan", RawContent: "Continue weekly CBT sessions.", Confidence: 60},
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		SectionID string      `json:"sectionId"`
		Gaps      []notes.Gap `json:"gaps"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Gaps) != 1 || body.Gaps[0].GapType != notes.GapLowConfidence {
		t.Errorf("expected a low confidence gap, got %+v", body.Gaps)
	}

	threshold := 50
	w = do(t, srv, "POST", "/api/v1/notes/gaps/section", SectionRequest{
		Section:             notes.SectionInfo{ID: "plan", Name: "Plan"},
		Content:             &notes.MappedSection{SectionID: "plan", RawContent: "Continue weekly CBT sessions.", Confidence: 60},
		ConfidenceThreshold: &threshold,
	}, "")
	json.NewDecoder(w.Body).Decode(&body)
	if len(body.Gaps) != 0 {
		t.Errorf("threshold override should clear the gap, got %+v", body.Gaps)
	}

	if w := do(t, srv, "POST", "/api/v1/notes/gaps/section", `{"section":{}}`, ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing section id should be 400, got %d", w.Code)
	}
}

func TestLLMHealthEndpoint(t *testing.T) {
	fake := llmtest.New()
	srv := newTestServer(fake, "", nil)

	check := func(want bool) {
		t.Helper()
		w := do(t, srv, "GET", "/api/v1/notes/llm/health", nil, "")
		var body map[string]bool
		json.NewDecoder(w.Body).Decode(&body)
		if body["available"] != want {
			t.Errorf("expected available=%v, got %v", want, body["available"])
		}
	}
	check(true)
	fake.HealthErr = errors.New("no route to host")
	check(false)
}

func TestGetMapping_Errors(t *testing.T) {
	srv := newTestServer(llmtest.New(), "", nil)
	if w := do(t, srv, "GET", "/api/v1/notes/mappings/not-a-uuid", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", w.Code)
	}
	if w := do(t, srv, "GET", "/api/v1/notes/mappings/"+uuid.NewString(), nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without store, got %d", w.Code)
	}

	st := newFakeStore()
	srv = newTestServer(llmtest.New(), "", st)
	if w := do(t, srv, "GET", "/api/v1/notes/mappings/"+uuid.NewString(), nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown id, got %d", w.Code)
	}
	st.getErr = errors.New("pool closed")
	if w := do(t, srv, "GET", "/api/v1/notes/mappings/"+uuid.NewString(), nil, ""); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on store error, got %d", w.Code)
	}
}
