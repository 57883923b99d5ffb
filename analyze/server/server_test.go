/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/arnavk-polka/gavin-ai/analyze/orchestrator"
	"github.com/arnavk-polka/gavin-ai/analyze/store"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// fakeSessions serves fixed snapshots. Sessions in running are not terminal.
type fakeSessions struct {
	snaps     map[string]*analyze.Snapshot
	running   map[string]bool
	latest    map[analyze.Kind]string
	started   []string
	cancelled []string
	startErr  error
}

func newFake() *fakeSessions {
	return &fakeSessions{
		snaps: map[string]*analyze.Snapshot{
			"st":   {ID: "st", Kind: analyze.KindStressTest, Status: analyze.StatusCompleted},
			"ca":   {ID: "ca", Kind: analyze.KindContentAnalysis, Status: analyze.StatusCompleted},
			"mt":   {ID: "mt", Kind: analyze.KindMultiTurn, Status: analyze.StatusFailed, Error: "bot down"},
			"busy": {ID: "busy", Kind: analyze.KindStressTest, Status: analyze.StatusTestingResponses},
		},
		running: map[string]bool{"busy": true},
		latest: map[analyze.Kind]string{
			analyze.KindStressTest: "st",
			analyze.KindMultiTurn:  "mt",
		},
	}
}

func (f *fakeSessions) start(kind analyze.Kind, payload string) (orchestrator.StartResult, error) {
	if f.startErr != nil {
		return orchestrator.StartResult{}, f.startErr
	}
	f.started = append(f.started, string(kind)+":"+payload)
	return orchestrator.StartResult{SessionID: "new", SessionName: "named", Status: "started"}, nil
}

func (f *fakeSessions) StartStressTest(_ context.Context, transcript, _ string) (orchestrator.StartResult, error) {
	return f.start(analyze.KindStressTest, transcript)
}

func (f *fakeSessions) StartContentAnalysis(_ context.Context, content, _ string) (orchestrator.StartResult, error) {
	return f.start(analyze.KindContentAnalysis, content)
}

func (f *fakeSessions) StartMultiTurn(_ context.Context, messages []analyze.Message, _ string) (orchestrator.StartResult, error) {
	for _, m := range messages {
		if m.Role == "user" {
			return f.start(analyze.KindMultiTurn, m.Content)
		}
	}
	return orchestrator.StartResult{}, orchestrator.ErrNoUserMessages
}

func (f *fakeSessions) Status(id string) (*analyze.Snapshot, bool) {
	s, ok := f.snaps[id]
	return s, ok
}

func (f *fakeSessions) Results(id string) (*analyze.Snapshot, bool) {
	s, ok := f.snaps[id]
	if !ok || f.running[id] {
		return nil, false
	}
	return s, true
}

func (f *fakeSessions) Latest(kind analyze.Kind) (string, bool) {
	id, ok := f.latest[kind]
	return id, ok
}

func (f *fakeSessions) Cancel(id string) error {
	if _, ok := f.snaps[id]; !ok {
		return orchestrator.ErrNotFound
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestLookups(t *testing.T) {
	h := New(newFake()).Handler()

	tests := []struct {
		path   string
		code   int
		wantID string
	}{
		{"/analyze/status", http.StatusOK, "st"},
		{"/analyze/status/ca", http.StatusOK, "ca"},
		{"/analyze/status/nope", http.StatusNotFound, ""},
		{"/analyze/results", http.StatusOK, "st"},
		{"/analyze/results/busy", http.StatusNotFound, ""},
		{"/analyze/results/nope", http.StatusNotFound, ""},
		{"/analyze/multi-turn/status", http.StatusOK, "mt"},
		{"/analyze/multi-turn/results/mt", http.StatusOK, "mt"},
		{"/analyze/multi-turn/results/st", http.StatusNotFound, ""},
		{"/analyze/content/status/ca", http.StatusOK, "ca"},
		{"/analyze/content/results/ca", http.StatusOK, "ca"},
		{"/analyze/content/results/st", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, body := do(t, h, http.MethodGet, tt.path, "")
			require.Equal(t, tt.code, code, body)
			if tt.wantID != "" {
				require.Equal(t, tt.wantID, body["session_id"])
			} else {
				require.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestNoLatestSession(t *testing.T) {
	f := newFake()
	delete(f.latest, analyze.KindStressTest)
	code, _ := do(t, New(f).Handler(), http.MethodGet, "/analyze/status", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestStart(t *testing.T) {
	f := newFake()
	h := New(f).Handler()
	long := strings.Repeat("parachain ", MinContentWords)

	tests := []struct {
		name, path, body string
		code             int
	}{
		{"transcript", "/analyze/start", `{"transcript":"Q: hi A: hello"}`, http.StatusOK},
		{"empty transcript", "/analyze/start", `{"transcript":"  "}`, http.StatusBadRequest},
		{"bad json", "/analyze/start", `{`, http.StatusBadRequest},
		{"content", "/analyze/content", `{"text":"` + long + `"}`, http.StatusOK},
		{"short content", "/analyze/content", `{"text":"too short"}`, http.StatusBadRequest},
		{"no content", "/analyze/content", `{"text":""}`, http.StatusBadRequest},
		{"multi-turn", "/analyze/multi-turn/start", `{"messages":[{"role":"user","content":"hi"}]}`, http.StatusOK},
		{"multi-turn without user", "/analyze/multi-turn/start", `{"messages":[{"role":"assistant","content":"hi"}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, h, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.code, code, body)
			if code == http.StatusOK {
				require.Equal(t, "started", body["status"])
				require.Equal(t, "new", body["session_id"])
			}
		})
	}
	want := []string{"stress_test:Q: hi A: hello", "content_analysis:" + long, "multi_turn:hi"}
	if diff := cmp.Diff(want, f.started); diff != "" {
		t.Errorf("started (-want +got):\n%s", diff)
	}
}

func TestStartAfterClose(t *testing.T) {
	f := newFake()
	f.startErr = orchestrator.ErrClosed
	code, _ := do(t, New(f).Handler(), http.MethodPost, "/analyze/start", `{"transcript":"x"}`)
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestCancel(t *testing.T) {
	f := newFake()
	h := New(f).Handler()

	code, body := do(t, h, http.MethodDelete, "/analyze/sessions/busy", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "busy", body["session_id"])
	require.Equal(t, []string{"busy"}, f.cancelled)

	code, _ = do(t, h, http.MethodDelete, "/analyze/sessions/nope", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestArchiveFallback(t *testing.T) {
	archive := store.NewMemory()
	require.NoError(t, archive.Put(context.Background(), &analyze.Snapshot{
		ID:     "old",
		Kind:   analyze.KindStressTest,
		Status: analyze.StatusCompleted,
	}))
	h := New(newFake(), WithArchive(archive)).Handler()

	code, body := do(t, h, http.MethodGet, "/analyze/results/old", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "old", body["session_id"])

	code, _ = do(t, h, http.MethodGet, "/analyze/multi-turn/results/old", "")
	require.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, h, http.MethodGet, "/analyze/results/missing", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestStatusFromArchive(t *testing.T) {
	archive := store.NewMemory()
	require.NoError(t, archive.Put(context.Background(), &analyze.Snapshot{
		ID:        "evicted",
		Kind:      analyze.KindMultiTurn,
		Status:    analyze.StatusCompleted,
		Turns:     []analyze.TurnResult{{UserMessage: "hi"}},
		InputText: "transcript",
		Progress:  analyze.Progress{CurrentStep: analyze.StatusCompleted},
	}))
	f := newFake()
	f.latest[analyze.KindMultiTurn] = "evicted"
	h := New(f, WithArchive(archive)).Handler()

	code, body := do(t, h, http.MethodGet, "/analyze/multi-turn/status", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "evicted", body["session_id"])
	require.Nil(t, body["turns"])

	code, _ = do(t, h, http.MethodGet, "/analyze/status/evicted", "")
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, http.MethodGet, "/analyze/content/status/evicted", "")
	require.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, h, http.MethodGet, "/analyze/status/missing", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := New(newFake()).Handler()

	code, body := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "healthy", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
