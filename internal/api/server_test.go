package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/callback/internal/dispatch"
	"github.com/MikeSquared-Agency/callback/internal/processor"
	"github.com/MikeSquared-Agency/callback/internal/schedule"
	"github.com/MikeSquared-Agency/callback/internal/sms"
)

func newTestServer() (*Server, *schedule.Scheduler) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := schedule.New(logger)
	d := dispatch.New(sched, sms.NewDryRun(logger), nil, time.Hour, logger)
	proc := processor.New(sched, d, nil, nil, "+15559990000", "https://cal.example/intro", logger)
	return NewServer(8760, proc, sched, logger), sched
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

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

func TestWebhookSchedulesFollowUps(t *testing.T) {
	srv, sched := newTestServer()

	event := `{
		"message": {"type": "end-of-call-report"},
		"customer": {"number": "+15551234567"},
		"transcript": "Hi this is Maria, we run a salon and keep getting no-shows",
		"messages": [{"role": "user", "message": "we keep getting no-shows"}],
		"startedAt": "2024-01-01T00:00:00Z",
		"endedAt": "2024-01-01T00:05:00Z",
		"id": "call-42"
	}`

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(event))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res processor.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Status != "scheduled" {
		t.Errorf("expected scheduled, got %q", res.Status)
	}
	if len(res.FollowUps) != 2 {
		t.Errorf("expected 2 follow-up keys, got %v", res.FollowUps)
	}
	if sched.PendingCount() != 2 {
		t.Errorf("expected 2 pending entries, got %d", sched.PendingCount())
	}
}

func TestWebhookMalformedPayloadReturns500(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"] == "" {
		t.Errorf("expected error message in response")
	}

	// the server keeps serving afterwards
	req = httptest.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 after failed webhook, got %d", w.Code)
	}
}

func TestWebhookUnknownEventIgnored(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"message":{"type":"speech-update"},"id":"call-1"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res processor.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Status != "ignored" {
		t.Errorf("expected ignored, got %q", res.Status)
	}
}

func TestFollowupsEndpointMasksDestinations(t *testing.T) {
	srv, sched := newTestServer()
	sched.Enqueue("call-42", "1h", "+15551234567", "body", time.Hour)

	req := httptest.NewRequest("GET", "/api/v1/followups", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	raw := w.Body.String()
	if strings.Contains(raw, "+15551234567") {
		t.Errorf("snapshot leaked full destination: %s", raw)
	}
	if !strings.Contains(raw, "4567") {
		t.Errorf("expected last 4 digits present: %s", raw)
	}

	var body struct {
		Pending int              `json:"pending"`
		Entries []schedule.Entry `json:"entries"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Pending != 1 || len(body.Entries) != 1 {
		t.Errorf("expected 1 pending entry, got %+v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, sched := newTestServer()
	sched.Enqueue("call-1", "1h", "+15551234567", "body", time.Hour)

	req := httptest.NewRequest("GET", "/api/v1/callback/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Service string `json:"service"`
		Pending int    `json:"pending"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Service != "callback" {
		t.Errorf("expected service callback, got %q", body.Service)
	}
	if body.Pending != 1 {
		t.Errorf("expected 1 pending, got %d", body.Pending)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
