package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ooAKLoo/AppScope/internal/analytics"
	"github.com/ooAKLoo/AppScope/internal/metrics"
	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/ooAKLoo/AppScope/internal/store/memory"
)

const (
	testWriteKey = "wk_test"
	testReadKey  = "rk_test"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

// newTestServer returns a server over an empty memory store whose clock is
// pinned to testNow.
func newTestServer() (*AnalyticsServer, *memory.Store, http.Handler) {
	ms := memory.New(memory.WithClock(testClock))
	m := metrics.New()
	engine := analytics.New(ms, analytics.WithClock(testClock), analytics.WithMetrics(m))
	s := NewAnalyticsServer(engine, Keys{Write: testWriteKey, Read: testReadKey}, m)
	return s, ms, s.NewHTTPHandler()
}

// doJSON performs an HTTP request with an optional JSON body and returns the recorder.
func doJSON(t *testing.T, handler http.Handler, method, path, keyHeader, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		var b []byte
		if raw, ok := body.(string); ok {
			b = []byte(raw)
		} else {
			b, _ = json.Marshal(body)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if keyHeader != "" {
		req.Header.Set(keyHeader, key)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func write(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, h, http.MethodPost, path, writeKeyHeader, testWriteKey, body)
}

func read(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, h, http.MethodGet, path, readKeyHeader, testReadKey, nil)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHTTPAuth(t *testing.T) {
	_, _, h := newTestServer()
	trackBody := map[string]string{"app_id": "demo", "event": model.EventOpen, "user_id": "u1"}

	for _, tc := range []struct {
		name      string
		method    string
		path      string
		keyHeader string
		key       string
		body      any
		code      int
	}{
		{"track/no key", http.MethodPost, "/api/track", "", "", trackBody, http.StatusUnauthorized},
		{"track/wrong key", http.MethodPost, "/api/track", writeKeyHeader, "nope", trackBody, http.StatusUnauthorized},
		{"track/read key", http.MethodPost, "/api/track", readKeyHeader, testReadKey, trackBody, http.StatusUnauthorized},
		{"track/ok", http.MethodPost, "/api/track", writeKeyHeader, testWriteKey, trackBody, http.StatusOK},
		{"apps/no key", http.MethodGet, "/api/apps", "", "", nil, http.StatusUnauthorized},
		{"apps/write key", http.MethodGet, "/api/apps", writeKeyHeader, testWriteKey, nil, http.StatusUnauthorized},
		{"apps/ok", http.MethodGet, "/api/apps", readKeyHeader, testReadKey, nil, http.StatusOK},
		{"feedbacks/wrong key", http.MethodGet, "/api/feedbacks?app_id=demo", readKeyHeader, "nope", nil, http.StatusUnauthorized},
		{"health/no key", http.MethodGet, "/health", "", "", nil, http.StatusOK},
		{"metrics/no key", http.MethodGet, "/metrics", "", "", nil, http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, tc.method, tc.path, tc.keyHeader, tc.key, tc.body)
			if rec.Code != tc.code {
				t.Fatalf("expected status %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
			if tc.code == http.StatusUnauthorized {
				var resp map[string]string
				decodeJSON(t, rec, &resp)
				if resp["error"] != "unauthorized" {
					t.Errorf("expected error=unauthorized, got %q", resp["error"])
				}
			}
		})
	}
}

func TestHandleHTTPErrors(t *testing.T) {
	_, _, h := newTestServer()

	for _, tc := range []struct {
		name      string
		method    string
		path      string
		body      any
		code      int
		wantError string
	}{
		{"track/bad json", http.MethodPost, "/api/track", `{"app_id":`, http.StatusBadRequest, "invalid JSON body"},
		{"track/missing app", http.MethodPost, "/api/track", map[string]string{"event": "x", "user_id": "u"}, http.StatusBadRequest, "app_id is required"},
		{"track/missing event", http.MethodPost, "/api/track", map[string]string{"app_id": "a", "user_id": "u"}, http.StatusBadRequest, "event is required"},
		{"track/missing user", http.MethodPost, "/api/track", map[string]string{"app_id": "a", "event": "x"}, http.StatusBadRequest, "user_id is required"},
		{"feedback/missing content", http.MethodPost, "/api/feedback", map[string]string{"app_id": "a"}, http.StatusBadRequest, "content is required"},
		{"dau/missing app", http.MethodGet, "/api/stats/dau", nil, http.StatusBadRequest, "app_id is required"},
		{"dau/bad days", http.MethodGet, "/api/stats/dau?app_id=a&days=week", nil, http.StatusBadRequest, "days must be an integer"},
		{"installs/bad days", http.MethodGet, "/api/stats/installs?app_id=a&days=1.5", nil, http.StatusBadRequest, "days must be an integer"},
		{"retention/missing app", http.MethodGet, "/api/stats/retention", nil, http.StatusBadRequest, "app_id is required"},
		{"feedbacks/bad limit", http.MethodGet, "/api/feedbacks?app_id=a&limit=x", nil, http.StatusBadRequest, "limit must be an integer"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tc.method == http.MethodPost {
				rec = write(t, h, tc.path, tc.body)
			} else {
				rec = read(t, h, tc.path)
			}
			if rec.Code != tc.code {
				t.Fatalf("expected status %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
			var resp map[string]string
			decodeJSON(t, rec, &resp)
			if !strings.Contains(resp["error"], tc.wantError) {
				t.Errorf("expected error containing %q, got %q", tc.wantError, resp["error"])
			}
		})
	}
}

func TestHTTPTrackThenQuery(t *testing.T) {
	_, _, h := newTestServer()

	for _, body := range []map[string]any{
		{"app_id": "demo", "event": model.EventInstall, "user_id": "u1"},
		{"app_id": "demo", "event": model.EventOpen, "user_id": "u1", "properties": map[string]any{"os": "ios"}},
		{"app_id": "demo", "event": model.EventOpen, "user_id": "u1"},
		{"app_id": "demo", "event": model.EventOpen, "user_id": "u2"},
		{"app_id": "demo", "event": "purchase", "user_id": "u3"},
	} {
		rec := write(t, h, "/api/track", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("track: expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp map[string]bool
		decodeJSON(t, rec, &resp)
		if !resp["success"] {
			t.Fatalf("track: expected success=true, got %v", resp)
		}
	}

	var apps struct {
		Apps []model.AppSummary `json:"apps"`
	}
	decodeJSON(t, read(t, h, "/api/apps"), &apps)
	if len(apps.Apps) != 1 || apps.Apps[0] != (model.AppSummary{AppID: "demo", DAUToday: 2, TotalInstalls: 1}) {
		t.Errorf("apps = %+v", apps.Apps)
	}

	var dau struct {
		Data []model.DauPoint `json:"data"`
	}
	decodeJSON(t, read(t, h, "/api/stats/dau?app_id=demo"), &dau)
	if len(dau.Data) != 1 || dau.Data[0] != (model.DauPoint{Date: "2026-05-10", DAU: 2}) {
		t.Errorf("dau = %+v", dau.Data)
	}

	var installs model.InstallStats
	decodeJSON(t, read(t, h, "/api/stats/installs?app_id=demo&days=7"), &installs)
	if installs.Total != 1 || len(installs.Data) != 1 || installs.Data[0].Installs != 1 {
		t.Errorf("installs = %+v", installs)
	}

	var retention struct {
		Data []model.RetentionCohort `json:"data"`
	}
	decodeJSON(t, read(t, h, "/api/stats/retention?app_id=demo"), &retention)
	if len(retention.Data) != 1 {
		t.Fatalf("retention = %+v", retention.Data)
	}
	if c := retention.Data[0]; c.CohortDate != "2026-05-10" || c.Day0 != 2 || c.Day1 == nil || *c.Day1 != 0 {
		t.Errorf("cohort = %+v", c)
	}
}

func TestHTTPEmptyApp(t *testing.T) {
	_, _, h := newTestServer()

	for _, path := range []string{
		"/api/stats/dau?app_id=ghost",
		"/api/stats/retention?app_id=ghost",
		"/api/feedbacks?app_id=ghost",
	} {
		rec := read(t, h, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != `{"data":[]}` {
			t.Errorf("%s: body = %s, want {\"data\":[]}", path, got)
		}
	}

	rec := read(t, h, "/api/stats/installs?app_id=ghost")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"total":0,"data":[]}` {
		t.Errorf("installs body = %s", got)
	}
	rec = read(t, h, "/api/apps")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"apps":[]}` {
		t.Errorf("apps body = %s", got)
	}
}

func TestHTTPFeedback(t *testing.T) {
	_, _, h := newTestServer()

	rec := write(t, h, "/api/feedback", map[string]any{
		"app_id":  "demo",
		"content": "love it",
		"contact": "me@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []model.Feedback `json:"data"`
	}
	decodeJSON(t, read(t, h, "/api/feedbacks?app_id=demo&limit=10"), &resp)
	if len(resp.Data) != 1 {
		t.Fatalf("expected 1 feedback, got %d", len(resp.Data))
	}
	f := resp.Data[0]
	if f.Content != "love it" || f.Contact == nil || *f.Contact != "me@example.com" || f.UserID != nil {
		t.Errorf("feedback = %+v", f)
	}
	if !f.CreatedAt.Equal(testNow) {
		t.Errorf("created_at = %v, want %v", f.CreatedAt, testNow)
	}

	rec = read(t, h, "/api/feedbacks?app_id=demo&limit=0")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"data":[]}` {
		t.Errorf("limit=0 body = %s", got)
	}
}

func TestHTTPStorageFailure(t *testing.T) {
	_, ms, h := newTestServer()
	if err := ms.Close(); err != nil {
		t.Fatal(err)
	}

	rec := read(t, h, "/api/apps")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["error"] != "database error" {
		t.Errorf("expected error=database error, got %q", resp["error"])
	}

	rec = write(t, h, "/api/track", map[string]string{"app_id": "a", "event": "x", "user_id": "u"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("track: expected 500, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/health", "", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health: expected 503, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	_, _, h := newTestServer()
	rec := doJSON(t, h, http.MethodGet, "/health", "", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	_, _, h := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/api/track", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRequestID(t *testing.T) {
	_, _, h := newTestServer()

	rec := doJSON(t, h, http.MethodGet, "/health", "", "", nil)
	if id := rec.Header().Get(requestIDHeader); !strings.HasPrefix(id, "req-") {
		t.Errorf("minted request id = %q, want req- prefix", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if id := rec.Header().Get(requestIDHeader); id != "abc123" {
		t.Errorf("propagated request id = %q, want abc123", id)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, _, h := newTestServer()
	write(t, h, "/api/track", map[string]string{"app_id": "a", "event": model.EventOpen, "user_id": "u"})
	read(t, h, "/api/apps")

	rec := doJSON(t, h, http.MethodGet, "/metrics", "", "", nil)
	body := rec.Body.String()
	for _, want := range []string{
		`appscope_http_requests_total{code="200",route="GET /api/apps"} 1`,
		`appscope_events_ingested_total{event_kind="open"} 1`,
		`appscope_query_duration_seconds_count{op="list_apps"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestRequireKey_EmptyKeyDisablesCheck(t *testing.T) {
	s := &AnalyticsServer{}
	h := s.requireKey(readKeyHeader, "", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected pass-through, got %d", rec.Code)
	}
}
