package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reelforge/reelforge/internal/archive"
	"github.com/reelforge/reelforge/internal/db"
	"github.com/reelforge/reelforge/internal/render"
	"github.com/reelforge/reelforge/internal/renders"
)

const testToken = "test-token"

type fakeRenderer struct {
	mu        sync.Mutex
	submitErr error
}

func (f *fakeRenderer) Submit(ctx context.Context, edit render.Edit) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "job-1", nil
}

func (f *fakeRenderer) Status(ctx context.Context, id string) (*render.Status, error) {
	return &render.Status{ID: id, Status: render.StatusQueued}, nil
}

type testServer struct {
	handler  http.Handler
	repo     renders.Repository
	renderer *fakeRenderer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := renders.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), AuthTokenKey, testToken); err != nil {
		t.Fatal(err)
	}

	a, err := archive.New(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	renderer := &fakeRenderer{}
	service := renders.NewService(repo, renders.ServiceConfig{
		Renderer: renderer,
		Archive:  a,
	}, logger)

	return &testServer{
		handler: NewRouter(ServerConfig{
			Service:    service,
			Repository: repo,
			Runner:     renders.NewRunner(service, repo, renderer, time.Second, logger),
			Logger:     logger,
			StartTime:  time.Now().Add(-10 * time.Second),
			Version:    "test",
		}),
		repo:     repo,
		renderer: renderer,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if auth {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v (%q)", err, rr.Body.String())
	}

	return body
}

const validBody = `{
	"title": "Launch",
	"mediaItems": [
		{"url": "https://cdn.example.com/1.jpg", "type": "image"},
		{"url": "https://cdn.example.com/2.mp4", "type": "video"}
	],
	"audioUrl": "https://cdn.example.com/voice.mp3",
	"audioDuration": 10
}`

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/health", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if uptime, _ := body["uptime_s"].(float64); uptime < 10 {
		t.Errorf("uptime_s = %v, want >= 10", body["uptime_s"])
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + testToken, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/renders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			s.handler.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status code = %d, want %d", rr.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized {
				if code := decodeJSONBody(t, rr)["code"]; code != "UNAUTHORIZED" {
					t.Errorf("code = %v, want UNAUTHORIZED", code)
				}
			}
		})
	}
}

func TestCreateRender(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/renders", validBody, true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status code = %d, want %d: %s", rr.Code, http.StatusAccepted, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != renders.StatusSubmitted || body["renderer_id"] != "job-1" {
		t.Errorf("body = %v", body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("missing id")
	}

	rr = s.do(t, http.MethodGet, "/renders/"+id, "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status code = %d", rr.Code)
	}
	got := decodeJSONBody(t, rr)
	if got["title"] != "Launch" || got["track_count"] != float64(2) || got["total_duration"] != float64(10) {
		t.Errorf("render = %v", got)
	}
	if _, ok := got["payload_path"]; ok {
		t.Error("payload_path leaked into the response")
	}

	rr = s.do(t, http.MethodGet, "/renders/"+id+"/timeline", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("timeline status code = %d", rr.Code)
	}
	var edit render.Edit
	if err := json.Unmarshal(rr.Body.Bytes(), &edit); err != nil {
		t.Fatal(err)
	}
	if len(edit.Timeline.Tracks) != 2 || edit.Output.Format != render.FormatMP4 {
		t.Errorf("edit = %+v", edit)
	}

	rr = s.do(t, http.MethodGet, "/renders?limit=5", "", true)
	list := decodeJSONBody(t, rr)
	if items, _ := list["renders"].([]interface{}); len(items) != 1 {
		t.Errorf("renders = %v", list["renders"])
	}
}

func TestCreateRender_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		submitErr error
		want      int
		code      string
	}{
		{"malformed json", `{"mediaItems":`, nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"no media", `{"audioUrl":"https://cdn/v.mp3"}`, nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"renderer rejects", validBody, &render.APIError{StatusCode: 422, Body: "bad asset"}, http.StatusBadGateway, "RENDER_FAILED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			s.renderer.submitErr = tc.submitErr

			rr := s.do(t, http.MethodPost, "/renders", tc.body, true)
			if rr.Code != tc.want {
				t.Fatalf("status code = %d, want %d: %s", rr.Code, tc.want, rr.Body.String())
			}
			if code := decodeJSONBody(t, rr)["code"]; code != tc.code {
				t.Errorf("code = %v, want %s", code, tc.code)
			}
		})
	}
}

func TestGetRender_NotFound(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/renders/missing", "/renders/missing/timeline", "/renders/missing/edl"} {
		rr := s.do(t, http.MethodGet, path, "", true)
		if rr.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rr.Code)
		}
	}
}

func TestListRenders_BadLimit(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/renders?limit=-1", "", true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", rr.Code)
	}
}

func TestRenderEDL(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/renders", validBody, true)
	id, _ := decodeJSONBody(t, rr)["id"].(string)

	rr = s.do(t, http.MethodGet, "/renders/"+id+"/edl?fps=25", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rr.Code, rr.Body.String())
	}
	edl := rr.Body.String()
	if !strings.HasPrefix(edl, "TITLE: Launch\n") {
		t.Errorf("edl header = %q", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:00:00 00:00:05:00 00:00:05:00 00:00:10:00") {
		t.Errorf("edl events = %q", edl)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "Launch.edl") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/timeline/preview", validBody, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	if body["total_duration"] != float64(10) || body["duration_source"] != "request" || body["segmented"] != false {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["edit"].(map[string]interface{}); !ok {
		t.Error("edit missing from preview")
	}

	list, _ := s.repo.ListRenders(context.Background(), 10)
	if len(list) != 0 {
		t.Errorf("preview recorded %d renders", len(list))
	}
}

func TestTransform(t *testing.T) {
	s := newTestServer(t)

	srt := "1\n00:00:00,000 --> 00:00:02,000\nhello there\n"
	payload, _ := json.Marshal(TransformRequest{Content: srt, TextTransform: "uppercase"})

	rr := s.do(t, http.MethodPost, "/subtitles/transform", string(payload), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d", rr.Code)
	}
	want := "1\n00:00:00,000 --> 00:00:02,000\nHELLO THERE\n"
	if got := decodeJSONBody(t, rr)["content"]; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}

	rr = s.do(t, http.MethodPost, "/subtitles/transform", `{"content":"x","textTransform":"title"}`, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown transform status = %d, want 400", rr.Code)
	}
}

func TestCallback(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/renders", validBody, true)
	id, _ := decodeJSONBody(t, rr)["id"].(string)

	rr = s.do(t, http.MethodPost, "/callbacks/render?id="+id, `{"id":"other","status":"done"}`, false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("mismatched callback status = %d, want 400", rr.Code)
	}

	rr = s.do(t, http.MethodPost, "/callbacks/render?id="+id, `{"status":"done","url":"https://elsewhere.example/other.mp4"}`, false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("callback without job id = %d, want 400", rr.Code)
	}
	if got, _ := s.repo.GetRender(context.Background(), id); got.Status != renders.StatusSubmitted {
		t.Fatalf("status after rejected callback = %q, want submitted", got.Status)
	}

	rr = s.do(t, http.MethodPost, "/callbacks/render?id="+id, `{"id":"job-1","status":"done","url":"https://cdn/out.mp4"}`, false)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("callback status = %d, want 204: %s", rr.Code, rr.Body.String())
	}

	got, _ := s.repo.GetRender(context.Background(), id)
	if got.Status != renders.StatusDone || got.OutputURL != "https://cdn/out.mp4" {
		t.Errorf("render = %+v", got)
	}

	rr = s.do(t, http.MethodPost, "/callbacks/render", `{"status":"done"}`, false)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("callback without id = %d, want 400", rr.Code)
	}
	rr = s.do(t, http.MethodPost, "/callbacks/render?id=missing", `{"status":"done"}`, false)
	if rr.Code != http.StatusNotFound {
		t.Errorf("callback for unknown render = %d, want 404", rr.Code)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)

	body := decodeJSONBody(t, s.do(t, http.MethodGet, "/status", "", true))
	if body["state"] != "idle" || body["active_renders"] != float64(0) {
		t.Errorf("empty status = %v", body)
	}

	s.do(t, http.MethodPost, "/renders", validBody, true)
	body = decodeJSONBody(t, s.do(t, http.MethodGet, "/status", "", true))
	if body["state"] != "rendering" || body["active_renders"] != float64(1) {
		t.Errorf("status = %v", body)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", bytes.NewReader(nil)))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if code := decodeJSONBody(t, rr)["code"]; code != "INTERNAL_ERROR" {
		t.Errorf("code = %v", code)
	}
}
