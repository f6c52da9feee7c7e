package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"avmerge/internal/api"
	"avmerge/internal/config"
	"avmerge/internal/logging"
	"avmerge/internal/server"
	"avmerge/internal/testsupport"
)

func newServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	srv, err := server.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	return srv.Handler()
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range files {
		part, err := mw.CreateFormFile(field, field+"_input.bin")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(part, content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// fixture returns the bytes a testsupport writer produces.
func fixture(t *testing.T, write func(testing.TB, string)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture")
	write(t, path)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestMergeUploadReturnsDurationsAndDownloadPath(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	handler := newServer(t, cfg)

	body, contentType := multipartBody(t, map[string]string{
		"video": "duration=10\n",
		"audio": "duration=3\n",
	})
	req := httptest.NewRequest(http.MethodPost, "/merge", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[api.MergeResponse](t, rec)
	if !resp.Success || resp.Message != "Files merged successfully" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.VideoDuration != "10.00 seconds" || resp.AudioDuration != "3.00 seconds" || resp.OutputDuration != "3.50 seconds" {
		t.Fatalf("unexpected durations %+v", resp)
	}
	if !strings.HasPrefix(resp.DownloadURL, "/download/merged_") || !strings.HasSuffix(resp.DownloadURL, ".mp4") {
		t.Fatalf("unexpected download url %q", resp.DownloadURL)
	}
	if rec.Header().Get(server.RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
	if left := testsupport.ListFiles(t, cfg.Paths.UploadDir); len(left) != 0 {
		t.Fatalf("expected no input temporaries, found %v", left)
	}

	download := httptest.NewRecorder()
	handler.ServeHTTP(download, httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	if download.Code != http.StatusOK {
		t.Fatalf("expected download 200, got %d", download.Code)
	}
	if ct := download.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := download.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if !strings.Contains(download.Body.String(), "duration=3.5") {
		t.Fatalf("unexpected download body %q", download.Body.String())
	}
}

func TestMergeUploadRequiresBothParts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	handler := newServer(t, cfg)

	body, contentType := multipartBody(t, map[string]string{"video": "duration=10\n"})
	req := httptest.NewRequest(http.MethodPost, "/merge", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[api.ErrorResponse](t, rec)
	if resp.Kind != "validation" || resp.Detail != "missing audio file" {
		t.Fatalf("unexpected error body %+v", resp)
	}
	if calls := testsupport.ToolCalls(t, cfg, "ffmpeg"); len(calls) != 0 {
		t.Fatalf("expected no ffmpeg calls, got %v", calls)
	}
}

func TestMergeUploadToolFailureReturns500(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	handler := newServer(t, cfg)

	body, contentType := multipartBody(t, map[string]string{
		"video": fixture(t, testsupport.WriteCorruptMedia),
		"audio": "duration=3\n",
	})
	req := httptest.NewRequest(http.MethodPost, "/merge", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[api.ErrorResponse](t, rec)
	if resp.Kind != "merge_tool_failed" || !strings.Contains(resp.Detail, "Invalid data found") {
		t.Fatalf("unexpected error body %+v", resp)
	}
	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.OutputDir} {
		if left := testsupport.ListFiles(t, dir); len(left) != 0 {
			t.Fatalf("expected %s to be empty, found %v", dir, left)
		}
	}
}

func TestMergeURLDownloadsInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	handler := newServer(t, cfg)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clip.mov":
			_, _ = io.WriteString(w, "duration=12\n")
		case "/voice.mp3":
			_, _ = io.WriteString(w, "duration=4\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer origin.Close()

	payload, _ := json.Marshal(api.MergeURLRequest{
		VideoURL:     origin.URL + "/clip.mov",
		AudioURL:     origin.URL + "/voice.mp3",
		OutputFormat: "mkv",
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/merge-url", bytes.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[api.MergeResponse](t, rec)
	if !strings.HasPrefix(resp.DownloadURL, "http://media.test/download/merged_") || !strings.HasSuffix(resp.DownloadURL, ".mkv") {
		t.Fatalf("unexpected download url %q", resp.DownloadURL)
	}
	if resp.OutputDuration != "4.50 seconds" {
		t.Fatalf("unexpected output duration %q", resp.OutputDuration)
	}

	path := strings.TrimPrefix(resp.DownloadURL, "http://media.test")
	download := httptest.NewRecorder()
	handler.ServeHTTP(download, httptest.NewRequest(http.MethodGet, path, nil))
	if ct := download.Header().Get("Content-Type"); ct != "video/x-matroska" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestMergeURLNotFoundLeavesNoFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	handler := newServer(t, cfg)

	origin := httptest.NewServer(http.NotFoundHandler())
	defer origin.Close()

	payload, _ := json.Marshal(api.MergeURLRequest{
		VideoURL: origin.URL + "/missing.mp4",
		AudioURL: origin.URL + "/missing.mp3",
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/merge-url", bytes.NewReader(payload)))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[api.ErrorResponse](t, rec)
	if resp.Kind != "download_failed" || !strings.Contains(resp.Detail, "404") {
		t.Fatalf("unexpected error body %+v", resp)
	}
	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.OutputDir} {
		if left := testsupport.ListFiles(t, dir); len(left) != 0 {
			t.Fatalf("expected %s to be empty, found %v", dir, left)
		}
	}
	if calls := testsupport.ToolCalls(t, cfg, "ffmpeg"); len(calls) != 0 {
		t.Fatalf("expected no ffmpeg calls, got %v", calls)
	}
}

func TestMergeURLValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	handler := newServer(t, cfg)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", "{", "invalid JSON request"},
		{"missing audio", `{"video_url":"http://example.com/a.mp4"}`, "video_url and audio_url are required"},
		{"bad format", `{"video_url":"http://example.com/a.mp4","audio_url":"http://example.com/a.mp3","output_format":"avi"}`, "unsupported output_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/merge-url", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			resp := decode[api.ErrorResponse](t, rec)
			if !strings.Contains(resp.Detail, tt.want) {
				t.Fatalf("expected %q in detail, got %q", tt.want, resp.Detail)
			}
		})
	}
}

func TestDownloadMissingAndTraversal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := newServer(t, cfg)
	testsupport.WriteMedia(t, filepath.Join(testsupport.BaseDir(cfg), "secret.mp4"), "1")

	for _, path := range []string{"/download/nope.mp4", "/download/..%5Csecret.mp4"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
		resp := decode[api.ErrorResponse](t, rec)
		if resp.Detail != "File not found" || resp.Kind != "not_found" {
			t.Fatalf("%s: unexpected body %+v", path, resp)
		}
	}
}

func TestTestFilesListingAndServing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := newServer(t, cfg)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-files", nil))
	empty := decode[api.TestFilesResponse](t, rec)
	if empty.VideoFiles == nil || empty.AudioFiles == nil || len(empty.VideoFiles)+len(empty.AudioFiles) != 0 {
		t.Fatalf("expected empty non-nil listing, got %+v", empty)
	}

	testsupport.WriteMedia(t, filepath.Join(cfg.Paths.TestFilesDir, "sample.mov"), "5")
	testsupport.WriteMedia(t, filepath.Join(cfg.Paths.TestFilesDir, "tone.wav"), "2")
	testsupport.WriteMedia(t, filepath.Join(cfg.Paths.TestFilesDir, "notes.txt"), "0")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-files", nil))
	listing := decode[api.TestFilesResponse](t, rec)
	if len(listing.VideoFiles) != 1 || listing.VideoFiles[0] != "sample.mov" {
		t.Fatalf("unexpected video files %v", listing.VideoFiles)
	}
	if len(listing.AudioFiles) != 1 || listing.AudioFiles[0] != "tone.wav" {
		t.Fatalf("unexpected audio files %v", listing.AudioFiles)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-file/tone.wav", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "audio/wav" {
		t.Fatalf("unexpected sample response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, "tone.wav") {
		t.Fatalf("expected sample served as attachment, got %q", cd)
	}
}

func TestCleanupRemovesExpiredOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRetention(60))
	handler := newServer(t, cfg)

	old := filepath.Join(cfg.Paths.OutputDir, "merged_old.mp4")
	fresh := filepath.Join(cfg.Paths.OutputDir, "merged_new.mp4")
	testsupport.WriteMedia(t, old, "1")
	testsupport.WriteMedia(t, fresh, "1")
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cleanup", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp := decode[api.CleanupResponse](t, rec); resp.DeletedFiles != 1 {
		t.Fatalf("expected one deletion, got %+v", resp)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh output to remain: %v", err)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cleanup", nil))
	if resp := decode[api.CleanupResponse](t, rec); resp.DeletedFiles != 0 {
		t.Fatalf("expected idempotent sweep, got %+v", resp)
	}
}

func TestAuthGuardsRoutesExceptHealthAndMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("s3cret"))
	handler := newServer(t, cfg)

	cases := []struct {
		path   string
		header string
		want   int
	}{
		{"/test-files", "", http.StatusUnauthorized},
		{"/test-files", "Bearer wrong", http.StatusUnauthorized},
		{"/test-files", "Bearer s3cret", http.StatusOK},
		{"/health", "", http.StatusOK},
		{"/metrics", "", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s with %q: expected %d, got %d", tc.path, tc.header, tc.want, rec.Code)
		}
	}
}

func TestHealthIndexAndMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := newServer(t, cfg)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp := decode[api.HealthResponse](t, rec); resp.Status != "ok" {
		t.Fatalf("unexpected health %+v", resp)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), `action="/merge"`) {
		t.Fatal("expected upload form on index")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `avmerge_http_requests_total{code="200",route="GET /health"} 1`) {
		t.Fatalf("expected health request to be counted:\n%s", rec.Body.String())
	}
}

func TestStatusReportsDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	handler := newServer(t, cfg)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[api.StatusResponse](t, rec)
	if len(resp.Dependencies) != 2 {
		t.Fatalf("expected two dependencies, got %+v", resp.Dependencies)
	}
	for _, dep := range resp.Dependencies {
		if !dep.Available {
			t.Fatalf("expected %s to be available: %+v", dep.Name, dep)
		}
	}
	if resp.OutputDir != cfg.Paths.OutputDir {
		t.Fatalf("unexpected output dir %q", resp.OutputDir)
	}
}

func TestStartServesUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv, err := server.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := http.Get("http://" + srv.Addr() + "/health"); err != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server still accepting requests after cancellation")
}
