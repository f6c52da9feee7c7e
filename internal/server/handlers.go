package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"avmerge/internal/api"
	"avmerge/internal/assets"
	"avmerge/internal/job"
	"avmerge/internal/logging"
	"avmerge/internal/preflight"
	"avmerge/internal/resolve"
	"avmerge/internal/services"
)

// maxURLRequestBytes bounds the JSON body of /merge-url.
const maxURLRequestBytes = 64 << 10

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	token := s.cfg.Server.APIToken

	handle := func(pattern string, public bool, h http.HandlerFunc) {
		if !public {
			h = authMiddleware(token, h)
		}
		mux.HandleFunc(pattern, s.instrument(pattern, h))
	}

	handle("GET /{$}", false, s.handleIndex)
	handle("POST /merge", false, s.handleMergeUpload)
	handle("POST /merge-url", false, s.handleMergeURL)
	handle("GET /download/{filename}", false, s.handleDownload)
	handle("GET /test-files", false, s.handleTestFiles)
	handle("GET /test-file/{filename}", false, s.handleTestFile)
	handle("DELETE /cleanup", false, s.handleCleanup)
	handle("GET /api/status", false, s.handleStatus)
	handle("GET /health", true, s.handleHealth)
	handle("GET /metrics", true, s.metrics.Handler().ServeHTTP)

	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleMergeUpload(w http.ResponseWriter, r *http.Request) {
	maxMemory := int64(s.cfg.Server.MultipartMemoryMiB) << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "", "parse form", "expected multipart/form-data with video and audio files", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	video, err := s.formUpload(r, "video")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer video.close()
	audio, err := s.formUpload(r, "audio")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer audio.close()

	result, err := s.orchestrator.Run(r.Context(), job.Request{
		Video:  video.source,
		Audio:  audio.source,
		Format: job.DefaultFormat,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromResult(result, api.DownloadPath(result.OutputName)))
}

type formFile struct {
	source resolve.Upload
	closer io.Closer
}

func (f formFile) close() {
	if f.closer != nil {
		_ = f.closer.Close()
	}
}

func (s *Server) formUpload(r *http.Request, field string) (formFile, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return formFile{}, services.Wrap(services.ErrValidation, "", "", "missing "+field+" file", nil)
		}
		return formFile{}, services.Wrap(services.ErrValidation, "", "read form", field, err)
	}
	return formFile{
		source: resolve.Upload{Role: field, Filename: header.Filename, Body: file},
		closer: file,
	}, nil
}

func (s *Server) handleMergeURL(w http.ResponseWriter, r *http.Request) {
	var req api.MergeURLRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxURLRequestBytes))
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "", "decode body", "invalid JSON request", err))
		return
	}
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	req.AudioURL = strings.TrimSpace(req.AudioURL)
	if req.VideoURL == "" || req.AudioURL == "" {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "", "", "video_url and audio_url are required", nil))
		return
	}

	source := func(role, rawURL string) resolve.URL {
		return resolve.URL{
			Role:        role,
			RawURL:      rawURL,
			Client:      s.httpClient,
			UserAgent:   s.cfg.Download.UserAgent,
			ReadTimeout: s.cfg.DownloadTimeout(),
		}
	}
	result, err := s.orchestrator.Run(r.Context(), job.Request{
		Video:  source("video", req.VideoURL),
		Audio:  source("audio", req.AudioURL),
		Format: req.OutputFormat,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	downloadURL := api.DownloadURL(s.cfg.Server.PublicBaseURL, result.OutputName)
	s.writeJSON(w, http.StatusOK, api.FromResult(result, downloadURL))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	path, err := assets.Locate(s.cfg.Paths.OutputDir, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contentType := assets.MediaType(name)
	if strings.EqualFold(filepath.Ext(name), ".mkv") {
		contentType = "video/x-matroska"
	}
	s.serveFile(w, r, path, contentType, true)
}

func (s *Server) handleTestFiles(w http.ResponseWriter, r *http.Request) {
	listing, err := assets.List(s.cfg.Paths.TestFilesDir)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TestFilesResponse{VideoFiles: listing.Video, AudioFiles: listing.Audio})
}

func (s *Server) handleTestFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	path, err := assets.Locate(s.cfg.Paths.TestFilesDir, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.serveFile(w, r, path, assets.MediaType(name), true)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	report, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CleanupResponse{DeletedFiles: len(report.Deleted), Skipped: report.Skipped})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses := preflight.CheckSystemDeps(r.Context(), s.cfg)
	checks := preflight.RunAll(r.Context(), s.cfg)
	s.writeJSON(w, http.StatusOK, api.BuildStatus(s.cfg, statuses, checks))
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path, contentType string, attachment bool) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, r, services.Wrap(services.ErrNotFound, "", "", "File not found", nil))
			return
		}
		s.writeError(w, r, services.Wrap(services.ErrUnexpected, "", "open", filepath.Base(path), err))
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeError(w, r, services.Wrap(services.ErrUnexpected, "", "stat", filepath.Base(path), err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	if attachment {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name()}))
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := writeJSONStatus(w, status, payload); err != nil {
		s.logger.Warn("encode response failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "http_encode_failed"),
			logging.String(logging.FieldErrorHint, "client may have disconnected"),
			logging.String(logging.FieldImpact, "client received incomplete JSON response"),
		)
	}
}

func writeJSONStatus(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	body := api.FromError(err)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			logging.String(logging.FieldEventType, "http_request_failed"),
			logging.String("route", r.Pattern),
			logging.Int("status", status),
			logging.String("error_kind", body.Kind),
			logging.Error(err),
		)
	} else {
		logger.Debug("request rejected",
			logging.String("route", r.Pattern),
			logging.Int("status", status),
			logging.String("error_kind", body.Kind),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, body)
}
