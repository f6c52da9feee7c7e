package api

import (
	"errors"
	"net/url"
	"strings"

	"avmerge/internal/config"
	"avmerge/internal/deps"
	"avmerge/internal/job"
	"avmerge/internal/preflight"
	"avmerge/internal/services"
)

// DownloadPath returns the relative download reference for an output file.
func DownloadPath(name string) string {
	return "/download/" + url.PathEscape(name)
}

// DownloadURL returns the absolute download address under base.
func DownloadURL(base, name string) string {
	return strings.TrimRight(base, "/") + DownloadPath(name)
}

// FromResult converts a job result into the merge response.
func FromResult(result job.Result, downloadURL string) MergeResponse {
	return MergeResponse{
		Success:        true,
		Message:        result.Message,
		VideoDuration:  result.Video.String(),
		AudioDuration:  result.Audio.String(),
		OutputDuration: result.Output.String(),
		DownloadURL:    downloadURL,
	}
}

// FromError builds the error body for err. Tool and download failures report
// their own diagnostic rather than the wrapping context.
func FromError(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{}
	}
	return ErrorResponse{Detail: ErrorDetail(err), Kind: string(services.KindOf(err))}
}

// ErrorDetail returns the deepest human-readable diagnostic carried by err.
func ErrorDetail(err error) string {
	var toolErr *services.ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Error()
	}
	var dlErr *services.DownloadError
	if errors.As(err, &dlErr) {
		return dlErr.Error()
	}
	var svcErr *services.Error
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		if svcErr.Err != nil {
			return svcErr.Message + ": " + ErrorDetail(svcErr.Err)
		}
		return svcErr.Message
	}
	return err.Error()
}

// FromDependencies converts dependency statuses.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Version:     s.Version,
			Detail:      s.Detail,
		})
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// BuildStatus assembles the status report. Ready requires every required
// dependency and every check to pass.
func BuildStatus(cfg *config.Config, statuses []deps.Status, checks []preflight.Result) StatusResponse {
	ready := preflight.AllPassed(checks)
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			ready = false
		}
	}
	return StatusResponse{
		Ready:                 ready,
		Dependencies:          FromDependencies(statuses),
		Checks:                FromChecks(checks),
		OutputDir:             cfg.Paths.OutputDir,
		RetentionMinutes:      cfg.Retention.MaxAgeMinutes,
		SweepIntervalMinutes:  cfg.Retention.SweepIntervalMinutes,
		AuthenticationEnabled: cfg.Server.APIToken != "",
	}
}
