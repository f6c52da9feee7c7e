package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDownloadFailed  = errors.New("download failed")
	ErrProbeFailed     = errors.New("probe failed")
	ErrMergeToolFailed = errors.New("merge tool failed")
	ErrValidation      = errors.New("validation error")
	ErrUnexpected      = errors.New("unexpected error")
)

// Kind is the stable, serialisable classification of a pipeline failure.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindDownloadFailed  Kind = "download_failed"
	KindProbeFailed     Kind = "probe_failed"
	KindMergeToolFailed Kind = "merge_tool_failed"
	KindValidation      Kind = "validation"
	KindUnexpected      Kind = "unexpected"
)

// Error is a classified failure carrying stage context. Message is the part
// suitable for showing to a client.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrUnexpected
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// DownloadError reports a failed retrieval of a remote input.
type DownloadError struct {
	URL string
	// Status is the HTTP status code, or 0 when no response arrived.
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("download failed for %s: unexpected status %d", e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("download failed for %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("download failed for %s", e.URL)
	}
}

func (e *DownloadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDownloadFailed}
	}
	return []error{ErrDownloadFailed, e.Err}
}

// ToolError reports a non-zero exit from an external media tool. Marker is
// ErrMergeToolFailed for remux runs and ErrProbeFailed for probes.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Marker   error
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ToolError) Unwrap() []error {
	marker := e.Marker
	if marker == nil {
		marker = ErrMergeToolFailed
	}
	if e.Err == nil {
		return []error{marker}
	}
	return []error{marker, e.Err}
}

// KindOf classifies err by the marker it carries. Errors without a marker are
// unexpected.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDownloadFailed):
		return KindDownloadFailed
	case errors.Is(err, ErrMergeToolFailed):
		return KindMergeToolFailed
	case errors.Is(err, ErrProbeFailed):
		return KindProbeFailed
	default:
		return KindUnexpected
	}
}

// HTTPStatus maps a pipeline error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case "":
		return http.StatusOK
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindDownloadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
