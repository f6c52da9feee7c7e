// Package resolve turns request inputs (an uploaded stream or a remote URL)
// into fully written local files under unique names.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"avmerge/internal/services"
	"avmerge/internal/textutil"
)

// Source is an input that can be written to a local file. The returned path
// always refers to a closed, fully written file inside dir.
type Source interface {
	Materialize(ctx context.Context, dir, token string) (string, error)
}

// Upload is an input received in the request body.
type Upload struct {
	Role     string
	Filename string
	Body     io.Reader
}

// Materialize copies the stream verbatim to <dir>/<token>_<role>_<name>.
func (u Upload) Materialize(_ context.Context, dir, token string) (string, error) {
	if u.Body == nil {
		return "", services.Wrap(services.ErrValidation, "resolving_inputs", "", u.Role+" upload is missing", nil)
	}
	target, err := localPath(dir, token, u.Role, u.Filename)
	if err != nil {
		return "", err
	}
	if err := writeFile(target, u.Body); err != nil {
		return "", services.Wrap(services.ErrUnexpected, "resolving_inputs", "save upload", "could not store "+u.Role+" upload", err)
	}
	return target, nil
}

// URL is an input fetched over HTTP(S).
type URL struct {
	Role      string
	RawURL    string
	Client    *http.Client
	UserAgent string
	// ReadTimeout bounds the wait for the response and for each body read.
	// The transfer as a whole is unbounded. Zero means DefaultTimeout.
	ReadTimeout time.Duration
}

// Materialize downloads the URL to <dir>/<token>_<role>_<basename>. Network
// errors and non-2xx responses return a *services.DownloadError and leave
// no file behind.
func (s URL) Materialize(ctx context.Context, dir, token string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(s.RawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", services.Wrap(services.ErrValidation, "resolving_inputs", "", fmt.Sprintf("%s_url must be an absolute http or https URL", s.Role), err)
	}
	target, err := localPath(dir, token, s.Role, path.Base(parsed.Path))
	if err != nil {
		return "", err
	}

	client := s.Client
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	readTimeout := s.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	watchdog := newIdleTimer(readTimeout, cancel)
	defer watchdog.stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", &services.DownloadError{URL: s.RawURL, Err: err}
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &services.DownloadError{URL: s.RawURL, Err: watchdog.explain(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &services.DownloadError{URL: s.RawURL, Status: resp.StatusCode}
	}

	body := &trackingReader{r: resp.Body, idle: watchdog}
	if err := writeFile(target, body); err != nil {
		if body.err != nil {
			return "", &services.DownloadError{URL: s.RawURL, Err: watchdog.explain(body.err)}
		}
		return "", services.Wrap(services.ErrUnexpected, "resolving_inputs", "save download", "could not store "+s.Role+" download", err)
	}
	return target, nil
}

// DefaultTimeout is the connect and read bound used when none is supplied.
const DefaultTimeout = 30 * time.Second

// NewHTTPClient returns a client that bounds connection setup and the wait
// for response headers by timeout. It sets no overall deadline, so a body
// that keeps arriving is never cut off; URL.ReadTimeout bounds stalls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   min(timeout, 10*time.Second),
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   4,
	}
	return &http.Client{Transport: transport}
}

// idleTimer cancels a transfer when no progress is made for the timeout.
type idleTimer struct {
	timeout time.Duration
	timer   *time.Timer
	fired   atomic.Bool
}

func newIdleTimer(timeout time.Duration, cancel context.CancelFunc) *idleTimer {
	t := &idleTimer{timeout: timeout}
	t.timer = time.AfterFunc(timeout, func() {
		t.fired.Store(true)
		cancel()
	})
	return t
}

func (t *idleTimer) touch() {
	if !t.fired.Load() {
		t.timer.Reset(t.timeout)
	}
}

func (t *idleTimer) stop() {
	t.timer.Stop()
}

// explain replaces the cancellation error caused by the timer with one that
// names the stall.
func (t *idleTimer) explain(err error) error {
	if t.fired.Load() {
		return fmt.Errorf("no data received for %s: %w", t.timeout, err)
	}
	return err
}

// FileName returns the local name used for an input.
func FileName(token, role, name string) string {
	clean := textutil.SanitizeFileName(name)
	if clean == "" {
		clean = role
	}
	return fmt.Sprintf("%s_%s_%s", token, role, clean)
}

func localPath(dir, token, role, name string) (string, error) {
	if strings.TrimSpace(dir) == "" || strings.TrimSpace(token) == "" {
		return "", services.Wrap(services.ErrValidation, "resolving_inputs", "", "directory and token are required", nil)
	}
	if role == "" {
		role = "input"
	}
	return filepath.Join(dir, FileName(token, role, name)), nil
}

// writeFile streams r into a new file at target. The file is removed on any
// failure.
func writeFile(target string, r io.Reader) (err error) {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(target)
		}
	}()
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// trackingReader remembers read failures so they can be told apart from
// local write failures.
// Each successful read restarts the idle timer.
type trackingReader struct {
	r    io.Reader
	idle *idleTimer
	err  error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 && t.idle != nil {
		t.idle.touch()
	}
	if err != nil && !errors.Is(err, io.EOF) {
		t.err = err
	}
	return n, err
}
