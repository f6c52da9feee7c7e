package media

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// CommandRunner executes an external tool and returns its captured output.
// Adapters accept one so tests can substitute a recorder.
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// RunCommand is the default CommandRunner backed by os/exec.
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExitCode extracts the process exit status from err, or -1 when the process
// did not run to completion.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
