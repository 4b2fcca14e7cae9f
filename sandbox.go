package agentgate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

const (
	// defaultSandboxTimeout bounds command runtime when the caller does not.
	defaultSandboxTimeout = 2 * time.Minute

	// defaultMaxOutputBytes caps captured stdout and stderr, each.
	defaultMaxOutputBytes = 10 * 1024 * 1024

	// truncationMarker is appended to a stream that hit the output cap.
	truncationMarker = "\n[output truncated]"
)

// SandboxOptions configures a sandboxed execution.
type SandboxOptions struct {
	// Dir is the working directory. Empty means the caller's directory.
	Dir string

	// Timeout bounds command runtime. Zero or negative selects the default.
	Timeout time.Duration

	// MaxOutputBytes caps captured stdout and stderr, each. Zero or
	// negative selects the default.
	MaxOutputBytes int

	// Env holds "KEY=value" entries to pass through to the child on top
	// of the sanitized parent environment; see CreateSanitizedEnv. The
	// child never receives the parent environment unfiltered.
	Env []string
}

// SandboxResult is the uniform outcome of a sandboxed execution. Every
// failure mode is expressed through its fields: a binary that cannot be
// spawned yields ExitCode 1 with the spawn error in Stderr, and a timeout
// sets TimedOut alongside the process-group kill's exit code.
type SandboxResult struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	TimedOut  bool
	Truncated bool
	Duration  time.Duration
}

// ExecuteInSandbox runs a binary with the given arguments under output and
// time limits. The binary is invoked directly, never through a shell, so
// the arguments reach the process exactly as given and no operator in them
// is interpreted. The command runs in its own process group and the whole
// group is killed on timeout or context cancellation.
//
// Permission checking is the caller's job; pass only commands that
// CheckCommand allowed.
func ExecuteInSandbox(ctx context.Context, binary string, args []string, opts SandboxOptions) *SandboxResult {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultSandboxTimeout
	}
	maxOutput := opts.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = defaultMaxOutputBytes
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = opts.Dir
	cmd.Env = CreateSanitizedEnv(opts.Env)

	var stdout, stderr bytes.Buffer
	var stdoutWriter, stderrWriter io.Writer
	stdoutWriter = &limitedWriter{buf: &stdout, limit: maxOutput}
	stderrWriter = &limitedWriter{buf: &stderr, limit: maxOutput}
	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	setupProcessGroup(cmd)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	res := &SandboxResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Spawn failure (binary not found, permission denied, bad
			// working directory). Surface it in-band.
			res.ExitCode = 1
			if res.Stderr != "" {
				res.Stderr += "\n"
			}
			res.Stderr += err.Error()
		}
	}

	if stdout.Len() >= maxOutput {
		res.Truncated = true
		res.Stdout += truncationMarker
	}
	if stderr.Len() >= maxOutput {
		res.Truncated = true
		res.Stderr += truncationMarker
	}
	return res
}

// limitedWriter wraps a bytes.Buffer and stops writing after limit bytes.
type limitedWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard but report success
	}
	if len(p) <= remaining {
		return w.buf.Write(p)
	}
	// Write only what fits, but report full length to avoid io.ErrShortWrite.
	_, err := w.buf.Write(p[:remaining])
	if err != nil {
		return 0, err
	}
	return len(p), nil
}
