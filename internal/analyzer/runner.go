package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrTimeout      = errors.New("command timed out")
	ErrToolNotFound = errors.New("command not found")
)

const (
	// DefaultMaxOutput is the stdout cap used when none is configured.
	DefaultMaxOutput int64 = 8 << 20

	maxStderr = 64 << 10

	// killGrace bounds how long Wait blocks on inherited pipes after the
	// process has been killed.
	killGrace = 2 * time.Second
)

// CommandResult is what a finished command produced.
type CommandResult struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	Truncated bool
}

// Runner executes an external command. The deadline of ctx bounds the run;
// exceeding it yields ErrTimeout and the process is killed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*CommandResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	MaxOutput int64
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	limit := r.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	stdout := &cappedBuffer{max: limit}
	stderr := &cappedBuffer{max: maxStderr}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = killGrace
	killProcessGroup(cmd)

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctxErr
	}

	result := &CommandResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated,
	}
	if result.Truncated {
		result.Stdout = completeLines(result.Stdout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", name, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// completeLines drops a trailing line cut off by the output cap.
func completeLines(s string) string {
	i := strings.LastIndexByte(s, '\n')
	if i < 0 {
		return ""
	}
	return s[:i+1]
}

// cappedBuffer keeps the first max bytes written and discards the rest
// without failing the writer.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.max - int64(b.buf.Len())
	if room <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if int64(len(p)) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string { return b.buf.String() }
