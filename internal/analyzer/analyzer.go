// Package analyzer turns the text output of platform inspection commands
// into typed records.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Analyzer derives one Result by running one external command against a file.
type Analyzer interface {
	Name() string
	Description() string
	// RequiredTools lists the executables Analyze invokes.
	RequiredTools() []string
	// CheckRequirements returns the required tools that cannot be found on PATH.
	// Nothing is executed.
	CheckRequirements() []string
	// Analyze never returns nil. Failures are reported with Success false.
	Analyze(ctx context.Context, path string, timeout time.Duration) *Result
}

// Result is the outcome of one analyzer run. Data holds the analyzer's payload
// in its JSON shape so that a stored and reloaded Result compares equal to the
// original.
type Result struct {
	Analyzer  string         `json:"-"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data"`
	Error     string         `json:"error,omitempty"`
	Truncated bool           `json:"truncated"`
}

// Failed builds an unsuccessful Result carrying msg.
func Failed(name, msg string) *Result {
	return &Result{
		Analyzer: name,
		Success:  false,
		Data:     map[string]any{},
		Error:    msg,
	}
}

// Options configures the built-in analyzers.
type Options struct {
	// Runner executes external commands. Defaults to an ExecRunner.
	Runner Runner
	// ObjectMode is passed to dump as -X<mode> when set (32, 64 or 32_64).
	ObjectMode string
	// MaxOutput caps the stdout bytes kept per command. Zero means DefaultMaxOutput.
	MaxOutput int64
}

func (o Options) runner() Runner {
	if o.Runner != nil {
		return o.Runner
	}
	return &ExecRunner{MaxOutput: o.MaxOutput}
}

func dumpArgs(objectMode, flag, path string) []string {
	if objectMode != "" {
		return []string{"-X" + objectMode, flag, path}
	}
	return []string{flag, path}
}

func missingTools(tools []string) []string {
	missing := []string{}
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}

// failure converts a runner error into a failed Result.
func failure(name string, err error, timeout time.Duration) *Result {
	if errors.Is(err, ErrTimeout) {
		return Failed(name, TimeoutMessage(timeout))
	}
	return Failed(name, err.Error())
}

// TimeoutMessage is the error text recorded when an analyzer runs out of time.
func TimeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("Timeout after %gs", timeout.Seconds())
}

func exitFailure(name string, out *CommandResult) *Result {
	msg := strings.TrimSpace(out.Stderr)
	if msg == "" {
		msg = fmt.Sprintf("Exit code %d", out.ExitCode)
	}
	return Failed(name, msg)
}

func success(name string, payload any, truncated bool) *Result {
	data, err := ToData(payload)
	if err != nil {
		return Failed(name, fmt.Sprintf("encode result: %v", err))
	}
	return &Result{
		Analyzer:  name,
		Success:   true,
		Data:      data,
		Truncated: truncated,
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// ToData converts a typed payload into its generic JSON mapping.
func ToData(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeData fills the typed payload v from a generic data mapping.
func DecodeData(data map[string]any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
