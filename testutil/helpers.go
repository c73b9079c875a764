package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pase-tools/xcoffscan/internal/xcoff"
)

func BuildTestBinary(t *testing.T) string {
	tmpDir := t.TempDir()

	binaryPath := filepath.Join(tmpDir, "xcoff")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/xcoff")
	cmd.Dir = findProjectRoot(t)

	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build test binary: %v\n%s", err, out)
	}

	return binaryPath
}

func findProjectRoot(t *testing.T) string {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			t.Fatalf("could not find project root (go.mod)")
		}
		wd = parent
	}
}

var pathMu sync.Mutex

// FakeTool writes an executable shell script called name into a temporary
// bin directory and puts that directory first on PATH for the rest of the test.
// The script body runs under /bin/sh; "$@" holds the arguments.
func FakeTool(t *testing.T, name, body string) string {
	t.Helper()

	pathMu.Lock()
	defer pathMu.Unlock()

	binDir := toolDir(t)
	toolPath := filepath.Join(binDir, name)
	script := "#!/bin/sh\n" + body
	if !strings.HasSuffix(script, "\n") {
		script += "\n"
	}
	if err := os.WriteFile(toolPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake tool %s: %v", name, err)
	}
	return toolPath
}

// EmptyPath replaces PATH with an empty directory so no external tool resolves.
func EmptyPath(t *testing.T) {
	t.Helper()
	t.Setenv("PATH", t.TempDir())
}

func toolDir(t *testing.T) string {
	path := os.Getenv("PATH")
	marker := os.Getenv("XCOFF_TEST_BIN")
	if marker != "" && strings.HasPrefix(path, marker+string(os.PathListSeparator)) {
		return marker
	}

	dir := t.TempDir()
	t.Setenv("XCOFF_TEST_BIN", dir)
	t.Setenv("PATH", dir+string(os.PathListSeparator)+path)
	return dir
}

// EchoScript returns a script body that prints output verbatim and exits with code.
func EchoScript(output string, code int) string {
	var b strings.Builder
	b.WriteString("cat <<'XCOFF_EOF'\n")
	b.WriteString(output)
	if !strings.HasSuffix(output, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("XCOFF_EOF\n")
	b.WriteString("exit ")
	b.WriteString(strconv.Itoa(code))
	b.WriteString("\n")
	return b.String()
}

// HeaderBytes encodes h the way an XCOFF file stores it.
func HeaderBytes(h xcoff.Header) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, h)
	return buf.Bytes()
}

// WriteObject writes a file that starts with the encoded header h and is
// padded with zeros up to size bytes.
func WriteObject(t *testing.T, dir, name string, h xcoff.Header, size int) string {
	t.Helper()

	data := HeaderBytes(h)
	if size > len(data) {
		data = append(data, make([]byte, size-len(data))...)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write object %s: %v", path, err)
	}
	return path
}

// ValidObject writes a small 32-bit object with a sane header.
func ValidObject(t *testing.T, dir, name string) string {
	t.Helper()
	return WriteObject(t, dir, name, xcoff.Header{
		Magic:        xcoff.Magic32,
		Sections:     3,
		Timestamp:    1700000000,
		SymbolOffset: 64,
		SymbolCount:  2,
		Flags:        0x0002,
	}, 128)
}

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
