package store

import (
	"fmt"
	"path"
	"strings"
)

const recordExt = ".json"

// RelPath maps an absolute file path to its record path inside a snapshot
// set: the leading separator and a drive-letter colon are dropped and the
// record extension is appended. Only POSIX absolute paths map back exactly.
func RelPath(filePath string) string {
	p := strings.ReplaceAll(filePath, "\\", "/")
	if hasDriveLetter(p) {
		p = p[:1] + p[2:]
	}
	p = path.Clean("/" + strings.TrimLeft(p, "/"))
	p = strings.TrimLeft(p, "/")
	return p + recordExt
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// FilePath is the inverse of RelPath.
func FilePath(relPath string) string {
	return "/" + strings.TrimSuffix(strings.TrimLeft(relPath, "/"), recordExt)
}

// ValidateName rejects set names that are empty or could escape the
// snapshots directory or break a registry row.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\t\n\r"):
		return fmt.Errorf("%w: %q contains a path separator or control character", ErrInvalidName, name)
	case strings.HasPrefix(name, "#"):
		return fmt.Errorf("%w: %q starts with #", ErrInvalidName, name)
	}
	return nil
}
