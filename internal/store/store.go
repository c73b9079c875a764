// Package store persists named snapshot sets under a database directory:
//
//	<root>/snapshots/<name>/<path without leading separator>.json
//	<root>/registry.txt
//
// The registry is rewritten in full on every change. A Store must have a
// single writer per root.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pase-tools/xcoffscan/internal/logging"
	"github.com/pase-tools/xcoffscan/internal/snapshot"
)

var (
	ErrNotFound    = errors.New("snapshot not found")
	ErrInvalidName = errors.New("invalid snapshot name")
)

const (
	registryFile  = "registry.txt"
	snapshotsDir  = "snapshots"
	createdLayout = time.RFC3339
)

type Store struct {
	root   string
	clock  snapshot.Clock
	logger logging.Logger
	schema *jsonschema.Schema
}

type Option func(*Store)

func WithClock(c snapshot.Clock) Option { return func(s *Store) { s.clock = c } }

func WithLogger(l logging.Logger) Option { return func(s *Store) { s.logger = l } }

// New opens the database at root. Directories are created on first write.
func New(root string, opts ...Option) (*Store, error) {
	schema, err := compileRecordSchema()
	if err != nil {
		return nil, err
	}
	s := &Store{
		root:   root,
		clock:  systemClock{},
		logger: logging.Nop(),
		schema: schema,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (s *Store) Root() string { return s.root }

func (s *Store) setDir(name string) string {
	return filepath.Join(s.root, snapshotsDir, name)
}

func (s *Store) recordPath(name, filePath string) string {
	return filepath.Join(s.setDir(name), filepath.FromSlash(RelPath(filePath)))
}

// Store names snap and writes it into the set name, replacing any earlier
// record for the same file. It returns the record's location.
func (s *Store) Store(name string, snap *snapshot.Snapshot) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	// snap is only named once its record and registry row are written.
	named := *snap
	if err := named.SetName(name); err != nil {
		return "", err
	}

	data, err := snapshot.Encode(&named)
	if err != nil {
		return "", err
	}

	path := s.recordPath(name, snap.FilePath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
XX, "name", name, "filepath", snap.FilePath, "record", path)
	return path, nil
}

// Load returns the snapshot of filePath in the set name. Missing and
// unreadable records both yield ErrNotFound.
func (s *Store) Load(name, filePath string) (*snapshot.Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	path := s.recordPath(name, filePath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, filePath, name)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if err := validateRecord(s.schema, data); err != nil {
		s.logger.Warn("ignoring corrupt snapshot record", "record", path, "error", err)
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, filePath, name)
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		s.logger.Warn("ignoring corrupt snapshot record", "record", path, "error", err)
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, filePath, name)
	}
	return snap, nil
}

// LoadSet loads every readable record of the set name keyed by file path.
// Corrupt records are skipped.
func (s *Store) LoadSet(name string) (map[string]*snapshot.Snapshot, error) {
	files, err := s.ListFiles(name)
	if err != nil {
		return nil, err
	}
	set := make(map[string]*snapshot.Snapshot, len(files))
	for _, f := range files {
		snap, err := s.Load(name, f)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		set[f] = snap
	}
	return set, nil
}

// Exists reports whether the set directory for name is present.
func (s *Store) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	info, err := os.Stat(s.setDir(name))
	return err == nil && info.IsDir()
}

// ListSnapshots returns the registry entries plus an entry for every set
// directory the registry does not know about.
func (s *Store) ListSnapshots() (map[string]Entry, error) {
	entries, err := s.readRegistry()
	if err != nil {
		return nil, err
	}

	dirs, err := os.ReadDir(filepath.Join(s.root, snapshotsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if _, ok := entries[d.Name()]; ok {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", d.Name(), err)
		}
		count, err := countRecords(s.setDir(d.Name()))
		if err != nil {
			return nil, err
		}
		entries[d.Name()] = Entry{
			Created:   info.ModTime().Format(createdLayout),
			FileCount: count,
		}
	}
	return entries, nil
}

// ListFiles returns the sorted file paths recorded in the set name. An
// unknown set has no files.
func (s *Store) ListFiles(name string) ([]string, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	dir := s.setDir(name)
	files := []string{}
	err := walkRecords(dir, func(path string) error {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, FilePath(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", name, err)
	}
	sort.Strings(files)
	return files, nil
}

// DeleteSnapshot removes the set name and its registry row. It reports
// false when no such set exists.
func (s *Store) DeleteSnapshot(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	dir := s.setDir(name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", name, err)
	}
	if err := s.removeFromRegistry(name); err != nil {
		return false, err
	}

	s.logger.Info("snapshot set deleted", "name", name)
	return true, nil
}

// Describe sets the registry description of an existing set.
func (s *Store) Describe(name, description string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if !s.Exists(name) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.updateRegistry(name, &description)
}

func countRecords(dir string) (int, error) {
	n := 0
	err := walkRecords(dir, func(string) error {
		n++
		return nil
	})
	return n, err
}

// walkRecords calls fn for every record file below dir. A missing dir has
// no records.
func walkRecords(dir string, fn func(path string) error) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), recordExt) {
			return nil
		}
		return fn(path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
