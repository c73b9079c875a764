package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const registryHeader = "# XCOFF Scan Registry\n# NAME\tCREATED\tFILE_COUNT\tDESCRIPTION\n"

// Entry describes one named snapshot set.
type Entry struct {
	Created     string `json:"created"`
	FileCount   int    `json:"file_count"`
	Description string `json:"description"`
}

func (s *Store) registryPath() string {
	return filepath.Join(s.root, registryFile)
}

// readRegistry parses registry.txt. A missing file is an empty registry;
// malformed rows are skipped.
func (s *Store) readRegistry() (map[string]Entry, error) {
	entries := map[string]Entry{}

	f, err := os.Open(s.registryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			s.logger.Warn("skipping malformed registry row", "row", line)
			continue
		}
		count, err := strconv.Atoi(parts[2])
		if err != nil {
			s.logger.Warn("skipping registry row with bad file count", "row", line)
			continue
		}
		e := Entry{Created: parts[1], FileCount: count}
		if len(parts) > 3 {
			e.Description = parts[3]
		}
		entries[parts[0]] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return entries, nil
}

// writeRegistry rewrites registry.txt in full, sorted by name, through a
// temporary file and rename.
func (s *Store) writeRegistry(entries map[string]Entry) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(registryHeader)
	for _, name := range names {
		e := entries[name]
		fmt.Fprintf(&b, "%s\t%s\t%d\t%s\n", name, e.Created, e.FileCount, oneLine(e.Description))
	}

	return writeFileAtomic(s.registryPath(), []byte(b.String()))
}

// updateRegistry recounts the records of name and keeps its created time
// when the entry already exists.
func (s *Store) updateRegistry(name string, description *string) error {
	entries, err := s.readRegistry()
	if err != nil {
		return err
	}
	count, err := countRecords(s.setDir(name))
	if err != nil {
		return err
	}

	e, ok := entries[name]
	if !ok {
		e.Created = s.clock.Now().Format(createdLayout)
	}
	e.FileCount = count
	if description != nil {
		e.Description = oneLine(*description)
	}
	entries[name] = e

	return s.writeRegistry(entries)
}

func (s *Store) removeFromRegistry(name string) error {
	entries, err := s.readRegistry()
	if err != nil {
		return err
	}
	if _, ok := entries[name]; !ok {
		if _, statErr := os.Stat(s.registryPath()); os.IsNotExist(statErr) {
			return nil
		}
	}
	delete(entries, name)
	return s.writeRegistry(entries)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
