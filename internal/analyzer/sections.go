package analyzer

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Section is one row of a section header table. Only Index and Name are
// always present.
type Section struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Size       string `json:"size,omitempty"`
	VMA        string `json:"vma,omitempty"`
	LMA        string `json:"lma,omitempty"`
	FileOffset string `json:"file_offset,omitempty"`
	Address    string `json:"address,omitempty"`
}

// SectionData is the payload of the dump-h analyzer.
type SectionData struct {
	Sections []Section `json:"sections"`
	Count    int       `json:"count"`
	Raw      string    `json:"raw"`
}

// denseSection matches the vendor layout "index name size address" anywhere in
// the output. It is permissive on purpose and can match rows of unrelated tables.
var denseSection = regexp.MustCompile(`(?m)^\s*\[?\s*(\d+)\]?\s+(\.\w+|\w+)\s+([0-9a-fA-Fx]+)\s+([0-9a-fA-Fx]+)`)

// SectionHeaderAnalyzer lists section headers with dump -h.
type SectionHeaderAnalyzer struct {
	runner     Runner
	objectMode string
}

func NewSectionHeaderAnalyzer(opts Options) *SectionHeaderAnalyzer {
	return &SectionHeaderAnalyzer{runner: opts.runner(), objectMode: opts.ObjectMode}
}

func (a *SectionHeaderAnalyzer) Name() string            { return "dump-h" }
func (a *SectionHeaderAnalyzer) Description() string     { return "Display section headers" }
func (a *SectionHeaderAnalyzer) RequiredTools() []string { return []string{"dump"} }

func (a *SectionHeaderAnalyzer) CheckRequirements() []string {
	return missingTools(a.RequiredTools())
}

func (a *SectionHeaderAnalyzer) Analyze(ctx context.Context, path string, timeout time.Duration) *Result {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	out, err := a.runner.Run(ctx, "dump", dumpArgs(a.objectMode, "-h", path)...)
	if err != nil {
		return failure(a.Name(), err, timeout)
	}
	if out.ExitCode != 0 {
		return exitFailure(a.Name(), out)
	}

	sections := ParseSections(out.Stdout)
	return success(a.Name(), SectionData{
		Sections: sections,
		Count:    len(sections),
		Raw:      out.Stdout,
	}, out.Truncated)
}

// ParseSections reads the whitespace table introduced by a header row naming
// both "Idx" and "Name". When that yields nothing the dense layout is matched
// over the whole output instead. Sections keep their first-seen order.
func ParseSections(output string) []Section {
	sections := parseSectionTable(output)
	if len(sections) == 0 {
		sections = parseDenseSections(output)
	}
	return sections
}

func parseSectionTable(output string) []Section {
	sections := []Section{}
	inTable := false

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "Idx") && strings.Contains(line, "Name") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 || !isDigits(parts[0]) {
			continue
		}
		idx, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		s := Section{Index: idx, Name: parts[1]}
		optional := []*string{&s.Size, &s.VMA, &s.LMA, &s.FileOffset}
		for i, field := range optional {
			if len(parts) > i+2 {
				*field = parts[i+2]
			}
		}
		sections = append(sections, s)
	}
	return sections
}

func parseDenseSections(output string) []Section {
	sections := []Section{}
	for _, m := range denseSection.FindAllStringSubmatch(output, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		sections = append(sections, Section{
			Index:   idx,
			Name:    m[2],
			Size:    m[3],
			Address: m[4],
		})
	}
	return sections
}
