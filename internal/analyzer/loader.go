package analyzer

import (
	"context"
	"slices"
	"strings"
	"time"
)

const (
	SymbolImport = "IMP"
	SymbolExport = "EXP"
)

var (
	importMarkers = []string{"IMP", "EXTref"}
	exportMarkers = []string{"EXP", "SECdef"}

	// storageClasses are the XCOFF csect storage-mapping classes printed by dump -T.
	storageClasses = []string{
		"PR", "RO", "DB", "GL", "XO", "SV", "SV64", "SV3264", "TI", "TB",
		"RW", "TC0", "TC", "TD", "DS", "UA", "BS", "UC", "TL", "UL", "TE",
	}
)

// Symbol is one loader-section symbol.
type Symbol struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address,omitempty"`
	Raw     string `json:"raw"`
}

// LoaderData is the payload of the dump-T analyzer.
type LoaderData struct {
	Imports     []Symbol `json:"imports"`
	Exports     []Symbol `json:"exports"`
	ImportCount int      `json:"import_count"`
	ExportCount int      `json:"export_count"`
	Raw         string   `json:"raw"`
}

// LoaderSymbolAnalyzer lists imported and exported symbols with dump -T.
type LoaderSymbolAnalyzer struct {
	runner     Runner
	objectMode string
}

func NewLoaderSymbolAnalyzer(opts Options) *LoaderSymbolAnalyzer {
	return &LoaderSymbolAnalyzer{runner: opts.runner(), objectMode: opts.ObjectMode}
}

func (a *LoaderSymbolAnalyzer) Name() string            { return "dump-T" }
func (a *LoaderSymbolAnalyzer) Description() string     { return "Display loader section (imports/exports)" }
func (a *LoaderSymbolAnalyzer) RequiredTools() []string { return []string{"dump"} }

func (a *LoaderSymbolAnalyzer) CheckRequirements() []string {
	return missingTools(a.RequiredTools())
}

func (a *LoaderSymbolAnalyzer) Analyze(ctx context.Context, path string, timeout time.Duration) *Result {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	out, err := a.runner.Run(ctx, "dump", dumpArgs(a.objectMode, "-Tv", path)...)
	if err != nil {
		return failure(a.Name(), err, timeout)
	}
	if out.ExitCode != 0 {
		// Some objects reject -v but still print the plain table.
		out, err = a.runner.Run(ctx, "dump", dumpArgs(a.objectMode, "-T", path)...)
		if err != nil {
			return failure(a.Name(), err, timeout)
		}
		if out.ExitCode != 0 {
			return exitFailure(a.Name(), out)
		}
	}

	imports, exports := ParseLoaderSymbols(out.Stdout)
	return success(a.Name(), LoaderData{
		Imports:     imports,
		Exports:     exports,
		ImportCount: len(imports),
		ExportCount: len(exports),
		Raw:         out.Stdout,
	}, out.Truncated)
}

// ParseLoaderSymbols classifies each line of dump -T output as an import or an
// export by its marker tokens. Import markers are checked first. Lines without
// a marker or without a recoverable name are skipped.
func ParseLoaderSymbols(output string) (imports, exports []Symbol) {
	imports, exports = []Symbol{}, []Symbol{}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}

		switch {
		case hasAny(parts, importMarkers):
			if name := symbolName(parts); name != "" {
				imports = append(imports, Symbol{Name: name, Type: SymbolImport, Raw: line})
			}
		case hasAny(parts, exportMarkers):
			if name := symbolName(parts); name != "" {
				exports = append(exports, Symbol{
					Name:    name,
					Type:    SymbolExport,
					Address: firstHex(parts),
					Raw:     line,
				})
			}
		}
	}
	return imports, exports
}

func hasAny(parts, markers []string) bool {
	for _, m := range markers {
		if slices.Contains(parts, m) {
			return true
		}
	}
	return false
}

// symbolName walks the tokens from the end and returns the first one that is
// not a marker, storage class, hex value, bracketed index, number or
// dot-prefixed csect name.
func symbolName(parts []string) string {
	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		switch {
		case slices.Contains(importMarkers, p), slices.Contains(exportMarkers, p):
		case slices.Contains(storageClasses, p):
		case strings.HasPrefix(p, "0x"), strings.HasPrefix(p, "["):
		case isDigits(p):
		case strings.HasPrefix(p, "."):
		default:
			return p
		}
	}
	return ""
}

func firstHex(parts []string) string {
	for _, p := range parts {
		if strings.HasPrefix(p, "0x") {
			return p
		}
	}
	return ""
}
