package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// closest returns the candidate that best matches name, or "".
func closest(name string, candidates []string) string {
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

func unknownNameError(kind, name string, candidates []string) error {
	if s := closest(name, candidates); s != "" {
		return fmt.Errorf("unknown %s %q (did you mean %q?)", kind, name, s)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("unknown %s %q", kind, name)
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	return fmt.Errorf("unknown %s %q (available: %s)", kind, name, strings.Join(sorted, ", "))
}

// checkAnalyzerNames rejects any name not in the registry.
func (a *app) checkAnalyzerNames(names ...[]string) error {
	for _, list := range names {
		if unknown := a.registry.Unknown(list); len(unknown) > 0 {
			return unknownNameError("analyzer", unknown[0], a.registry.Names())
		}
	}
	return nil
}

// splitList flattens repeated and comma-separated flag values.
func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
