package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/pase-tools/xcoffscan/internal/analyzer"
)

// RecordVersion is written into every persisted snapshot.
const RecordVersion = "1.0"

type record struct {
	Version string `json:"version"`
	*Snapshot
}

// Encode renders snap as an indented JSON record.
func Encode(snap *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(record{Version: RecordVersion, Snapshot: snap}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a JSON record written by Encode.
func Decode(data []byte) (*Snapshot, error) {
	rec := record{Snapshot: &Snapshot{}}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if rec.Version != RecordVersion {
		return nil, fmt.Errorf("unsupported snapshot version %q", rec.Version)
	}

	snap := rec.Snapshot
	if snap.Results == nil {
		snap.Results = map[string]*analyzer.Result{}
	}
	for name, r := range snap.Results {
		if r == nil {
			return nil, fmt.Errorf("snapshot result %q is empty", name)
		}
		r.Analyzer = name
		if r.Data == nil {
			r.Data = map[string]any{}
		}
	}
	return snap, nil
}
