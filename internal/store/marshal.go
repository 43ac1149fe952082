package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/soltest/internal/report"
)

// marshalPath converts a group path to canonical JSON TEXT for storage.
func marshalPath(path []string) (string, error) {
	if path == nil {
		path = []string{}
	}
	data, err := report.MarshalCanonical(path)
	if err != nil {
		return "", fmt.Errorf("marshal path: %w", err)
	}
	return string(data), nil
}

// unmarshalPath parses a stored group path. An empty array yields a nil
// path, matching outcomes recorded at the root.
func unmarshalPath(text string) ([]string, error) {
	var path []string
	if err := json.Unmarshal([]byte(text), &path); err != nil {
		return nil, fmt.Errorf("unmarshal path: %w", err)
	}
	if len(path) == 0 {
		return nil, nil
	}
	return path, nil
}
