package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalPV converts a principal variation to JSON TEXT for storage.
// A nil PV is stored as "[]" so the column is never NULL.
func marshalPV(pv []string) (string, error) {
	if pv == nil {
		pv = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pv); err != nil {
		return "", fmt.Errorf("marshal pv: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// unmarshalPV parses JSON TEXT back into a principal variation.
func unmarshalPV(data string) ([]string, error) {
	var pv []string
	if err := json.Unmarshal([]byte(data), &pv); err != nil {
		return nil, fmt.Errorf("unmarshal pv: %w", err)
	}
	return pv, nil
}
