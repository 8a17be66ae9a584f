// Package export renders query results as JSON for downstream consumers.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"wikistats/pkg/wikiquery"
)

// Marshal renders the results as subject → language → page, where null marks
// a subject that was not found in any language. Sets come out as sorted
// arrays, so output is stable across runs.
func Marshal(q *wikiquery.Query) ([]byte, error) {
	data, err := json.MarshalIndent(q.Results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}
	return data, nil
}

// Write streams the marshaled results to w.
func Write(w io.Writer, q *wikiquery.Query) error {
	data, err := Marshal(q)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

// Save writes the results to a file.
func Save(path string, q *wikiquery.Query) error {
	data, err := Marshal(q)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
