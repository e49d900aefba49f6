package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnparseableReport = errors.New("could not parse report")
	ErrInvalidReport     = errors.New("invalid report structure")
)

// RequiredSnapshotFields must be present on every row of a report handed in
// from outside the engine.
var RequiredSnapshotFields = []string{
	FieldParentCode,
	FieldClientName,
	FieldProjectName,
	FieldRank,
	FieldProjectCode,
	FieldNetSales,
}

// ParseSnapshotText extracts a JSON report from free text. A ```json fenced
// block is preferred; otherwise the whole text is parsed.
func ParseSnapshotText(text string) (any, error) {
	if _, rest, ok := strings.Cut(text, "```json"); ok {
		block, _, _ := strings.Cut(rest, "```")
		if v, err := decodeJSON(strings.TrimSpace(block)); err == nil {
			return v, nil
		}
	}
	v, err := decodeJSON(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableReport, err)
	}
	return v, nil
}

// ValidateSnapshot checks the report is a list of objects carrying every
// required field with a numeric net sales value.
func ValidateSnapshot(v any) ([]map[string]any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: report must be a list", ErrInvalidReport)
	}
	rows := make([]map[string]any, 0, len(items))
	for i, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: row %d is not an object", ErrInvalidReport, i)
		}
		for _, field := range RequiredSnapshotFields {
			if _, exists := row[field]; !exists {
				return nil, fmt.Errorf("%w: row %d missing %s", ErrInvalidReport, i, field)
			}
		}
		if _, ok := row[FieldNetSales].(json.Number); !ok {
			return nil, fmt.Errorf("%w: row %d %s is not a number", ErrInvalidReport, i, FieldNetSales)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}
