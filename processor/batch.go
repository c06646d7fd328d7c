package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Batch is one tabular page of booking rows. Column order follows the
// order of keys in the source JSON objects; rows are aligned to Columns,
// with nil for fields a given object did not carry.
type Batch struct {
	Columns []string
	Rows    [][]interface{}
}

// Empty reports whether the batch carries no rows.
func (b *Batch) Empty() bool {
	return b == nil || len(b.Rows) == 0
}

// NumRows returns the number of rows in the batch.
func (b *Batch) NumRows() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// NumColumns returns the number of columns in the batch.
func (b *Batch) NumColumns() int {
	if b == nil {
		return 0
	}
	return len(b.Columns)
}

// ColumnIndex returns the position of the named column, or -1 when absent.
func (b *Batch) ColumnIndex(name string) int {
	for i, col := range b.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// UnmarshalJSON decodes a JSON array of objects into the batch. The decode
// walks tokens directly because an intermediate map would lose the key
// order the staging table relies on.
func (b *Batch) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("error reading results: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return fmt.Errorf("expected JSON array of results, got %v", tok)
	}

	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("error reading result object: %w", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return fmt.Errorf("expected JSON object in results, got %v", tok)
		}

		row := make([]interface{}, len(b.Columns))
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("error reading object key: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return fmt.Errorf("expected object key, got %v", keyTok)
			}

			var value interface{}
			if err := dec.Decode(&value); err != nil {
				return fmt.Errorf("error decoding value for %q: %w", key, err)
			}

			i, seen := index[key]
			if !seen {
				// A column first observed mid-batch is appended and the
				// earlier rows padded; validation catches shape drift.
				i = len(b.Columns)
				index[key] = i
				b.Columns = append(b.Columns, key)
				for j := range b.Rows {
					b.Rows[j] = append(b.Rows[j], nil)
				}
				row = append(row, nil)
			}
			row[i] = value
		}
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("error reading object end: %w", err)
		}
		b.Rows = append(b.Rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("error reading array end: %w", err)
	}
	return nil
}
