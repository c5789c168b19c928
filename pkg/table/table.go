// Package table flattens Blockfrost records into rows and columns.
package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// ValueColumn holds records that are not JSON objects.
const ValueColumn = "value"

// Table is a set of records sharing one column list. Missing fields are
// empty strings.
type Table struct {
	Columns []string
	Rows    [][]string
}

// FromRecords builds a Table from top-level record fields. Columns appear in
// the order they are first seen. Nested objects and arrays are kept as
// compact JSON.
func FromRecords(records []json.RawMessage) (*Table, error) {
	t := &Table{}
	index := make(map[string]int)
	rows := make([]map[string]string, 0, len(records))

	addColumn := func(name string) {
		if _, ok := index[name]; !ok {
			index[name] = len(t.Columns)
			t.Columns = append(t.Columns, name)
		}
	}

	for i, rec := range records {
		trimmed := bytes.TrimSpace(rec)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			keys, fields, err := ObjectFields(trimmed)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			row := make(map[string]string, len(keys))
			for _, k := range keys {
				addColumn(k)
				row[k] = cell(fields[k])
			}
			rows = append(rows, row)
			continue
		}

		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("record %d: invalid JSON", i)
		}
		addColumn(ValueColumn)
		rows = append(rows, map[string]string{ValueColumn: cell(trimmed)})
	}

	t.Rows = make([][]string, len(rows))
	for i, row := range rows {
		out := make([]string, len(t.Columns))
		for k, v := range row {
			out[index[k]] = v
		}
		t.Rows[i] = out
	}
	return t, nil
}

// ObjectFields decodes a JSON object into its keys, in document order, and
// their raw values. A repeated key keeps its first position and last value.
func ObjectFields(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("not a json object")
	}

	var keys []string
	fields := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", key, err)
		}
		if _, seen := fields[key]; !seen {
			keys = append(keys, key)
		}
		fields[key] = value
	}
	return keys, fields, nil
}

// cell renders a JSON value: strings unquoted, null empty, everything else
// as compact JSON.
func cell(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// WriteCSV writes a header row followed by every row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
