// Package conditions loads trial records from tabular condition files.
//
// A condition file is the caller-owned source of the trial set: a CSV file
// with a header row naming fields, or a YAML list of field maps. The
// sequencing engine only ever sees the resulting trial.Set; parsing and
// row selection are entirely this package's concern.
package conditions

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/openbehavior/trialrun/internal/trial"
)

// Load reads a condition file and applies a row-selection expression.
// The format is chosen by extension: .csv, .yaml, or .yml.
// See ParseSelection for the selection syntax; an empty expression keeps
// every row.
func Load(path, selection string) (*trial.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open condition file: %w", err)
	}
	defer f.Close()

	var records []trial.Record
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		records, err = ReadCSV(f)
	case ".yaml", ".yml":
		records, err = ReadYAML(f)
	default:
		return nil, fmt.Errorf("unsupported condition file extension %q (want .csv, .yaml, or .yml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	rows, err := ParseSelection(selection, len(records))
	if err != nil {
		return nil, fmt.Errorf("selection %q: %w", selection, err)
	}

	selected := make([]trial.Record, len(rows))
	for i, row := range rows {
		selected[i] = records[row]
	}
	return trial.NewSet(selected), nil
}

// ReadCSV parses condition records from CSV data. The first row is a
// header naming the fields; every later row is one trial record. Cell
// values are typed by inference: int, then float, then bool, else string.
func ReadCSV(r io.Reader) ([]trial.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	fields := make([]string, len(header))
	for i, name := range header {
		fields[i] = normalizeField(name)
		if fields[i] == "" {
			return nil, fmt.Errorf("header column %d is empty", i)
		}
	}

	var records []trial.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := make(trial.Record, len(fields))
		for i, field := range fields {
			rec[field] = inferValue(row[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadYAML parses condition records from a YAML list of field maps.
// Unknown structure (a non-list document, a non-map item) is an error.
func ReadYAML(r io.Reader) ([]trial.Record, error) {
	dec := yaml.NewDecoder(r)

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode YAML list: %w", err)
	}

	records := make([]trial.Record, len(raw))
	for i, m := range raw {
		rec := make(trial.Record, len(m))
		for k, v := range m {
			field := normalizeField(k)
			if field == "" {
				return nil, fmt.Errorf("item %d: empty field name", i)
			}
			rec[field] = v
		}
		records[i] = rec
	}
	return records, nil
}

// normalizeField canonicalizes a field name: trimmed and NFC-normalized,
// so the same visible name always maps to the same key regardless of how
// the authoring tool composed its Unicode.
func normalizeField(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// inferValue types a CSV cell: int, then float, then bool, else the raw
// string. Quoted cells arrive here already unquoted, so "true" the word
// and true the flag are indistinguishable; condition authors who need the
// literal string should use YAML.
func inferValue(cell string) any {
	s := strings.TrimSpace(cell)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
