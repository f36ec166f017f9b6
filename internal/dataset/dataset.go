// Package dataset loads tabular clinical data from local CSV files or a
// remote URL. Headers are resolved through the column variant table, so
// files exported by different vendors load without renaming. All I/O lives
// here; the core pipeline never touches the filesystem or the network.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"heartguard/internal/schema"
)

var (
	// ErrNoTarget is returned when a training file has no resolvable label
	// column.
	ErrNoTarget = errors.New("dataset: no target column found")

	// ErrBadLabel is returned for label values other than 0 and 1.
	ErrBadLabel = errors.New("dataset: label values must be 0 or 1")
)

// Table is parsed tabular data with resolved canonical columns. Labels is
// populated only when the file carried a resolvable target column.
type Table struct {
	Records []map[string]any
	Labels  []int
	Labeled bool
}

// LoadFile reads and parses a CSV file from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("rows", len(t.Records)).Bool("labeled", t.Labeled).Msg("dataset loaded")
	return t, nil
}

// Read parses CSV with a header row. Columns that resolve to a canonical
// name are kept under that name; unresolvable columns are dropped. Cells
// are stored as strings and left to the transformer's coercion chain, with
// empty cells recorded as missing.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := schema.ResolveHeader(header)

	targetCol := -1
	for i, c := range cols {
		if c.OK && c.Canonical == schema.Target {
			targetCol = i
		}
	}

	t := &Table{Labeled: targetCol >= 0}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		line++

		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			if !c.OK || i >= len(row) || i == targetCol {
				continue
			}
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				rec[c.Canonical] = nil
			} else {
				rec[c.Canonical] = cell
			}
		}
		t.Records = append(t.Records, rec)

		if targetCol >= 0 {
			label, err := parseLabel(row, targetCol)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
			t.Labels = append(t.Labels, label)
		}
	}
	return t, nil
}

// LoadTraining loads a labeled dataset, failing when no target column is
// present.
func LoadTraining(path string) (*Table, error) {
	t, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if !t.Labeled {
		return nil, ErrNoTarget
	}
	return t, nil
}

func parseLabel(row []string, col int) (int, error) {
	if col >= len(row) {
		return 0, ErrBadLabel
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadLabel, row[col])
	}
	switch v {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrBadLabel, v)
}
