package io

import (
	"encoding/csv"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/errors"
)

var (
	sourceColumns = []string{"source", "from", "src"}
	targetColumns = []string{"target", "to", "dst"}
	weightColumns = []string{"weight", "value", "strength"}
)

type columns struct {
	source, target, weight int
}

// headerColumns maps a header row to column indexes. ok is false if the row
// does not look like a header.
func headerColumns(row []string) (columns, bool) {
	c := columns{source: -1, target: -1, weight: -1}
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case slices.Contains(sourceColumns, name):
			c.source = i
		case slices.Contains(targetColumns, name):
			c.target = i
		case slices.Contains(weightColumns, name):
			c.weight = i
		}
	}
	return c, c.source >= 0 && c.target >= 0
}

// ReadCSV reads a delimited edge list. Blank and '#'-prefixed lines are
// skipped. Empty weight cells default to 1.
func ReadCSV(r io.Reader, comma rune) (*graph.Graph, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	g := graph.New()
	cols := columns{source: 0, target: 1, weight: 2}
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read csv")
		}
		line, _ := reader.FieldPos(0)

		if first {
			first = false
			if h, ok := headerColumns(row); ok {
				cols = h
				continue
			}
		}

		if cols.source >= len(row) || cols.target >= len(row) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: expected source and target columns", line)
		}
		source := strings.TrimSpace(row[cols.source])
		target := strings.TrimSpace(row[cols.target])

		weight := graph.DefaultWeight
		if cols.weight >= 0 && cols.weight < len(row) {
			if cell := strings.TrimSpace(row[cols.weight]); cell != "" {
				weight, err = strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d: weight %q", line, cell)
				}
			}
		}

		if err := AddEdge(g, source, target, weight); err != nil {
			return nil, err
		}
	}
	return g, nil
}
