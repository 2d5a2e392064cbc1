// Package parser decodes provider CSV payloads into dated rows.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"AlphaKit/internal/domain/models"
	"AlphaKit/pkg/util"
)

// ErrParse is returned for structurally invalid payloads.
var ErrParse = errors.New("parse")

// Table is a decoded payload: the value header (index column removed) and rows in file order.
type Table struct {
	Fields []string
	Rows   []models.Row
}

// ParseCSV reads a header-plus-rows payload whose indexColumn holds the date.
// Empty or non-numeric cells become undefined values.
func ParseCSV(r io.Reader, indexColumn string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty payload", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrParse, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idx := -1
	fields := make([]string, 0, len(header))
	cols := make([]int, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if strings.EqualFold(h, indexColumn) && idx < 0 {
			idx = i
			continue
		}
		fields = append(fields, h)
		cols = append(cols, i)
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: index column %q not in header %v", ErrParse, indexColumn, header)
	}

	t := &Table{Fields: fields}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrParse, line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if idx >= len(rec) {
			return nil, fmt.Errorf("%w: line %d: missing date", ErrParse, line)
		}
		day, ok := util.ParseDate(strings.TrimSpace(rec[idx]))
		if !ok {
			return nil, fmt.Errorf("%w: line %d: bad date %q", ErrParse, line, rec[idx])
		}
		values := make([]models.Value, len(cols))
		for j, c := range cols {
			if c < len(rec) {
				values[j] = parseValue(rec[c])
			}
		}
		t.Rows = append(t.Rows, models.Row{Date: day, Values: values})
	}
	return t, nil
}

func parseValue(s string) models.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.None()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.None()
	}
	return models.Some(f)
}
