package models

import "time"

// Column is one (series, field) pair of a combined frame.
type Column struct {
	Series       string       `json:"series"`
	Field        string       `json:"field"`
	Fill         FillStrategy `json:"fill"`
	Values       []Value      `json:"values"`
	Interpolated []bool       `json:"interpolated"`
}

// Name is the display name "series:field".
func (c Column) Name() string { return ColumnName(c.Series, c.Field) }

// ColumnName joins a series identifier and field into a column name.
func ColumnName(series, field string) string { return series + ":" + field }

// CombinedFrame is the time-aligned union of several cleaned series.
type CombinedFrame struct {
	Dates   []time.Time `json:"dates"`
	Columns []Column    `json:"columns"`
}

// Column looks up a column by name.
func (f *CombinedFrame) Column(name string) (*Column, bool) {
	for i := range f.Columns {
		if f.Columns[i].Name() == name {
			return &f.Columns[i], true
		}
	}
	return nil, false
}

// ColumnNames returns all column names in frame order.
func (f *CombinedFrame) ColumnNames() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Name()
	}
	return out
}

// Len returns the number of dates.
func (f *CombinedFrame) Len() int { return len(f.Dates) }
