package models

import (
	"slices"
	"time"
)

// Status is the lifecycle state of one cached series.
type Status int

const (
	StatusNotFetched Status = iota
	StatusFetched
	StatusLoaded
	StatusChecked
	StatusCleaned
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNotFetched:
		return "not_fetched"
	case StatusFetched:
		return "fetched"
	case StatusLoaded:
		return "loaded"
	case StatusChecked:
		return "checked"
	case StatusCleaned:
		return "cleaned"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Row is one dated observation; Values are positional against the series' Fields.
type Row struct {
	Date   time.Time
	Values []Value
}

// CachedSeries is one dataset within one scenario window.
type CachedSeries struct {
	Spec   DatasetSpec
	Window Window
	Status Status
	Err    error

	Fields []string
	Rows   []Row

	key string
}

// NewCachedSeries creates a series in NotFetched state with its precomputed cache key.
func NewCachedSeries(spec DatasetSpec, window Window, key string) *CachedSeries {
	return &CachedSeries{Spec: spec, Window: window, Status: StatusNotFetched, key: key}
}

// ID is the series identifier used in problems and column names.
func (s *CachedSeries) ID() string { return s.Spec.ShortID }

// Key returns the canonical cache key.
func (s *CachedSeries) Key() string { return s.key }

// Fail moves the series into Error with reason err.
func (s *CachedSeries) Fail(err error) {
	s.Status = StatusError
	s.Err = err
}

// FieldIndex returns the position of field in Fields, or -1.
func (s *CachedSeries) FieldIndex(field string) int {
	return slices.Index(s.Fields, field)
}

// Dates returns the row dates in order.
func (s *CachedSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Date
	}
	return out
}

// Span returns the first and last observed dates; ok is false for an empty series.
func (s *CachedSeries) Span() (first, last time.Time, ok bool) {
	if len(s.Rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.Rows[0].Date, s.Rows[len(s.Rows)-1].Date, true
}
