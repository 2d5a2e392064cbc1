package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDataset is returned when a short identifier is absent from the registry.
	ErrUnknownDataset = errors.New("unknown dataset")
	// ErrFormat is returned for malformed cache keys or key fields.
	ErrFormat = errors.New("cache key format")
	// ErrFetch is the root of every transport or persistence failure.
	ErrFetch = errors.New("fetch failed")
	// ErrAlignment is returned when series cannot be aligned (duplicate dates).
	ErrAlignment = errors.New("alignment")
	// ErrUnsortedIndex is returned when a derived metric is fed a non-ascending date index.
	ErrUnsortedIndex = errors.New("unsorted index")
	// ErrCorrelationInput is returned when a scalar correlation has no valid overlap.
	ErrCorrelationInput = errors.New("correlation input")
	// ErrCancelled marks a series whose fetch was aborted by the run deadline or caller.
	ErrCancelled = errors.New("cancelled")
	// ErrStateOrder is returned when a scenario step runs before its predecessor.
	ErrStateOrder = errors.New("scenario state order")
	// ErrUnknownColumn is returned when a derived metric names a column absent from the frame.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrInvalidWindow is returned when an observation window starts after it ends.
	ErrInvalidWindow = errors.New("invalid window")
)

// FetchKind classifies a fetch failure.
type FetchKind int

const (
	FetchPermanent FetchKind = iota
	FetchTransient
)

func (k FetchKind) String() string {
	if k == FetchTransient {
		return "transient"
	}
	return "permanent"
}

// FetchError wraps a transport or persistence failure for one cache key.
type FetchError struct {
	Kind FetchKind
	Key  string
	Op   string // "transport" or "persist"
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s, %s): %v", e.Key, e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the underlying cause and ErrFetch to errors.Is.
func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// Transient reports whether retrying later might succeed.
func (e *FetchError) Transient() bool { return e.Kind == FetchTransient }

// NewFormatError builds an ErrFormat with detail.
func NewFormatError(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, a...))
}

// NewAlignmentError builds an ErrAlignment naming the offending series.
func NewAlignmentError(series, format string, a ...any) error {
	return fmt.Errorf("%w: series %s: %s", ErrAlignment, series, fmt.Sprintf(format, a...))
}
