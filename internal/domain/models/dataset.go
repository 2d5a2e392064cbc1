package models

import (
	"fmt"
	"strings"
)

// Provider is the closed set of data providers a dataset can come from.
type Provider int

const (
	ProviderQuandl Provider = iota
	ProviderNasdaq
)

// SourceName is the provider's name as it appears in cache keys.
func (p Provider) SourceName() string {
	switch p {
	case ProviderNasdaq:
		return "Nasdaq"
	default:
		return "Quandl"
	}
}

func (p Provider) String() string { return p.SourceName() }

// ParseProvider maps a source name back to its provider tag.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(s) {
	case "quandl":
		return ProviderQuandl, nil
	case "nasdaq":
		return ProviderNasdaq, nil
	default:
		return 0, fmt.Errorf("unknown provider %q", s)
	}
}

// Frequency is the native sampling frequency of a dataset.
type Frequency string

const (
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

// FillStrategy selects how the aligner fills gaps inside a series' observed range.
type FillStrategy string

const (
	FillLinear       FillStrategy = "linear"
	FillCarryForward FillStrategy = "carry_forward"
	FillNone         FillStrategy = "none"
)

// Valid reports whether s names a known strategy.
func (s FillStrategy) Valid() bool {
	switch s {
	case FillLinear, FillCarryForward, FillNone:
		return true
	}
	return false
}

// DatasetSpec identifies one provider dataset and how to interpret it. Never mutated after lookup.
type DatasetSpec struct {
	ShortID      string
	Provider     Provider
	DatabaseCode string
	DatasetCode  string

	IndexColumn    string
	Frequency      Frequency
	TestVars       []string
	RequiredFields []string
	ValueField     string    // designated column for returns, empty if none
	RatioFields    [2]string // numerator, denominator; empty if none
	Fill           map[string]FillStrategy
}

// SourceName returns the provider's source name.
func (s DatasetSpec) SourceName() string { return s.Provider.SourceName() }

// ShortCode returns the provider short code "database/dataset".
func (s DatasetSpec) ShortCode() string { return s.DatabaseCode + "/" + s.DatasetCode }

// HasRatio reports whether the dataset designates a ratio pair.
func (s DatasetSpec) HasRatio() bool { return s.RatioFields[0] != "" && s.RatioFields[1] != "" }

// FillFor returns the dataset's fill policy for field, if one is declared.
func (s DatasetSpec) FillFor(field string) (FillStrategy, bool) {
	f, ok := s.Fill[field]
	return f, ok
}
