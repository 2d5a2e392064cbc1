// Package registry holds the static table of datasets the pipeline knows how to fetch.
package registry

import (
	"fmt"
	"sort"

	"AlphaKit/internal/domain/models"
)

const (
	totalLongs  = "Total Reportable Longs"
	totalShorts = "Total Reportable Shorts"
)

var cotFill = map[string]models.FillStrategy{
	totalLongs:  models.FillCarryForward,
	totalShorts: models.FillCarryForward,
}

var datasets = map[string]models.DatasetSpec{
	"soyfutures": {
		ShortID:        "soyfutures",
		Provider:       models.ProviderQuandl,
		DatabaseCode:   "CHRIS",
		DatasetCode:    "CME_S1",
		IndexColumn:    "Date",
		Frequency:      models.Daily,
		TestVars:       []string{"Settle"},
		RequiredFields: []string{"Settle"},
		ValueField:     "Settle",
	},
	"soyoilfutures": {
		ShortID:        "soyoilfutures",
		Provider:       models.ProviderQuandl,
		DatabaseCode:   "CHRIS",
		DatasetCode:    "CME_B01",
		IndexColumn:    "Date",
		Frequency:      models.Daily,
		TestVars:       []string{"Settle"},
		RequiredFields: []string{"Settle"},
		ValueField:     "Settle",
	},
	"soycts": {
		ShortID:        "soycts",
		Provider:       models.ProviderQuandl,
		DatabaseCode:   "CFTC",
		DatasetCode:    "S_F_ALL",
		IndexColumn:    "Date",
		Frequency:      models.Weekly,
		TestVars:       []string{totalLongs, totalShorts},
		RequiredFields: []string{totalLongs, totalShorts},
		RatioFields:    [2]string{totalLongs, totalShorts},
		Fill:           cotFill,
	},
	"soyoilcts": {
		ShortID:        "soyoilcts",
		Provider:       models.ProviderQuandl,
		DatabaseCode:   "CFTC",
		DatasetCode:    "BO_F_ALL",
		IndexColumn:    "Date",
		Frequency:      models.Weekly,
		TestVars:       []string{totalLongs, totalShorts},
		RequiredFields: []string{totalLongs, totalShorts},
		RatioFields:    [2]string{totalLongs, totalShorts},
		Fill:           cotFill,
	},
}

// Registry resolves short identifiers to dataset specs. The zero value is not usable; use Default.
type Registry struct {
	specs map[string]models.DatasetSpec
}

// Default returns the built-in registry.
func Default() *Registry {
	return &Registry{specs: datasets}
}

// New builds a registry from an explicit table, used by tests and alternative deployments.
func New(specs ...models.DatasetSpec) *Registry {
	m := make(map[string]models.DatasetSpec, len(specs))
	for _, s := range specs {
		m[s.ShortID] = s
	}
	return &Registry{specs: m}
}

// Lookup returns the spec registered under shortID.
func (r *Registry) Lookup(shortID string) (models.DatasetSpec, error) {
	s, ok := r.specs[shortID]
	if !ok {
		return models.DatasetSpec{}, fmt.Errorf("lookup %q: %w", shortID, models.ErrUnknownDataset)
	}
	return s, nil
}

// List returns every registered spec sorted by short identifier.
func (r *Registry) List() []models.DatasetSpec {
	out := make([]models.DatasetSpec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortID < out[j].ShortID })
	return out
}
