package api

import xhttp "AlphaKit/pkg/http"

// ScenarioRequest is the body of POST /api/scenarios. Omitted dates select the trailing year.
type ScenarioRequest struct {
	Datasets []string `json:"datasets" validate:"required,min=1,max=16,dive,required"`
	xhttp.DateRange
}

// CacheKeyRequest binds GET /api/datasets/:id/cachekey.
type CacheKeyRequest struct {
	ID string `param:"id" validate:"required"`
	xhttp.DateRange
}

// CacheKeyView is the decoded form of a cache key.
type CacheKeyView struct {
	Key          string `json:"key"`
	SourceName   string `json:"source_name"`
	DatabaseCode string `json:"database_code"`
	DatasetCode  string `json:"dataset_code"`
	Start        string `json:"start"`
	End          string `json:"end"`
}

// DatasetView is one registry entry as served by GET /api/datasets.
type DatasetView struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`
	Code      string   `json:"code"`
	Frequency string   `json:"frequency"`
	TestVars  []string `json:"test_vars,omitempty"`
	Value     string   `json:"value_field,omitempty"`
	Ratio     []string `json:"ratio_fields,omitempty"`
}
