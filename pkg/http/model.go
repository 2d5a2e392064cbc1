package http

// APIResponse is the envelope every endpoint writes.
type APIResponse struct {
	Status  int    `json:"status" example:"200"`
	Message string `json:"message" example:"OK"`
	Data    any    `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string         `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string         `json:"field,omitempty" example:"datasets"`
	Message string         `json:"message,omitempty" example:"datasets is required"`
	Params  map[string]any `json:"params,omitempty"`
}

// ListDataResponse represents a list response.
type ListDataResponse struct {
	Rows  any   `json:"rows"`
	Total int64 `json:"total"`
}

// DateRange is an optional inclusive date filter in YYYY-MM-DD form.
type DateRange struct {
	Start string `json:"start,omitempty" query:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `json:"end,omitempty" query:"end" validate:"omitempty,datetime=2006-01-02"`
}
