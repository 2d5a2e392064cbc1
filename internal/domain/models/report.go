package models

import "time"

// MemberStatus summarizes one series at the end of a run.
type MemberStatus struct {
	Series string `json:"series"`
	Key    string `json:"key"`
	Status Status `json:"status"`
	Rows   int    `json:"rows"`
	Error  string `json:"error,omitempty"`
}

// SeriesMetrics holds derived metrics computed on one frame column.
type SeriesMetrics struct {
	Column           string  `json:"column"`
	PeriodicReturn   []Value `json:"periodic_return"`
	CumulativeReturn []Value `json:"cumulative_return"`
	Volatility       Value   `json:"annualized_volatility"`
}

// RatioMetric holds an elementwise ratio of two frame columns.
type RatioMetric struct {
	Name        string  `json:"name"`
	Numerator   string  `json:"numerator"`
	Denominator string  `json:"denominator"`
	Values      []Value `json:"values"`
}

// CorrelationMatrix is a symmetric pairwise-complete Pearson matrix.
type CorrelationMatrix struct {
	Columns []string  `json:"columns"`
	Cells   [][]Value `json:"cells"`
}

// At returns the cell for columns i and j.
func (m CorrelationMatrix) At(i, j int) Value { return m.Cells[i][j] }

// Report is the full result of one scenario run.
type Report struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Window      Window             `json:"window"`
	Members     []MemberStatus     `json:"members"`
	Problems    []Problem          `json:"problems"`
	Frame       *CombinedFrame     `json:"frame,omitempty"`
	Returns     []SeriesMetrics    `json:"returns,omitempty"`
	Ratios      []RatioMetric      `json:"ratios,omitempty"`
	Correlation *CorrelationMatrix `json:"correlation,omitempty"`
}
