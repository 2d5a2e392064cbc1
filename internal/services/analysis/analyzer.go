// Package analysis computes derived metrics over a combined frame. Nothing here mutates the frame.
package analysis

import (
	"fmt"
	"math"

	"AlphaKit/internal/domain/models"
	"AlphaKit/pkg/util"
)

// PeriodicReturn returns (v[t]-v[t-1])/v[t-1] for column, undefined where v[t-1] is zero or absent.
func PeriodicReturn(frame *models.CombinedFrame, column string) ([]models.Value, error) {
	col, err := lookup(frame, column)
	if err != nil {
		return nil, err
	}
	return periodic(col.Values), nil
}

func periodic(values []models.Value) []models.Value {
	out := make([]models.Value, len(values))
	for t := 1; t < len(values); t++ {
		prev, cur := values[t-1], values[t]
		if !prev.Valid || !cur.Valid || prev.Float == 0 {
			continue
		}
		out[t] = models.Some((cur.Float - prev.Float) / prev.Float)
	}
	return out
}

// CumulativeReturn is the running product of (1 + periodic return), seeded at 1.0 on the
// column's first defined value. An undefined step is undefined on its own; the product carries on.
func CumulativeReturn(frame *models.CombinedFrame, column string) ([]models.Value, error) {
	col, err := lookup(frame, column)
	if err != nil {
		return nil, err
	}
	return cumulative(col.Values, periodic(col.Values)), nil
}

func cumulative(values, returns []models.Value) []models.Value {
	out := make([]models.Value, len(values))
	started := false
	acc := 1.0
	for t := range values {
		if !started {
			if values[t].Valid {
				started = true
				out[t] = models.Some(acc)
			}
			continue
		}
		if r := returns[t]; r.Valid {
			acc *= 1 + r.Float
			out[t] = models.Some(acc)
		}
	}
	return out
}

// Ratio divides numerator by denominator elementwise; zero or absent operands give undefined.
func Ratio(frame *models.CombinedFrame, numerator, denominator string) ([]models.Value, error) {
	num, err := lookup(frame, numerator)
	if err != nil {
		return nil, err
	}
	den, err := lookup(frame, denominator)
	if err != nil {
		return nil, err
	}
	out := make([]models.Value, len(num.Values))
	for i := range out {
		n, d := num.Values[i], den.Values[i]
		if n.Valid && d.Valid && d.Float != 0 {
			out[i] = models.Some(n.Float / d.Float)
		}
	}
	return out, nil
}

// CorrelationMatrix returns pairwise-complete Pearson coefficients for every column.
// The diagonal is 1 and each off-diagonal cell is computed once and mirrored.
func CorrelationMatrix(frame *models.CombinedFrame) (models.CorrelationMatrix, error) {
	if err := checkSorted(frame); err != nil {
		return models.CorrelationMatrix{}, err
	}
	n := len(frame.Columns)
	m := models.CorrelationMatrix{Columns: frame.ColumnNames(), Cells: make([][]models.Value, n)}
	for i := range m.Cells {
		m.Cells[i] = make([]models.Value, n)
		m.Cells[i][i] = models.Some(1)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r, ok := pearson(frame.Columns[i].Values, frame.Columns[j].Values)
			if ok {
				m.Cells[i][j] = models.Some(r)
				m.Cells[j][i] = m.Cells[i][j]
			}
		}
	}
	return m, nil
}

// Correlation returns the scalar coefficient of two columns, failing when no valid overlap exists.
func Correlation(frame *models.CombinedFrame, a, b string) (float64, error) {
	ca, err := lookup(frame, a)
	if err != nil {
		return 0, err
	}
	cb, err := lookup(frame, b)
	if err != nil {
		return 0, err
	}
	if a == b {
		if defined(ca.Values) < 2 {
			return 0, fmt.Errorf("%w: %s has fewer than 2 defined points", models.ErrCorrelationInput, a)
		}
		return 1, nil
	}
	r, ok := pearson(ca.Values, cb.Values)
	if !ok {
		return 0, fmt.Errorf("%w: %s and %s have fewer than 2 overlapping points or no variance", models.ErrCorrelationInput, a, b)
	}
	return r, nil
}

func defined(values []models.Value) int {
	n := 0
	for _, v := range values {
		if v.Valid {
			n++
		}
	}
	return n
}

// pearson computes over indices where both sides are defined.
func pearson(x, y []models.Value) (float64, bool) {
	var n, sx, sy float64
	for i := range x {
		if x[i].Valid && y[i].Valid {
			n++
			sx += x[i].Float
			sy += y[i].Float
		}
	}
	if n < 2 {
		return 0, false
	}
	mx, my := sx/n, sy/n
	var cov, vx, vy float64
	for i := range x {
		if x[i].Valid && y[i].Valid {
			dx, dy := x[i].Float-mx, y[i].Float-my
			cov += dx * dy
			vx += dx * dx
			vy += dy * dy
		}
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r)), true
}

func lookup(frame *models.CombinedFrame, name string) (*models.Column, error) {
	if err := checkSorted(frame); err != nil {
		return nil, err
	}
	col, ok := frame.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownColumn, name)
	}
	return col, nil
}

func checkSorted(frame *models.CombinedFrame) error {
	for i := 1; i < len(frame.Dates); i++ {
		if !frame.Dates[i].After(frame.Dates[i-1]) {
			return fmt.Errorf("%w: %s at position %d does not follow %s",
				models.ErrUnsortedIndex,
				frame.Dates[i].Format(util.ISODate), i, frame.Dates[i-1].Format(util.ISODate))
		}
	}
	return nil
}
