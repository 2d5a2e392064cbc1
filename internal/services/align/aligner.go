// Package align outer-joins cleaned series on date and fills gaps inside each
// series' own observed range.
package align

import (
	"fmt"
	"iter"
	"sort"
	"time"

	"AlphaKit/internal/domain/models"
	"AlphaKit/pkg/util"
)

// Aligner builds a CombinedFrame. Safe for concurrent use once constructed.
type Aligner struct {
	defaultFill models.FillStrategy
	overrides   map[string]models.FillStrategy
}

type Option func(*Aligner)

// WithDefaultFill sets the strategy used when neither an override nor the dataset names one.
func WithDefaultFill(s models.FillStrategy) Option {
	return func(a *Aligner) { a.defaultFill = s }
}

// WithOverride forces strategy s on the column "series:field".
func WithOverride(column string, s models.FillStrategy) Option {
	return func(a *Aligner) { a.overrides[column] = s }
}

func New(opts ...Option) *Aligner {
	a := &Aligner{defaultFill: models.FillLinear, overrides: make(map[string]models.FillStrategy)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FillFor resolves the strategy for one column: override, then dataset policy, then default.
func (a *Aligner) FillFor(spec models.DatasetSpec, field string) models.FillStrategy {
	if s, ok := a.overrides[models.ColumnName(spec.ShortID, field)]; ok {
		return s
	}
	if s, ok := spec.FillFor(field); ok {
		return s
	}
	return a.defaultFill
}

type member struct {
	spec   models.DatasetSpec
	fields []string
	rows   []models.Row
}

// Align joins members on the union of their dates. Members without rows are skipped
// and reported; a duplicate date within one member fails the whole call.
func (a *Aligner) Align(series []*models.CachedSeries) (*models.CombinedFrame, []models.Problem, error) {
	var problems []models.Problem
	members := make([]member, 0, len(series))
	for _, s := range series {
		if len(s.Rows) == 0 {
			problems = append(problems, models.Problem{
				Series: s.ID(),
				Kind:   models.ProblemSkippedMember,
				Detail: "series has no rows",
			})
			continue
		}
		rows, err := sortedUnique(s.ID(), s.Rows)
		if err != nil {
			return nil, problems, err
		}
		members = append(members, member{spec: s.Spec, fields: s.Fields, rows: rows})
	}
	if len(members) == 0 {
		return nil, problems, fmt.Errorf("%w: no member contributed rows", models.ErrAlignment)
	}

	lists := make([][]time.Time, len(members))
	for i, m := range members {
		lists[i] = dates(m.rows)
	}
	var union []time.Time
	for d := range Union(lists...) {
		union = append(union, d)
	}

	frame := &models.CombinedFrame{Dates: union}
	for _, m := range members {
		pos := positions(union, m.rows)
		for j, field := range m.fields {
			col := models.Column{
				Series:       m.spec.ShortID,
				Field:        field,
				Fill:         a.FillFor(m.spec, field),
				Values:       make([]models.Value, len(union)),
				Interpolated: make([]bool, len(union)),
			}
			for k, row := range m.rows {
				if j < len(row.Values) {
					col.Values[pos[k]] = row.Values[j]
				}
			}
			fill(&col, union, pos[0], pos[len(pos)-1])
			frame.Columns = append(frame.Columns, col)
		}
	}
	return frame, problems, nil
}

// Union yields every distinct date of the ascending lists, in ascending order.
func Union(lists ...[]time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		idx := make([]int, len(lists))
		for {
			var m time.Time
			found := false
			for i, l := range lists {
				if idx[i] < len(l) && (!found || l[idx[i]].Before(m)) {
					m, found = l[idx[i]], true
				}
			}
			if !found {
				return
			}
			for i, l := range lists {
				if idx[i] < len(l) && l[idx[i]].Equal(m) {
					idx[i]++
				}
			}
			if !yield(m) {
				return
			}
		}
	}
}

// sortedUnique returns a date-sorted copy of rows, failing on duplicates.
func sortedUnique(id string, rows []models.Row) ([]models.Row, error) {
	out := make([]models.Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	for i := 1; i < len(out); i++ {
		if out[i].Date.Equal(out[i-1].Date) {
			return nil, models.NewAlignmentError(id, "duplicate date %s", out[i].Date.Format(util.ISODate))
		}
	}
	return out, nil
}

func dates(rows []models.Row) []time.Time {
	out := make([]time.Time, len(rows))
	for i, r := range rows {
		out[i] = r.Date
	}
	return out
}

// positions maps each row to its index in union. Both are ascending and every row date appears in union.
func positions(union []time.Time, rows []models.Row) []int {
	pos := make([]int, len(rows))
	u := 0
	for k, r := range rows {
		for !union[u].Equal(r.Date) {
			u++
		}
		pos[k] = u
	}
	return pos
}

// fill completes undefined cells of col inside [lo, hi] from the column's own defined cells.
func fill(col *models.Column, union []time.Time, lo, hi int) {
	if col.Fill == models.FillNone {
		return
	}
	prev := -1
	for i := lo; i <= hi; i++ {
		if col.Values[i].Valid {
			prev = i
			continue
		}
		if prev < 0 {
			continue
		}
		switch col.Fill {
		case models.FillCarryForward:
			col.Values[i] = col.Values[prev]
			col.Interpolated[i] = true
		case models.FillLinear:
			next := -1
			for k := i + 1; k <= hi; k++ {
				if col.Values[k].Valid {
					next = k
					break
				}
			}
			if next < 0 {
				return
			}
			v0, v1 := col.Values[prev].Float, col.Values[next].Float
			span := util.DaysBetween(union[prev], union[next])
			for k := i; k < next; k++ {
				frac := util.DaysBetween(union[prev], union[k]) / span
				col.Values[k] = models.Some(v0 + (v1-v0)*frac)
				col.Interpolated[k] = true
			}
			prev = next
			i = next
		}
	}
}
