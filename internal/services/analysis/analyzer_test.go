package analysis

import (
	"errors"
	"math"
	"testing"
	"time"

	"AlphaKit/internal/domain/models"
)

func day(n int) time.Time { return time.Date(2021, 3, n, 0, 0, 0, 0, time.UTC) }

func vals(xs ...float64) []models.Value {
	out := make([]models.Value, len(xs))
	for i, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		out[i] = models.Some(x)
	}
	return out
}

var nan = math.NaN()

func frame(cols map[string][]models.Value, order ...string) *models.CombinedFrame {
	f := &models.CombinedFrame{}
	for _, name := range order {
		f.Columns = append(f.Columns, models.Column{Series: name, Field: "v", Values: cols[name]})
	}
	for i := range f.Columns[0].Values {
		f.Dates = append(f.Dates, day(i+1))
	}
	return f
}

func assertValues(t *testing.T, got []models.Value, want ...float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if math.IsNaN(w) {
			if got[i].Valid {
				t.Fatalf("[%d] = %v, want undefined", i, got[i].Float)
			}
			continue
		}
		if !got[i].Valid || math.Abs(got[i].Float-w) > 1e-9 {
			t.Fatalf("[%d] = %+v, want %v", i, got[i], w)
		}
	}
}

func TestPeriodicReturn(t *testing.T) {
	f := frame(map[string][]models.Value{"a": vals(10, 11, 0, 5, nan, 6)}, "a")
	r, err := PeriodicReturn(f, "a:v")
	if err != nil {
		t.Fatal(err)
	}
	assertValues(t, r, nan, 0.1, -1, nan, nan, nan)
}

func TestCumulativeReturnSeedsAtFirstDefined(t *testing.T) {
	f := frame(map[string][]models.Value{"a": vals(nan, 100, 110, nan, 121, 133.1)}, "a")
	c, err := CumulativeReturn(f, "a:v")
	if err != nil {
		t.Fatal(err)
	}
	assertValues(t, c, nan, 1.0, 1.1, nan, nan, 1.1*1.1)
}

func TestRatioDivisionByZero(t *testing.T) {
	f := frame(map[string][]models.Value{
		"l": vals(10, 20, 30, nan),
		"s": vals(5, 0, 10, 1),
	}, "l", "s")
	r, err := Ratio(f, "l:v", "s:v")
	if err != nil {
		t.Fatal(err)
	}
	assertValues(t, r, 2, nan, 3, nan)
}

func TestCorrelationMatrixSymmetricUnitDiagonal(t *testing.T) {
	f := frame(map[string][]models.Value{
		"a": vals(1, 2, 3, 4, 5),
		"b": vals(2, 4, 6, nan, 10),
		"c": vals(5, 3, 4, 1, 2),
		"d": vals(nan, nan, nan, nan, 7),
	}, "a", "b", "c", "d")
	m, err := CorrelationMatrix(f)
	if err != nil {
		t.Fatal(err)
	}
	for i := range m.Cells {
		if v := m.At(i, i); !v.Valid || v.Float != 1 {
			t.Fatalf("diagonal %d = %+v", i, v)
		}
		for j := range m.Cells {
			if m.At(i, j) != m.At(j, i) {
				t.Fatalf("asymmetric at %d,%d", i, j)
			}
		}
	}
	if v := m.At(0, 1); !v.Valid || math.Abs(v.Float-1) > 1e-9 {
		t.Fatalf("a,b = %+v, want 1 over pairwise-complete dates", v)
	}
	if v := m.At(0, 3); v.Valid {
		t.Fatalf("a,d has one overlapping point, want undefined, got %v", v.Float)
	}
}

func TestCorrelationScalar(t *testing.T) {
	f := frame(map[string][]models.Value{
		"a": vals(1, 2, 3),
		"b": vals(3, 2, 1),
		"c": vals(nan, nan, 4),
		"k": vals(2, 2, 2),
	}, "a", "b", "c", "k")
	r, err := Correlation(f, "a:v", "b:v")
	if err != nil || math.Abs(r+1) > 1e-9 {
		t.Fatalf("r = %v, %v", r, err)
	}
	if _, err := Correlation(f, "a:v", "c:v"); !errors.Is(err, models.ErrCorrelationInput) {
		t.Fatalf("expected ErrCorrelationInput, got %v", err)
	}
	if _, err := Correlation(f, "a:v", "k:v"); !errors.Is(err, models.ErrCorrelationInput) {
		t.Fatalf("zero variance: expected ErrCorrelationInput, got %v", err)
	}
}

func TestCorrelationSelfNeedsDefinedPoints(t *testing.T) {
	f := frame(map[string][]models.Value{
		"a": vals(1, 2, 3),
		"e": vals(nan, nan, nan),
		"c": vals(nan, nan, 4),
	}, "a", "e", "c")
	if r, err := Correlation(f, "a:v", "a:v"); err != nil || r != 1 {
		t.Fatalf("self correlation = %v, %v", r, err)
	}
	for _, col := range []string{"e:v", "c:v"} {
		if r, err := Correlation(f, col, col); !errors.Is(err, models.ErrCorrelationInput) {
			t.Fatalf("%s: expected ErrCorrelationInput, got %v, %v", col, r, err)
		}
	}
}

func TestUnsortedIndex(t *testing.T) {
	f := frame(map[string][]models.Value{"a": vals(1, 2, 3)}, "a")
	f.Dates[1], f.Dates[2] = f.Dates[2], f.Dates[1]
	if _, err := PeriodicReturn(f, "a:v"); !errors.Is(err, models.ErrUnsortedIndex) {
		t.Fatalf("expected ErrUnsortedIndex, got %v", err)
	}
	if _, err := CorrelationMatrix(f); !errors.Is(err, models.ErrUnsortedIndex) {
		t.Fatalf("expected ErrUnsortedIndex, got %v", err)
	}
}

func TestUnknownColumn(t *testing.T) {
	f := frame(map[string][]models.Value{"a": vals(1)}, "a")
	if _, err := Ratio(f, "a:v", "zz:v"); !errors.Is(err, models.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestAnalyzerDoesNotMutate(t *testing.T) {
	f := frame(map[string][]models.Value{"a": vals(1, 2, nan, 4)}, "a")
	before := append([]models.Value(nil), f.Columns[0].Values...)
	_, _ = CumulativeReturn(f, "a:v")
	_, _ = CorrelationMatrix(f)
	for i := range before {
		if before[i] != f.Columns[0].Values[i] {
			t.Fatal("frame mutated")
		}
	}
}
