package usecase

import (
	"time"

	"AlphaKit/internal/domain/models"
)

type period struct{ year, n int }

func periodOf(freq models.Frequency, d time.Time) period {
	if freq == models.Weekly {
		y, w := d.ISOWeek()
		return period{y, w}
	}
	return period{d.Year(), d.YearDay()}
}

// coverage counts the periods a series of frequency freq should report inside w
// (weekdays for daily, ISO weeks for weekly) and how many of them the dates miss.
func coverage(freq models.Frequency, w models.Window, dates []time.Time) (expected, missing int) {
	seen := make(map[period]bool, len(dates))
	for _, d := range dates {
		if w.Contains(d) {
			seen[periodOf(freq, d)] = true
		}
	}
	counted := make(map[period]bool)
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		if freq != models.Weekly && (d.Weekday() == time.Saturday || d.Weekday() == time.Sunday) {
			continue
		}
		p := periodOf(freq, d)
		if counted[p] {
			continue
		}
		counted[p] = true
		expected++
		if !seen[p] {
			missing++
		}
	}
	return expected, missing
}
