package models

import (
	"fmt"
	"time"

	"AlphaKit/pkg/util"
)

// Window is an inclusive observation window of calendar dates.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow truncates both bounds to calendar days and enforces start <= end.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: util.Day(start), End: util.Day(end)}
	if w.Start.After(w.End) {
		return Window{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidWindow, w.Start.Format(util.ISODate), w.End.Format(util.ISODate))
	}
	return w, nil
}

// TrailingYear returns the window of one year ending on end.
func TrailingYear(end time.Time) Window {
	end = util.Day(end)
	return Window{Start: end.AddDate(-1, 0, 0), End: end}
}

// Contains reports whether day lies inside the window, bounds included.
func (w Window) Contains(day time.Time) bool {
	return !day.Before(w.Start) && !day.After(w.End)
}

func (w Window) String() string {
	return w.Start.Format(util.ISODate) + ".." + w.End.Format(util.ISODate)
}
