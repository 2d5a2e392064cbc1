package http

import (
	"fmt"
	"time"

	xutil "AlphaKit/pkg/util"
)

// Dates resolves r to calendar dates; empty bounds come back zero.
func (r DateRange) Dates() (start, end time.Time, err error) {
	if start, err = parseBound("start", r.Start); err != nil {
		return
	}
	end, err = parseBound("end", r.End)
	return
}

func parseBound(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := xutil.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid %s date %q", name, s)
	}
	return t, nil
}
