package util

import (
	"testing"
	"time"
)

func TestParseDateISO(t *testing.T) {
	got, ok := ParseDate("2024-10-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format(ISODate) != "2024-10-10" || got.Location() != time.UTC {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateTruncatesTimestamp(t *testing.T) {
	got, ok := ParseDate("2024-10-10T10:10:10Z")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseCompactDate(t *testing.T) {
	if _, ok := ParseCompactDate("2024101"); ok {
		t.Fatalf("expected 7 digits to fail")
	}
	if _, ok := ParseCompactDate("2024-1-1"); ok {
		t.Fatalf("expected dashed form to fail")
	}
	if _, ok := ParseCompactDate("20241399"); ok {
		t.Fatalf("expected invalid month to fail")
	}
	got, ok := ParseCompactDate("20240229")
	if !ok || got.Day() != 29 {
		t.Fatalf("unexpected %v %v", got, ok)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if d := DaysBetween(a, a.AddDate(0, 0, 3)); d != 3 {
		t.Fatalf("unexpected %v", d)
	}
}
