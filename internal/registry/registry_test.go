package registry

import (
	"errors"
	"testing"

	"AlphaKit/internal/domain/models"
)

func TestLookupKnown(t *testing.T) {
	r := Default()
	spec, err := r.Lookup("soyfutures")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if spec.SourceName() != "Quandl" || spec.DatabaseCode != "CHRIS" || spec.DatasetCode != "CME_S1" {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if spec.Frequency != models.Daily || spec.ValueField != "Settle" {
		t.Fatalf("unexpected metadata: %+v", spec)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Default().Lookup("cornfutures")
	if !errors.Is(err, models.ErrUnknownDataset) {
		t.Fatalf("expected ErrUnknownDataset, got %v", err)
	}
}

func TestCOTDatasetsCarryRatioAndCarryForward(t *testing.T) {
	for _, id := range []string{"soycts", "soyoilcts"} {
		spec, err := Default().Lookup(id)
		if err != nil {
			t.Fatalf("lookup %s: %v", id, err)
		}
		if !spec.HasRatio() || spec.Frequency != models.Weekly {
			t.Fatalf("%s: expected weekly ratio dataset", id)
		}
		if f, ok := spec.FillFor(spec.RatioFields[0]); !ok || f != models.FillCarryForward {
			t.Fatalf("%s: fill = %v, %v", id, f, ok)
		}
	}
}

func TestListSorted(t *testing.T) {
	list := Default().List()
	want := []string{"soycts", "soyfutures", "soyoilcts", "soyoilfutures"}
	if len(list) != len(want) {
		t.Fatalf("len = %d", len(list))
	}
	for i, s := range list {
		if s.ShortID != want[i] {
			t.Fatalf("list[%d] = %s, want %s", i, s.ShortID, want[i])
		}
	}
}

func TestNewCustomTable(t *testing.T) {
	r := New(models.DatasetSpec{ShortID: "x", DatabaseCode: "DB", DatasetCode: "DS"})
	if _, err := r.Lookup("x"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Lookup("soyfutures"); err == nil {
		t.Fatal("custom registry must not include built-ins")
	}
}
