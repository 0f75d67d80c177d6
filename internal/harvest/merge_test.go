package harvest

import (
	"path/filepath"
	"testing"
	"time"

	"ReplayDesk/internal/model"
	"ReplayDesk/internal/series"
)

func mergeBar(t time.Time, close float64) model.Bar {
	return model.Bar{Time: t, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestMergeCSV_CreatesAndSorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "EURUSD_1M.csv")
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	// Out of order on purpose.
	in := []model.Bar{
		mergeBar(base.Add(2*time.Minute), 1.2),
		mergeBar(base, 1.0),
		mergeBar(base.Add(time.Minute), 1.1),
	}
	if err := MergeCSV(path, in); err != nil {
		t.Fatalf("merge: %v", err)
	}

	out, err := series.ReadCSV(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if !out[i-1].Time.Before(out[i].Time) {
			t.Fatalf("bars not ascending at %d", i)
		}
	}
}

func TestMergeCSV_ExistingRowsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "EURUSD_1M.csv")
	ts := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	if err := MergeCSV(path, []model.Bar{mergeBar(ts, 1.5)}); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if err := MergeCSV(path, []model.Bar{mergeBar(ts, 9.9), mergeBar(ts.Add(time.Minute), 1.6)}); err != nil {
		t.Fatalf("second merge: %v", err)
	}

	out, err := series.ReadCSV(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 bars after dedupe, got %d", len(out))
	}
	if out[0].Close != 1.5 {
		t.Fatalf("existing row overwritten: close = %v", out[0].Close)
	}
}

func TestMergeCSV_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "EURUSD_1M.csv")
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	in := []model.Bar{mergeBar(base, 1.0), mergeBar(base.Add(time.Minute), 1.1)}

	if err := MergeCSV(path, in); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := MergeCSV(path, in); err != nil {
		t.Fatalf("re-merge: %v", err)
	}

	out, err := series.ReadCSV(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(out))
	}
}

func TestHasYear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "EURUSD_1M.csv")
	ts := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := MergeCSV(path, []model.Bar{mergeBar(ts, 1.0)}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	if !HasYear(path, 2023) {
		t.Fatal("expected 2023 to be present")
	}
	if HasYear(path, 2024) {
		t.Fatal("did not expect 2024")
	}
	if HasYear(filepath.Join(t.TempDir(), "missing.csv"), 2023) {
		t.Fatal("missing file should report no years")
	}
}
