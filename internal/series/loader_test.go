package series

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ReplayDesk/internal/model"
)

func writeCSVFile(t *testing.T, path string, rows []string) {
	t.Helper()
	content := "Date,Open,High,Low,Close,Volume\n"
	for _, r := range rows {
		content += r + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestLoader_MinuteFilePreferred(t *testing.T) {
	dir := t.TempDir()
	writeCSVFile(t, filepath.Join(dir, "EURUSD_1M.csv"), []string{
		"2024-01-02 09:00:00,1.10,1.11,1.09,1.105,100",
		"2024-01-02 09:01:00,1.105,1.12,1.10,1.11,200",
	})
	writeCSVFile(t, filepath.Join(dir, "EURUSD.csv"), []string{
		"2024-01-02 09:00:00,9,9,9,9,9",
	})

	bars := NewLoader(dir).Load("EURUSD", model.TF1M)
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars from the 1M file, got %d", len(bars))
	}
	if bars[1].Close != 1.11 {
		t.Fatalf("close = %v, want 1.11", bars[1].Close)
	}
}

func TestLoader_FallbackFile(t *testing.T) {
	dir := t.TempDir()
	writeCSVFile(t, filepath.Join(dir, "SPX500.csv"), []string{
		"2024-01-02 09:00:00,5000,5010,4990,5005,1000",
	})

	bars := NewLoader(dir).Load("SPX500", model.TF1M)
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar from fallback file, got %d", len(bars))
	}
}

func TestLoader_MissingSymbolIsEmpty(t *testing.T) {
	bars := NewLoader(t.TempDir()).Load("NOPE", model.TF1H)
	if len(bars) != 0 {
		t.Fatalf("expected empty series for missing symbol, got %d bars", len(bars))
	}
}

func TestLoader_MalformedFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "BAD_1M.csv")
	if err := os.WriteFile(path, []byte("Date,Open,High,Low,Close,Volume\nnot-a-date,x,y,z,w,v\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	bars := NewLoader(dir).Load("BAD", model.TF1M)
	if len(bars) != 0 {
		t.Fatalf("expected empty series for malformed file, got %d bars", len(bars))
	}
}

func TestLoader_ResamplesAndCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "EURUSD_1M.csv")
	writeCSVFile(t, path, []string{
		"2024-01-02 09:00:00,1.10,1.11,1.09,1.105,100",
		"2024-01-02 09:30:00,1.105,1.12,1.10,1.11,200",
		"2024-01-02 10:00:00,1.11,1.13,1.11,1.12,300",
	})

	l := NewLoader(dir)
	hourly := l.Load("EURUSD", model.TF1H)
	if len(hourly) != 2 {
		t.Fatalf("expected 2 hourly bars, got %d", len(hourly))
	}
	want := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	if !hourly[0].Time.Equal(want) {
		t.Fatalf("bucket time = %v, want %v", hourly[0].Time, want)
	}
	if hourly[0].Volume != 300 {
		t.Fatalf("bucket volume = %v, want 300", hourly[0].Volume)
	}

	// The series is memoized: deleting the file must not affect reloads.
	os.Remove(path)
	again := l.Load("EURUSD", model.TF1H)
	if len(again) != 2 {
		t.Fatalf("expected cached series after file removal, got %d bars", len(again))
	}
}

func TestLoader_Symbols(t *testing.T) {
	dir := t.TempDir()
	writeCSVFile(t, filepath.Join(dir, "EURUSD_1M.csv"), []string{"2024-01-02 09:00:00,1,1,1,1,1"})
	writeCSVFile(t, filepath.Join(dir, "GBPUSD.csv"), []string{"2024-01-02 09:00:00,1,1,1,1,1"})
	writeCSVFile(t, filepath.Join(dir, "EURUSD.csv"), []string{"2024-01-02 09:00:00,1,1,1,1,1"})

	syms := NewLoader(dir).Symbols()
	if len(syms) != 2 {
		t.Fatalf("expected 2 symbols, got %v", syms)
	}
	if syms[0] != "EURUSD" || syms[1] != "GBPUSD" {
		t.Fatalf("unexpected symbol list: %v", syms)
	}
}

func TestLoader_SymbolsMemoized(t *testing.T) {
	dir := t.TempDir()
	writeCSVFile(t, filepath.Join(dir, "EURUSD_1M.csv"), []string{"2024-01-02 09:00:00,1,1,1,1,1"})

	l := NewLoader(dir)
	if syms := l.Symbols(); len(syms) != 1 {
		t.Fatalf("expected 1 symbol, got %v", syms)
	}

	// The listing is cached like the series: later file changes are not seen.
	writeCSVFile(t, filepath.Join(dir, "GBPUSD_1M.csv"), []string{"2024-01-02 09:00:00,1,1,1,1,1"})
	if syms := l.Symbols(); len(syms) != 1 {
		t.Fatalf("expected memoized listing of 1 symbol, got %v", syms)
	}
}
