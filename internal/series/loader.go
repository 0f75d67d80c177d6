package series

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"ReplayDesk/internal/model"
)

// Loader reads per-symbol CSV files and serves resampled bar series,
// memoized by (symbol, timeframe).
type Loader struct {
	dataDir string
	mu      sync.Mutex
	cache   map[cacheKey][]model.Bar
	symbols []string
}

type cacheKey struct {
	symbol    string
	timeframe model.Timeframe
}

// NewLoader creates a Loader rooted at the given data directory.
func NewLoader(dataDir string) *Loader {
	return &Loader{dataDir: dataDir, cache: make(map[cacheKey][]model.Bar)}
}

// Load returns the bar series for a symbol at the given timeframe. A missing
// or unreadable file yields an empty series; callers must treat that as
// "no data" and stop rendering.
func (l *Loader) Load(symbol string, tf model.Timeframe) []model.Bar {
	key := cacheKey{symbol, tf}
	l.mu.Lock()
	if bars, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return bars
	}
	l.mu.Unlock()

	bars := l.load(symbol, tf)

	l.mu.Lock()
	l.cache[key] = bars
	l.mu.Unlock()
	return bars
}

func (l *Loader) load(symbol string, tf model.Timeframe) []model.Bar {
	// Prefer the native 1-minute file, fall back to the generic one.
	path := filepath.Join(l.dataDir, symbol+"_1M.csv")
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(l.dataDir, symbol+".csv")
	}
	bars, err := ReadCSV(path)
	if err != nil {
		log.Printf("[WARN] load %s: %v", symbol, err)
		return nil
	}
	if tf != model.TF1M {
		bars = Resample(bars, tf)
	}
	return bars
}

// Symbols lists the symbols that have a CSV file in the data directory.
// The listing is memoized on first success; it sits on every snapshot path
// and must not rescan the directory per broadcast.
func (l *Loader) Symbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.symbols != nil {
		return l.symbols
	}

	entries, err := os.ReadDir(l.dataDir)
	if err != nil {
		log.Printf("[WARN] list data dir: %v", err)
		return nil
	}
	seen := make(map[string]bool)
	var symbols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		sym := strings.TrimSuffix(strings.TrimSuffix(name, ".csv"), "_1M")
		if sym != "" && !seen[sym] {
			seen[sym] = true
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	l.symbols = symbols
	return symbols
}

// timeLayouts are the accepted Date formats, most common first.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// ReadCSV parses a canonical Date,Open,High,Low,Close,Volume file. Rows are
// expected in ascending Date order; the reader does not re-sort.
func ReadCSV(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	bars := make([]model.Bar, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 6 {
			return nil, fmt.Errorf("%s: short row", filepath.Base(path))
		}
		t, err := parseTime(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		var vals [5]float64
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: column %d: %w", filepath.Base(path), i+1, err)
			}
			vals[i] = v
		}
		bars = append(bars, model.Bar{
			Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	return bars, nil
}
