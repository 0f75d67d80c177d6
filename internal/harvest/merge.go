package harvest

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"ReplayDesk/internal/model"
	"ReplayDesk/internal/series"
)

// csvTimeLayout is the Date format of the canonical per-symbol files.
const csvTimeLayout = "2006-01-02 15:04:05"

// MergeCSV folds new bars into the canonical per-symbol file, de-duplicating
// by timestamp (existing rows win) and keeping ascending order. Re-merging
// the same archive is a no-op, which makes harvest runs idempotent.
func MergeCSV(path string, bars []model.Bar) error {
	existing, err := series.ReadCSV(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read existing: %w", err)
	}

	seen := make(map[int64]bool, len(existing))
	merged := make([]model.Bar, 0, len(existing)+len(bars))
	for _, b := range existing {
		seen[b.Time.Unix()] = true
		merged = append(merged, b)
	}
	for _, b := range bars {
		if !seen[b.Time.Unix()] {
			seen[b.Time.Unix()] = true
			merged = append(merged, b)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })

	return WriteCSV(path, merged)
}

// WriteCSV writes a canonical Date,Open,High,Low,Close,Volume file.
func WriteCSV(path string, bars []model.Bar) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume"}); err != nil {
		f.Close()
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Time.Format(csvTimeLayout),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// HasYear reports whether the merged file already covers any bar in the given
// year. Used to skip downloads for years already harvested.
func HasYear(path string, year int) bool {
	bars, err := series.ReadCSV(path)
	if err != nil {
		return false
	}
	for _, b := range bars {
		if b.Time.Year() == year {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
