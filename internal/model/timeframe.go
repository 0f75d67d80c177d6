package model

import (
	"fmt"
	"time"
)

// Timeframe is a resampling granularity for bar series.
type Timeframe string

const (
	TF1M  Timeframe = "1M"
	TF5M  Timeframe = "5M"
	TF15M Timeframe = "15M"
	TF1H  Timeframe = "1H"
	TF4H  Timeframe = "4H"
	TF1D  Timeframe = "1D"
)

// Timeframes lists all supported granularities, finest first.
var Timeframes = []Timeframe{TF1M, TF5M, TF15M, TF1H, TF4H, TF1D}

var tfDurations = map[Timeframe]time.Duration{
	TF1M:  time.Minute,
	TF5M:  5 * time.Minute,
	TF15M: 15 * time.Minute,
	TF1H:  time.Hour,
	TF4H:  4 * time.Hour,
	TF1D:  24 * time.Hour,
}

// ParseTimeframe validates a timeframe label.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := tfDurations[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Bucket truncates t to the start of the aggregation bucket containing it.
func (tf Timeframe) Bucket(t time.Time) time.Time {
	if tf == TF1D {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	return t.Truncate(tfDurations[tf])
}
