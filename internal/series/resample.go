package series

import (
	"time"

	"ReplayDesk/internal/model"
)

// Resample aggregates bars into buckets of the target timeframe:
// open=first, high=max, low=min, close=last, volume=sum. Buckets with no
// source bars are absent from the result, not forward-filled.
func Resample(bars []model.Bar, tf model.Timeframe) []model.Bar {
	if len(bars) == 0 {
		return nil
	}

	var out []model.Bar
	var bucket model.Bar
	var started bool

	for _, b := range bars {
		start := tf.Bucket(b.Time)

		if !started {
			bucket = newBucket(start, b)
			started = true
			continue
		}
		if !start.Equal(bucket.Time) {
			out = append(out, bucket)
			bucket = newBucket(start, b)
			continue
		}
		if b.High > bucket.High {
			bucket.High = b.High
		}
		if b.Low < bucket.Low {
			bucket.Low = b.Low
		}
		bucket.Close = b.Close
		bucket.Volume += b.Volume
	}
	out = append(out, bucket)
	return out
}

func newBucket(start time.Time, b model.Bar) model.Bar {
	return model.Bar{Time: start, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
}
