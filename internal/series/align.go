package series

import (
	"sort"
	"time"

	"ReplayDesk/internal/model"
)

// AlignOverlay reindexes an overlay series onto the primary timestamps using
// a forward as-of match: each primary time takes the first overlay bar at or
// after it. Primary times past the end of the overlay carry the last matched
// bar forward; leading gaps carry the first matched bar backward. An empty
// overlay yields an empty result.
func AlignOverlay(primary []time.Time, overlay []model.Bar) []model.Bar {
	if len(primary) == 0 || len(overlay) == 0 {
		return nil
	}

	times := make([]time.Time, len(primary))
	copy(times, primary)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	src := make([]model.Bar, len(overlay))
	copy(src, overlay)
	sort.Slice(src, func(i, j int) bool { return src[i].Time.Before(src[j].Time) })

	out := make([]model.Bar, len(times))
	matched := make([]bool, len(times))
	j := 0
	for i, t := range times {
		for j < len(src) && src[j].Time.Before(t) {
			j++
		}
		if j < len(src) {
			out[i] = src[j]
			out[i].Time = t
			matched[i] = true
		}
	}

	// Forward-fill trailing gaps, then back-fill leading ones.
	for i := 1; i < len(out); i++ {
		if !matched[i] && matched[i-1] {
			out[i] = out[i-1]
			out[i].Time = times[i]
			matched[i] = true
		}
	}
	for i := len(out) - 2; i >= 0; i-- {
		if !matched[i] && matched[i+1] {
			out[i] = out[i+1]
			out[i].Time = times[i]
			matched[i] = true
		}
	}
	return out
}
