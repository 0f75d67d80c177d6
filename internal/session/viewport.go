package session

import "ReplayDesk/internal/model"

// Viewport derives the visible window ending at the cursor and the bar under
// it. The cursor is clamped into the series bounds before slicing, so callers
// holding a stale cursor still get a valid window. Pure; no state is touched.
func Viewport(bars []model.Bar, cursor, zoom int) (visible []model.Bar, current model.Bar) {
	if len(bars) == 0 {
		return nil, model.Bar{}
	}
	if cursor > len(bars)-1 {
		cursor = len(bars) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	start := cursor - zoom
	if start < 0 {
		start = 0
	}
	return bars[start : cursor+1], bars[cursor]
}
