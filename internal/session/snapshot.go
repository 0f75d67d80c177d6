package session

import "ReplayDesk/internal/model"

// OverlaySlice is one aligned overlay series cut to the visible window.
type OverlaySlice struct {
	Symbol string      `json:"symbol"`
	Bars   []model.Bar `json:"bars"`
}

// PositionView is the presentation form of the open position.
type PositionView struct {
	Direction  string  `json:"direction"`
	Size       float64 `json:"size"`
	EntryPrice float64 `json:"entry_price"`
}

// Snapshot is the full observable session state handed to the presentation
// layer. Unrealized PnL and change% are derived here, never stored.
type Snapshot struct {
	Symbol        string            `json:"symbol"`
	Timeframe     model.Timeframe   `json:"timeframe"`
	Timeframes    []model.Timeframe `json:"timeframes"`
	Symbols       []string          `json:"symbols"`
	Cursor        int               `json:"cursor"`
	MaxIndex      int               `json:"max_index"`
	Zoom          int               `json:"zoom"`
	Playing       bool              `json:"is_playing"`
	SpeedMS       int               `json:"speed_ms"`
	Substeps      int               `json:"substeps_per_candle"`
	CurrentBar    model.Bar         `json:"current_bar"`
	ChangePct     float64           `json:"change_pct"`
	VisibleBars   []model.Bar       `json:"visible_bars"`
	Overlays      []OverlaySlice    `json:"overlays,omitempty"`
	StopLoss      model.PriceLevel  `json:"stop_loss"`
	TakeProfit    model.PriceLevel  `json:"take_profit"`
	Position      PositionView      `json:"position"`
	Balance       float64           `json:"balance"`
	RealizedPnL   float64           `json:"realized_pnl"`
	UnrealizedPnL float64           `json:"unrealized_pnl"`
}

// Snapshot assembles the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible, current := Viewport(s.bars, s.cursor, s.zoom)
	start := s.cursor - len(visible) + 1

	var changePct float64
	if s.cursor > 0 {
		prev := s.bars[s.cursor-1].Close
		if prev != 0 {
			changePct = (current.Close - prev) / prev * 100
		}
	}

	var overlays []OverlaySlice
	for _, sym := range s.overlaySymbols {
		full, ok := s.overlayCache[sym]
		if !ok {
			continue
		}
		end := s.cursor + 1
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		overlays = append(overlays, OverlaySlice{Symbol: sym, Bars: full[start:end]})
	}

	pos := s.book.Position()
	return Snapshot{
		Symbol:        s.symbol,
		Timeframe:     s.timeframe,
		Timeframes:    model.Timeframes,
		Symbols:       s.loader.Symbols(),
		Cursor:        s.cursor,
		MaxIndex:      len(s.bars) - 1,
		Zoom:          s.zoom,
		Playing:       s.playing,
		SpeedMS:       s.speedMS,
		Substeps:      s.substeps,
		CurrentBar:    current,
		ChangePct:     changePct,
		VisibleBars:   visible,
		Overlays:      overlays,
		StopLoss:      s.stopLoss,
		TakeProfit:    s.takeProfit,
		Position:      PositionView{Direction: pos.Direction.String(), Size: pos.Size, EntryPrice: pos.EntryPrice},
		Balance:       s.book.Balance(),
		RealizedPnL:   s.book.Realized(),
		UnrealizedPnL: s.book.Unrealized(current.Close),
	}
}
