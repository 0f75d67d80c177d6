package session

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"ReplayDesk/internal/config"
	"ReplayDesk/internal/ledger"
	"ReplayDesk/internal/model"
	"ReplayDesk/internal/recorder"
	"ReplayDesk/internal/series"
)

// Session holds all mutable replay state for one user: the loaded primary
// series, the overlay cache, the cursor, the playback clock, the reference
// lines and the trading ledger. All methods are safe for concurrent use;
// a single mutex serializes the presentation layer and the playback goroutine.
type Session struct {
	mu sync.Mutex

	loader   *series.Loader
	recorder recorder.Recorder

	defaultCursor int
	orderSize     float64
	maxOverlays   int
	minSpeedMS    int
	maxSpeedMS    int

	symbol    string
	timeframe model.Timeframe
	bars      []model.Bar

	overlaySymbols []string
	overlayCache   map[string][]model.Bar
	overlayKey     string

	cursor int
	zoom   int

	stopLoss   model.PriceLevel
	takeProfit model.PriceLevel
	book       *ledger.Ledger

	playing       bool
	speedMS       int
	substeps      int
	savedSubsteps int
	stopPlay      chan struct{}

	notify func()
}

// New creates a session positioned at the configured defaults. It fails when
// the initial symbol has no data: an empty series is fatal, not retried.
func New(cfg *config.Config, loader *series.Loader, rec recorder.Recorder) (*Session, error) {
	tf, err := model.ParseTimeframe(cfg.Session.Timeframe)
	if err != nil {
		return nil, err
	}

	s := &Session{
		loader:        loader,
		recorder:      rec,
		defaultCursor: cfg.Session.Cursor,
		orderSize:     cfg.Session.OrderSize,
		maxOverlays:   cfg.Session.MaxOverlays,
		minSpeedMS:    cfg.Playback.MinSpeedMS,
		maxSpeedMS:    cfg.Playback.MaxSpeedMS,
		symbol:        cfg.Session.Symbol,
		timeframe:     tf,
		cursor:        cfg.Session.Cursor,
		zoom:          cfg.Session.Zoom,
		book:          ledger.New(cfg.Session.Balance),
		speedMS:       cfg.Playback.SpeedMS,
		substeps:      cfg.Playback.SubstepsPerCandle,
		overlayCache:  make(map[string][]model.Bar),
	}

	s.bars = loader.Load(s.symbol, s.timeframe)
	if len(s.bars) == 0 {
		return nil, fmt.Errorf("no data for %s %s: check the data directory", s.symbol, s.timeframe)
	}
	s.clampCursorLocked()
	return s, nil
}

// SetNotify registers a callback invoked after every playback advance.
func (s *Session) SetNotify(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// Symbols lists the symbols available on disk.
func (s *Session) Symbols() []string {
	return s.loader.Symbols()
}

// SetSymbol switches the primary instrument. The cursor is pulled back to the
// default position when it sits beyond it; a symbol without data is rejected
// and the session keeps its previous state.
func (s *Session) SetSymbol(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if symbol == s.symbol {
		return nil
	}
	bars := s.loader.Load(symbol, s.timeframe)
	if len(bars) == 0 {
		return fmt.Errorf("no data for %s %s", symbol, s.timeframe)
	}

	s.symbol = symbol
	s.bars = bars
	if s.cursor > s.defaultCursor {
		s.cursor = s.defaultCursor
	}
	s.clampCursorLocked()

	// The new primary cannot also be an overlay.
	kept := s.overlaySymbols[:0]
	for _, sym := range s.overlaySymbols {
		if sym != symbol {
			kept = append(kept, sym)
		}
	}
	s.overlaySymbols = kept
	s.rebuildOverlaysLocked()
	return nil
}

// SetTimeframe switches the resampling granularity.
func (s *Session) SetTimeframe(raw string) error {
	tf, err := model.ParseTimeframe(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tf == s.timeframe {
		return nil
	}
	bars := s.loader.Load(s.symbol, tf)
	if len(bars) == 0 {
		return fmt.Errorf("no data for %s %s", s.symbol, tf)
	}
	s.timeframe = tf
	s.bars = bars
	s.clampCursorLocked()
	s.rebuildOverlaysLocked()
	return nil
}

// SetOverlays replaces the overlay symbol set. The primary symbol is ignored
// and the list is capped at the configured maximum.
func (s *Session) SetOverlays(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []string
	for _, sym := range symbols {
		if sym != s.symbol {
			kept = append(kept, sym)
		}
	}
	if len(kept) > s.maxOverlays {
		log.Printf("[WARN] overlay selection capped at %d symbols", s.maxOverlays)
		kept = kept[:s.maxOverlays]
	}
	s.overlaySymbols = kept
	s.rebuildOverlaysLocked()
}

// rebuildOverlaysLocked recomputes the aligned overlay cache when its key
// (overlay list + timeframe + primary symbol) changed. Overlays without data
// are silently absent.
func (s *Session) rebuildOverlaysLocked() {
	key := strings.Join(s.overlaySymbols, ",") + "|" + string(s.timeframe) + "|" + s.symbol
	if key == s.overlayKey {
		return
	}

	times := make([]time.Time, len(s.bars))
	for i, b := range s.bars {
		times[i] = b.Time
	}

	s.overlayCache = make(map[string][]model.Bar)
	for _, sym := range s.overlaySymbols {
		bars := s.loader.Load(sym, s.timeframe)
		if len(bars) == 0 {
			continue
		}
		if aligned := series.AlignOverlay(times, bars); len(aligned) > 0 {
			s.overlayCache[sym] = aligned
		}
	}
	s.overlayKey = key
}

// JumpStart moves the cursor to the first bar.
func (s *Session) JumpStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = 0
}

// StepBack moves the cursor one bar back, stopping at the first bar.
func (s *Session) StepBack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor > 0 {
		s.cursor--
	}
}

// StepForward moves the cursor one bar forward, stopping at the last bar.
func (s *Session) StepForward() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < len(s.bars)-1 {
		s.cursor++
	}
}

// JumpEnd moves the cursor to the last bar.
func (s *Session) JumpEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = len(s.bars) - 1
}

// GotoDate moves the cursor to the bar whose timestamp is nearest to the
// requested date; ties resolve to the earlier bar.
func (s *Session) GotoDate(target time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := 0
	bestDiff := absDuration(s.bars[0].Time.Sub(target))
	for i := 1; i < len(s.bars); i++ {
		if d := absDuration(s.bars[i].Time.Sub(target)); d < bestDiff {
			best = i
			bestDiff = d
		}
	}
	s.cursor = best
}

// SetZoom adjusts the visible window width in bars.
func (s *Session) SetZoom(zoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if zoom > 0 {
		s.zoom = zoom
	}
}

// SetStopLoss sets the advisory stop-loss line. A non-positive price clears
// it. The line never auto-closes the position.
func (s *Session) SetStopLoss(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLoss = model.PriceLevel{Price: price, Valid: price > 0}
}

// SetTakeProfit sets the advisory take-profit line. A non-positive price
// clears it.
func (s *Session) SetTakeProfit(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.takeProfit = model.PriceLevel{Price: price, Valid: price > 0}
}

// Buy opens a long position at the current bar's close. Size 0 means the
// configured default order size. A second open is a silent no-op.
func (s *Session) Buy(size float64) {
	s.openPosition(model.Long, size)
}

// Sell opens a short position at the current bar's close.
func (s *Session) Sell(size float64) {
	s.openPosition(model.Short, size)
}

func (s *Session) openPosition(dir model.Direction, size float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if size <= 0 {
		size = s.orderSize
	}
	bar := s.currentLocked()
	if !s.book.Open(dir, size, bar.Close) {
		return
	}

	action := recorder.ActionOpenLong
	if dir == model.Short {
		action = recorder.ActionOpenShort
	}
	s.recordLocked(&recorder.TradeEvent{
		Action: action, BarTime: bar.Time, Price: bar.Close, Size: size,
	})
}

// ClosePosition realizes the open position at the current bar's close.
// A close while flat is a silent no-op.
func (s *Session) ClosePosition() {
	s.mu.Lock()
	defer s.mu.Unlock()

	bar := s.currentLocked()
	pos := s.book.Position()
	pnl, ok := s.book.Close(bar.Close)
	if !ok {
		return
	}
	s.recordLocked(&recorder.TradeEvent{
		Action: recorder.ActionClose, BarTime: bar.Time,
		Price: bar.Close, Size: pos.Size, PnL: pnl,
	})
}

// Reset returns the session to its default position: cursor at the default
// bar (or 0 for short series), playback paused, position and reference lines
// cleared. Balance and realized PnL survive.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pauseLocked()
	if len(s.bars) > s.defaultCursor {
		s.cursor = s.defaultCursor
	} else {
		s.cursor = 0
	}
	s.stopLoss = model.PriceLevel{}
	s.takeProfit = model.PriceLevel{}

	bar := s.currentLocked()
	if s.book.Position().Direction != model.Flat {
		s.book.Flatten()
		s.recordLocked(&recorder.TradeEvent{
			Action: recorder.ActionReset, BarTime: bar.Time, Price: bar.Close,
		})
	}
}

func (s *Session) recordLocked(evt *recorder.TradeEvent) {
	evt.Symbol = s.symbol
	evt.Timeframe = string(s.timeframe)
	evt.Balance = s.book.Balance()
	if err := s.recorder.RecordTrade(evt); err != nil {
		log.Printf("[ERROR] record trade: %v", err)
	}
}

// clampCursorLocked pins the cursor into the valid index range, protecting
// callers holding a cursor that a symbol or timeframe switch invalidated.
func (s *Session) clampCursorLocked() {
	if s.cursor > len(s.bars)-1 {
		s.cursor = len(s.bars) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

func (s *Session) currentLocked() model.Bar {
	_, bar := Viewport(s.bars, s.cursor, s.zoom)
	return bar
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
