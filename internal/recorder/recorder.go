package recorder

import "time"

// Trade actions.
const (
	ActionOpenLong  = "OPEN_LONG"
	ActionOpenShort = "OPEN_SHORT"
	ActionClose     = "CLOSE"
	ActionReset     = "RESET"
)

// TradeEvent records one ledger action against the replay clock. BarTime is
// the timestamp of the bar under the cursor, not wall-clock time.
type TradeEvent struct {
	Action    string
	Symbol    string
	Timeframe string
	BarTime   time.Time
	Price     float64
	Size      float64
	PnL       float64
	Balance   float64
}

// Recorder persists the paper-trading journal for later review.
type Recorder interface {
	RecordTrade(evt *TradeEvent) error
	Close() error
}
