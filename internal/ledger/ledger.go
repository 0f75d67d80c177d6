package ledger

import "ReplayDesk/internal/model"

// Ledger tracks the account balance, cumulative realized PnL, and at most one
// open position. It is not safe for concurrent use; the owning session
// serializes access.
type Ledger struct {
	balance  float64
	realized float64
	pos      model.Position
}

// New creates a ledger with the given starting balance and no open position.
func New(balance float64) *Ledger {
	return &Ledger{balance: balance}
}

// Balance returns the current account balance.
func (l *Ledger) Balance() float64 { return l.balance }

// Realized returns the cumulative realized PnL.
func (l *Ledger) Realized() float64 { return l.realized }

// Position returns a copy of the current position.
func (l *Ledger) Position() model.Position { return l.pos }

// Open enters a position at the given price. It is rejected (returns false)
// when a position is already open or the direction is not Long or Short.
func (l *Ledger) Open(dir model.Direction, size, price float64) bool {
	if l.pos.Direction != model.Flat {
		return false
	}
	if dir != model.Long && dir != model.Short {
		return false
	}
	if size <= 0 {
		return false
	}
	l.pos = model.Position{Direction: dir, Size: size, EntryPrice: price}
	return true
}

// Close realizes the open position at the given price, crediting the PnL to
// both the realized accumulator and the balance. Rejected (ok=false) when
// flat.
func (l *Ledger) Close(price float64) (pnl float64, ok bool) {
	if l.pos.Direction == model.Flat {
		return 0, false
	}
	pnl = pnlAt(l.pos, price)
	l.realized += pnl
	l.balance += pnl
	l.pos = model.Position{}
	return pnl, true
}

// Unrealized returns the mark-to-market PnL of the open position at the given
// price, or 0 when flat. It never mutates state.
func (l *Ledger) Unrealized(price float64) float64 {
	return pnlAt(l.pos, price)
}

// Flatten discards the open position without realizing it. Balance and
// realized PnL are untouched; used by the session reset.
func (l *Ledger) Flatten() {
	l.pos = model.Position{}
}

func pnlAt(pos model.Position, price float64) float64 {
	switch pos.Direction {
	case model.Long:
		return (price - pos.EntryPrice) * pos.Size
	case model.Short:
		return (pos.EntryPrice - price) * pos.Size
	default:
		return 0
	}
}
