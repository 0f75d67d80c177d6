package model

// Direction is the side of an open position.
type Direction int

const (
	Flat Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Position is the single live trade, if any. The zero value is flat.
type Position struct {
	Direction  Direction
	Size       float64
	EntryPrice float64
}

// PriceLevel is an optional reference price (stop loss / take profit).
// An invalid level renders nothing and carries no trading semantics.
type PriceLevel struct {
	Price float64 `json:"price"`
	Valid bool    `json:"valid"`
}
