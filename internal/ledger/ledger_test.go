package ledger

import (
	"testing"

	"ReplayDesk/internal/model"
)

// approx absorbs the float error of price-difference arithmetic.
func approx(got, want float64) bool {
	diff := got - want
	return diff < 1e-6 && diff > -1e-6
}

func TestLedger_LongRoundTrip(t *testing.T) {
	l := New(10000)
	if !l.Open(model.Long, 100000, 1.1000) {
		t.Fatal("open long rejected")
	}
	pnl, ok := l.Close(1.1050)
	if !ok {
		t.Fatal("close rejected")
	}
	if !approx(pnl, 500) {
		t.Fatalf("pnl = %v, want 500", pnl)
	}
	if !approx(l.Realized(), 500) {
		t.Fatalf("realized = %v, want 500", l.Realized())
	}
	if !approx(l.Balance(), 10500) {
		t.Fatalf("balance = %v, want 10500", l.Balance())
	}
	if l.Position().Direction != model.Flat {
		t.Fatalf("position not flat after close: %v", l.Position().Direction)
	}
}

func TestLedger_ShortRoundTrip(t *testing.T) {
	l := New(10000)
	if !l.Open(model.Short, 100000, 1.1000) {
		t.Fatal("open short rejected")
	}
	pnl, ok := l.Close(1.0950)
	if !ok {
		t.Fatal("close rejected")
	}
	if !approx(pnl, 500) {
		t.Fatalf("pnl = %v, want 500", pnl)
	}
}

func TestLedger_SecondOpenRejected(t *testing.T) {
	l := New(10000)
	if !l.Open(model.Long, 100000, 1.1000) {
		t.Fatal("first open rejected")
	}
	if l.Open(model.Short, 50000, 1.2000) {
		t.Fatal("second open must be a no-op")
	}
	pos := l.Position()
	if pos.Direction != model.Long || pos.Size != 100000 || pos.EntryPrice != 1.1000 {
		t.Fatalf("position changed by rejected open: %+v", pos)
	}
}

func TestLedger_CloseWhileFlatRejected(t *testing.T) {
	l := New(10000)
	if _, ok := l.Close(1.5); ok {
		t.Fatal("close while flat must be a no-op")
	}
	if l.Balance() != 10000 || l.Realized() != 0 {
		t.Fatalf("flat close changed state: balance=%v realized=%v", l.Balance(), l.Realized())
	}
}

func TestLedger_OpenRejectsBadArguments(t *testing.T) {
	l := New(10000)
	if l.Open(model.Flat, 100000, 1.1) {
		t.Fatal("flat direction must be rejected")
	}
	if l.Open(model.Long, 0, 1.1) {
		t.Fatal("zero size must be rejected")
	}
}

func TestLedger_UnrealizedZeroWhenFlat(t *testing.T) {
	l := New(10000)
	for _, price := range []float64{0, 1.1, 99999} {
		if u := l.Unrealized(price); u != 0 {
			t.Fatalf("unrealized at %v = %v, want 0 when flat", price, u)
		}
	}
}

func TestLedger_UnrealizedIsPure(t *testing.T) {
	l := New(10000)
	l.Open(model.Long, 100000, 1.1000)

	if u := l.Unrealized(1.1020); !approx(u, 200) {
		t.Fatalf("unrealized = %v, want 200", u)
	}
	if u := l.Unrealized(1.0990); u >= 0 {
		t.Fatalf("unrealized = %v, want negative", u)
	}
	if l.Balance() != 10000 || l.Realized() != 0 {
		t.Fatal("unrealized mutated ledger state")
	}
}

func TestLedger_FlattenDiscardsWithoutRealizing(t *testing.T) {
	l := New(10000)
	l.Open(model.Short, 100000, 1.1000)
	l.Flatten()
	if l.Position().Direction != model.Flat {
		t.Fatal("position not flat after Flatten")
	}
	if l.Balance() != 10000 || l.Realized() != 0 {
		t.Fatalf("Flatten touched balances: balance=%v realized=%v", l.Balance(), l.Realized())
	}
}
