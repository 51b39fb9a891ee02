package strategy

import (
	"io"
	"testing"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEngine() *Engine {
	fixed := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	params := DefaultParams()
	return NewEngine(params, NewStore(params.HistoryLimit), testLogger(), WithClock(func() time.Time { return fixed }))
}

func quote(strike int, side models.OptionSide, ltp float64) models.Quote {
	return models.Quote{Strike: strike, Side: side, LTP: ltp, Expiry: "27-Jan-2026"}
}

func snapshot(quotes ...models.Quote) *models.Snapshot {
	return &models.Snapshot{SpotPrice: 23500, ATMStrike: 23500, Expiry: "27-Jan-2026", Quotes: quotes}
}

func countType(events []models.Event, typ models.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// trade drives key through qualification, entry and an exit at exitPrice.
func trade(t *testing.T, e *Engine, strike int, side models.OptionSide, exitPrice float64) models.Event {
	t.Helper()
	e.Process(snapshot(quote(strike, side, 90)))
	events := e.Process(snapshot(quote(strike, side, 100)))
	if countType(events, models.EventEntry) != 1 {
		t.Fatalf("expected entry on %d %s, got %+v", strike, side, events)
	}
	events = e.Process(snapshot(quote(strike, side, exitPrice)))
	if len(events) != 1 || events[0].Type != models.EventExit {
		t.Fatalf("expected exit on %d %s, got %+v", strike, side, events)
	}
	return events[0]
}

func TestBreakoutScenario(t *testing.T) {
	e := newTestEngine()
	key := models.ContractKey{Strike: 23500, Side: models.SideCall}

	if events := e.Process(snapshot(quote(23500, models.SideCall, 85))); len(events) != 0 {
		t.Fatalf("unexpected events at 85: %+v", events)
	}
	if e.Store().State(key) != StateUnqualified {
		t.Fatalf("state = %s, want unqualified", e.Store().State(key))
	}

	events := e.Process(snapshot(quote(23500, models.SideCall, 90)))
	if len(events) != 1 || events[0].Type != models.EventQualified {
		t.Fatalf("expected QUALIFIED at 90, got %+v", events)
	}

	if events := e.Process(snapshot(quote(23500, models.SideCall, 95))); len(events) != 0 {
		t.Fatalf("unexpected events at 95: %+v", events)
	}
	if !e.Store().State(key).Qualified() {
		t.Fatalf("key should be qualified after touching 90")
	}

	events = e.Process(snapshot(quote(23500, models.SideCall, 100)))
	if len(events) != 1 || events[0].Type != models.EventEntry {
		t.Fatalf("expected ENTRY at 100, got %+v", events)
	}
	pos := events[0].Position
	if pos.EntryPrice != 100 || pos.Target != 115 || pos.StopLoss != 89 {
		t.Fatalf("unexpected position %+v", pos)
	}

	events = e.Process(snapshot(quote(23500, models.SideCall, 116)))
	if len(events) != 1 || events[0].Type != models.EventExit {
		t.Fatalf("expected EXIT at 116, got %+v", events)
	}
	tr := events[0].Trade
	if tr.Outcome != models.OutcomeTarget {
		t.Fatalf("outcome = %s, want TARGET", tr.Outcome)
	}
	if tr.PnLTotal != 400 || tr.PnLPerUnit != 16 {
		t.Fatalf("pnl = %v/%v, want 16/400", tr.PnLPerUnit, tr.PnLTotal)
	}
	if got := e.Consecutive(models.SideCall); got != 1 {
		t.Fatalf("CALL consecutive = %d, want 1", got)
	}
	if e.OpenPosition() != nil {
		t.Fatalf("position should be closed")
	}
	if e.Store().State(key) != StateClosed {
		t.Fatalf("state = %s, want closed", e.Store().State(key))
	}
}

func TestQualificationIsSticky(t *testing.T) {
	e := newTestEngine()
	key := models.ContractKey{Strike: 23450, Side: models.SidePut}

	e.Process(snapshot(quote(23450, models.SidePut, 90.5)))
	for i := 0; i < 150; i++ {
		e.Process(snapshot(quote(23450, models.SidePut, 40)))
	}

	rec := e.Store().Get(key)
	if len(rec.History()) != DefaultHistoryLimit {
		t.Fatalf("history len = %d, want %d", len(rec.History()), DefaultHistoryLimit)
	}
	for _, p := range rec.History() {
		if p != 40 {
			t.Fatalf("touch price should have rotated out of history, found %v", p)
		}
	}
	if !rec.State.Qualified() {
		t.Fatalf("qualification must survive history rotation")
	}
}

func TestQualificationBandBoundaries(t *testing.T) {
	tests := []struct {
		price float64
		want  bool
	}{
		{89.49, false},
		{89.5, true},
		{90, true},
		{90.5, true},
		{90.51, false},
	}
	for _, tt := range tests {
		e := newTestEngine()
		e.Process(snapshot(quote(23500, models.SideCall, tt.price)))
		got := e.Store().State(models.ContractKey{Strike: 23500, Side: models.SideCall}).Qualified()
		if got != tt.want {
			t.Fatalf("price %v qualified=%v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestZeroPriceQuotesIgnored(t *testing.T) {
	e := newTestEngine()
	e.Process(snapshot(quote(23500, models.SideCall, 0)))
	if e.Store().Len() != 0 {
		t.Fatalf("zero-price quote should not create a record")
	}
}

func TestSinglePositionAtATime(t *testing.T) {
	e := newTestEngine()
	e.Process(snapshot(quote(23500, models.SideCall, 90), quote(23550, models.SideCall, 90), quote(23450, models.SidePut, 90)))

	events := e.Process(snapshot(quote(23500, models.SideCall, 101), quote(23550, models.SideCall, 102), quote(23450, models.SidePut, 103)))
	if n := countType(events, models.EventEntry); n != 1 {
		t.Fatalf("entries = %d, want 1", n)
	}
	if e.OpenPosition().Key.Strike != 23500 {
		t.Fatalf("first breakout in snapshot order should win, got %+v", e.OpenPosition())
	}

	events = e.Process(snapshot(quote(23550, models.SideCall, 104), quote(23450, models.SidePut, 105)))
	if n := countType(events, models.EventEntry); n != 0 {
		t.Fatalf("entries while position open = %d, want 0", n)
	}
}

func TestExitFreesSlotWithinSameSnapshot(t *testing.T) {
	e := newTestEngine()
	e.Process(snapshot(quote(23500, models.SideCall, 90), quote(23550, models.SideCall, 90)))
	e.Process(snapshot(quote(23500, models.SideCall, 100)))

	events := e.Process(snapshot(quote(23500, models.SideCall, 120), quote(23550, models.SideCall, 101)))
	if len(events) != 2 || events[0].Type != models.EventExit || events[1].Type != models.EventEntry {
		t.Fatalf("expected EXIT then ENTRY, got %+v", events)
	}
}

func TestNoReentryAfterClose(t *testing.T) {
	e := newTestEngine()
	exit := trade(t, e, 23500, models.SideCall, 80)
	if exit.Trade.Outcome != models.OutcomeStopLoss {
		t.Fatalf("outcome = %s, want STOP_LOSS", exit.Trade.Outcome)
	}

	for _, price := range []float64{90, 100, 110} {
		events := e.Process(snapshot(quote(23500, models.SideCall, price)))
		if countType(events, models.EventEntry) != 0 {
			t.Fatalf("key re-entered at %v", price)
		}
	}
}

func TestStopLossPnL(t *testing.T) {
	e := newTestEngine()
	exit := trade(t, e, 23500, models.SidePut, 88)
	if exit.Trade.PnLTotal != -300 {
		t.Fatalf("pnl_total = %v, want -300", exit.Trade.PnLTotal)
	}
	if exit.Trade.PnLTotal >= 0 {
		t.Fatalf("stop loss pnl should be negative")
	}
}

func TestConsecutiveCounterResets(t *testing.T) {
	e := newTestEngine()

	trade(t, e, 23500, models.SideCall, 115)
	trade(t, e, 23550, models.SideCall, 118)
	if got := e.Consecutive(models.SideCall); got != 2 {
		t.Fatalf("CALL = %d, want 2", got)
	}

	trade(t, e, 23450, models.SidePut, 116)
	if got := e.Consecutive(models.SideCall); got != 0 {
		t.Fatalf("CALL after PUT target = %d, want 0", got)
	}
	if got := e.Consecutive(models.SidePut); got != 1 {
		t.Fatalf("PUT = %d, want 1", got)
	}

	trade(t, e, 23400, models.SidePut, 85)
	if got := e.Consecutive(models.SidePut); got != 0 {
		t.Fatalf("PUT after stop loss = %d, want 0", got)
	}
}

func TestMaxConsecutiveBlocksEntry(t *testing.T) {
	e := newTestEngine()
	trade(t, e, 23400, models.SideCall, 115)
	trade(t, e, 23450, models.SideCall, 115)
	trade(t, e, 23500, models.SideCall, 115)
	if got := e.Consecutive(models.SideCall); got != 3 {
		t.Fatalf("CALL = %d, want 3", got)
	}

	blocked := models.ContractKey{Strike: 23550, Side: models.SideCall}
	e.Process(snapshot(quote(blocked.Strike, blocked.Side, 90)))
	for i := 0; i < 3; i++ {
		events := e.Process(snapshot(quote(blocked.Strike, blocked.Side, 100)))
		if countType(events, models.EventEntry) != 0 {
			t.Fatalf("scan %d: blocked breakout produced an entry", i)
		}
		if e.Store().State(blocked).Entered() {
			t.Fatalf("scan %d: blocked key must not be recorded as entered", i)
		}
	}

	trade(t, e, 23500, models.SidePut, 120)
	if got := e.Consecutive(models.SideCall); got != 0 {
		t.Fatalf("CALL after PUT target = %d, want 0", got)
	}

	events := e.Process(snapshot(quote(blocked.Strike, blocked.Side, 100)))
	if countType(events, models.EventEntry) != 1 {
		t.Fatalf("breakout should enter once the counter drops, got %+v", events)
	}
}
