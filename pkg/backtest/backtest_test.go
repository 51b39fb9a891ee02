package backtest

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/strategy"
	"github.com/sirupsen/logrus"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func snaps(prices ...[2]float64) []models.Snapshot {
	out := make([]models.Snapshot, 0, len(prices))
	for _, p := range prices {
		out = append(out, models.Snapshot{
			SpotPrice: 23500,
			ATMStrike: 23500,
			Expiry:    "27-Jan-2026",
			Quotes: []models.Quote{
				{Strike: 23500, Side: models.SideCall, LTP: p[0]},
				{Strike: 23500, Side: models.SidePut, LTP: p[1]},
			},
		})
	}
	return out
}

func TestRunBooksTrades(t *testing.T) {
	data := snaps(
		[2]float64{85, 60},
		[2]float64{90, 70},
		[2]float64{100, 90},
		[2]float64{116, 95},
		[2]float64{120, 101},
		[2]float64{120, 88},
	)

	res, err := Run(data, strategy.DefaultParams(), 100000, discardLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TotalTrades != 2 || res.WinningTrades != 1 || res.LosingTrades != 1 {
		t.Fatalf("unexpected trade counts %+v", res)
	}
	if res.TotalProfit != 400 || res.TotalLoss != 325 {
		t.Fatalf("profit/loss = %v/%v, want 400/325", res.TotalProfit, res.TotalLoss)
	}
	if res.FinalCapital != 100075 || res.NetProfit != 75 {
		t.Fatalf("final/net = %v/%v", res.FinalCapital, res.NetProfit)
	}
	if res.ROI != 0.075 {
		t.Fatalf("roi = %v, want 0.075", res.ROI)
	}
	if res.Trades[0].Symbol != "CE 23500" || res.Trades[1].Outcome != "STOP_LOSS" {
		t.Fatalf("unexpected trades %+v", res.Trades)
	}
	if res.WinRate() != 50 {
		t.Fatalf("win rate = %v", res.WinRate())
	}
}

func TestRunNeedsTwoSnapshots(t *testing.T) {
	_, err := Run(snaps([2]float64{90, 90}), strategy.DefaultParams(), 100000, discardLogger())
	if !errors.Is(err, ErrNotEnoughData) {
		t.Fatalf("expected ErrNotEnoughData, got %v", err)
	}
}

func TestWriteResults(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 1, 20, 15, 30, 0, 0, time.UTC)
	path, err := Write(dir, &Results{InitialCapital: 1000, FinalCapital: 1000, Trades: []TradeRecord{}}, at)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"initial_capital", "final_capital", "net_profit", "roi", "total_trades", "winning_trades", "losing_trades", "total_profit", "total_loss", "trades"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("results missing %q", key)
		}
	}
	if ResultsFilename(at) != "backtest_results_20260120_153000.json" {
		t.Fatalf("unexpected filename %s", ResultsFilename(at))
	}
}
