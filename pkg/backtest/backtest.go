package backtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/strategy"
	"github.com/sirupsen/logrus"
)

var ErrNotEnoughData = errors.New("need at least 2 snapshots to backtest")

// TradeRecord is one simulated round trip in the results file.
type TradeRecord struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Type          string  `json:"type"`
	Entry         float64 `json:"entry"`
	Exit          float64 `json:"exit"`
	Quantity      int     `json:"quantity"`
	Profit        float64 `json:"profit"`
	ProfitPercent float64 `json:"profit_percent"`
	Outcome       string  `json:"outcome"`
}

// Results is the summary written after a run.
type Results struct {
	InitialCapital float64       `json:"initial_capital"`
	FinalCapital   float64       `json:"final_capital"`
	NetProfit      float64       `json:"net_profit"`
	ROI            float64       `json:"roi"`
	TotalTrades    int           `json:"total_trades"`
	WinningTrades  int           `json:"winning_trades"`
	LosingTrades   int           `json:"losing_trades"`
	TotalProfit    float64       `json:"total_profit"`
	TotalLoss      float64       `json:"total_loss"`
	Trades         []TradeRecord `json:"trades"`
}

// WinRate is the percentage of winning trades.
func (r *Results) WinRate() float64 {
	if r.TotalTrades == 0 {
		return 0
	}
	return float64(r.WinningTrades) / float64(r.TotalTrades) * 100
}

// Run replays snapshots in order through a fresh strategy engine and books
// every closed trade against initialCapital.
func Run(snapshots []models.Snapshot, params strategy.Params, initialCapital float64, logger *logrus.Logger) (*Results, error) {
	if len(snapshots) < 2 {
		return nil, ErrNotEnoughData
	}

	// Trade times follow the replayed data, not the wall clock.
	var current time.Time
	engine := strategy.NewEngine(params, strategy.NewStore(params.HistoryLimit), logger,
		strategy.WithClock(func() time.Time { return current }))

	capital := decimal.NewFromFloat(initialCapital)
	totalProfit := decimal.Zero
	totalLoss := decimal.Zero
	results := &Results{InitialCapital: initialCapital, Trades: []TradeRecord{}}

	for i := range snapshots {
		current = snapshots[i].Timestamp.Time
		for _, ev := range engine.Process(&snapshots[i]) {
			if ev.Type != models.EventExit {
				continue
			}
			tr := ev.Trade
			profit := decimal.NewFromFloat(tr.ExitPrice).
				Sub(decimal.NewFromFloat(tr.EntryPrice)).
				Mul(decimal.NewFromInt(int64(tr.LotSize)))
			cost := decimal.NewFromFloat(tr.EntryPrice).Mul(decimal.NewFromInt(int64(tr.LotSize)))

			pct := decimal.Zero
			if cost.IsPositive() {
				pct = profit.Div(cost).Mul(decimal.NewFromInt(100))
			}

			if profit.IsPositive() {
				totalProfit = totalProfit.Add(profit)
				results.WinningTrades++
			} else {
				totalLoss = totalLoss.Add(profit.Abs())
				results.LosingTrades++
			}
			capital = capital.Add(profit)

			results.Trades = append(results.Trades, TradeRecord{
				ID:            tr.ID,
				Symbol:        fmt.Sprintf("%s %d", tr.Key.Side, tr.Key.Strike),
				Type:          "BUY",
				Entry:         tr.EntryPrice,
				Exit:          tr.ExitPrice,
				Quantity:      tr.LotSize,
				Profit:        profit.InexactFloat64(),
				ProfitPercent: pct.Round(4).InexactFloat64(),
				Outcome:       string(tr.Outcome),
			})
		}
	}

	if pos := engine.OpenPosition(); pos != nil {
		logger.WithField("contract", pos.Key.String()).Info("Position still open at end of data, not counted")
	}

	initial := decimal.NewFromFloat(initialCapital)
	net := capital.Sub(initial)
	results.FinalCapital = capital.InexactFloat64()
	results.NetProfit = net.InexactFloat64()
	if initial.IsPositive() {
		results.ROI = net.Div(initial).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
	}
	results.TotalTrades = len(results.Trades)
	results.TotalProfit = totalProfit.InexactFloat64()
	results.TotalLoss = totalLoss.InexactFloat64()
	return results, nil
}

// ResultsFilename is the timestamped name used for a results file.
func ResultsFilename(at time.Time) string {
	return fmt.Sprintf("backtest_results_%s.json", at.Format("20060102_150405"))
}

// Write stores results as indented JSON under dir and returns the path.
func Write(dir string, results *Results, at time.Time) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	path := filepath.Join(dir, ResultsFilename(at))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return path, nil
}
