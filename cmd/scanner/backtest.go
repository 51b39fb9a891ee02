package main

import (
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/backtest"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newBacktestCmd() *cobra.Command {
	var (
		dataFile string
		capital  float64
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay recorded snapshots through the strategy",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := setup()

			if !cmd.Flags().Changed("data") {
				dataFile = cfg.Recorder.Path
			}
			if !cmd.Flags().Changed("capital") {
				capital = cfg.Backtest.InitialCapital
			}
			if !cmd.Flags().Changed("out") {
				outDir = cfg.Backtest.OutputDir
			}

			snapshots, err := store.Load(dataFile)
			if err != nil {
				logger.WithError(err).Fatal("Failed to load snapshots")
			}

			results, err := backtest.Run(snapshots, cfg.Strategy, capital, logger)
			if err != nil {
				logger.WithError(err).Fatal("Backtest failed")
			}

			path, err := backtest.Write(outDir, results, time.Now())
			if err != nil {
				logger.WithError(err).Fatal("Failed to write backtest results")
			}

			logger.WithFields(logrus.Fields{
				"snapshots":       len(snapshots),
				"total_trades":    results.TotalTrades,
				"winning_trades":  results.WinningTrades,
				"losing_trades":   results.LosingTrades,
				"win_rate":        results.WinRate(),
				"initial_capital": results.InitialCapital,
				"final_capital":   results.FinalCapital,
				"net_profit":      results.NetProfit,
				"roi":             results.ROI,
				"results_file":    path,
			}).Info("Backtest complete")
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "options_historical_data.json", "recorded snapshot file")
	cmd.Flags().Float64Var(&capital, "capital", 100000, "initial capital in rupees")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory for the results file")
	return cmd
}
