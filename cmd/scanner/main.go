package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/api"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/internal/config"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/notify"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/nse"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/scanner"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/store"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/strategy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nifty-scanner",
		Short: "Nifty options breakout scanner",
		Long:  `Polls the NSE option chain during market hours, tracks the 90 -> 100 breakout setup around the ATM strike and sends Telegram alerts for simulated entries and exits`,
		Run:   runScanner,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.AddCommand(newBacktestCmd(), newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger every command uses.
func setup() *config.Config {
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open log file")
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	return cfg
}

func runScanner(cmd *cobra.Command, args []string) {
	cfg := setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier, err := notify.New(cfg.Telegram, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create notifier")
	}

	factory := func() (nse.Provider, error) {
		p, err := nse.NewProvider(cfg.NSE, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	engine := strategy.NewEngine(cfg.Strategy, strategy.NewStore(cfg.Strategy.HistoryLimit), logger)

	var opts []scanner.Option
	if cfg.Recorder.Enabled {
		recorder, err := store.NewRecorder(cfg.Recorder.Path, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open snapshot recorder")
		}
		logger.WithFields(logrus.Fields{
			"path":      cfg.Recorder.Path,
			"snapshots": recorder.Len(),
		}).Info("Recording snapshots")
		opts = append(opts, scanner.WithRecorder(recorder))
	}

	sc, err := scanner.New(cfg.Scanner, factory, engine, notifier, logger, opts...)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scanner")
	}

	var apiServer *api.Server
	if cfg.Server.Enabled {
		var auth *api.Authenticator
		if cfg.Server.JWTSecret != "" {
			auth, err = api.NewAuthenticator(cfg.Server.JWTSecret)
			if err != nil {
				logger.WithError(err).Fatal("Failed to configure API auth")
			}
		}
		apiServer = api.NewServer(sc.Status(), auth, logger, strconv.Itoa(cfg.Server.Port))
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.WithError(err).Fatal("Failed to start API server")
			}
		}()
	}

	logger.Info("Scanner is running. Press Ctrl+C to stop.")
	if err := sc.Run(ctx); err != nil {
		logger.WithError(err).Error("Scanner exited with error")
	}

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("API server shutdown")
		}
	}
}
