package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/notify"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/nse"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/scanner"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/secrets"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/strategy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	NSE      nse.Options           `mapstructure:"nse"`
	Strategy strategy.Params       `mapstructure:"strategy"`
	Scanner  scanner.Config        `mapstructure:"scanner"`
	Telegram notify.TelegramConfig `mapstructure:"telegram"`
	Recorder RecorderConfig        `mapstructure:"recorder"`
	Backtest BacktestConfig        `mapstructure:"backtest"`
	Server   ServerConfig          `mapstructure:"server"`
	Logging  LoggingConfig         `mapstructure:"logging"`
	GCP      GCPConfig             `mapstructure:"gcp"`
}

type RecorderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	OutputDir      string  `mapstructure:"output_dir"`
}

type ServerConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type GCPConfig struct {
	ProjectID       string              `mapstructure:"project_id"`
	UseSecrets      bool                `mapstructure:"use_secrets"`
	CredentialsFile string              `mapstructure:"credentials_file"`
	SecretNames     secrets.SecretNames `mapstructure:"secret_names"`
}

func Load(configPath string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/nifty-scanner")
	}

	v.SetEnvPrefix("SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&config)

	if config.GCP.UseSecrets && config.GCP.ProjectID != "" {
		ctx := context.Background()
		logger := logrus.New()
		if err := loadSecretsFromGCP(ctx, &config, logger); err != nil {
			return nil, fmt.Errorf("error loading secrets from GCP: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	n := nse.DefaultOptions()
	v.SetDefault("nse.base_url", n.BaseURL)
	v.SetDefault("nse.entry_path", n.EntryPath)
	v.SetDefault("nse.index_name", n.IndexName)
	v.SetDefault("nse.symbol", n.Symbol)
	v.SetDefault("nse.strike_increment", n.StrikeIncrement)
	v.SetDefault("nse.strike_window", n.StrikeWindow)
	v.SetDefault("nse.max_attempts", n.MaxAttempts)
	v.SetDefault("nse.backoff", n.Backoff)
	v.SetDefault("nse.timeout", n.Timeout)
	v.SetDefault("nse.requests_per_second", n.RequestsPerSecond)

	p := strategy.DefaultParams()
	v.SetDefault("strategy.qualify_low", p.QualifyLow)
	v.SetDefault("strategy.qualify_high", p.QualifyHigh)
	v.SetDefault("strategy.breakout", p.Breakout)
	v.SetDefault("strategy.target", p.Target)
	v.SetDefault("strategy.stop_loss", p.StopLoss)
	v.SetDefault("strategy.lot_size", p.LotSize)
	v.SetDefault("strategy.max_consecutive", p.MaxConsecutive)
	v.SetDefault("strategy.history_limit", p.HistoryLimit)

	s := scanner.DefaultConfig()
	v.SetDefault("scanner.interval", s.Interval)
	v.SetDefault("scanner.trading_start", s.TradingStart)
	v.SetDefault("scanner.trading_end", s.TradingEnd)
	v.SetDefault("scanner.timezone", s.Timezone)
	v.SetDefault("scanner.failure_threshold", s.FailureThreshold)
	v.SetDefault("scanner.recovery_cooldown", s.RecoveryCooldown)
	v.SetDefault("scanner.notify_timeout", s.NotifyTimeout)
	v.SetDefault("scanner.recent_events", s.RecentEvents)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_url", "")

	v.SetDefault("recorder.enabled", false)
	v.SetDefault("recorder.path", "options_historical_data.json")

	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("backtest.output_dir", ".")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwt_secret", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	v.SetDefault("gcp.use_secrets", false)
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.credentials_file", "")

	secretNames := secrets.DefaultSecretNames()
	v.SetDefault("gcp.secret_names.telegram_bot_token", secretNames.TelegramBotToken)
	v.SetDefault("gcp.secret_names.telegram_chat_id", secretNames.TelegramChatID)
	v.SetDefault("gcp.secret_names.api_jwt_secret", secretNames.APIJWTSecret)
}

func overrideFromEnv(config *Config) {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		config.Telegram.BotToken = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		config.Telegram.ChatID = chatID
	}
	if secret := os.Getenv("SCANNER_API_JWT_SECRET"); secret != "" {
		config.Server.JWTSecret = secret
	}

	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		config.GCP.ProjectID = projectID
	}
	if useSecrets := os.Getenv("GCP_USE_SECRETS"); useSecrets == "true" {
		config.GCP.UseSecrets = true
	}
}

// Validate rejects settings the scanner cannot run with.
func (c *Config) Validate() error {
	p := c.Strategy
	if p.QualifyLow > p.QualifyHigh {
		return fmt.Errorf("strategy.qualify_low (%v) is above strategy.qualify_high (%v)", p.QualifyLow, p.QualifyHigh)
	}
	if p.StopLoss >= p.Breakout || p.Target <= p.Breakout {
		return fmt.Errorf("strategy levels must satisfy stop_loss < breakout < target, got %v/%v/%v", p.StopLoss, p.Breakout, p.Target)
	}
	if p.LotSize <= 0 {
		return fmt.Errorf("strategy.lot_size must be positive, got %d", p.LotSize)
	}
	if p.MaxConsecutive <= 0 {
		return fmt.Errorf("strategy.max_consecutive must be positive, got %d", p.MaxConsecutive)
	}
	if c.Scanner.Interval <= 0 {
		return fmt.Errorf("scanner.interval must be positive, got %s", c.Scanner.Interval)
	}
	if c.Scanner.FailureThreshold <= 0 {
		return fmt.Errorf("scanner.failure_threshold must be positive, got %d", c.Scanner.FailureThreshold)
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

func loadSecretsFromGCP(ctx context.Context, config *Config, logger *logrus.Logger) error {
	secretManager, err := secrets.NewGCPSecretManager(ctx, config.GCP.ProjectID, config.GCP.CredentialsFile, logger)
	if err != nil {
		return fmt.Errorf("failed to create secret manager: %w", err)
	}
	defer secretManager.Close()

	applySecrets(ctx, config, secretManager)
	logger.Info("Successfully loaded secrets from GCP Secret Manager")
	return nil
}

// applySecrets fills credentials that are not already set.
func applySecrets(ctx context.Context, config *Config, sm *secrets.GCPSecretManager) {
	names := config.GCP.SecretNames
	if config.Telegram.BotToken == "" {
		config.Telegram.BotToken = sm.GetSecretWithDefault(ctx, names.TelegramBotToken, "")
	}
	if config.Telegram.ChatID == "" {
		config.Telegram.ChatID = sm.GetSecretWithDefault(ctx, names.TelegramChatID, "")
	}
	if config.Server.JWTSecret == "" {
		config.Server.JWTSecret = sm.GetSecretWithDefault(ctx, names.APIJWTSecret, "")
	}
}
