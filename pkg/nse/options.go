package nse

import (
	"time"
)

// Options configures the NSE option chain provider.
type Options struct {
	BaseURL           string        `mapstructure:"base_url"`
	EntryPath         string        `mapstructure:"entry_path"`
	IndexName         string        `mapstructure:"index_name"`
	Symbol            string        `mapstructure:"symbol"`
	StrikeIncrement   int           `mapstructure:"strike_increment"`
	StrikeWindow      int           `mapstructure:"strike_window"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	Backoff           time.Duration `mapstructure:"backoff"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

func DefaultOptions() Options {
	return Options{
		BaseURL:           "https://www.nseindia.com",
		EntryPath:         "/option-chain",
		IndexName:         "NIFTY 50",
		Symbol:            "NIFTY",
		StrikeIncrement:   50,
		StrikeWindow:      5,
		MaxAttempts:       3,
		Backoff:           2500 * time.Millisecond,
		Timeout:           15 * time.Second,
		RequestsPerSecond: 3,
	}
}

// withDefaults fills zero values so a partially populated Options is usable.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BaseURL == "" {
		o.BaseURL = d.BaseURL
	}
	if o.EntryPath == "" {
		o.EntryPath = d.EntryPath
	}
	if o.IndexName == "" {
		o.IndexName = d.IndexName
	}
	if o.Symbol == "" {
		o.Symbol = d.Symbol
	}
	if o.StrikeIncrement <= 0 {
		o.StrikeIncrement = d.StrikeIncrement
	}
	if o.StrikeWindow <= 0 {
		o.StrikeWindow = d.StrikeWindow
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.Backoff < 0 {
		o.Backoff = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}
