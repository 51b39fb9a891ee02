package models

import (
	"time"
)

type ExitOutcome string

const (
	OutcomeTarget   ExitOutcome = "TARGET"
	OutcomeStopLoss ExitOutcome = "STOP_LOSS"
)

// Position is the single simulated open trade.
type Position struct {
	Key        ContractKey `json:"key"`
	EntryPrice float64     `json:"entry_price"`
	Target     float64     `json:"target"`
	StopLoss   float64     `json:"stop_loss"`
	EntryTime  time.Time   `json:"entry_time"`
}

// Trade is a closed position.
type Trade struct {
	ID         string      `json:"id"`
	Key        ContractKey `json:"key"`
	EntryPrice float64     `json:"entry_price"`
	ExitPrice  float64     `json:"exit_price"`
	LotSize    int         `json:"lot_size"`
	PnLPerUnit float64     `json:"pnl_per_unit"`
	PnLTotal   float64     `json:"pnl_total"`
	Outcome    ExitOutcome `json:"outcome"`
	EntryTime  time.Time   `json:"entry_time"`
	ExitTime   time.Time   `json:"exit_time"`
}
