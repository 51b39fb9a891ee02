package models

import (
	"fmt"
	"time"
)

type OptionSide string

const (
	SideCall OptionSide = "CE"
	SidePut  OptionSide = "PE"
)

// Opposite returns the other side of the chain.
func (s OptionSide) Opposite() OptionSide {
	if s == SideCall {
		return SidePut
	}
	return SideCall
}

func (s OptionSide) Valid() bool {
	return s == SideCall || s == SidePut
}

// ContractKey identifies one option contract within an expiry cycle.
type ContractKey struct {
	Strike int        `json:"strike"`
	Side   OptionSide `json:"type"`
}

func (k ContractKey) String() string {
	return fmt.Sprintf("%d_%s", k.Strike, k.Side)
}

// Quote is the interchange record for one contract inside a snapshot.
type Quote struct {
	Strike     int        `json:"strike"`
	Side       OptionSide `json:"type"`
	LTP        float64    `json:"ltp"`
	Volume     int64      `json:"volume"`
	OI         int64      `json:"oi"`
	Expiry     string     `json:"expiry"`
	CapturedAt time.Time  `json:"-"`
}

func (q Quote) Key() ContractKey {
	return ContractKey{Strike: q.Strike, Side: q.Side}
}

// Tradable reports whether the quote carries a usable last traded price.
func (q Quote) Tradable() bool {
	return q.LTP > 0
}

// Snapshot is one acquisition result. Providers build it once and never
// mutate it after returning.
type Snapshot struct {
	SpotPrice   float64    `json:"spot_price"`
	ATMStrike   int        `json:"atm_strike"`
	Expiry      string     `json:"expiry"`
	Quotes      []Quote    `json:"options"`
	Timestamp   Timestamp  `json:"timestamp"`
	CollectedAt *Timestamp `json:"collected_at,omitempty"`
}

// Find returns the quote for key, if present.
func (s *Snapshot) Find(key ContractKey) (Quote, bool) {
	for _, q := range s.Quotes {
		if q.Key() == key {
			return q, true
		}
	}
	return Quote{}, false
}
