package models

import (
	"time"
)

type EventType string

const (
	EventQualified EventType = "QUALIFIED"
	EventEntry     EventType = "ENTRY"
	EventExit      EventType = "EXIT"
)

// Event is emitted by the strategy engine while processing a snapshot.
// Position is set for ENTRY, Trade for EXIT. Consecutive carries the side's
// counter after an EXIT.
type Event struct {
	Type        EventType   `json:"type"`
	Key         ContractKey `json:"key"`
	Price       float64     `json:"price"`
	Position    *Position   `json:"position,omitempty"`
	Trade       *Trade      `json:"trade,omitempty"`
	Consecutive int         `json:"consecutive,omitempty"`
	Time        time.Time   `json:"time"`
}
