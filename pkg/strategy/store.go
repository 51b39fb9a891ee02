package strategy

import (
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
)

// State is the lifecycle of a single contract key.
type State int

const (
	StateUnseen State = iota
	StateUnqualified
	StateQualified
	StateEntered
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnseen:
		return "unseen"
	case StateUnqualified:
		return "unqualified"
	case StateQualified:
		return "qualified"
	case StateEntered:
		return "entered"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Qualified is sticky: every state past StateQualified implies it.
func (s State) Qualified() bool {
	return s >= StateQualified
}

// Entered reports whether the key has ever been traded.
func (s State) Entered() bool {
	return s >= StateEntered
}

// Record is the per-contract memory kept across scans.
type Record struct {
	State   State
	history []float64
	limit   int
}

func newRecord(limit int) *Record {
	return &Record{
		State:   StateUnqualified,
		history: make([]float64, 0, limit),
		limit:   limit,
	}
}

// observe appends price, dropping the oldest entry once the limit is reached.
func (r *Record) observe(price float64) {
	if len(r.history) == r.limit {
		copy(r.history, r.history[1:])
		r.history = r.history[:r.limit-1]
	}
	r.history = append(r.history, price)
}

// History returns a copy of the retained prices, oldest first.
func (r *Record) History() []float64 {
	out := make([]float64, len(r.history))
	copy(out, r.history)
	return out
}

// Store owns every Record for the lifetime of the process.
type Store struct {
	records      map[models.ContractKey]*Record
	historyLimit int
}

func NewStore(historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		records:      make(map[models.ContractKey]*Record),
		historyLimit: historyLimit,
	}
}

// Get returns the record for key, or nil if the key was never observed.
func (s *Store) Get(key models.ContractKey) *Record {
	return s.records[key]
}

// State returns the lifecycle state of key.
func (s *Store) State(key models.ContractKey) State {
	if rec, ok := s.records[key]; ok {
		return rec.State
	}
	return StateUnseen
}

func (s *Store) getOrCreate(key models.ContractKey) *Record {
	rec, ok := s.records[key]
	if !ok {
		rec = newRecord(s.historyLimit)
		s.records[key] = rec
	}
	return rec
}

// Len is the number of keys observed so far.
func (s *Store) Len() int {
	return len(s.records)
}

// Reset drops all per-key state.
func (s *Store) Reset() {
	s.records = make(map[models.ContractKey]*Record)
}
