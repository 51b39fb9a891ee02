package scanner

import (
	"sync"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
)

const defaultRecentEvents = 50

// StatusSnapshot is a point-in-time copy of the scanner's state, served by
// the API.
type StatusSnapshot struct {
	Running             bool                      `json:"running"`
	MarketOpen          bool                      `json:"market_open"`
	TradingHours        string                    `json:"trading_hours"`
	StartedAt           time.Time                 `json:"started_at"`
	LastScan            *time.Time                `json:"last_scan,omitempty"`
	LastSuccess         *time.Time                `json:"last_success,omitempty"`
	LastError           string                    `json:"last_error,omitempty"`
	ConsecutiveFailures int                       `json:"consecutive_failures"`
	ProviderResets      int                       `json:"provider_resets"`
	SpotPrice           float64                   `json:"spot_price"`
	ATMStrike           int                       `json:"atm_strike"`
	Expiry              string                    `json:"expiry,omitempty"`
	Quotes              int                       `json:"quotes"`
	TrackedContracts    int                       `json:"tracked_contracts"`
	OpenPosition        *models.Position          `json:"open_position"`
	Consecutive         map[models.OptionSide]int `json:"consecutive_targets"`
}

// Status is shared between the scan loop (writer) and API handlers
// (readers).
type Status struct {
	mu          sync.RWMutex
	snap        StatusSnapshot
	recent      []models.Event
	limit       int
	subscribers map[chan models.Event]struct{}
}

func NewStatus(limit int) *Status {
	if limit <= 0 {
		limit = defaultRecentEvents
	}
	return &Status{
		limit:       limit,
		snap:        StatusSnapshot{Consecutive: map[models.OptionSide]int{}},
		subscribers: make(map[chan models.Event]struct{}),
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.snap
	if s.snap.LastScan != nil {
		t := *s.snap.LastScan
		out.LastScan = &t
	}
	if s.snap.LastSuccess != nil {
		t := *s.snap.LastSuccess
		out.LastSuccess = &t
	}
	if s.snap.OpenPosition != nil {
		pos := *s.snap.OpenPosition
		out.OpenPosition = &pos
	}
	out.Consecutive = make(map[models.OptionSide]int, len(s.snap.Consecutive))
	for side, n := range s.snap.Consecutive {
		out.Consecutive[side] = n
	}
	return out
}

// Events returns the most recent events, oldest first.
func (s *Status) Events() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Event, len(s.recent))
	copy(out, s.recent)
	return out
}

// Subscribe registers a listener for new events. Slow listeners miss
// events rather than stall the scan loop. The returned func unsubscribes.
func (s *Status) Subscribe() (<-chan models.Event, func()) {
	ch := make(chan models.Event, 16)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Status) update(fn func(*StatusSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
}

func (s *Status) publish(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent = append(s.recent, ev)
	if len(s.recent) > s.limit {
		s.recent = s.recent[len(s.recent)-s.limit:]
	}
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
