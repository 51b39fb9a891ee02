package strategy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
	"github.com/sirupsen/logrus"
)

const DefaultHistoryLimit = 100

// Params holds the breakout thresholds. Prices are in rupees per unit.
type Params struct {
	QualifyLow     float64 `mapstructure:"qualify_low"`
	QualifyHigh    float64 `mapstructure:"qualify_high"`
	Breakout       float64 `mapstructure:"breakout"`
	Target         float64 `mapstructure:"target"`
	StopLoss       float64 `mapstructure:"stop_loss"`
	LotSize        int     `mapstructure:"lot_size"`
	MaxConsecutive int     `mapstructure:"max_consecutive"`
	HistoryLimit   int     `mapstructure:"history_limit"`
}

func DefaultParams() Params {
	return Params{
		QualifyLow:     89.5,
		QualifyHigh:    90.5,
		Breakout:       100,
		Target:         115,
		StopLoss:       89,
		LotSize:        25,
		MaxConsecutive: 3,
		HistoryLimit:   DefaultHistoryLimit,
	}
}

type Option func(*Engine)

// WithClock overrides the time source used for entry and exit timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine runs the 90 -> 100 breakout strategy over successive snapshots.
// It is not safe for concurrent use; the scanner loop owns it.
type Engine struct {
	params      Params
	store       *Store
	position    *models.Position
	consecutive map[models.OptionSide]int
	now         func() time.Time
	logger      *logrus.Logger
}

func NewEngine(params Params, store *Store, logger *logrus.Logger, opts ...Option) *Engine {
	if store == nil {
		store = NewStore(params.HistoryLimit)
	}
	e := &Engine{
		params:      params,
		store:       store,
		consecutive: map[models.OptionSide]int{models.SideCall: 0, models.SidePut: 0},
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process evaluates every tradable quote of snap in order and returns the
// events it produced.
func (e *Engine) Process(snap *models.Snapshot) []models.Event {
	if snap == nil {
		return nil
	}

	var events []models.Event
	for _, quote := range snap.Quotes {
		if !quote.Tradable() {
			continue
		}
		key := quote.Key()
		rec := e.store.getOrCreate(key)

		if e.qualify(rec, quote.LTP) {
			e.logger.WithFields(logrus.Fields{
				"contract": key.String(),
				"price":    quote.LTP,
			}).Info("Contract qualified")
			events = append(events, models.Event{
				Type:  models.EventQualified,
				Key:   key,
				Price: quote.LTP,
				Time:  e.now(),
			})
		}

		if e.position != nil && e.position.Key == key {
			if ev, closed := e.monitor(rec, quote.LTP); closed {
				events = append(events, ev)
			}
		}

		if e.position == nil {
			if ev, entered := e.tryEnter(rec, key, quote.LTP); entered {
				events = append(events, ev)
			}
		}
	}
	return events
}

// qualify records price and reports whether the key became qualified on
// this observation.
func (e *Engine) qualify(rec *Record, price float64) bool {
	rec.observe(price)
	if rec.State.Qualified() {
		return false
	}
	for _, p := range rec.history {
		if p >= e.params.QualifyLow && p <= e.params.QualifyHigh {
			rec.State = StateQualified
			return true
		}
	}
	return false
}

func (e *Engine) monitor(rec *Record, price float64) (models.Event, bool) {
	switch {
	case price >= e.position.Target:
		return e.close(rec, price, models.OutcomeTarget), true
	case price <= e.position.StopLoss:
		return e.close(rec, price, models.OutcomeStopLoss), true
	default:
		return models.Event{}, false
	}
}

func (e *Engine) close(rec *Record, price float64, outcome models.ExitOutcome) models.Event {
	pos := e.position
	side := pos.Key.Side
	perUnit := price - pos.EntryPrice
	now := e.now()

	trade := &models.Trade{
		ID:         uuid.NewString(),
		Key:        pos.Key,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		LotSize:    e.params.LotSize,
		PnLPerUnit: perUnit,
		PnLTotal:   perUnit * float64(e.params.LotSize),
		Outcome:    outcome,
		EntryTime:  pos.EntryTime,
		ExitTime:   now,
	}

	if outcome == models.OutcomeTarget {
		e.consecutive[side]++
		e.consecutive[side.Opposite()] = 0
	} else {
		e.consecutive[side] = 0
	}

	rec.State = StateClosed
	e.position = nil

	e.logger.WithFields(logrus.Fields{
		"contract":    pos.Key.String(),
		"outcome":     outcome,
		"entry":       trade.EntryPrice,
		"exit":        trade.ExitPrice,
		"pnl_total":   trade.PnLTotal,
		"consecutive": e.consecutive[side],
	}).Info("Position closed")

	return models.Event{
		Type:        models.EventExit,
		Key:         pos.Key,
		Price:       price,
		Trade:       trade,
		Consecutive: e.consecutive[side],
		Time:        now,
	}
}

func (e *Engine) tryEnter(rec *Record, key models.ContractKey, price float64) (models.Event, bool) {
	if !rec.State.Qualified() || rec.State.Entered() || price < e.params.Breakout {
		return models.Event{}, false
	}

	// A blocked breakout is not recorded, so it is evaluated again next scan.
	if e.consecutive[key.Side] >= e.params.MaxConsecutive {
		e.logger.WithFields(logrus.Fields{
			"contract":    key.String(),
			"price":       price,
			"consecutive": e.consecutive[key.Side],
		}).Warn("Max consecutive trades reached, skipping entry")
		return models.Event{}, false
	}

	now := e.now()
	e.position = &models.Position{
		Key:        key,
		EntryPrice: price,
		Target:     e.params.Target,
		StopLoss:   e.params.StopLoss,
		EntryTime:  now,
	}
	rec.State = StateEntered

	e.logger.WithFields(logrus.Fields{
		"contract": key.String(),
		"entry":    price,
	}).Info("Position opened")

	pos := *e.position
	return models.Event{
		Type:     models.EventEntry,
		Key:      key,
		Price:    price,
		Position: &pos,
		Time:     now,
	}, true
}

// OpenPosition returns a copy of the open position, or nil.
func (e *Engine) OpenPosition() *models.Position {
	if e.position == nil {
		return nil
	}
	pos := *e.position
	return &pos
}

func (e *Engine) Consecutive(side models.OptionSide) int {
	return e.consecutive[side]
}

func (e *Engine) Store() *Store {
	return e.store
}

func (e *Engine) Params() Params {
	return e.params
}
