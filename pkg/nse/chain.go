package nse

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
)

type indicesResponse struct {
	Data []struct {
		Index string  `json:"index"`
		Last  float64 `json:"last"`
	} `json:"data"`
}

type ChainResponse struct {
	Records ChainRecords `json:"records"`
}

type ChainRecords struct {
	ExpiryDates     []string   `json:"expiryDates"`
	Data            []ChainRow `json:"data"`
	UnderlyingValue float64    `json:"underlyingValue"`
}

type ChainRow struct {
	StrikePrice float64   `json:"strikePrice"`
	ExpiryDate  string    `json:"expiryDate"`
	CE          *ChainLeg `json:"CE"`
	PE          *ChainLeg `json:"PE"`
}

type ChainLeg struct {
	LastPrice         float64 `json:"lastPrice"`
	TotalTradedVolume float64 `json:"totalTradedVolume"`
	OpenInterest      float64 `json:"openInterest"`
}

// ATMStrike rounds spot to the nearest strike, halves away from zero.
func ATMStrike(spot float64, increment int) int {
	return int(math.Round(spot/float64(increment))) * increment
}

// StrikeWindow returns the strikes atm-window*increment .. atm+window*increment.
func StrikeWindow(atm, increment, window int) []int {
	strikes := make([]int, 0, 2*window+1)
	for i := -window; i <= window; i++ {
		strikes = append(strikes, atm+i*increment)
	}
	return strikes
}

// SelectQuotes picks the nearest expiry and extracts the tradable CE and PE
// quotes inside the strike window, ordered by strike with CE first.
func SelectQuotes(chain *ChainResponse, atm, increment, window int, capturedAt time.Time) (string, []models.Quote, error) {
	if chain == nil || len(chain.Records.ExpiryDates) == 0 {
		return "", nil, fmt.Errorf("%w: no expiry dates in chain", ErrNoData)
	}
	expiry := chain.Records.ExpiryDates[0]

	wanted := make(map[int]bool, 2*window+1)
	for _, strike := range StrikeWindow(atm, increment, window) {
		wanted[strike] = true
	}

	var quotes []models.Quote
	for _, row := range chain.Records.Data {
		if row.ExpiryDate != expiry {
			continue
		}
		strike := int(math.Round(row.StrikePrice))
		if float64(strike) != row.StrikePrice || !wanted[strike] {
			continue
		}
		if q, ok := legQuote(row.CE, strike, models.SideCall, expiry, capturedAt); ok {
			quotes = append(quotes, q)
		}
		if q, ok := legQuote(row.PE, strike, models.SidePut, expiry, capturedAt); ok {
			quotes = append(quotes, q)
		}
	}

	if len(quotes) == 0 {
		return expiry, nil, fmt.Errorf("%w: expiry %s around strike %d", ErrNoData, expiry, atm)
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Strike < quotes[j].Strike
	})
	return expiry, quotes, nil
}

func legQuote(leg *ChainLeg, strike int, side models.OptionSide, expiry string, capturedAt time.Time) (models.Quote, bool) {
	if leg == nil || leg.LastPrice <= 0 {
		return models.Quote{}, false
	}
	return models.Quote{
		Strike:     strike,
		Side:       side,
		LTP:        leg.LastPrice,
		Volume:     int64(leg.TotalTradedVolume),
		OI:         int64(leg.OpenInterest),
		Expiry:     expiry,
		CapturedAt: capturedAt,
	}, true
}
